package inmemdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/shulehq/shule/core"
)

// DB is a mutex-guarded in-memory Docstore used in tests and local dev.
// Documents are held as their JSON serialization so queries and decoding
// behave like the managed backend's field-name based access.
type DB struct {
	mu   sync.RWMutex
	cols map[string]map[string][]byte
}

var _ core.Docstore = (*DB)(nil)

func Open() *DB {
	return &DB{cols: make(map[string]map[string][]byte)}
}

func (db *DB) Get(_ context.Context, col, key string, dest interface{}) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	raw, ok := db.cols[col][key]
	if !ok {
		return core.ErrDocNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (db *DB) Exists(_ context.Context, col, key string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.cols[col][key]
	return ok, nil
}

func (db *DB) Set(_ context.Context, col, key string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.set(col, key, raw)
	return nil
}

func (db *DB) Merge(_ context.Context, col, key string, fields map[string]interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.merge(col, key, fields)
}

func (db *DB) Delete(_ context.Context, col, key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.cols[col], key) // deleting a missing doc is not an error
	return nil
}

func (db *DB) GetAll(_ context.Context, col string, dest interface{}, q core.Query) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	matched, err := db.query(col, q)
	if err != nil {
		return err
	}

	// decode via a JSON array so dest may be a pointer to any struct slice
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, raw := range matched {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), dest)
}

func (db *DB) Batch() core.DocstoreBatch {
	return &batch{db: db}
}

// Count returns the number of documents in a collection.
func (db *DB) Count(col string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.cols[col])
}

// internals; callers hold the lock

func (db *DB) set(col, key string, raw []byte) {
	table, ok := db.cols[col]
	if !ok {
		table = make(map[string][]byte)
		db.cols[col] = table
	}
	table[key] = raw
}

func (db *DB) merge(col, key string, fields map[string]interface{}) error {
	doc := make(map[string]interface{})
	if raw, ok := db.cols[col][key]; ok {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
	}
	// normalize field values through JSON so comparisons see the same
	// representation as full documents
	normRaw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	norm := make(map[string]interface{})
	if err := json.Unmarshal(normRaw, &norm); err != nil {
		return err
	}
	for k, v := range norm {
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	db.set(col, key, raw)
	return nil
}

func (db *DB) query(col string, q core.Query) ([][]byte, error) {
	type entry struct {
		raw []byte
		doc map[string]interface{}
	}
	entries := make([]entry, 0, len(db.cols[col]))
	for _, raw := range db.cols[col] {
		doc := make(map[string]interface{})
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		ok, err := matches(doc, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, entry{raw: raw, doc: doc})
		}
	}

	if len(q.OrderBy) > 0 {
		sort.SliceStable(entries, func(i, j int) bool {
			return docLess(entries[i].doc, entries[j].doc, q.OrderBy)
		})
	}

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.raw
	}
	return out, nil
}
