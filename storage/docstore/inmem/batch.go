package inmemdoc

import (
	"context"
	"encoding/json"

	"github.com/shulehq/shule/core"
)

type opKind int

const (
	opSet opKind = iota
	opMerge
	opDelete
)

type op struct {
	kind   opKind
	col    string
	key    string
	doc    interface{}
	fields map[string]interface{}
}

// batch queues writes and applies them under one lock acquisition, so the
// whole set is visible atomically.
type batch struct {
	db  *DB
	ops []op
}

var _ core.DocstoreBatch = (*batch)(nil)

func (b *batch) Set(col, key string, doc interface{}) core.DocstoreBatch {
	b.ops = append(b.ops, op{kind: opSet, col: col, key: key, doc: doc})
	return b
}

func (b *batch) Merge(col, key string, fields map[string]interface{}) core.DocstoreBatch {
	b.ops = append(b.ops, op{kind: opMerge, col: col, key: key, fields: fields})
	return b
}

func (b *batch) Delete(col, key string) core.DocstoreBatch {
	b.ops = append(b.ops, op{kind: opDelete, col: col, key: key})
	return b
}

func (b *batch) Commit(context.Context) error {
	// serialize Set payloads before mutating anything so a marshal failure
	// leaves the store untouched
	raws := make(map[int][]byte, len(b.ops))
	for i, o := range b.ops {
		if o.kind == opSet {
			raw, err := json.Marshal(o.doc)
			if err != nil {
				return err
			}
			raws[i] = raw
		}
	}

	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for i, o := range b.ops {
		switch o.kind {
		case opSet:
			b.db.set(o.col, o.key, raws[i])
		case opMerge:
			if err := b.db.merge(o.col, o.key, o.fields); err != nil {
				return err
			}
		case opDelete:
			delete(b.db.cols[o.col], o.key)
		}
	}
	return nil
}
