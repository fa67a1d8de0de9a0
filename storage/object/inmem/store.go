package inmemobj

import (
	"context"
	"sync"

	"github.com/shulehq/shule/core"
)

// Store is an in-memory Filestore used in tests and local dev.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ core.Filestore = (*Store)(nil)

func Open() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return "mem://" + key, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return core.ErrFileNotFound
	}
	delete(s.blobs, key)
	return nil
}

// Has reports whether a blob exists; test helper.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok
}

// Len reports the number of stored blobs; test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
