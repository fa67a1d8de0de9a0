package memcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shulehq/shule/core"
)

type entry struct {
	raw       []byte
	expiresAt time.Time
}

// Cache is an in-process core.Cache used in tests and local dev.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

var _ core.Cache = (*Cache)(nil)

func Open() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

func (c *Cache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		return core.ErrCacheMiss
	}
	return json.Unmarshal(e.raw, dest)
}

func (c *Cache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := entry{raw: raw}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}
