package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrCacheMiss is returned by Cache implementations when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache memoizes derived read-models (tag/category/folder vocabularies)
// so they are not recomputed by a full collection scan on every read.
type Cache interface {
	// Get decodes the cached value into dest (a pointer).
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
