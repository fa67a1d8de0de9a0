package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/shulehq/shule/core"
)

// Cache implements core.Cache on redis; values are stored as JSON.
type Cache struct {
	rdb *redis.Client
}

var _ core.Cache = (*Cache)(nil)

func Open(ctx context.Context, conf *core.Config) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return &Cache{rdb: rdb}, nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return core.ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, "reading cache key "+key)
	}
	return json.Unmarshal(raw, dest)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return errors.Wrap(c.rdb.Set(ctx, key, raw, ttl).Err(), "writing cache key "+key)
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.rdb.Del(ctx, keys...).Err(), "deleting cache keys")
}
