package cache

import (
	"context"
	"time"
)

// LayeredCache pairs a Redis primary with an in-process fallback. Redis
// failures degrade to the memory layer instead of surfacing to callers.
// A nil RedisCache yields a memory-only cache.
type LayeredCache struct {
	memCache   *MemoryCache
	redisCache *RedisCache
}

// NewLayeredCache creates a layered cache with memory and Redis.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		memCache:   NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		redisCache: redisCache,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.memCache.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	if lc.redisCache != nil {
		return lc.redisCache.Set(ctx, key, value, expiration)
	}
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if lc.redisCache != nil {
		err := lc.redisCache.Get(ctx, key, dest)
		if err == nil {
			return nil
		}
		if err != ErrCacheMiss {
			// Redis unreachable, fall through to the memory layer.
			return lc.memCache.Get(ctx, key, dest)
		}
	}
	return lc.memCache.Get(ctx, key, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	if lc.redisCache != nil {
		return lc.redisCache.Delete(ctx, keys...)
	}
	return nil
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if lc.redisCache != nil {
		if ok, err := lc.redisCache.Exists(ctx, keys...); err == nil {
			return ok, nil
		}
	}
	return lc.memCache.Exists(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	if lc.redisCache != nil {
		return lc.redisCache.Close()
	}
	return nil
}
