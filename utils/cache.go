package utils

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 30 * time.Second

// BoardCacheKey is the key of one cached list page. Every key of a board
// starts with BoardCachePrefix(board).
func BoardCacheKey(board string, page, pageSize int, query url.Values) string {
	return fmt.Sprintf("%sp=%d&s=%d&%s", BoardCachePrefix(board), page, pageSize, query.Encode())
}

// BoardCachePrefix is the prefix shared by all cached pages of board.
func BoardCachePrefix(board string) string {
	return "board:list:" + board + "|"
}

// RedisCache stores encoded list pages in Redis.
type RedisCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisCache returns nil when rc is nil so callers can skip caching.
func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	if rc == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{rc: rc, ttl: ttl}
}

// Get returns cached bytes for a key.
func (c *RedisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

// Set stores bytes with the cache TTL.
func (c *RedisCache) Set(key string, b []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, c.ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func (c *RedisCache) InvalidateByPrefix(prefix string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := c.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("cache invalidate failed prefix=%s err=%v", prefix, err)
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}
