package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Minute
	cacheOpTimeout  = 2 * time.Second
)

// CacheGetJSON loads key into out. A nil client, a miss, or a decode error all report false.
func CacheGetJSON(ctx context.Context, rc *redis.Client, key string, out interface{}) bool {
	if rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			L().Debugf("cache get failed key=%s err=%v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		L().Warnf("cache decode failed key=%s err=%v", key, err)
		return false
	}
	return true
}

// CacheSetJSON marshals v and stores it under key.
func CacheSetJSON(ctx context.Context, rc *redis.Client, key string, v interface{}, ttl time.Duration) {
	if rc == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		L().Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// CacheDelete removes keys, best effort.
func CacheDelete(ctx context.Context, rc *redis.Client, keys ...string) {
	if rc == nil || len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := rc.Del(ctx, keys...).Err(); err != nil {
		L().Warnf("cache delete failed keys=%v err=%v", keys, err)
	}
}
