package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ListCache caches transaction list responses in Redis under a per-user key
// namespace so that a single mutation can invalidate every cached page for
// that user. All failures degrade to cache misses.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListCache creates a list cache. A nil client yields a no-op cache.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	return &ListCache{client: client, ttl: ttl}
}

// Key builds a cache key inside the user's namespace from the serialized
// filter set.
func (c *ListCache) Key(userID uuid.UUID, filters interface{}) string {
	raw, _ := json.Marshal(filters)
	sum := sha256.Sum256(raw)
	return "tx:list:" + userID.String() + ":" + hex.EncodeToString(sum[:8])
}

// Get loads a cached value into v, reporting whether it was present.
func (c *ListCache) Get(ctx context.Context, key string, v interface{}) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Dropping malformed cache entry")
		c.client.Del(ctx, key)
		return false
	}
	return true
}

// Set stores v under key with the cache TTL.
func (c *ListCache) Set(ctx context.Context, key string, v interface{}) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// InvalidateUser removes every cached list entry in the user's namespace.
func (c *ListCache) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	if c.client == nil {
		return
	}
	pattern := "tx:list:" + userID.String() + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Cache invalidation scan failed")
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("Cache invalidation delete failed")
		}
	}
}
