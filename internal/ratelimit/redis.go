package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a shared counter store for multi-instance deployments,
// using INCR with a window-length expiry set on the first hit.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed counter store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := s.prefix + key

	count, err := s.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, fullKey, window).Err(); err != nil {
			return count, window, err
		}
		return count, window, nil
	}

	ttl, err := s.client.PTTL(ctx, fullKey).Result()
	if err != nil || ttl < 0 {
		// Key exists without expiry (expiry write lost): repair it so the
		// window cannot become permanent.
		s.client.PExpire(ctx, fullKey, window)
		return count, window, err
	}
	return count, ttl, nil
}
