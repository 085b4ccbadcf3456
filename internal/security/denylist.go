package security

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// DenylistStore looks up client IPs against an external block list.
type DenylistStore interface {
	Contains(ctx context.Context, ip string) (bool, error)
}

// RedisDenylist backs the denylist with a Redis set shared across instances.
type RedisDenylist struct {
	client *redis.Client
	key    string
}

// NewRedisDenylist creates a Redis-backed denylist store
func NewRedisDenylist(client *redis.Client, key string) *RedisDenylist {
	return &RedisDenylist{client: client, key: key}
}

func (d *RedisDenylist) Contains(ctx context.Context, ip string) (bool, error) {
	if d.client == nil {
		return false, nil
	}
	return d.client.SIsMember(ctx, d.key, ip).Result()
}

// StaticDenylist is a fixed in-memory denylist, used in tests and
// single-instance deployments without Redis.
type StaticDenylist map[string]bool

func (d StaticDenylist) Contains(_ context.Context, ip string) (bool, error) {
	return d[ip], nil
}
