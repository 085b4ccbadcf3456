package ratelimit

import (
	"context"
	"time"
)

// CounterStore increments a fixed-window counter for a key. The first
// increment of a window starts it; the returned ttl is the time left until
// the window resets. Implementations must be safe for concurrent use and the
// increment must be atomic per key.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}
