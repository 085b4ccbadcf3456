package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Class is a route-class bucket selecting a rate-limit policy.
type Class string

const (
	ClassAuth      Class = "auth"      // login/signup endpoints, strictest
	ClassSensitive Class = "sensitive" // payment/transaction-mutating endpoints
	ClassAPI       Class = "api"       // general endpoints, most lenient
)

// Policy holds window length and request cap for one class.
type Policy struct {
	Window time.Duration
	Max    int
}

// Result reports a rate-limit decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds (rounded up) until the window resets.
func (r Result) RetryAfter(now time.Time) int {
	remaining := r.ResetAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Limiter applies per-identity fixed-window limits scoped by route class.
type Limiter struct {
	store    CounterStore
	policies map[Class]Policy
	now      func() time.Time
}

// NewLimiter creates a rate limiter over the given counter store
func NewLimiter(store CounterStore, policies map[Class]Policy) *Limiter {
	return &Limiter{store: store, policies: policies, now: time.Now}
}

// Check increments the identity's counter for the class and reports whether
// the request is within the cap.
func (l *Limiter) Check(ctx context.Context, identity string, class Class) (Result, error) {
	policy, ok := l.policies[class]
	if !ok {
		policy = l.policies[ClassAPI]
	}

	count, ttl, err := l.store.Incr(ctx, string(class)+":"+identity, policy.Window)
	if err != nil {
		return Result{}, err
	}

	remaining := policy.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(policy.Max),
		Limit:     policy.Max,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
	}, nil
}

// ClassForPath maps a request path to its route class.
func ClassForPath(path string) Class {
	switch {
	case strings.HasPrefix(path, "/api/v1/auth"),
		strings.HasPrefix(path, "/login"),
		strings.HasPrefix(path, "/signup"):
		return ClassAuth
	case strings.HasPrefix(path, "/api/v1/transactions"),
		strings.HasPrefix(path, "/api/v1/payments"):
		return ClassSensitive
	default:
		return ClassAPI
	}
}
