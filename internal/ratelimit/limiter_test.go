package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassAuth:      {Window: 15 * time.Minute, Max: 3},
		ClassSensitive: {Window: time.Minute, Max: 5},
		ClassAPI:       {Window: time.Minute, Max: 100},
	}
}

func TestLimiterAllowsUnderCap(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore(), testPolicies())

	for i := 0; i < 3; i++ {
		res, err := limiter.Check(context.Background(), "1.2.3.4", ClassAuth)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if res.Limit != 3 {
			t.Fatalf("expected limit 3, got %d", res.Limit)
		}
		if res.Remaining != 3-(i+1) {
			t.Fatalf("expected remaining %d, got %d", 3-(i+1), res.Remaining)
		}
	}
}

func TestLimiterRejectsOverCapWithRetryHint(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	limiter := NewLimiter(store, testPolicies())
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if res, _ := limiter.Check(context.Background(), "1.2.3.4", ClassAuth); !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	res, err := limiter.Check(context.Background(), "1.2.3.4", ClassAuth)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("request over cap should be rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", res.Remaining)
	}
	if got := res.RetryAfter(now); got != 15*60 {
		t.Fatalf("expected retry after 900s, got %d", got)
	}
}

func TestLimiterWindowResets(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	limiter := NewLimiter(store, testPolicies())

	for i := 0; i < 4; i++ {
		limiter.Check(context.Background(), "1.2.3.4", ClassAuth)
	}
	if res, _ := limiter.Check(context.Background(), "1.2.3.4", ClassAuth); res.Allowed {
		t.Fatal("should be rejected before the window elapses")
	}

	now = now.Add(15*time.Minute + time.Second)

	res, err := limiter.Check(context.Background(), "1.2.3.4", ClassAuth)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !res.Allowed {
		t.Fatal("request after window reset should be allowed")
	}
}

func TestLimiterIdentitiesAreIndependent(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore(), testPolicies())

	for i := 0; i < 3; i++ {
		limiter.Check(context.Background(), "1.2.3.4", ClassAuth)
	}
	if res, _ := limiter.Check(context.Background(), "1.2.3.4", ClassAuth); res.Allowed {
		t.Fatal("first identity should be capped")
	}
	if res, _ := limiter.Check(context.Background(), "5.6.7.8", ClassAuth); !res.Allowed {
		t.Fatal("second identity should not be affected")
	}
}

func TestLimiterClassesAreIndependent(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore(), testPolicies())

	for i := 0; i < 3; i++ {
		limiter.Check(context.Background(), "1.2.3.4", ClassAuth)
	}
	if res, _ := limiter.Check(context.Background(), "1.2.3.4", ClassAuth); res.Allowed {
		t.Fatal("auth class should be capped")
	}
	if res, _ := limiter.Check(context.Background(), "1.2.3.4", ClassSensitive); !res.Allowed {
		t.Fatal("sensitive class should have its own counter")
	}
}

func TestMemoryStoreConcurrentIncrementsDoNotUndercount(t *testing.T) {
	store := NewMemoryStore()

	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				store.Incr(context.Background(), "shared", time.Minute)
			}
		}()
	}
	wg.Wait()

	count, _, err := store.Incr(context.Background(), "shared", time.Minute)
	if err != nil {
		t.Fatalf("incr failed: %v", err)
	}
	if count != goroutines*perGoroutine+1 {
		t.Fatalf("expected count %d, got %d", goroutines*perGoroutine+1, count)
	}
}

func TestMemoryStoreSweepDropsExpiredWindows(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })

	store.Incr(context.Background(), "a", time.Minute)
	store.Incr(context.Background(), "b", time.Hour)

	now = now.Add(2 * time.Minute)
	store.Sweep()

	if len(store.counters) != 1 {
		t.Fatalf("expected 1 live counter, got %d", len(store.counters))
	}
	if _, ok := store.counters["b"]; !ok {
		t.Fatal("unexpired counter should survive the sweep")
	}
}

func TestClassForPath(t *testing.T) {
	cases := []struct {
		path string
		want Class
	}{
		{"/api/v1/auth/me", ClassAuth},
		{"/login", ClassAuth},
		{"/api/v1/transactions", ClassSensitive},
		{"/api/v1/transactions/abc/cancel", ClassSensitive},
		{"/api/v1/payments/checkout", ClassSensitive},
		{"/health", ClassAPI},
		{"/dashboard/client", ClassAPI},
	}
	for _, tc := range cases {
		if got := ClassForPath(tc.path); got != tc.want {
			t.Errorf("ClassForPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
