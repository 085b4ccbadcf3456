package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/servineo/servineo-api/internal/pkg/jwt"
	"github.com/servineo/servineo-api/internal/ratelimit"
	"github.com/servineo/servineo-api/internal/security"
)

type spyCounterStore struct {
	calls int
	inner ratelimit.CounterStore
}

func (s *spyCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.calls++
	return s.inner.Incr(ctx, key, window)
}

func newTestGateway(denylist security.DenylistStore, store ratelimit.CounterStore) (*Gateway, *jwt.Service) {
	jwtService := jwt.NewService("secret", time.Hour)
	policy := security.NewPolicy([]string{"https://app.servineo.com"}, denylist)
	limiter := ratelimit.NewLimiter(store, map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassAuth:      {Window: 15 * time.Minute, Max: 2},
		ratelimit.ClassSensitive: {Window: time.Minute, Max: 2},
		ratelimit.ClassAPI:       {Window: time.Minute, Max: 100},
	})
	return NewGateway(policy, limiter, jwtService, DefaultRouteTable()), jwtService
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestDenylistedIPRejectedBeforeDownstreamChecks(t *testing.T) {
	store := &spyCounterStore{inner: ratelimit.NewMemoryStore()}
	gw, _ := newTestGateway(security.StaticDenylist{"6.6.6.6": true}, store)

	handlerCalled := false
	pipeline := gw.Denylist(gw.Handler(okHandler(&handlerCalled)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	req.Header.Set("X-Real-IP", "6.6.6.6")
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if store.calls != 0 {
		t.Fatalf("rate limiter must not run for denylisted IPs, got %d calls", store.calls)
	}
	if handlerCalled {
		t.Fatal("handler must not run for denylisted IPs")
	}
}

func TestInvalidOriginRejectedOnSensitiveWrite(t *testing.T) {
	gw, _ := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())

	handlerCalled := false
	pipeline := gw.Handler(okHandler(&handlerCalled))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if handlerCalled {
		t.Fatal("handler must not run for rejected origins")
	}
}

func TestRateLimitRejectsWithRetryAfter(t *testing.T) {
	gw, _ := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())
	pipeline := gw.Handler(okHandler(nil))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
		req.Header.Set("X-Real-IP", "1.2.3.4")
		rr := httptest.NewRecorder()
		pipeline.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	req.Header.Set("X-Real-IP", "1.2.3.4")
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitFailureFailsOpen(t *testing.T) {
	gw, _ := newTestGateway(security.StaticDenylist{}, erroringStore{})

	handlerCalled := false
	pipeline := gw.Handler(okHandler(&handlerCalled))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !handlerCalled {
		t.Fatal("a counter-store outage must not block requests")
	}
}

type erroringStore struct{}

func (erroringStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, context.DeadlineExceeded
}

func TestHandlerPanicReachesRecoveryMiddleware(t *testing.T) {
	gw, _ := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())

	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	// Composed exactly as the server assembles it: Recover outermost.
	pipeline := Recover(gw.Denylist(gw.Handler(boom)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("handler panic must yield 500, got %d (body=%q)", rr.Code, rr.Body.String())
	}
}

type panickingStore struct{}

func (panickingStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	panic("store gone")
}

func TestPipelineInternalPanicDegradesToPassThrough(t *testing.T) {
	gw, _ := newTestGateway(security.StaticDenylist{}, panickingStore{})

	handlerCalled := false
	pipeline := Recover(gw.Denylist(gw.Handler(okHandler(&handlerCalled))))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !handlerCalled {
		t.Fatalf("a pipeline-internal failure must degrade to pass-through, got %d (called=%v)",
			rr.Code, handlerCalled)
	}
}

func TestProtectedPageRedirectsAnonymousToLogin(t *testing.T) {
	gw, _ := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())
	pipeline := gw.Handler(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login?redirect=%2Fwallet" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestAuthOnlyPageRedirectsAuthenticatedToRoleHome(t *testing.T) {
	gw, jwtService := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())
	pipeline := gw.Handler(okHandler(nil))

	token, err := jwtService.GenerateAccessToken(uuid.New(), "pro@example.com", "professional")
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/dashboard/pro" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestDashboardRoleMismatchRedirectsToOwnHome(t *testing.T) {
	gw, jwtService := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())
	pipeline := gw.Handler(okHandler(nil))

	token, err := jwtService.GenerateAccessToken(uuid.New(), "client@example.com", "client")
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard/pro", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/dashboard/client" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestUnknownRoleOnDashboardRedirectsToNeutralHome(t *testing.T) {
	gw, jwtService := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())
	pipeline := gw.Handler(okHandler(nil))

	token, err := jwtService.GenerateAccessToken(uuid.New(), "admin@example.com", "admin")
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard/client", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	// The target must not be a dashboard page, or the redirect would loop.
	if loc := rr.Header().Get("Location"); loc != "/" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestMatchingDashboardRolePassesThrough(t *testing.T) {
	gw, jwtService := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())

	handlerCalled := false
	pipeline := gw.Handler(okHandler(&handlerCalled))

	token, err := jwtService.GenerateAccessToken(uuid.New(), "client@example.com", "client")
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard/client", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !handlerCalled {
		t.Fatalf("expected pass-through, got %d (called=%v)", rr.Code, handlerCalled)
	}
}

func TestPublicPathBypassesClassification(t *testing.T) {
	gw, _ := newTestGateway(security.StaticDenylist{}, ratelimit.NewMemoryStore())

	handlerCalled := false
	pipeline := gw.Handler(okHandler(&handlerCalled))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	rr := httptest.NewRecorder()
	pipeline.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !handlerCalled {
		t.Fatalf("API paths must bypass page routing, got %d (called=%v)", rr.Code, handlerCalled)
	}
}
