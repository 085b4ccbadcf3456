package security

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequiresOriginCheckOnlyForStateChangingSensitiveRoutes(t *testing.T) {
	policy := NewPolicy([]string{"https://app.servineo.com"}, StaticDenylist{})

	cases := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/transactions", true},
		{http.MethodPut, "/api/v1/transactions/abc", true},
		{http.MethodPost, "/api/v1/auth/logout", true},
		{http.MethodGet, "/api/v1/transactions", false},
		{http.MethodOptions, "/api/v1/transactions/abc/cancel", false},
		{http.MethodPost, "/api/v1/other", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, tc.path, nil)
		if got := policy.RequiresOriginCheck(r); got != tc.want {
			t.Errorf("%s %s: RequiresOriginCheck = %v, want %v", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestOriginAllowedMatchesAllowList(t *testing.T) {
	policy := NewPolicy([]string{"https://app.servineo.com"}, StaticDenylist{})

	r := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	r.Header.Set("Origin", "https://app.servineo.com")
	if !policy.OriginAllowed(r) {
		t.Fatal("allow-listed origin should pass")
	}

	r.Header.Set("Origin", "https://evil.example.com")
	if policy.OriginAllowed(r) {
		t.Fatal("unknown origin should fail")
	}
}

func TestOriginAllowedFallsBackToReferer(t *testing.T) {
	policy := NewPolicy([]string{"https://app.servineo.com"}, StaticDenylist{})

	r := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	r.Header.Set("Referer", "https://app.servineo.com/wallet")
	if !policy.OriginAllowed(r) {
		t.Fatal("referer under an allow-listed origin should pass")
	}

	r.Header.Set("Referer", "https://evil.example.com/wallet")
	if policy.OriginAllowed(r) {
		t.Fatal("foreign referer should fail")
	}
}

func TestOriginAbsenceFailsClosed(t *testing.T) {
	policy := NewPolicy([]string{"https://app.servineo.com"}, StaticDenylist{})

	r := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	if policy.OriginAllowed(r) {
		t.Fatal("absent origin and referer must fail closed")
	}
}

type erroringDenylist struct{}

func (erroringDenylist) Contains(context.Context, string) (bool, error) {
	return false, errors.New("store unavailable")
}

func TestDenylistFailureFailsOpen(t *testing.T) {
	policy := NewPolicy(nil, erroringDenylist{})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	if policy.IsDenylisted(context.Background(), r, "1.2.3.4") {
		t.Fatal("a denylist store failure must not block the request")
	}
}

func TestStaticDenylist(t *testing.T) {
	policy := NewPolicy(nil, StaticDenylist{"9.9.9.9": true})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if !policy.IsDenylisted(context.Background(), r, "9.9.9.9") {
		t.Fatal("listed IP should be denylisted")
	}
	if policy.IsDenylisted(context.Background(), r, "1.1.1.1") {
		t.Fatal("unlisted IP should not be denylisted")
	}
}

func TestApplyHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	ApplyHeaders(rr)

	expected := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
	}
	for header, want := range expected {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}
