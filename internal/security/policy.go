package security

import (
	"context"
	"net/http"
	"strings"
)

// Path prefixes whose state-changing requests must carry an allow-listed
// Origin or Referer header.
var originCheckedPrefixes = []string{
	"/api/v1/auth",
	"/api/v1/transactions",
	"/api/v1/payments",
}

// Policy evaluates per-request security decisions: origin validation,
// denylist lookups and security response headers.
type Policy struct {
	allowedOrigins map[string]bool
	denylist       DenylistStore
}

// NewPolicy creates a security policy evaluator
func NewPolicy(allowedOrigins []string, denylist DenylistStore) *Policy {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSuffix(o, "/")] = true
	}
	return &Policy{allowedOrigins: allowed, denylist: denylist}
}

// RequiresOriginCheck reports whether the request targets a route whose
// state-changing methods must present a valid origin.
func (p *Policy) RequiresOriginCheck(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	for _, prefix := range originCheckedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// OriginAllowed validates the Origin (or, failing that, Referer) header
// against the allow-list. Absence of both fails closed.
func (p *Policy) OriginAllowed(r *http.Request) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		return p.allowedOrigins[strings.TrimSuffix(origin, "/")]
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		for allowed := range p.allowedOrigins {
			if strings.HasPrefix(referer, allowed) {
				return true
			}
		}
		return false
	}
	return false
}

// IsDenylisted checks the caller's IP against the denylist collaborator.
// A store failure fails open (not denylisted) but is recorded as a security
// event: blocking all traffic on denylist outage is the worse tradeoff.
func (p *Policy) IsDenylisted(ctx context.Context, r *http.Request, ip string) bool {
	listed, err := p.denylist.Contains(ctx, ip)
	if err != nil {
		Event{
			Kind:   KindEvaluatorError,
			Action: "denylist_lookup",
			Path:   r.URL.Path,
			IP:     ip,
		}.LogError(err)
		return false
	}
	return listed
}
