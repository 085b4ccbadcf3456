package middleware

import "strings"

// RouteTable classifies paths for the gateway: public, auth-only (must be
// unauthenticated), protected (must be authenticated) and role-scoped
// dashboard areas.
type RouteTable struct {
	PublicPaths       map[string]bool
	PublicPrefixes    []string
	AuthOnlyPaths     map[string]bool
	ProtectedPrefixes []string
	DashboardRoles    map[string]string // path prefix -> required role
	RoleHomes         map[string]string // role -> home path
	LoginPath         string
	DefaultHome       string
}

// DefaultRouteTable returns the application's route classification. API
// routes are listed public here because their handlers enforce auth
// themselves; the gateway's page routing only governs browser navigation.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		PublicPaths: map[string]bool{
			"/":        true,
			"/about":   true,
			"/pricing": true,
			"/health":  true,
		},
		PublicPrefixes: []string{
			"/api/",
			"/assets/",
			"/static/",
			"/favicon",
		},
		AuthOnlyPaths: map[string]bool{
			"/login":  true,
			"/signup": true,
		},
		ProtectedPrefixes: []string{
			"/dashboard",
			"/wallet",
			"/chat",
		},
		DashboardRoles: map[string]string{
			"/dashboard/client": "client",
			"/dashboard/pro":    "professional",
		},
		RoleHomes: map[string]string{
			"client":       "/dashboard/client",
			"professional": "/dashboard/pro",
		},
		LoginPath: "/login",
		// Roles without a mapped home land on the root page. Sending them to
		// any dashboard would bounce between the role check and this fallback.
		DefaultHome: "/",
	}
}

// IsPublic reports whether the path bypasses page auth routing entirely.
func (t RouteTable) IsPublic(path string) bool {
	if t.PublicPaths[path] {
		return true
	}
	for _, prefix := range t.PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsProtected reports whether the path requires an authenticated principal.
func (t RouteTable) IsProtected(path string) bool {
	for _, prefix := range t.ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole returns the role a dashboard path is scoped to, if any.
func (t RouteTable) RequiredRole(path string) (string, bool) {
	for prefix, role := range t.DashboardRoles {
		if strings.HasPrefix(path, prefix) {
			return role, true
		}
	}
	return "", false
}

// HomeFor returns the role-scoped home path for a principal, falling back to
// the neutral default for unmapped roles.
func (t RouteTable) HomeFor(role string) string {
	if home, ok := t.RoleHomes[role]; ok {
		return home
	}
	return t.DefaultHome
}
