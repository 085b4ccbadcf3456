package security

import "net/http"

// ApplyHeaders attaches the baseline security response headers. These are
// applied unconditionally, including on rejection and error paths.
func ApplyHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}
