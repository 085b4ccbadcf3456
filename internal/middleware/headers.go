package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/servineo/servineo-api/internal/security"
)

// SecurityHeaders applies the baseline security headers to every response,
// before any other middleware can reject the request.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		security.ApplyHeaders(w)
		next.ServeHTTP(w, r)
	})
}

// CORSHandler returns the configured CORS handler. It negotiates CORS
// headers for allow-listed origins and short-circuits preflight requests.
func CORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})
}
