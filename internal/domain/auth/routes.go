package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servineo/servineo-api/internal/pkg/response"
)

// Routes returns the auth router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w)
	})

	r.Get("/me", h.Me)
	r.Post("/logout", h.Logout)

	return r
}
