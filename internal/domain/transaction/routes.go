package transaction

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servineo/servineo-api/internal/middleware"
	"github.com/servineo/servineo-api/internal/pkg/response"
)

// Routes returns the transaction router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w)
	})

	// CORS preflight for the cancel endpoint answers before auth runs
	r.Options("/{id}/cancel", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/cancel", h.Cancel)
	})

	return r
}
