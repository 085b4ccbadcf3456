package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/servineo/servineo-api/internal/middleware"
	"github.com/servineo/servineo-api/internal/pkg/response"
)

// Handler exposes the thin authenticated-session surface: who am I, and
// logout. Credential issuance lives in the identity service, not here.
type Handler struct{}

// NewHandler creates auth handler
func NewHandler() *Handler {
	return &Handler{}
}

// MeResponse for GET /auth/me
type MeResponse struct {
	User MeUser `json:"user"`
}

type MeUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Type  string    `json:"type"`
}

// LogoutResponse for POST /auth/logout
type LogoutResponse struct {
	Success    bool   `json:"success"`
	RedirectTo string `json:"redirectTo"`
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	response.OK(w, MeResponse{User: MeUser{
		ID:    userID,
		Email: middleware.GetEmail(r.Context()),
		Type:  middleware.GetRole(r.Context()),
	}})
}

// Logout handles POST /auth/logout. Logout is a terminal no-fail operation:
// whatever goes wrong internally, the session cookie is cleared and the
// client gets a success-shaped response.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("error", rec).Msg("Logout error suppressed")
			clearSessionCookie(w)
			response.OK(w, LogoutResponse{Success: true, RedirectTo: "/login"})
		}
	}()

	clearSessionCookie(w)
	response.OK(w, LogoutResponse{Success: true, RedirectTo: "/login"})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
