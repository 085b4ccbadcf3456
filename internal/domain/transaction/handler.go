package transaction

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/servineo/servineo-api/internal/middleware"
	"github.com/servineo/servineo-api/internal/pkg/response"
	"github.com/servineo/servineo-api/internal/pkg/validator"
)

// Handler handles transaction HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates transaction handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /transactions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list transactions")
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// Create handles POST /transactions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(&req); fieldErrors != nil {
		response.BadRequest(w, validator.Message(fieldErrors))
		return
	}

	tx, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount),
			errors.Is(err, ErrInvalidType),
			errors.Is(err, ErrEmptyDescription):
			response.BadRequest(w, err.Error())
		default:
			log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to create transaction")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, tx)
}

// Update handles PUT /transactions/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, ErrNotFound.Error())
		return
	}

	var req UpdateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(&req); fieldErrors != nil {
		response.BadRequest(w, validator.Message(fieldErrors))
		return
	}

	tx, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrForbidden):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrInvalidAmount),
			errors.Is(err, ErrEmptyDescription),
			errors.Is(err, ErrInvalidTransition):
			response.BadRequest(w, err.Error())
		default:
			log.Error().Err(err).Str("transaction_id", id.String()).Msg("Failed to update transaction")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, tx)
}

// Cancel handles POST /transactions/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, ErrNotFound.Error())
		return
	}

	var req CancelRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "invalid JSON body")
			return
		}
	}
	if fieldErrors := validator.Validate(&req); fieldErrors != nil {
		response.BadRequest(w, validator.Message(fieldErrors))
		return
	}

	tx, refundInfo, err := h.service.Cancel(r.Context(), userID, id, req.Reason)
	if err != nil {
		var graceErr *GraceWindowError
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadyCancelled),
			errors.Is(err, ErrAlreadyCompleted),
			errors.Is(err, ErrAlreadyFailed):
			response.BadRequest(w, err.Error())
		case errors.As(err, &graceErr):
			response.Conflict(w, graceErr.Error(), graceErr.RetryAfter)
		default:
			log.Error().Err(err).Str("transaction_id", id.String()).Msg("Failed to cancel transaction")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, CancelResponse{Transaction: tx, RefundInfo: refundInfo})
}

// Delete handles DELETE /transactions/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, ErrNotFound.Error())
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrForbidden):
			response.Forbidden(w, err.Error())
		default:
			log.Error().Err(err).Str("transaction_id", id.String()).Msg("Failed to delete transaction")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, DeleteResponse{Success: true})
}

// parseFilter reads the list query parameters. Unknown enum values fail the
// request rather than silently matching nothing.
func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter

	for _, raw := range splitParam(q.Get("type")) {
		t := Type(raw)
		if !t.Valid() {
			return f, errors.New("invalid type filter: " + raw)
		}
		f.Types = append(f.Types, t)
	}

	for _, raw := range splitParam(q.Get("status")) {
		switch s := Status(raw); s {
		case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
			f.Statuses = append(f.Statuses, s)
		default:
			return f, errors.New("invalid status filter: " + raw)
		}
	}

	// "category" is the legacy client name for the payment method filter
	methods := splitParam(q.Get("category"))
	methods = append(methods, splitParam(q.Get("paymentMethod"))...)
	for _, raw := range methods {
		f.PaymentMethods = append(f.PaymentMethods, PaymentMethod(raw))
	}

	if v := q.Get("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, errors.New("invalid startDate")
		}
		f.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, errors.New("invalid endDate")
		}
		f.EndDate = &t
	}

	if v := q.Get("minAmount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, errors.New("invalid minAmount")
		}
		f.MinAmount = &d
	}
	if v := q.Get("maxAmount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, errors.New("invalid maxAmount")
		}
		f.MaxAmount = &d
	}

	f.Limit = DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, errors.New("invalid limit")
		}
		f.Limit = n
	}
	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, errors.New("invalid page")
		}
		page = n
	}
	f.Offset = (page - 1) * f.Limit

	return f, nil
}

func splitParam(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
