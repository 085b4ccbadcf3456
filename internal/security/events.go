package security

import (
	"github.com/rs/zerolog/log"
)

// Event kinds
const (
	KindDenylistBlock  = "denylist_block"
	KindOriginRejected = "origin_rejected"
	KindRateLimited    = "rate_limited"
	KindAuthRequired   = "auth_required"
	KindInvalidToken   = "invalid_token"
	KindRoleMismatch   = "role_mismatch"
	KindEvaluatorError = "evaluator_error"
	KindPipelineError  = "pipeline_error"
)

// Event is an append-style audit record describing a policy decision.
// It is write-only: emitted to the structured log and consumed downstream.
type Event struct {
	Kind   string
	Action string
	Path   string
	IP     string
	UserID string
	Reason string
}

// Log emits the event to the audit log.
func (e Event) Log() {
	entry := log.Warn().
		Str("kind", e.Kind).
		Str("action", e.Action).
		Str("path", e.Path)
	if e.IP != "" {
		entry = entry.Str("ip", e.IP)
	}
	if e.UserID != "" {
		entry = entry.Str("user_id", e.UserID)
	}
	if e.Reason != "" {
		entry = entry.Str("reason", e.Reason)
	}
	entry.Msg("Security event")
}

// LogError emits the event together with an underlying error, for evaluator
// failures that were absorbed rather than propagated.
func (e Event) LogError(err error) {
	log.Error().
		Err(err).
		Str("kind", e.Kind).
		Str("action", e.Action).
		Str("path", e.Path).
		Str("ip", e.IP).
		Msg("Security event")
}
