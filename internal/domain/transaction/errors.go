package transaction

import (
	"errors"
	"strconv"
)

var (
	ErrNotFound          = errors.New("transaction not found")
	ErrForbidden         = errors.New("transaction does not belong to caller")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrEmptyDescription  = errors.New("description is required")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrAlreadyCompleted  = errors.New("transaction already completed, cannot cancel")
	ErrAlreadyCancelled  = errors.New("transaction already cancelled")
	ErrAlreadyFailed     = errors.New("transaction already failed")
)

// GraceWindowError rejects a cancel attempt on a transaction still inside
// its processing grace window, carrying the machine-readable retry hint.
type GraceWindowError struct {
	RetryAfter int // seconds until the window elapses
}

func (e *GraceWindowError) Error() string {
	return "transaction is still processing, retry in " + strconv.Itoa(e.RetryAfter) + "s"
}
