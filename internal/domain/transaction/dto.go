package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRequest for POST /transactions. Any client-supplied userId is
// ignored: ownership always comes from the authenticated principal.
type CreateRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type" validate:"required,tx_type"`
	Description    string          `json:"description" validate:"required,max=500"`
	Category       string          `json:"category" validate:"omitempty,payment_method"`
	PaymentMethod  string          `json:"paymentMethod" validate:"omitempty,payment_method"`
	Currency       string          `json:"currency" validate:"omitempty,currency"`
	Metadata       Metadata        `json:"metadata,omitempty"`
	ServiceID      *uuid.UUID      `json:"serviceId,omitempty"`
	ProfessionalID *uuid.UUID      `json:"professionalId,omitempty"`
	UserID         string          `json:"userId,omitempty"`
}

// Method resolves the payment method, accepting the legacy "category" field
// name the web client still sends.
func (r *CreateRequest) Method() PaymentMethod {
	if r.PaymentMethod != "" {
		return PaymentMethod(r.PaymentMethod)
	}
	return PaymentMethod(r.Category)
}

// UpdateRequest for PUT /transactions/{id}: a partial patch of mutable fields.
type UpdateRequest struct {
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Status        *string          `json:"status,omitempty" validate:"omitempty,tx_status"`
	PaymentMethod *string          `json:"paymentMethod,omitempty" validate:"omitempty,payment_method"`
	Metadata      Metadata         `json:"metadata,omitempty"`
}

// CancelRequest for POST /transactions/{id}/cancel
type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// Filter narrows a transaction listing. All conditions are ANDed and the
// result is always scoped to the caller's userId.
type Filter struct {
	Types          []Type
	Statuses       []Status
	PaymentMethods []PaymentMethod
	StartDate      *time.Time
	EndDate        *time.Time
	MinAmount      *decimal.Decimal
	MaxAmount      *decimal.Decimal
	Limit          int
	Offset         int
}

// DefaultLimit is the page size when the client does not supply one.
const DefaultLimit = 20

// ListResponse for GET /transactions
type ListResponse struct {
	Transactions []*Transaction  `json:"transactions"`
	TotalCount   int             `json:"totalCount"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	HasMore      bool            `json:"hasMore"`
}

// RefundInfo describes the refund record emitted by cancelling a completed
// transaction.
type RefundInfo struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
	Message  string          `json:"message"`
}

// CancelResponse for POST /transactions/{id}/cancel
type CancelResponse struct {
	Transaction *Transaction `json:"transaction"`
	RefundInfo  *RefundInfo  `json:"refundInfo,omitempty"`
}

// DeleteResponse for DELETE /transactions/{id}
type DeleteResponse struct {
	Success bool `json:"success"`
}
