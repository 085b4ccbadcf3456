package transaction

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type represents the transaction type
type Type string

const (
	TypePayment       Type = "payment"
	TypeRefund        Type = "refund"
	TypeTip           Type = "tip"
	TypeLoyaltyCredit Type = "loyalty_credit"
	TypeWithdrawal    Type = "withdrawal"
	TypeDeposit       Type = "deposit"
)

// Valid reports whether t is a recognized transaction type.
func (t Type) Valid() bool {
	switch t {
	case TypePayment, TypeRefund, TypeTip, TypeLoyaltyCredit, TypeWithdrawal, TypeDeposit:
		return true
	}
	return false
}

// Status represents the transaction lifecycle state
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// legal forward edges of the status machine; cancellation is handled
// separately by the cancel operation.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// Currency is an ISO currency code
type Currency string

const (
	CurrencyBRL Currency = "BRL"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// PaymentMethod represents how a transaction is settled
type PaymentMethod string

const (
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodPix          PaymentMethod = "pix"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodWallet       PaymentMethod = "wallet"
	MethodCash         PaymentMethod = "cash"
)

// ProcessingGraceWindow is how long a processing transaction is immune to
// cancellation, measured from its last update.
const ProcessingGraceWindow = 30 * time.Minute

// MetadataKeyOriginalTransaction links a refund to the transaction it refunds.
const MetadataKeyOriginalTransaction = "originalTransactionId"

// Metadata holds free-form keyed attributes (card suffix, counterpart id,
// service reference, rating, bonus amount, refund origin). Stored as JSONB.
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return errors.New("metadata: unsupported scan source")
	}
	return json.Unmarshal(raw, m)
}

// Transaction is the central ledger entity. UserID is immutable after
// creation and is the sole authorization scope.
type Transaction struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"userId"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Currency       Currency        `db:"currency" json:"currency"`
	Type           Type            `db:"type" json:"type"`
	Status         Status          `db:"status" json:"status"`
	Description    string          `db:"description" json:"description"`
	PaymentMethod  PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	Metadata       Metadata        `db:"metadata" json:"metadata,omitempty"`
	ServiceID      *uuid.UUID      `db:"service_id" json:"serviceId,omitempty"`
	ProfessionalID *uuid.UUID      `db:"professional_id" json:"professionalId,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}

// CanTransitionTo reports whether the status machine allows moving to next.
func (t *Transaction) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[t.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status mutation is permitted
// (outside the explicit cancel path).
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// GraceRemaining returns how much of the processing grace window is left at
// now. Zero or negative means the transaction may be cancelled.
func (t *Transaction) GraceRemaining(now time.Time) time.Duration {
	if t.Status != StatusProcessing {
		return 0
	}
	return ProcessingGraceWindow - now.Sub(t.UpdatedAt)
}
