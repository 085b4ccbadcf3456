package transaction

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Repository defines transaction data access
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*Transaction, error)
	Update(ctx context.Context, tx *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, f Filter) ([]*Transaction, int, decimal.Decimal, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates transaction repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const selectColumns = `
	id, user_id, amount, currency, type, status, description,
	payment_method, metadata, service_id, professional_id,
	created_at, updated_at, completed_at
`

func (r *repository) Create(ctx context.Context, tx *Transaction) error {
	query := `
		INSERT INTO transactions (
			id, user_id, amount, currency, type, status, description,
			payment_method, metadata, service_id, professional_id,
			created_at, updated_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Amount,
		tx.Currency,
		tx.Type,
		tx.Status,
		tx.Description,
		tx.PaymentMethod,
		tx.Metadata,
		tx.ServiceID,
		tx.ProfessionalID,
		tx.CreatedAt,
		tx.UpdatedAt,
		tx.CompletedAt,
	)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE id = $1`

	var tx Transaction
	err := r.db.GetContext(ctx, &tx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// GetByIDForUser is the owner-scoped composite lookup used by the cancel
// path: a foreign id and an absent id both come back as not found.
func (r *repository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`

	var tx Transaction
	err := r.db.GetContext(ctx, &tx, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repository) Update(ctx context.Context, tx *Transaction) error {
	query := `
		UPDATE transactions SET
			amount = $2, status = $3, description = $4, payment_method = $5,
			metadata = $6, updated_at = $7, completed_at = $8
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.Amount,
		tx.Status,
		tx.Description,
		tx.PaymentMethod,
		tx.Metadata,
		tx.UpdatedAt,
		tx.CompletedAt,
	)
	return err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return err
}

func (r *repository) List(ctx context.Context, userID uuid.UUID, f Filter) ([]*Transaction, int, decimal.Decimal, error) {
	where, args := buildListWhere(userID, f)

	type totals struct {
		Count int             `db:"count"`
		Sum   decimal.Decimal `db:"sum"`
	}
	var t totals
	countQuery := `SELECT COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum FROM transactions ` + where
	if err := r.db.GetContext(ctx, &t, countQuery, args...); err != nil {
		return nil, 0, decimal.Zero, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	pageQuery := `SELECT ` + selectColumns + ` FROM transactions ` + where +
		` ORDER BY created_at DESC, id DESC` +
		` LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, f.Offset)

	items := []*Transaction{}
	if err := r.db.SelectContext(ctx, &items, pageQuery, args...); err != nil {
		return nil, 0, decimal.Zero, err
	}
	return items, t.Count, t.Sum, nil
}

// buildListWhere assembles the AND-ed filter conditions. The user_id scope
// is always present.
func buildListWhere(userID uuid.UUID, f Filter) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if len(f.Types) > 0 {
		values := make([]string, len(f.Types))
		for i, v := range f.Types {
			values[i] = string(v)
		}
		conditions = append(conditions, "type = ANY("+arg(pq.Array(values))+")")
	}
	if len(f.Statuses) > 0 {
		values := make([]string, len(f.Statuses))
		for i, v := range f.Statuses {
			values[i] = string(v)
		}
		conditions = append(conditions, "status = ANY("+arg(pq.Array(values))+")")
	}
	if len(f.PaymentMethods) > 0 {
		values := make([]string, len(f.PaymentMethods))
		for i, v := range f.PaymentMethods {
			values[i] = string(v)
		}
		conditions = append(conditions, "payment_method = ANY("+arg(pq.Array(values))+")")
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= "+arg(*f.StartDate))
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= "+arg(*f.EndDate))
	}
	if f.MinAmount != nil {
		conditions = append(conditions, "amount >= "+arg(*f.MinAmount))
	}
	if f.MaxAmount != nil {
		conditions = append(conditions, "amount <= "+arg(*f.MaxAmount))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
