package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/servineo/servineo-api/internal/cache"
)

// Service owns the transaction state machine: creation, ownership-scoped
// listing and mutation, cancellation with conditional refund emission, and
// list-cache invalidation.
type Service struct {
	repo      Repository
	listCache *cache.ListCache
	now       func() time.Time
}

// NewService creates transaction service
func NewService(repo Repository, listCache *cache.ListCache) *Service {
	return &Service{repo: repo, listCache: listCache, now: time.Now}
}

// List returns the caller's transactions matching the filter, newest first,
// with the total count and amount across the whole filtered set.
func (s *Service) List(ctx context.Context, userID uuid.UUID, f Filter) (*ListResponse, error) {
	key := s.listCache.Key(userID, f)

	var cached ListResponse
	if s.listCache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	items, total, sum, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}

	resp := &ListResponse{
		Transactions: items,
		TotalCount:   total,
		TotalAmount:  sum,
		HasMore:      len(items) == limit,
	}
	s.listCache.Set(ctx, key, resp)
	return resp, nil
}

// Create persists a new transaction owned by the caller. Ownership always
// comes from the principal, never from the payload.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*Transaction, error) {
	txType := Type(req.Type)
	if !txType.Valid() {
		return nil, ErrInvalidType
	}
	if txType != TypeRefund && !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.Description == "" {
		return nil, ErrEmptyDescription
	}

	currency := Currency(req.Currency)
	if currency == "" {
		currency = CurrencyBRL
	}

	now := s.now()
	tx := &Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		Amount:         req.Amount,
		Currency:       currency,
		Type:           txType,
		Status:         StatusPending,
		Description:    req.Description,
		PaymentMethod:  req.Method(),
		Metadata:       req.Metadata,
		ServiceID:      req.ServiceID,
		ProfessionalID: req.ProfessionalID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}
	s.listCache.InvalidateUser(ctx, userID)
	return tx, nil
}

// Update applies a partial patch to a transaction the caller owns. The
// existence check runs before the ownership check, so a foreign id yields
// 404 only when it does not exist and 403 when it does.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req *UpdateRequest) (*Transaction, error) {
	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrNotFound
	}
	if tx.UserID != userID {
		return nil, ErrForbidden
	}

	if req.Description != nil {
		if *req.Description == "" {
			return nil, ErrEmptyDescription
		}
		tx.Description = *req.Description
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
		tx.Amount = *req.Amount
	}
	if req.PaymentMethod != nil {
		tx.PaymentMethod = PaymentMethod(*req.PaymentMethod)
	}
	if req.Metadata != nil {
		if tx.Metadata == nil {
			tx.Metadata = Metadata{}
		}
		for k, v := range req.Metadata {
			tx.Metadata[k] = v
		}
	}
	if req.Status != nil && Status(*req.Status) != tx.Status {
		next := Status(*req.Status)
		if !tx.CanTransitionTo(next) {
			return nil, ErrInvalidTransition
		}
		tx.Status = next
		if next == StatusCompleted {
			completedAt := s.now()
			tx.CompletedAt = &completedAt
		}
	}

	tx.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, err
	}
	s.listCache.InvalidateUser(ctx, userID)
	return tx, nil
}

// Cancel transitions a transaction to cancelled. The lookup is owner-scoped,
// so "not found" and "not yours" collapse into the same ErrNotFound — unlike
// Update/Delete, which split them. Cancelling a completed positive-amount
// transaction additionally emits a pending refund record linked to it.
func (s *Service) Cancel(ctx context.Context, userID, id uuid.UUID, reason string) (*Transaction, *RefundInfo, error) {
	tx, err := s.repo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	if tx == nil {
		return nil, nil, ErrNotFound
	}

	now := s.now()
	switch tx.Status {
	case StatusCancelled:
		return nil, nil, ErrAlreadyCancelled
	case StatusFailed:
		return nil, nil, ErrAlreadyFailed
	case StatusCompleted:
		if !tx.Amount.IsPositive() {
			return nil, nil, ErrAlreadyCompleted
		}
	case StatusProcessing:
		if remaining := tx.GraceRemaining(now); remaining > 0 {
			retryAfter := int((remaining + time.Second - 1) / time.Second)
			return nil, nil, &GraceWindowError{RetryAfter: retryAfter}
		}
	}

	priorStatus := tx.Status
	tx.Status = StatusCancelled
	if reason != "" {
		tx.Description = "Cancelled: " + reason
	}
	tx.UpdatedAt = now

	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, nil, err
	}

	var refundInfo *RefundInfo
	if priorStatus == StatusCompleted && tx.Amount.IsPositive() {
		refund := &Transaction{
			ID:             uuid.New(),
			UserID:         tx.UserID,
			Amount:         tx.Amount,
			Currency:       tx.Currency,
			Type:           TypeRefund,
			Status:         StatusPending,
			Description:    fmt.Sprintf("Refund for transaction %s", tx.ID),
			PaymentMethod:  tx.PaymentMethod,
			Metadata:       Metadata{MetadataKeyOriginalTransaction: tx.ID.String()},
			ServiceID:      tx.ServiceID,
			ProfessionalID: tx.ProfessionalID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Create(ctx, refund); err != nil {
			return nil, nil, err
		}
		refundInfo = &RefundInfo{
			Amount:   tx.Amount,
			Currency: tx.Currency,
			Message: fmt.Sprintf("A refund of %s %s has been initiated and will appear as a pending transaction",
				tx.Amount.StringFixed(2), tx.Currency),
		}
	}

	s.listCache.InvalidateUser(ctx, userID)

	log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("user_id", userID.String()).
		Str("prior_status", string(priorStatus)).
		Bool("refund_created", refundInfo != nil).
		Msg("Transaction cancelled")

	return tx, refundInfo, nil
}

// Delete removes a transaction the caller owns. Exists for admin/test
// symmetry; a client-facing user never exercises it.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tx == nil {
		return ErrNotFound
	}
	if tx.UserID != userID {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.listCache.InvalidateUser(ctx, userID)
	return nil
}
