package payment

import (
	"context"
	"errors"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/kevin07696/book-market-service/pkg/timeutil"
)

// Tracker records purchases in progress, keyed by gateway payment id.
// A pending record is the only thing that allows a completion to run.
type Tracker struct {
	store  ports.LedgerStore
	logger ports.Logger
	now    func() time.Time
}

// NewTracker creates a pending payment tracker
func NewTracker(store ports.LedgerStore, logger ports.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		now:    timeutil.Now,
	}
}

// Record creates or overwrites the pending record for paymentID
func (t *Tracker) Record(ctx context.Context, paymentID, bookID, userUID string) (*domain.PendingPayment, error) {
	pending := domain.NewPendingPayment(paymentID, bookID, userUID, t.now())
	if err := t.store.Queries().UpsertPendingPayment(ctx, pending); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to record pending payment", err).
			WithDetail("payment_id", paymentID)
	}

	t.logger.Debug("Recorded pending payment",
		ports.String("payment_id", paymentID),
		ports.String("book_id", bookID),
		ports.String("user_uid", userUID),
	)
	return pending, nil
}

// Lookup returns the pending record or domain.ErrPendingNotFound
func (t *Tracker) Lookup(ctx context.Context, paymentID string) (*domain.PendingPayment, error) {
	pending, err := t.store.Queries().GetPendingPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrPendingNotFound) {
			return nil, domain.ErrPendingNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to look up pending payment", err).
			WithDetail("payment_id", paymentID)
	}
	return pending, nil
}

// Remove deletes the pending record. Removing an absent record succeeds.
func (t *Tracker) Remove(ctx context.Context, paymentID string) error {
	if err := t.store.Queries().DeletePendingPayment(ctx, paymentID); err != nil {
		return domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to remove pending payment", err).
			WithDetail("payment_id", paymentID)
	}
	return nil
}

// ListByUser returns the user's pending records, oldest first
func (t *Tracker) ListByUser(ctx context.Context, userUID string) ([]*domain.PendingPayment, error) {
	pending, err := t.store.Queries().ListPendingPaymentsByUser(ctx, userUID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to list pending payments", err)
	}
	return pending, nil
}

// MarkSwept records a sweep that left the record in place and returns its attempt count
func (t *Tracker) MarkSwept(ctx context.Context, paymentID string) (int, error) {
	attempts, err := t.store.Queries().MarkPendingSwept(ctx, paymentID, t.now())
	if err != nil {
		if errors.Is(err, domain.ErrPendingNotFound) {
			return 0, domain.ErrPendingNotFound
		}
		return 0, domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to mark pending payment swept", err).
			WithDetail("payment_id", paymentID)
	}
	return attempts, nil
}

// ListStale returns up to limit pending records created more than olderThan ago,
// least recently swept first
func (t *Tracker) ListStale(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.PendingPayment, error) {
	pending, err := t.store.Queries().ListPendingPaymentsBefore(ctx, t.now().Add(-olderThan), limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to list stale pending payments", err)
	}
	return pending, nil
}
