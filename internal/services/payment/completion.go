package payment

import (
	"context"
	"errors"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/kevin07696/book-market-service/pkg/observability"
)

// ledgerResult is the outcome of the completion transaction
type ledgerResult struct {
	book *domain.Book

	// applied is false when a completion marker already existed and nothing was written
	applied bool
}

// completeAtGateway completes the payment at the gateway. A failed call is
// re-checked with a GET: if the payment is already developer-completed with
// the same txid (an earlier attempt whose response was lost), it counts as success.
func (s *Service) completeAtGateway(ctx context.Context, paymentID, txid string) error {
	_, err := s.gateway.CompletePayment(ctx, paymentID, txid)
	if err == nil {
		return nil
	}

	current, getErr := s.gateway.GetPayment(ctx, paymentID)
	if getErr == nil && current.Status.DeveloperCompleted && current.TxID() == txid {
		s.logger.Info("Payment already completed at gateway",
			ports.String("payment_id", paymentID),
			ports.String("txid", txid),
		)
		return nil
	}

	return domain.WrapError(domain.ErrorCodeGatewayRejected, err.Error(), err).
		WithDetail("payment_id", paymentID)
}

// applyCompletion runs the marker-guarded ledger transaction:
// marker check, sales +1, purchase grant upsert, marker insert.
func (s *Service) applyCompletion(ctx context.Context, paymentID, bookID, userUID, txid string) (*ledgerResult, error) {
	result := &ledgerResult{}
	now := s.now()

	err := s.store.WithTx(ctx, func(q ports.LedgerQuerier) error {
		marker, err := q.GetCompletedPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if marker != nil {
			book, err := q.GetBook(ctx, marker.BookID)
			if err != nil {
				return err
			}
			result.book = book
			return nil
		}

		if err := q.AddSales(ctx, bookID, 1); err != nil {
			return err
		}

		if err := q.UpsertPurchase(ctx, &domain.PurchaseGrant{
			UserUID:     userUID,
			BookID:      bookID,
			PurchasedAt: now,
		}); err != nil {
			return err
		}

		if err := q.InsertCompletedPayment(ctx, &domain.CompletedPayment{
			PaymentID:   paymentID,
			BookID:      bookID,
			UserUID:     userUID,
			TxID:        txid,
			CompletedAt: now,
		}); err != nil {
			return err
		}

		book, err := q.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		result.book = book
		result.applied = true
		return nil
	})
	if err != nil {
		msg := "ledger write failed"
		if errors.Is(err, domain.ErrBookNotFound) {
			msg = "book not found"
		}
		return nil, domain.WrapError(domain.ErrorCodeLedgerWriteFailed, msg, err).
			WithDetail("payment_id", paymentID).
			WithDetail("book_id", bookID)
	}

	return result, nil
}

// finishCompletion removes the pending record and publishes the completion event.
// Both happen after commit and neither can fail the completion.
func (s *Service) finishCompletion(ctx context.Context, paymentID, bookID, userUID, txid string, applied bool) {
	if err := s.tracker.Remove(ctx, paymentID); err != nil {
		s.logger.Warn("Failed to remove pending payment after completion",
			ports.String("payment_id", paymentID),
			ports.Err(err),
		)
	}

	if !applied {
		return
	}

	event := domain.PaymentCompletedEvent{
		Type:        ports.EventPaymentCompleted,
		PaymentID:   paymentID,
		BookID:      bookID,
		UserUID:     userUID,
		TxID:        txid,
		CompletedAt: s.now(),
	}
	s.publish(ctx, ports.EventPaymentCompleted, paymentID, event)
}

func (s *Service) publish(ctx context.Context, eventType, key string, event interface{}) {
	err := s.events.Publish(ctx, key, event)
	observability.RecordEventPublished(eventType, err)
	if err != nil {
		s.logger.Warn("Failed to publish event",
			ports.String("event_type", eventType),
			ports.String("key", key),
			ports.Err(err),
		)
	}
}
