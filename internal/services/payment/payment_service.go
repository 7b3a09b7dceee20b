package payment

import (
	"context"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	servicePorts "github.com/kevin07696/book-market-service/internal/services/ports"
	"github.com/kevin07696/book-market-service/pkg/observability"
	"github.com/kevin07696/book-market-service/pkg/timeutil"
)

// Service implements servicePorts.PaymentService
type Service struct {
	store   ports.LedgerStore
	gateway ports.PaymentGateway
	events  ports.EventPublisher
	tracker *Tracker
	logger  ports.Logger
	now     func() time.Time
}

var _ servicePorts.PaymentService = (*Service)(nil)

// NewService creates a new payment service
func NewService(
	store ports.LedgerStore,
	gateway ports.PaymentGateway,
	events ports.EventPublisher,
	logger ports.Logger,
) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		events:  events,
		tracker: NewTracker(store, logger),
		logger:  logger,
		now:     timeutil.Now,
	}
}

// Tracker returns the pending payment tracker used by the service
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// ApprovePayment records the pending purchase, then approves it at the gateway.
// The pending record stays in place if the gateway refuses. A payment that
// already completed is refused before anything is written.
func (s *Service) ApprovePayment(ctx context.Context, req servicePorts.ApprovePaymentRequest) error {
	if err := validateApprove(req); err != nil {
		return err
	}

	completed, err := s.store.Queries().GetCompletedPayment(ctx, req.PaymentID)
	if err != nil {
		observability.RecordPaymentApproval("failed")
		s.logger.Error("Failed to check payment completion",
			ports.String("payment_id", req.PaymentID),
			ports.Err(err),
		)
		return domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to check payment completion", err).
			WithDetail("payment_id", req.PaymentID)
	}
	if completed != nil {
		observability.RecordPaymentApproval("already_completed")
		s.logger.Warn("Approval refused: payment already completed",
			ports.String("payment_id", req.PaymentID),
			ports.String("book_id", completed.BookID),
		)
		return domain.NewDomainError(domain.ErrorCodePendingNotFound, "payment already completed").
			WithDetail("payment_id", req.PaymentID)
	}

	if _, err := s.tracker.Record(ctx, req.PaymentID, req.BookID, req.UserUID); err != nil {
		observability.RecordPaymentApproval("failed")
		s.logger.Error("Failed to record pending payment",
			ports.String("payment_id", req.PaymentID),
			ports.Err(err),
		)
		return err
	}

	if _, err := s.gateway.ApprovePayment(ctx, req.PaymentID); err != nil {
		observability.RecordPaymentApproval("rejected")
		s.logger.Error("Gateway rejected payment approval",
			ports.String("payment_id", req.PaymentID),
			ports.Err(err),
		)
		return domain.WrapError(domain.ErrorCodeGatewayRejected, err.Error(), err).
			WithDetail("payment_id", req.PaymentID)
	}

	observability.RecordPaymentApproval("approved")
	s.logger.Info("Payment approved",
		ports.String("payment_id", req.PaymentID),
		ports.String("book_id", req.BookID),
		ports.String("user_uid", req.UserUID),
	)
	return nil
}

// CompletePayment completes an approved payment and grants the purchase.
//
// Book and user are read from the gateway's payment metadata, not from the
// pending record. The ledger transaction is guarded by a completion marker,
// so a retry after a committed attempt never credits the sale twice.
func (s *Service) CompletePayment(ctx context.Context, req servicePorts.CompletePaymentRequest) (*servicePorts.CompletePaymentResponse, error) {
	start := time.Now()

	if err := validateComplete(req); err != nil {
		return nil, err
	}

	resp, err := s.completePayment(ctx, req)

	status := "completed"
	switch {
	case err != nil && domain.IsDomainError(err, domain.ErrorCodeGatewayRejected):
		status = "rejected"
	case err != nil:
		status = "failed"
	case resp.AlreadyApplied:
		status = "duplicate"
	}
	observability.RecordPaymentCompletion("request", status, time.Since(start).Seconds())

	return resp, err
}

func (s *Service) completePayment(ctx context.Context, req servicePorts.CompletePaymentRequest) (*servicePorts.CompletePaymentResponse, error) {
	pending, err := s.tracker.Lookup(ctx, req.PaymentID)
	if err != nil {
		s.logger.Warn("Completion requested for payment that is not pending",
			ports.String("payment_id", req.PaymentID),
			ports.Err(err),
		)
		return nil, err
	}

	payment, err := s.gateway.GetPayment(ctx, req.PaymentID)
	if err != nil {
		s.logger.Error("Failed to fetch payment from gateway",
			ports.String("payment_id", req.PaymentID),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeGatewayRejected, err.Error(), err).
			WithDetail("payment_id", req.PaymentID)
	}

	if !payment.HasIdentifiers() {
		s.logger.Error("Gateway payment metadata is missing identifiers",
			ports.String("payment_id", req.PaymentID),
			ports.String("book_id", payment.Metadata.BookID),
			ports.String("user_uid", payment.Metadata.UserUID),
		)
		return nil, domain.NewDomainError(domain.ErrorCodeInconsistentPaymentState, "missing metadata from payment").
			WithDetail("payment_id", req.PaymentID)
	}

	bookID, userUID := payment.Metadata.BookID, payment.Metadata.UserUID
	if pending.BookID != bookID || pending.UserUID != userUID {
		s.logger.Warn("Pending record disagrees with gateway metadata, using gateway values",
			ports.String("payment_id", req.PaymentID),
			ports.String("pending_book_id", pending.BookID),
			ports.String("pending_user_uid", pending.UserUID),
			ports.String("gateway_book_id", bookID),
			ports.String("gateway_user_uid", userUID),
		)
	}

	if !(payment.Status.DeveloperCompleted && payment.TxID() == req.TxID) {
		if err := s.completeAtGateway(ctx, req.PaymentID, req.TxID); err != nil {
			s.logger.Error("Gateway rejected payment completion",
				ports.String("payment_id", req.PaymentID),
				ports.String("txid", req.TxID),
				ports.Err(err),
			)
			return nil, err
		}
	}

	result, err := s.applyCompletion(ctx, req.PaymentID, bookID, userUID, req.TxID)
	if err != nil {
		s.logger.Error("Ledger transaction failed, pending payment kept for retry",
			ports.String("payment_id", req.PaymentID),
			ports.String("book_id", bookID),
			ports.Err(err),
		)
		return nil, err
	}

	s.finishCompletion(ctx, req.PaymentID, bookID, userUID, req.TxID, result.applied)

	if result.applied {
		s.logger.Info("Payment completed",
			ports.String("payment_id", req.PaymentID),
			ports.String("book_id", bookID),
			ports.String("user_uid", userUID),
			ports.String("txid", req.TxID),
		)
	} else {
		s.logger.Info("Payment was already credited, skipped ledger writes",
			ports.String("payment_id", req.PaymentID),
		)
	}

	return &servicePorts.CompletePaymentResponse{
		PaymentID:      req.PaymentID,
		BookID:         bookID,
		UserUID:        userUID,
		PDFURL:         result.book.PDF,
		AlreadyApplied: !result.applied,
	}, nil
}

// ListPendingPayments returns the user's purchases still in progress
func (s *Service) ListPendingPayments(ctx context.Context, userUID string) ([]*domain.PendingPayment, error) {
	if userUID == "" {
		return nil, domain.MissingData("userUid")
	}
	return s.tracker.ListByUser(ctx, userUID)
}

func validateApprove(req servicePorts.ApprovePaymentRequest) error {
	var missing []string
	if req.PaymentID == "" {
		missing = append(missing, "paymentId")
	}
	if req.BookID == "" {
		missing = append(missing, "bookId")
	}
	if req.UserUID == "" {
		missing = append(missing, "userUid")
	}
	if len(missing) > 0 {
		return domain.MissingData(missing...)
	}
	return nil
}

func validateComplete(req servicePorts.CompletePaymentRequest) error {
	var missing []string
	if req.PaymentID == "" {
		missing = append(missing, "paymentId")
	}
	if req.TxID == "" {
		missing = append(missing, "txid")
	}
	if len(missing) > 0 {
		return domain.MissingData(missing...)
	}
	return nil
}
