package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/kevin07696/book-market-service/pkg/observability"
	"github.com/kevin07696/book-market-service/pkg/resilience"
)

// Sweep outcomes, also used as metric labels
const (
	OutcomeCompleted  = "completed"
	OutcomeCancelled  = "cancelled"
	OutcomeAwaitingTx = "awaiting_tx"
	OutcomeAbandoned  = "abandoned"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
	OutcomeRetired    = "retired"
)

// DefaultMaxSweepAttempts is how many failed sweeps a pending record survives
const DefaultMaxSweepAttempts = 50

// Resolve retries completion of a payment that may be stuck after approval,
// using the gateway as the source of truth. It never returns an error.
func (s *Service) Resolve(ctx context.Context, paymentID string) {
	s.resolve(ctx, paymentID, "resolve")
}

func (s *Service) resolve(ctx context.Context, paymentID, source string) string {
	start := time.Now()
	outcome := s.resolveOnce(ctx, paymentID)

	observability.RecordSweepOutcome(outcome)
	if outcome == OutcomeCompleted || outcome == OutcomeError {
		status := "completed"
		if outcome == OutcomeError {
			status = "failed"
		}
		observability.RecordPaymentCompletion(source, status, time.Since(start).Seconds())
	}
	return outcome
}

func (s *Service) resolveOnce(ctx context.Context, paymentID string) string {
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if errors.Is(err, ports.ErrGatewayPaymentNotFound) {
		s.logger.Warn("Pending resolve failed: payment unknown to gateway",
			ports.String("payment_id", paymentID),
		)
		return OutcomeNotFound
	}
	if err != nil {
		s.logger.Warn("Pending resolve failed: could not fetch payment",
			ports.String("payment_id", paymentID),
			ports.Err(err),
		)
		return OutcomeError
	}

	if payment.IsCancelled() {
		if err := s.tracker.Remove(ctx, paymentID); err != nil {
			s.logger.Warn("Pending resolve failed: could not remove cancelled payment",
				ports.String("payment_id", paymentID),
				ports.Err(err),
			)
			return OutcomeError
		}
		s.publish(ctx, ports.EventPaymentCancelled, paymentID, domain.PaymentCancelledEvent{
			Type:      ports.EventPaymentCancelled,
			PaymentID: paymentID,
		})
		s.logger.Info("Pending payment cancelled at gateway, removed",
			ports.String("payment_id", paymentID),
			ports.Bool("user_cancelled", payment.Status.UserCancelled),
		)
		return OutcomeCancelled
	}

	txid := payment.TxID()
	if txid == "" {
		s.logger.Debug("Payment has no transaction yet",
			ports.String("payment_id", paymentID),
		)
		return OutcomeAwaitingTx
	}

	if !payment.HasIdentifiers() {
		s.logger.Warn("Pending resolve abandoned: payment metadata is missing identifiers",
			ports.String("payment_id", paymentID),
		)
		return OutcomeAbandoned
	}
	bookID, userUID := payment.Metadata.BookID, payment.Metadata.UserUID

	if !payment.Status.DeveloperCompleted {
		if err := s.completeAtGateway(ctx, paymentID, txid); err != nil {
			s.logger.Warn("Pending resolve failed: gateway completion",
				ports.String("payment_id", paymentID),
				ports.Err(err),
			)
			return OutcomeError
		}
	}

	result, err := s.applyCompletion(ctx, paymentID, bookID, userUID, txid)
	if err != nil {
		s.logger.Warn("Pending resolve failed: ledger transaction",
			ports.String("payment_id", paymentID),
			ports.Err(err),
		)
		return OutcomeError
	}

	s.finishCompletion(ctx, paymentID, bookID, userUID, txid, result.applied)

	s.logger.Info("Pending payment resolved",
		ports.String("payment_id", paymentID),
		ports.String("book_id", bookID),
		ports.Bool("already_applied", !result.applied),
	)
	return OutcomeCompleted
}

// SweeperConfig controls the periodic reconciliation sweep
type SweeperConfig struct {
	Interval  time.Duration // 0 disables the sweep
	MinAge    time.Duration // Only pending records older than this are resolved
	BatchSize int
	// MaxAttempts retires a record whose sweeps keep failing with errors
	MaxAttempts int
}

// Sweeper periodically resolves pending payments that have been waiting too long
type Sweeper struct {
	service  *Service
	config   SweeperConfig
	timeouts *resilience.TimeoutConfig
	logger   ports.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper creates a sweeper for the payment service
func NewSweeper(service *Service, config SweeperConfig, timeouts *resilience.TimeoutConfig, logger ports.Logger) *Sweeper {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxSweepAttempts
	}
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Sweeper{
		service:  service,
		config:   config,
		timeouts: timeouts,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run sweeps on every interval tick until ctx is cancelled or Stop is called
func (sw *Sweeper) Run(ctx context.Context) {
	defer close(sw.doneCh)

	if sw.config.Interval <= 0 {
		sw.logger.Info("Pending payment sweeper disabled")
		return
	}

	sw.logger.Info("Pending payment sweeper started",
		ports.Duration("interval", sw.config.Interval),
		ports.Duration("min_age", sw.config.MinAge),
		ports.Int("batch_size", sw.config.BatchSize),
		ports.Int("max_attempts", sw.config.MaxAttempts),
	)

	ticker := time.NewTicker(sw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("Pending payment sweeper stopped")
			return
		case <-sw.stopCh:
			sw.logger.Info("Pending payment sweeper stopped")
			return
		case <-ticker.C:
			sw.SweepOnce(ctx)
		}
	}
}

// SweepOnce resolves one batch of stale pending payments and returns outcome counts
func (sw *Sweeper) SweepOnce(ctx context.Context) map[string]int {
	outcomes := make(map[string]int)

	stale, err := sw.service.tracker.ListStale(ctx, sw.config.MinAge, sw.config.BatchSize)
	if err != nil {
		sw.logger.Error("Failed to list stale pending payments", ports.Err(err))
		return outcomes
	}
	observability.SetStalePendingPayments(len(stale))

	for _, p := range stale {
		select {
		case <-ctx.Done():
			return outcomes
		case <-sw.stopCh:
			return outcomes
		default:
		}

		itemCtx, cancel := sw.timeouts.SweepItemContext(ctx)
		outcome := sw.service.resolve(itemCtx, p.PaymentID, "sweeper")
		cancel()
		// The item deadline may be spent, so bookkeeping runs on the sweep context
		outcomes[sw.settle(ctx, p.PaymentID, outcome)]++
	}

	if len(stale) > 0 {
		sw.logger.Info("Pending payment sweep finished",
			ports.Int("examined", len(stale)),
			ports.Int("completed", outcomes[OutcomeCompleted]),
			ports.Int("cancelled", outcomes[OutcomeCancelled]),
			ports.Int("awaiting_tx", outcomes[OutcomeAwaitingTx]),
			ports.Int("errors", outcomes[OutcomeError]),
			ports.Int("retired", outcomes[OutcomeRetired]),
		)
	}
	return outcomes
}

// settle handles a record the resolve left in place. A payment the gateway
// does not know, or one without identifiers, can never complete and is
// retired at once. Anything else is stamped so the next sweep starts with
// other records, and retired once its attempts run out on errors.
func (sw *Sweeper) settle(ctx context.Context, paymentID, outcome string) string {
	switch outcome {
	case OutcomeNotFound, OutcomeAbandoned:
		return sw.retire(ctx, paymentID, outcome, 0)
	case OutcomeAwaitingTx, OutcomeError:
	default:
		return outcome
	}

	attempts, err := sw.service.tracker.MarkSwept(ctx, paymentID)
	if err != nil {
		sw.logger.Warn("Failed to record sweep attempt",
			ports.String("payment_id", paymentID),
			ports.Err(err),
		)
		return outcome
	}
	if outcome == OutcomeError && attempts >= sw.config.MaxAttempts {
		return sw.retire(ctx, paymentID, outcome, attempts)
	}
	return outcome
}

func (sw *Sweeper) retire(ctx context.Context, paymentID, reason string, attempts int) string {
	if err := sw.service.tracker.Remove(ctx, paymentID); err != nil {
		sw.logger.Warn("Failed to retire pending payment",
			ports.String("payment_id", paymentID),
			ports.Err(err),
		)
		return reason
	}

	observability.RecordSweepOutcome(OutcomeRetired)
	sw.service.publish(ctx, ports.EventPaymentFailed, paymentID, domain.PaymentFailedEvent{
		Type:      ports.EventPaymentFailed,
		PaymentID: paymentID,
		Reason:    reason,
		Attempts:  attempts,
	})
	sw.logger.Error("Pending payment retired",
		ports.String("payment_id", paymentID),
		ports.String("reason", reason),
		ports.Int("attempts", attempts),
	)
	return OutcomeRetired
}

// Stop signals Run to exit and waits for the current sweep to finish or ctx to expire
func (sw *Sweeper) Stop(ctx context.Context) error {
	sw.stopOnce.Do(func() { close(sw.stopCh) })
	select {
	case <-sw.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
