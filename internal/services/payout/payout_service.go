package payout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	servicePorts "github.com/kevin07696/book-market-service/internal/services/ports"
	"github.com/kevin07696/book-market-service/pkg/observability"
	"github.com/kevin07696/book-market-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// Service implements servicePorts.PayoutService
type Service struct {
	store  ports.LedgerStore
	events ports.EventPublisher
	logger ports.Logger
	now    func() time.Time
	newID  func() string
}

var _ servicePorts.PayoutService = (*Service)(nil)

// NewService creates a new payout service
func NewService(store ports.LedgerStore, events ports.EventPublisher, logger ports.Logger) *Service {
	return &Service{
		store:  store,
		events: events,
		logger: logger,
		now:    timeutil.Now,
		newID:  uuid.NewString,
	}
}

// RequestPayout converts the owner's accumulated sales into a payout request.
//
// The owner's books are locked for the whole transaction and each book's counter
// is reduced by exactly the sales that were paid out, so a sale committed
// concurrently is kept for the next payout.
func (s *Service) RequestPayout(ctx context.Context, req servicePorts.RequestPayoutRequest) (*domain.PayoutRequest, error) {
	if err := validatePayout(req); err != nil {
		return nil, err
	}

	var created *domain.PayoutRequest
	err := s.store.WithTx(ctx, func(q ports.LedgerQuerier) error {
		books, err := q.LockBooksByOwner(ctx, req.Username)
		if err != nil {
			return err
		}

		earnings := domain.ComputeEarnings(books)
		if !domain.MeetsPayoutMinimum(earnings) {
			return domain.NewDomainError(domain.ErrorCodeBelowMinimum, "minimum payout not reached").
				WithDetail("earnings", earnings.StringFixed(2)).
				WithDetail("minimum", domain.MinimumPayout.StringFixed(2))
		}

		now := s.now()
		request := &domain.PayoutRequest{
			ID:            s.newID(),
			Username:      req.Username,
			WalletAddress: req.WalletAddress,
			Amount:        earnings,
			Status:        domain.PayoutStatusPending,
			RequestedAt:   now,
		}
		if err := q.CreatePayoutRequest(ctx, request); err != nil {
			return err
		}

		if err := q.UpsertUserPayoutInfo(ctx, &domain.UserPayoutInfo{
			Username:         req.Username,
			LastPayoutAt:     now,
			LastPayoutAmount: earnings,
		}); err != nil {
			return err
		}

		for _, book := range books {
			if book.SalesCount <= 0 {
				continue
			}
			if err := q.AddSales(ctx, book.ID, -book.SalesCount); err != nil {
				return err
			}
		}

		created = request
		return nil
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrorCodeBelowMinimum) {
			observability.RecordPayoutRequest("below_minimum", decimal.Zero)
			s.logger.Info("Payout below minimum",
				ports.String("username", req.Username),
			)
			return nil, err
		}
		observability.RecordPayoutRequest("failed", decimal.Zero)
		s.logger.Error("Payout transaction failed",
			ports.String("username", req.Username),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeLedgerWriteFailed, "payout failed", err).
			WithDetail("username", req.Username)
	}

	observability.RecordPayoutRequest("created", created.Amount)
	s.logger.Info("Payout requested",
		ports.String("payout_id", created.ID),
		ports.String("username", created.Username),
		ports.Amount("amount", created.Amount),
	)

	err = s.events.Publish(ctx, created.Username, domain.PayoutRequestedEvent{
		Type:        ports.EventPayoutRequested,
		ID:          created.ID,
		Username:    created.Username,
		Amount:      created.Amount,
		RequestedAt: created.RequestedAt,
	})
	observability.RecordEventPublished(ports.EventPayoutRequested, err)
	if err != nil {
		s.logger.Warn("Failed to publish event",
			ports.String("event_type", ports.EventPayoutRequested),
			ports.String("key", created.Username),
			ports.Err(err),
		)
	}

	return created, nil
}

// MySales returns the books listed by username with their current counters
func (s *Service) MySales(ctx context.Context, username string) ([]*domain.Book, error) {
	if strings.TrimSpace(username) == "" {
		return nil, domain.MissingData("username")
	}
	books, err := s.store.Queries().ListBooksByOwner(ctx, username)
	if err != nil {
		s.logger.Error("Failed to list owner books",
			ports.String("username", username),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to list books", err)
	}
	return books, nil
}

// ResetSales zeroes every sales counter owned by username
func (s *Service) ResetSales(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return domain.MissingData("username")
	}

	var reset int64
	err := s.store.WithTx(ctx, func(q ports.LedgerQuerier) error {
		n, err := q.ResetSalesByOwner(ctx, username)
		reset = n
		return err
	})
	if err != nil {
		s.logger.Error("Failed to reset sales",
			ports.String("username", username),
			ports.Err(err),
		)
		return domain.WrapError(domain.ErrorCodeLedgerWriteFailed, "failed to reset sales", err)
	}

	s.logger.Info("Sales reset",
		ports.String("username", username),
		ports.Int64("books", reset),
	)
	return nil
}

func validatePayout(req servicePorts.RequestPayoutRequest) error {
	var missing []string
	if strings.TrimSpace(req.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		missing = append(missing, "walletAddress")
	}
	if len(missing) > 0 {
		return domain.MissingData(missing...)
	}
	return nil
}
