package ports

import (
	"context"

	"github.com/kevin07696/book-market-service/internal/domain"
)

// RequestPayoutRequest contains parameters for a payout request
type RequestPayoutRequest struct {
	Username      string
	WalletAddress string
}

// PayoutService turns accumulated sales into payout requests
type PayoutService interface {
	RequestPayout(ctx context.Context, req RequestPayoutRequest) (*domain.PayoutRequest, error)
	MySales(ctx context.Context, username string) ([]*domain.Book, error)
	ResetSales(ctx context.Context, username string) error
}
