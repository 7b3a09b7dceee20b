package ports

import (
	"context"

	"github.com/kevin07696/book-market-service/internal/domain"
)

// CatalogService manages listings and purchased content access
type CatalogService interface {
	SaveBook(ctx context.Context, input *domain.NewBookInput) (string, error)

	// GetPDF returns the content reference if the user holds a purchase grant
	GetPDF(ctx context.Context, bookID, userUID string) (string, error)

	MyPurchases(ctx context.Context, userUID string) ([]*domain.Book, error)
}
