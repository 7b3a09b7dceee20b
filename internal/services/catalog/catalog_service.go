package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	servicePorts "github.com/kevin07696/book-market-service/internal/services/ports"
	"github.com/kevin07696/book-market-service/pkg/observability"
	"github.com/kevin07696/book-market-service/pkg/timeutil"
)

// Service implements servicePorts.CatalogService
type Service struct {
	store  ports.LedgerStore
	logger ports.Logger
	now    func() time.Time
	newID  func() string
}

var _ servicePorts.CatalogService = (*Service)(nil)

// NewService creates a new catalog service
func NewService(store ports.LedgerStore, logger ports.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    timeutil.Now,
		newID:  uuid.NewString,
	}
}

// SaveBook validates and stores a new listing, returning its id
func (s *Service) SaveBook(ctx context.Context, input *domain.NewBookInput) (string, error) {
	if input == nil {
		return "", domain.MissingData()
	}
	if err := input.Validate(); err != nil {
		return "", err
	}

	book := input.ToBook(s.newID(), s.now())
	if err := s.store.Queries().CreateBook(ctx, book); err != nil {
		s.logger.Error("Failed to save book",
			ports.String("owner", book.Owner),
			ports.String("title", book.Title),
			ports.Err(err),
		)
		return "", domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to save book", err)
	}

	observability.RecordBookListed()
	s.logger.Info("Book listed",
		ports.String("book_id", book.ID),
		ports.String("owner", book.Owner),
		ports.Amount("price", book.Price),
	)
	return book.ID, nil
}

// GetPDF returns the book's content reference. Without a purchase grant the
// answer is NOT_PURCHASED whether or not the book exists.
func (s *Service) GetPDF(ctx context.Context, bookID, userUID string) (string, error) {
	var missing []string
	if strings.TrimSpace(bookID) == "" {
		missing = append(missing, "bookId")
	}
	if strings.TrimSpace(userUID) == "" {
		missing = append(missing, "userUid")
	}
	if len(missing) > 0 {
		return "", domain.MissingData(missing...)
	}

	q := s.store.Queries()
	purchased, err := q.PurchaseExists(ctx, userUID, bookID)
	if err != nil {
		return "", domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to check purchase", err)
	}
	observability.RecordPDFAccess(purchased)
	if !purchased {
		s.logger.Warn("PDF requested without purchase",
			ports.String("book_id", bookID),
			ports.String("user_uid", userUID),
		)
		return "", domain.ErrNotPurchased
	}

	book, err := q.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return "", domain.ErrBookNotFound
		}
		return "", domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to load book", err)
	}
	return book.PDF, nil
}

// MyPurchases returns the books the user holds grants for that are still listed
func (s *Service) MyPurchases(ctx context.Context, userUID string) ([]*domain.Book, error) {
	if strings.TrimSpace(userUID) == "" {
		return nil, domain.MissingData("userUid")
	}
	books, err := s.store.Queries().ListPurchasedBooks(ctx, userUID)
	if err != nil {
		s.logger.Error("Failed to list purchases",
			ports.String("user_uid", userUID),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeStoreUnavailable, "failed to list purchases", err)
	}
	return books, nil
}
