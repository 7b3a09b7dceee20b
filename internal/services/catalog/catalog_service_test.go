package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/services/catalog"
	"github.com/kevin07696/book-market-service/internal/testutil/fixtures"
	"github.com/kevin07696/book-market-service/internal/testutil/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validInput() *domain.NewBookInput {
	return &domain.NewBookInput{
		Title:    "Concurrency in Go",
		Price:    decimal.RequireFromString("3.14"),
		Cover:    "https://cdn.example.com/c.jpg",
		PDF:      "https://cdn.example.com/c.pdf",
		Owner:    "alice",
		OwnerUID: "uid_alice",
	}
}

func TestSaveBook(t *testing.T) {
	store := mocks.NewMockLedgerStore()
	svc := catalog.NewService(store, mocks.NewMockLogger())
	ctx := context.Background()

	store.Querier.On("CreateBook", ctx, mock.MatchedBy(func(b *domain.Book) bool {
		return b.Title == "Concurrency in Go" && b.SalesCount == 0 &&
			b.PageCount == domain.DefaultPageCount && b.Description == "" && b.ID != ""
	})).Return(nil)

	id, err := svc.SaveBook(ctx, validInput())

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	store.Querier.AssertExpectations(t)
}

func TestSaveBook_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *domain.NewBookInput)
		code   domain.ErrorCode
	}{
		{"missing title", func(in *domain.NewBookInput) { in.Title = "  " }, domain.ErrorCodeMissingData},
		{"missing price", func(in *domain.NewBookInput) { in.Price = decimal.Zero }, domain.ErrorCodeMissingData},
		{"missing pdf", func(in *domain.NewBookInput) { in.PDF = "" }, domain.ErrorCodeMissingData},
		{"missing owner uid", func(in *domain.NewBookInput) { in.OwnerUID = "" }, domain.ErrorCodeMissingData},
		{"negative price", func(in *domain.NewBookInput) { in.Price = decimal.NewFromInt(-1) }, domain.ErrorCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockLedgerStore()
			svc := catalog.NewService(store, mocks.NewMockLogger())
			in := validInput()
			tt.mutate(in)

			_, err := svc.SaveBook(context.Background(), in)

			require.Error(t, err)
			assert.Equal(t, tt.code, domain.GetErrorCode(err))
			store.Querier.AssertNotCalled(t, "CreateBook", mock.Anything, mock.Anything)
		})
	}
}

func TestSaveBook_StoreFailure(t *testing.T) {
	store := mocks.NewMockLedgerStore()
	svc := catalog.NewService(store, mocks.NewMockLogger())
	store.Querier.On("CreateBook", mock.Anything, mock.Anything).Return(errors.New("constraint"))

	_, err := svc.SaveBook(context.Background(), validInput())

	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeStoreUnavailable))
}

func TestGetPDF(t *testing.T) {
	ctx := context.Background()
	book := fixtures.NewBook(fixtures.WithID("book_1"))

	t.Run("purchased", func(t *testing.T) {
		store := mocks.NewMockLedgerStore()
		svc := catalog.NewService(store, mocks.NewMockLogger())
		store.Querier.On("PurchaseExists", ctx, "user_1", "book_1").Return(true, nil)
		store.Querier.On("GetBook", ctx, "book_1").Return(book, nil)

		pdf, err := svc.GetPDF(ctx, "book_1", "user_1")

		require.NoError(t, err)
		assert.Equal(t, book.PDF, pdf)
	})

	t.Run("not purchased existing book", func(t *testing.T) {
		store := mocks.NewMockLedgerStore()
		svc := catalog.NewService(store, mocks.NewMockLogger())
		store.Querier.On("PurchaseExists", ctx, "user_2", "book_1").Return(false, nil)

		_, err := svc.GetPDF(ctx, "book_1", "user_2")

		assert.ErrorIs(t, err, domain.ErrNotPurchased)
		store.Querier.AssertNotCalled(t, "GetBook", mock.Anything, mock.Anything)
	})

	t.Run("not purchased missing book", func(t *testing.T) {
		store := mocks.NewMockLedgerStore()
		svc := catalog.NewService(store, mocks.NewMockLogger())
		store.Querier.On("PurchaseExists", ctx, "user_2", "nope").Return(false, nil)

		_, err := svc.GetPDF(ctx, "nope", "user_2")

		assert.ErrorIs(t, err, domain.ErrNotPurchased)
	})

	t.Run("missing data", func(t *testing.T) {
		svc := catalog.NewService(mocks.NewMockLedgerStore(), mocks.NewMockLogger())

		_, err := svc.GetPDF(ctx, "", "user_1")

		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingData))
	})
}

func TestMyPurchases(t *testing.T) {
	store := mocks.NewMockLedgerStore()
	svc := catalog.NewService(store, mocks.NewMockLogger())
	ctx := context.Background()

	store.Querier.On("ListPurchasedBooks", ctx, "user_1").Return([]*domain.Book{fixtures.NewBook()}, nil)

	books, err := svc.MyPurchases(ctx, "user_1")

	require.NoError(t, err)
	assert.Len(t, books, 1)
}
