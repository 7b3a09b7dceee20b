// Package mocks provides shared mock implementations for testing.
package mocks

import (
	"context"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockLedgerQuerier mocks ports.LedgerQuerier
type MockLedgerQuerier struct {
	mock.Mock
}

var _ ports.LedgerQuerier = (*MockLedgerQuerier)(nil)

func (m *MockLedgerQuerier) CreateBook(ctx context.Context, book *domain.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockLedgerQuerier) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *MockLedgerQuerier) ListBooksByOwner(ctx context.Context, owner string) ([]*domain.Book, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Book), args.Error(1)
}

func (m *MockLedgerQuerier) LockBooksByOwner(ctx context.Context, owner string) ([]*domain.Book, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Book), args.Error(1)
}

func (m *MockLedgerQuerier) AddSales(ctx context.Context, bookID string, delta int64) error {
	args := m.Called(ctx, bookID, delta)
	return args.Error(0)
}

func (m *MockLedgerQuerier) ResetSalesByOwner(ctx context.Context, owner string) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerQuerier) UpsertPendingPayment(ctx context.Context, p *domain.PendingPayment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockLedgerQuerier) GetPendingPayment(ctx context.Context, paymentID string) (*domain.PendingPayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingPayment), args.Error(1)
}

func (m *MockLedgerQuerier) DeletePendingPayment(ctx context.Context, paymentID string) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

func (m *MockLedgerQuerier) ListPendingPaymentsByUser(ctx context.Context, userUID string) ([]*domain.PendingPayment, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PendingPayment), args.Error(1)
}

func (m *MockLedgerQuerier) ListPendingPaymentsBefore(ctx context.Context, before time.Time, limit int) ([]*domain.PendingPayment, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PendingPayment), args.Error(1)
}

func (m *MockLedgerQuerier) MarkPendingSwept(ctx context.Context, paymentID string, at time.Time) (int, error) {
	args := m.Called(ctx, paymentID, at)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerQuerier) GetCompletedPayment(ctx context.Context, paymentID string) (*domain.CompletedPayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompletedPayment), args.Error(1)
}

func (m *MockLedgerQuerier) InsertCompletedPayment(ctx context.Context, c *domain.CompletedPayment) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockLedgerQuerier) UpsertPurchase(ctx context.Context, grant *domain.PurchaseGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockLedgerQuerier) PurchaseExists(ctx context.Context, userUID, bookID string) (bool, error) {
	args := m.Called(ctx, userUID, bookID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerQuerier) ListPurchasedBooks(ctx context.Context, userUID string) ([]*domain.Book, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Book), args.Error(1)
}

func (m *MockLedgerQuerier) CreatePayoutRequest(ctx context.Context, req *domain.PayoutRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockLedgerQuerier) UpsertUserPayoutInfo(ctx context.Context, info *domain.UserPayoutInfo) error {
	args := m.Called(ctx, info)
	return args.Error(0)
}

// MockLedgerStore mocks ports.LedgerStore. Queries and WithTx both hand out
// Querier, so expectations are set on the querier regardless of transaction scope.
type MockLedgerStore struct {
	mock.Mock
	Querier *MockLedgerQuerier

	// TxCount is the number of WithTx calls
	TxCount int
}

var _ ports.LedgerStore = (*MockLedgerStore)(nil)

// NewMockLedgerStore creates a store mock with a fresh querier mock
func NewMockLedgerStore() *MockLedgerStore {
	return &MockLedgerStore{Querier: &MockLedgerQuerier{}}
}

func (m *MockLedgerStore) Queries() ports.LedgerQuerier {
	return m.Querier
}

// WithTx runs fn against the querier mock
func (m *MockLedgerStore) WithTx(ctx context.Context, fn func(q ports.LedgerQuerier) error) error {
	m.TxCount++
	return fn(m.Querier)
}

func (m *MockLedgerStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLedgerStore) Close() {}
