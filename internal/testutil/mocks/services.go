package mocks

import (
	"context"

	"github.com/kevin07696/book-market-service/internal/domain"
	servicePorts "github.com/kevin07696/book-market-service/internal/services/ports"
	"github.com/stretchr/testify/mock"
)

// MockPaymentService mocks servicePorts.PaymentService
type MockPaymentService struct {
	mock.Mock
}

var _ servicePorts.PaymentService = (*MockPaymentService)(nil)

func (m *MockPaymentService) ApprovePayment(ctx context.Context, req servicePorts.ApprovePaymentRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockPaymentService) CompletePayment(ctx context.Context, req servicePorts.CompletePaymentRequest) (*servicePorts.CompletePaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*servicePorts.CompletePaymentResponse), args.Error(1)
}

func (m *MockPaymentService) ListPendingPayments(ctx context.Context, userUID string) ([]*domain.PendingPayment, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PendingPayment), args.Error(1)
}

func (m *MockPaymentService) Resolve(ctx context.Context, paymentID string) {
	m.Called(ctx, paymentID)
}

// MockPayoutService mocks servicePorts.PayoutService
type MockPayoutService struct {
	mock.Mock
}

var _ servicePorts.PayoutService = (*MockPayoutService)(nil)

func (m *MockPayoutService) RequestPayout(ctx context.Context, req servicePorts.RequestPayoutRequest) (*domain.PayoutRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutRequest), args.Error(1)
}

func (m *MockPayoutService) MySales(ctx context.Context, username string) ([]*domain.Book, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Book), args.Error(1)
}

func (m *MockPayoutService) ResetSales(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// MockCatalogService mocks servicePorts.CatalogService
type MockCatalogService struct {
	mock.Mock
}

var _ servicePorts.CatalogService = (*MockCatalogService)(nil)

func (m *MockCatalogService) SaveBook(ctx context.Context, input *domain.NewBookInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockCatalogService) GetPDF(ctx context.Context, bookID, userUID string) (string, error) {
	args := m.Called(ctx, bookID, userUID)
	return args.String(0), args.Error(1)
}

func (m *MockCatalogService) MyPurchases(ctx context.Context, userUID string) ([]*domain.Book, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Book), args.Error(1)
}
