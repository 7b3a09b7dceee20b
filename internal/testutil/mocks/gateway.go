package mocks

import (
	"context"
	"sync"

	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockPaymentGateway mocks ports.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

var _ ports.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) GetPayment(ctx context.Context, paymentID string) (*ports.GatewayPayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayPayment), args.Error(1)
}

func (m *MockPaymentGateway) ApprovePayment(ctx context.Context, paymentID string) (*ports.GatewayPayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayPayment), args.Error(1)
}

func (m *MockPaymentGateway) CompletePayment(ctx context.Context, paymentID, txid string) (*ports.GatewayPayment, error) {
	args := m.Called(ctx, paymentID, txid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.GatewayPayment), args.Error(1)
}

// RecordingPublisher captures published events
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

// PublishedEvent is a captured Publish call
type PublishedEvent struct {
	Key   string
	Event interface{}
}

var _ ports.EventPublisher = (*RecordingPublisher)(nil)

func (p *RecordingPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, PublishedEvent{Key: key, Event: event})
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// Published returns a copy of the captured events
func (p *RecordingPublisher) Published() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.Events))
	copy(out, p.Events)
	return out
}
