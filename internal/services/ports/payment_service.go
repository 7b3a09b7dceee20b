package ports

import (
	"context"

	"github.com/kevin07696/book-market-service/internal/domain"
)

// ApprovePaymentRequest contains parameters for approving a payment
type ApprovePaymentRequest struct {
	PaymentID string
	BookID    string
	UserUID   string
}

// CompletePaymentRequest contains parameters for completing a payment
type CompletePaymentRequest struct {
	PaymentID string
	TxID      string
}

// CompletePaymentResponse is returned once the purchase has been granted
type CompletePaymentResponse struct {
	PaymentID string
	BookID    string
	UserUID   string
	PDFURL    string

	// AlreadyApplied is true when a previous attempt had already credited the payment
	AlreadyApplied bool
}

// PaymentService drives a payment from approval to completion
type PaymentService interface {
	// ApprovePayment records the pending purchase and approves it at the gateway
	ApprovePayment(ctx context.Context, req ApprovePaymentRequest) error

	// CompletePayment completes the payment at the gateway and grants the purchase
	CompletePayment(ctx context.Context, req CompletePaymentRequest) (*CompletePaymentResponse, error)

	// ListPendingPayments returns the user's purchases still in progress
	ListPendingPayments(ctx context.Context, userUID string) ([]*domain.PendingPayment, error)

	// Resolve retries completion of a stuck payment. Failures are logged, never returned.
	Resolve(ctx context.Context, paymentID string)
}
