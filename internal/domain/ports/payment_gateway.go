package ports

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMetadata is the metadata attached to a payment when the payer created it.
// The gateway stores it, so it is the authenticated source for book and user ids.
type PaymentMetadata struct {
	BookID  string `json:"bookId"`
	UserUID string `json:"userUid"`
}

// GatewayPaymentStatus mirrors the gateway's lifecycle flags
type GatewayPaymentStatus struct {
	DeveloperApproved   bool `json:"developer_approved"`
	TransactionVerified bool `json:"transaction_verified"`
	DeveloperCompleted  bool `json:"developer_completed"`
	Cancelled           bool `json:"cancelled"`
	UserCancelled       bool `json:"user_cancelled"`
}

// GatewayTransaction is the on-chain transaction linked to a payment, if any
type GatewayTransaction struct {
	TxID     string `json:"txid"`
	Verified bool   `json:"verified"`
	Link     string `json:"_link"`
}

// GatewayPayment represents a payment as reported by the payment network
type GatewayPayment struct {
	CreatedAt   time.Time            `json:"created_at"`
	Transaction *GatewayTransaction  `json:"transaction"`
	Metadata    PaymentMetadata      `json:"metadata"`
	Amount      decimal.Decimal      `json:"amount"`
	Identifier  string               `json:"identifier"`
	UserUID     string               `json:"user_uid"`
	Memo        string               `json:"memo"`
	FromAddress string               `json:"from_address"`
	ToAddress   string               `json:"to_address"`
	Direction   string               `json:"direction"`
	Network     string               `json:"network"`
	Status      GatewayPaymentStatus `json:"status"`
}

// TxID returns the linked transaction id, or "" when the payer has not paid yet
func (p *GatewayPayment) TxID() string {
	if p == nil || p.Transaction == nil {
		return ""
	}
	return p.Transaction.TxID
}

// IsCancelled returns true if either side cancelled the payment
func (p *GatewayPayment) IsCancelled() bool {
	return p.Status.Cancelled || p.Status.UserCancelled
}

// HasIdentifiers returns true when metadata carries both book and user ids
func (p *GatewayPayment) HasIdentifiers() bool {
	return p.Metadata.BookID != "" && p.Metadata.UserUID != ""
}

// ErrGatewayPaymentNotFound matches gateway errors for a payment id the network does not know
var ErrGatewayPaymentNotFound = errors.New("payment not found at gateway")

// PaymentGateway defines the remote approve/complete protocol of the payment network
type PaymentGateway interface {
	// GetPayment fetches the current state of a payment
	GetPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)

	// ApprovePayment marks the payment as approved by this server
	ApprovePayment(ctx context.Context, paymentID string) (*GatewayPayment, error)

	// CompletePayment confirms the payer's on-chain transaction
	CompletePayment(ctx context.Context, paymentID, txid string) (*GatewayPayment, error)
}
