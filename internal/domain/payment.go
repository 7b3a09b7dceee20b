package domain

import (
	"time"
)

// PendingStatus is the only status a PendingPayment record carries.
// The record is deleted rather than transitioned once the payment completes.
const PendingStatus = "pending"

// PaymentState is the lifecycle of a payment id as seen by this service
type PaymentState string

const (
	PaymentStateInitiated PaymentState = "initiated" // Known to the gateway only
	PaymentStateApproved  PaymentState = "approved"  // Pending record exists
	PaymentStateCompleted PaymentState = "completed" // Ledger applied, pending removed
	PaymentStateFailed    PaymentState = "failed"    // Cancelled at the gateway, pending removed
)

// CanTransitionTo enforces Initiated → Approved → {Completed, Failed}.
func (s PaymentState) CanTransitionTo(next PaymentState) bool {
	switch s {
	case PaymentStateInitiated:
		return next == PaymentStateApproved
	case PaymentStateApproved:
		return next == PaymentStateCompleted || next == PaymentStateFailed
	default:
		return false
	}
}

// IsTerminal returns true for states that accept no further transitions
func (s PaymentState) IsTerminal() bool {
	return s == PaymentStateCompleted || s == PaymentStateFailed
}

// PendingPayment records a purchase in progress, keyed by the gateway payment id.
// Its presence is what allows a completion to run.
type PendingPayment struct {
	CreatedAt     time.Time  `json:"createdAt"`
	LastSweptAt   *time.Time `json:"lastSweptAt,omitempty"` // nil until a sweep first leaves it in place
	PaymentID     string     `json:"paymentId"`
	BookID        string     `json:"bookId"`
	UserUID       string     `json:"userUid"`
	Status        string     `json:"status"`
	SweepAttempts int        `json:"sweepAttempts"`
}

// NewPendingPayment creates a pending record for an approval request.
func NewPendingPayment(paymentID, bookID, userUID string, now time.Time) *PendingPayment {
	return &PendingPayment{
		PaymentID: paymentID,
		BookID:    bookID,
		UserUID:   userUID,
		Status:    PendingStatus,
		CreatedAt: now,
	}
}

// CompletedPayment is the idempotency marker written in the same transaction
// as the sales increment and purchase grant for a payment id.
type CompletedPayment struct {
	CompletedAt time.Time `json:"completedAt"`
	PaymentID   string    `json:"paymentId"`
	BookID      string    `json:"bookId"`
	UserUID     string    `json:"userUid"`
	TxID        string    `json:"txid"`
}

// PurchaseGrant authorizes a user to download a book. Keyed by (UserUID, BookID).
type PurchaseGrant struct {
	PurchasedAt time.Time `json:"purchasedAt"`
	UserUID     string    `json:"userUid"`
	BookID      string    `json:"bookId"`
}
