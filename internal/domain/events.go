package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCompletedEvent is emitted once the ledger effects of a payment are committed
type PaymentCompletedEvent struct {
	Type        string    `json:"type"`
	PaymentID   string    `json:"paymentId"`
	BookID      string    `json:"bookId"`
	UserUID     string    `json:"userUid"`
	TxID        string    `json:"txid"`
	CompletedAt time.Time `json:"completedAt"`
}

// PaymentCancelledEvent is emitted when the sweeper drops a payment cancelled at the gateway
type PaymentCancelledEvent struct {
	Type      string `json:"type"`
	PaymentID string `json:"paymentId"`
}

// PaymentFailedEvent is emitted when the sweeper gives up on a pending payment
type PaymentFailedEvent struct {
	Type      string `json:"type"`
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason"`
	Attempts  int    `json:"attempts"`
}

// PayoutRequestedEvent is emitted after a payout request and the sales reset commit
type PayoutRequestedEvent struct {
	Type        string          `json:"type"`
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Amount      decimal.Decimal `json:"amount"`
	RequestedAt time.Time       `json:"requestedAt"`
}
