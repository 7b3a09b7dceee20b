package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is owned by the external approver once the request exists
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusApproved PayoutStatus = "approved"
	PayoutStatusRejected PayoutStatus = "rejected"
	PayoutStatusPaid     PayoutStatus = "paid"
)

var (
	// OwnerShare is the fraction of each sale paid to the book owner.
	OwnerShare = decimal.RequireFromString("0.7")

	// MinimumPayout is the smallest amount an owner may withdraw, in gateway currency.
	MinimumPayout = decimal.NewFromInt(5)
)

// PayoutRequest is a withdrawal request created from accumulated sales.
// Amount is always derived from sales, never supplied by the caller.
type PayoutRequest struct {
	RequestedAt   time.Time       `json:"requestedAt"`
	ApprovedAt    *time.Time      `json:"approvedAt"`
	Amount        decimal.Decimal `json:"amount"`
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	WalletAddress string          `json:"walletAddress"`
	Status        PayoutStatus    `json:"status"`
}

// UserPayoutInfo is the bookkeeping merged into the owner's user record on payout.
type UserPayoutInfo struct {
	LastPayoutAt     time.Time       `json:"lastPayoutAt"`
	LastPayoutAmount decimal.Decimal `json:"lastPayoutAmount"`
	Username         string          `json:"username"`
}

// ComputeEarnings returns round(0.7 × Σ salesCount × price, 2) over books.
func ComputeEarnings(books []*Book) decimal.Decimal {
	total := decimal.Zero
	for _, b := range books {
		if b.SalesCount <= 0 {
			continue
		}
		total = total.Add(b.Revenue())
	}
	return total.Mul(OwnerShare).Round(2)
}

// MeetsPayoutMinimum reports whether earnings may be withdrawn.
func MeetsPayoutMinimum(earnings decimal.Decimal) bool {
	return earnings.GreaterThanOrEqual(MinimumPayout)
}
