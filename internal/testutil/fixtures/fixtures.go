// Package fixtures provides test data builders for books and gateway payments.
package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// FixedTime is a stable timestamp for assertions
var FixedTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// BookOption customizes a test book
type BookOption func(*domain.Book)

// WithPrice sets the book price
func WithPrice(price string) BookOption {
	return func(b *domain.Book) { b.Price = decimal.RequireFromString(price) }
}

// WithSales sets the book sales count
func WithSales(n int64) BookOption {
	return func(b *domain.Book) { b.SalesCount = n }
}

// WithOwner sets the owner display name and uid
func WithOwner(owner, ownerUID string) BookOption {
	return func(b *domain.Book) {
		b.Owner = owner
		b.OwnerUID = ownerUID
	}
}

// WithID sets the book id
func WithID(id string) BookOption {
	return func(b *domain.Book) { b.ID = id }
}

// NewBook returns a valid book priced at 10 with no sales
func NewBook(opts ...BookOption) *domain.Book {
	b := &domain.Book{
		ID:          uuid.NewString(),
		Title:       "The Go Programming Language",
		Price:       decimal.NewFromInt(10),
		Description: "A book",
		Language:    "en",
		PageCount:   "380",
		Cover:       "https://cdn.example.com/covers/gopl.jpg",
		PDF:         "https://cdn.example.com/pdfs/gopl.pdf",
		Owner:       "alice",
		OwnerUID:    "uid_alice",
		CreatedAt:   FixedTime,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PaymentOption customizes a gateway payment
type PaymentOption func(*ports.GatewayPayment)

// WithTx links a blockchain transaction to the payment
func WithTx(txid string) PaymentOption {
	return func(p *ports.GatewayPayment) {
		p.Transaction = &ports.GatewayTransaction{TxID: txid, Verified: true}
		p.Status.TransactionVerified = true
	}
}

// WithMetadata sets the payment metadata identifiers
func WithMetadata(bookID, userUID string) PaymentOption {
	return func(p *ports.GatewayPayment) {
		p.Metadata = ports.PaymentMetadata{BookID: bookID, UserUID: userUID}
	}
}

// DeveloperCompleted marks the payment completed by the server
func DeveloperCompleted() PaymentOption {
	return func(p *ports.GatewayPayment) { p.Status.DeveloperCompleted = true }
}

// Cancelled marks the payment cancelled by the payer
func Cancelled() PaymentOption {
	return func(p *ports.GatewayPayment) { p.Status.UserCancelled = true }
}

// NewGatewayPayment returns an approved payment with no transaction yet
func NewGatewayPayment(paymentID string, opts ...PaymentOption) *ports.GatewayPayment {
	p := &ports.GatewayPayment{
		Identifier: paymentID,
		UserUID:    "user_1",
		Amount:     decimal.NewFromInt(10),
		Memo:       "Book purchase",
		Metadata:   ports.PaymentMetadata{BookID: "book_1", UserUID: "user_1"},
		Direction:  "user_to_app",
		Network:    "Pi Testnet",
		CreatedAt:  FixedTime,
		Status:     ports.GatewayPaymentStatus{DeveloperApproved: true},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
