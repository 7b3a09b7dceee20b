package ports

import (
	"context"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain"
)

// LedgerQuerier is the set of ledger operations available both on the store
// and inside a transaction. Implementations return domain.ErrBookNotFound /
// domain.ErrPendingNotFound for missing keyed rows.
type LedgerQuerier interface {
	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, bookID string) (*domain.Book, error)
	ListBooksByOwner(ctx context.Context, owner string) ([]*domain.Book, error)

	// LockBooksByOwner returns the owner's books and holds them against concurrent
	// writers until the surrounding transaction ends.
	LockBooksByOwner(ctx context.Context, owner string) ([]*domain.Book, error)

	// AddSales adjusts sales_count by delta with a single arithmetic UPDATE,
	// never read-modify-write. Returns domain.ErrBookNotFound if no row matched.
	AddSales(ctx context.Context, bookID string, delta int64) error
	ResetSalesByOwner(ctx context.Context, owner string) (int64, error)

	// Pending payments
	UpsertPendingPayment(ctx context.Context, p *domain.PendingPayment) error
	GetPendingPayment(ctx context.Context, paymentID string) (*domain.PendingPayment, error)
	DeletePendingPayment(ctx context.Context, paymentID string) error
	ListPendingPaymentsByUser(ctx context.Context, userUID string) ([]*domain.PendingPayment, error)

	// ListPendingPaymentsBefore returns records created before the cutoff. Records
	// never swept come first, then the least recently swept, so rows that keep
	// failing cannot hide the rest of the backlog.
	ListPendingPaymentsBefore(ctx context.Context, before time.Time, limit int) ([]*domain.PendingPayment, error)

	// MarkPendingSwept bumps the record's sweep attempt counter, stamps it with at
	// and returns the new count. Returns domain.ErrPendingNotFound if absent.
	MarkPendingSwept(ctx context.Context, paymentID string, at time.Time) (int, error)

	// Completion markers. GetCompletedPayment returns (nil, nil) when absent.
	GetCompletedPayment(ctx context.Context, paymentID string) (*domain.CompletedPayment, error)
	InsertCompletedPayment(ctx context.Context, c *domain.CompletedPayment) error

	// Purchases
	UpsertPurchase(ctx context.Context, grant *domain.PurchaseGrant) error
	PurchaseExists(ctx context.Context, userUID, bookID string) (bool, error)
	ListPurchasedBooks(ctx context.Context, userUID string) ([]*domain.Book, error)

	// Payouts
	CreatePayoutRequest(ctx context.Context, req *domain.PayoutRequest) error
	UpsertUserPayoutInfo(ctx context.Context, info *domain.UserPayoutInfo) error
}

// LedgerStore provides ledger access and transaction management
type LedgerStore interface {
	// Queries returns a querier bound to the connection pool
	Queries() LedgerQuerier

	// WithTx executes fn within a database transaction.
	// If fn returns an error the transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(q LedgerQuerier) error) error

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error

	Close()
}
