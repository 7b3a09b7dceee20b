package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries implements ports.LedgerQuerier over a DBTX
type Queries struct {
	db DBTX
}

var _ ports.LedgerQuerier = (*Queries)(nil)

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const bookColumns = `id, title, price, description, language, page_count, cover, pdf, owner, owner_uid, sales_count, created_at`

func scanBook(row pgx.Row) (*domain.Book, error) {
	var (
		b         domain.Book
		price     pgtype.Numeric
		pageCount string
	)
	if err := row.Scan(
		&b.ID, &b.Title, &price, &b.Description, &b.Language, &pageCount,
		&b.Cover, &b.PDF, &b.Owner, &b.OwnerUID, &b.SalesCount, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	dec, err := pgNumericToDecimal(price)
	if err != nil {
		return nil, fmt.Errorf("convert price: %w", err)
	}
	b.Price = dec
	b.PageCount = domain.PageCount(pageCount)
	return &b, nil
}

func collectBooks(rows pgx.Rows) ([]*domain.Book, error) {
	defer rows.Close()
	books := make([]*domain.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

const createBook = `
INSERT INTO books (id, title, price, description, language, page_count, cover, pdf, owner, owner_uid, sales_count, created_at)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

func (q *Queries) CreateBook(ctx context.Context, b *domain.Book) error {
	_, err := q.db.Exec(ctx, createBook,
		b.ID, b.Title, b.Price.String(), b.Description, b.Language, string(b.PageCount),
		b.Cover, b.PDF, b.Owner, b.OwnerUID, b.SalesCount, b.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (q *Queries) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	b, err := scanBook(q.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, bookID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (q *Queries) ListBooksByOwner(ctx context.Context, owner string) ([]*domain.Book, error) {
	rows, err := q.db.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE owner = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list books by owner: %w", err)
	}
	return collectBooks(rows)
}

func (q *Queries) LockBooksByOwner(ctx context.Context, owner string) ([]*domain.Book, error) {
	rows, err := q.db.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE owner = $1 ORDER BY id FOR UPDATE`, owner)
	if err != nil {
		return nil, fmt.Errorf("lock books by owner: %w", err)
	}
	return collectBooks(rows)
}

const addSales = `
UPDATE books SET sales_count = GREATEST(sales_count + $2, 0) WHERE id = $1
`

func (q *Queries) AddSales(ctx context.Context, bookID string, delta int64) error {
	tag, err := q.db.Exec(ctx, addSales, bookID, delta)
	if err != nil {
		return fmt.Errorf("add sales: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (q *Queries) ResetSalesByOwner(ctx context.Context, owner string) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE books SET sales_count = 0 WHERE owner = $1`, owner)
	if err != nil {
		return 0, fmt.Errorf("reset sales: %w", err)
	}
	return tag.RowsAffected(), nil
}

const upsertPendingPayment = `
INSERT INTO pending_payments (payment_id, book_id, user_uid, status, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (payment_id) DO UPDATE SET
	book_id = EXCLUDED.book_id,
	user_uid = EXCLUDED.user_uid,
	status = EXCLUDED.status,
	created_at = EXCLUDED.created_at,
	sweep_attempts = 0,
	last_swept_at = NULL
`

func (q *Queries) UpsertPendingPayment(ctx context.Context, p *domain.PendingPayment) error {
	if _, err := q.db.Exec(ctx, upsertPendingPayment, p.PaymentID, p.BookID, p.UserUID, p.Status, p.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert pending payment: %w", err)
	}
	return nil
}

const pendingColumns = `payment_id, book_id, user_uid, status, created_at, sweep_attempts, last_swept_at`

func scanPending(row pgx.Row) (*domain.PendingPayment, error) {
	var p domain.PendingPayment
	if err := row.Scan(&p.PaymentID, &p.BookID, &p.UserUID, &p.Status, &p.CreatedAt, &p.SweepAttempts, &p.LastSweptAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPending(rows pgx.Rows) ([]*domain.PendingPayment, error) {
	defer rows.Close()
	out := make([]*domain.PendingPayment, 0)
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) GetPendingPayment(ctx context.Context, paymentID string) (*domain.PendingPayment, error) {
	p, err := scanPending(q.db.QueryRow(ctx, `SELECT `+pendingColumns+` FROM pending_payments WHERE payment_id = $1`, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending payment: %w", err)
	}
	return p, nil
}

func (q *Queries) DeletePendingPayment(ctx context.Context, paymentID string) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM pending_payments WHERE payment_id = $1`, paymentID); err != nil {
		return fmt.Errorf("delete pending payment: %w", err)
	}
	return nil
}

func (q *Queries) ListPendingPaymentsByUser(ctx context.Context, userUID string) ([]*domain.PendingPayment, error) {
	rows, err := q.db.Query(ctx, `SELECT `+pendingColumns+` FROM pending_payments WHERE user_uid = $1 ORDER BY created_at`, userUID)
	if err != nil {
		return nil, fmt.Errorf("list pending payments by user: %w", err)
	}
	return collectPending(rows)
}

func (q *Queries) ListPendingPaymentsBefore(ctx context.Context, before time.Time, limit int) ([]*domain.PendingPayment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+pendingColumns+` FROM pending_payments WHERE created_at < $1
		ORDER BY last_swept_at NULLS FIRST, created_at LIMIT $2`,
		before.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale pending payments: %w", err)
	}
	return collectPending(rows)
}

const markPendingSwept = `
UPDATE pending_payments SET sweep_attempts = sweep_attempts + 1, last_swept_at = $2
WHERE payment_id = $1
RETURNING sweep_attempts
`

func (q *Queries) MarkPendingSwept(ctx context.Context, paymentID string, at time.Time) (int, error) {
	var attempts int
	err := q.db.QueryRow(ctx, markPendingSwept, paymentID, at.UTC()).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrPendingNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("mark pending payment swept: %w", err)
	}
	return attempts, nil
}

func (q *Queries) GetCompletedPayment(ctx context.Context, paymentID string) (*domain.CompletedPayment, error) {
	var c domain.CompletedPayment
	err := q.db.QueryRow(ctx,
		`SELECT payment_id, book_id, user_uid, txid, completed_at FROM completed_payments WHERE payment_id = $1`,
		paymentID,
	).Scan(&c.PaymentID, &c.BookID, &c.UserUID, &c.TxID, &c.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completed payment: %w", err)
	}
	return &c, nil
}

func (q *Queries) InsertCompletedPayment(ctx context.Context, c *domain.CompletedPayment) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO completed_payments (payment_id, book_id, user_uid, txid, completed_at) VALUES ($1, $2, $3, $4, $5)`,
		c.PaymentID, c.BookID, c.UserUID, c.TxID, c.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert completed payment: %w", err)
	}
	return nil
}

const upsertPurchase = `
INSERT INTO purchases (user_uid, book_id, purchased_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_uid, book_id) DO UPDATE SET purchased_at = EXCLUDED.purchased_at
`

func (q *Queries) UpsertPurchase(ctx context.Context, g *domain.PurchaseGrant) error {
	if _, err := q.db.Exec(ctx, upsertPurchase, g.UserUID, g.BookID, g.PurchasedAt.UTC()); err != nil {
		return fmt.Errorf("upsert purchase: %w", err)
	}
	return nil
}

func (q *Queries) PurchaseExists(ctx context.Context, userUID, bookID string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases WHERE user_uid = $1 AND book_id = $2)`,
		userUID, bookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return exists, nil
}

// Grants whose book was deleted are skipped by the join
func (q *Queries) ListPurchasedBooks(ctx context.Context, userUID string) ([]*domain.Book, error) {
	rows, err := q.db.Query(ctx, `
SELECT b.id, b.title, b.price, b.description, b.language, b.page_count, b.cover, b.pdf, b.owner, b.owner_uid, b.sales_count, b.created_at
FROM purchases p
JOIN books b ON b.id = p.book_id
WHERE p.user_uid = $1
ORDER BY p.purchased_at DESC`, userUID)
	if err != nil {
		return nil, fmt.Errorf("list purchased books: %w", err)
	}
	return collectBooks(rows)
}

func (q *Queries) CreatePayoutRequest(ctx context.Context, r *domain.PayoutRequest) error {
	_, err := q.db.Exec(ctx, `
INSERT INTO payout_requests (id, username, wallet_address, amount, status, requested_at, approved_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
		r.ID, r.Username, r.WalletAddress, r.Amount.StringFixed(2), string(r.Status),
		r.RequestedAt.UTC(), nullTimestamptz(r.ApprovedAt),
	)
	if err != nil {
		return fmt.Errorf("insert payout request: %w", err)
	}
	return nil
}

const upsertUserPayoutInfo = `
INSERT INTO users (username, last_payout_at, last_payout_amount)
VALUES ($1, $2, $3::numeric)
ON CONFLICT (username) DO UPDATE SET
	last_payout_at = EXCLUDED.last_payout_at,
	last_payout_amount = EXCLUDED.last_payout_amount
`

func (q *Queries) UpsertUserPayoutInfo(ctx context.Context, info *domain.UserPayoutInfo) error {
	if _, err := q.db.Exec(ctx, upsertUserPayoutInfo, info.Username, info.LastPayoutAt.UTC(), info.LastPayoutAmount.StringFixed(2)); err != nil {
		return fmt.Errorf("upsert user payout info: %w", err)
	}
	return nil
}
