package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/kevin07696/book-market-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// Queries implements ports.LedgerQuerier over a *sql.DB or *sql.Tx
type Queries struct {
	db dbtx
}

var _ ports.LedgerQuerier = (*Queries)(nil)

func NewQueries(db dbtx) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const bookColumns = `id, title, price, description, language, page_count, cover, pdf, owner, owner_uid, sales_count, created_at`

func scanBook(row scanner) (*domain.Book, error) {
	var (
		b                       domain.Book
		price, pageCount, added string
	)
	if err := row.Scan(
		&b.ID, &b.Title, &price, &b.Description, &b.Language, &pageCount,
		&b.Cover, &b.PDF, &b.Owner, &b.OwnerUID, &b.SalesCount, &added,
	); err != nil {
		return nil, err
	}
	dec, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	if b.CreatedAt, err = timeutil.ParseSortable(added); err != nil {
		return nil, err
	}
	b.Price = dec
	b.PageCount = domain.PageCount(pageCount)
	return &b, nil
}

func collectBooks(rows *sql.Rows) ([]*domain.Book, error) {
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

func (q *Queries) CreateBook(ctx context.Context, b *domain.Book) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Price.String(), b.Description, b.Language, string(b.PageCount),
		b.Cover, b.PDF, b.Owner, b.OwnerUID, b.SalesCount, timeutil.FormatSortable(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (q *Queries) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	b, err := scanBook(q.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, bookID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (q *Queries) ListBooksByOwner(ctx context.Context, owner string) ([]*domain.Book, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE owner = ? ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list books by owner: %w", err)
	}
	return collectBooks(rows)
}

// The immediate transaction already holds the write lock
func (q *Queries) LockBooksByOwner(ctx context.Context, owner string) ([]*domain.Book, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("lock books by owner: %w", err)
	}
	return collectBooks(rows)
}

func (q *Queries) AddSales(ctx context.Context, bookID string, delta int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE books SET sales_count = MAX(sales_count + ?, 0) WHERE id = ?`, delta, bookID)
	if err != nil {
		return fmt.Errorf("add sales: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add sales: %w", err)
	}
	if n == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (q *Queries) ResetSalesByOwner(ctx context.Context, owner string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE books SET sales_count = 0 WHERE owner = ?`, owner)
	if err != nil {
		return 0, fmt.Errorf("reset sales: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) UpsertPendingPayment(ctx context.Context, p *domain.PendingPayment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO pending_payments (payment_id, book_id, user_uid, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (payment_id) DO UPDATE SET
			book_id = excluded.book_id,
			user_uid = excluded.user_uid,
			status = excluded.status,
			created_at = excluded.created_at,
			sweep_attempts = 0,
			last_swept_at = NULL`,
		p.PaymentID, p.BookID, p.UserUID, p.Status, timeutil.FormatSortable(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert pending payment: %w", err)
	}
	return nil
}

const pendingColumns = `payment_id, book_id, user_uid, status, created_at, sweep_attempts, last_swept_at`

func scanPending(row scanner) (*domain.PendingPayment, error) {
	var (
		p       domain.PendingPayment
		created string
		swept   sql.NullString
		err     error
	)
	if err = row.Scan(&p.PaymentID, &p.BookID, &p.UserUID, &p.Status, &created, &p.SweepAttempts, &swept); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = timeutil.ParseSortable(created); err != nil {
		return nil, err
	}
	if swept.Valid {
		at, err := timeutil.ParseSortable(swept.String)
		if err != nil {
			return nil, err
		}
		p.LastSweptAt = &at
	}
	return &p, nil
}

func collectPending(rows *sql.Rows) ([]*domain.PendingPayment, error) {
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
	p, err := scanPending(q.db.QueryRowContext(ctx, `SELECT `+pendingColumns+` FROM pending_payments WHERE payment_id = ?`, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending payment: %w", err)
	}
	return p, nil
}

func (q *Queries) DeletePendingPayment(ctx context.Context, paymentID string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE payment_id = ?`, paymentID); err != nil {
		return fmt.Errorf("delete pending payment: %w", err)
	}
	return nil
}

func (q *Queries) ListPendingPaymentsByUser(ctx context.Context, userUID string) ([]*domain.PendingPayment, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+pendingColumns+` FROM pending_payments WHERE user_uid = ? ORDER BY created_at`, userUID)
	if err != nil {
		return nil, fmt.Errorf("list pending payments by user: %w", err)
	}
	return collectPending(rows)
}

func (q *Queries) ListPendingPaymentsBefore(ctx context.Context, before time.Time, limit int) ([]*domain.PendingPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_payments WHERE created_at < ?
		ORDER BY last_swept_at IS NOT NULL, last_swept_at, created_at LIMIT ?`,
		timeutil.FormatSortable(before), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale pending payments: %w", err)
	}
	return collectPending(rows)
}

func (q *Queries) MarkPendingSwept(ctx context.Context, paymentID string, at time.Time) (int, error) {
	var attempts int
	err := q.db.QueryRowContext(ctx, `
		UPDATE pending_payments SET sweep_attempts = sweep_attempts + 1, last_swept_at = ?
		WHERE payment_id = ?
		RETURNING sweep_attempts`,
		timeutil.FormatSortable(at), paymentID,
	).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrPendingNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("mark pending payment swept: %w", err)
	}
	return attempts, nil
}

func (q *Queries) GetCompletedPayment(ctx context.Context, paymentID string) (*domain.CompletedPayment, error) {
	var (
		c         domain.CompletedPayment
		completed string
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT payment_id, book_id, user_uid, txid, completed_at FROM completed_payments WHERE payment_id = ?`,
		paymentID,
	).Scan(&c.PaymentID, &c.BookID, &c.UserUID, &c.TxID, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completed payment: %w", err)
	}
	if c.CompletedAt, err = timeutil.ParseSortable(completed); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) InsertCompletedPayment(ctx context.Context, c *domain.CompletedPayment) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO completed_payments (payment_id, book_id, user_uid, txid, completed_at) VALUES (?, ?, ?, ?, ?)`,
		c.PaymentID, c.BookID, c.UserUID, c.TxID, timeutil.FormatSortable(c.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert completed payment: %w", err)
	}
	return nil
}

func (q *Queries) UpsertPurchase(ctx context.Context, g *domain.PurchaseGrant) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO purchases (user_uid, book_id, purchased_at) VALUES (?, ?, ?)
		ON CONFLICT (user_uid, book_id) DO UPDATE SET purchased_at = excluded.purchased_at`,
		g.UserUID, g.BookID, timeutil.FormatSortable(g.PurchasedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert purchase: %w", err)
	}
	return nil
}

func (q *Queries) PurchaseExists(ctx context.Context, userUID, bookID string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases WHERE user_uid = ? AND book_id = ?)`,
		userUID, bookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return exists, nil
}

func (q *Queries) ListPurchasedBooks(ctx context.Context, userUID string) ([]*domain.Book, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT b.id, b.title, b.price, b.description, b.language, b.page_count, b.cover, b.pdf, b.owner, b.owner_uid, b.sales_count, b.created_at
		FROM purchases p
		JOIN books b ON b.id = p.book_id
		WHERE p.user_uid = ?
		ORDER BY p.purchased_at DESC`, userUID)
	if err != nil {
		return nil, fmt.Errorf("list purchased books: %w", err)
	}
	return collectBooks(rows)
}

func (q *Queries) CreatePayoutRequest(ctx context.Context, r *domain.PayoutRequest) error {
	var approved sql.NullString
	if r.ApprovedAt != nil {
		approved = sql.NullString{String: timeutil.FormatSortable(*r.ApprovedAt), Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO payout_requests (id, username, wallet_address, amount, status, requested_at, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Username, r.WalletAddress, r.Amount.StringFixed(2), string(r.Status),
		timeutil.FormatSortable(r.RequestedAt), approved,
	)
	if err != nil {
		return fmt.Errorf("insert payout request: %w", err)
	}
	return nil
}

func (q *Queries) UpsertUserPayoutInfo(ctx context.Context, info *domain.UserPayoutInfo) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO users (username, last_payout_at, last_payout_amount) VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			last_payout_at = excluded.last_payout_at,
			last_payout_amount = excluded.last_payout_amount`,
		info.Username, timeutil.FormatSortable(info.LastPayoutAt), info.LastPayoutAmount.StringFixed(2),
	)
	if err != nil {
		return fmt.Errorf("upsert user payout info: %w", err)
	}
	return nil
}
