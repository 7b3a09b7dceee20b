/*
Package sqlite provides a single-file implementation of ports.LedgerStore.

It backs local development and tests with the same ledger semantics as the
PostgreSQL store. Transactions are opened with _txlock=immediate so the
writer lock is taken at BEGIN; that stands in for SELECT ... FOR UPDATE when
payouts read and reset an owner's books.

Decimals and timestamps are stored as TEXT (decimal string, fixed-width UTC).
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/kevin07696/book-market-service/internal/domain/ports"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store implements ports.LedgerStore using SQLite.
type Store struct {
	db      *sql.DB
	queries *Queries
	logger  *zap.Logger
	mu      sync.Mutex
}

var _ ports.LedgerStore = (*Store)(nil)

// New opens the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string, logger *zap.Logger) (*Store, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to an unnamed memory database sees its own copy
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, queries: NewQueries(db), logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("SQLite ledger store initialized", zap.String("path", path))
	return store, nil
}

// Queries returns a querier bound to the database handle
func (s *Store) Queries() ports.LedgerQuerier {
	return s.queries
}

// WithTx executes fn within a transaction. Writers are serialized.
func (s *Store) WithTx(ctx context.Context, fn func(q ports.LedgerQuerier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("Failed to close SQLite database", zap.Error(err))
	}
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		price TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		page_count TEXT NOT NULL DEFAULT 'Unknown',
		cover TEXT NOT NULL,
		pdf TEXT NOT NULL,
		owner TEXT NOT NULL,
		owner_uid TEXT NOT NULL,
		sales_count INTEGER NOT NULL DEFAULT 0 CHECK (sales_count >= 0),
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_books_owner ON books(owner);

	CREATE TABLE IF NOT EXISTS pending_payments (
		payment_id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		user_uid TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		sweep_attempts INTEGER NOT NULL DEFAULT 0,
		last_swept_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_pending_payments_user ON pending_payments(user_uid);
	CREATE INDEX IF NOT EXISTS idx_pending_payments_created_at ON pending_payments(created_at);

	CREATE TABLE IF NOT EXISTS completed_payments (
		payment_id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		user_uid TEXT NOT NULL,
		txid TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS purchases (
		user_uid TEXT NOT NULL,
		book_id TEXT NOT NULL,
		purchased_at TEXT NOT NULL,
		PRIMARY KEY (user_uid, book_id)
	);

	CREATE TABLE IF NOT EXISTS payout_requests (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		wallet_address TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		requested_at TEXT NOT NULL,
		approved_at TEXT
	);

	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		last_payout_at TEXT,
		last_payout_amount TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before sweep tracking lack these columns
	for _, col := range []struct{ name, ddl string }{
		{"sweep_attempts", "sweep_attempts INTEGER NOT NULL DEFAULT 0"},
		{"last_swept_at", "last_swept_at TEXT"},
	} {
		if err := s.addColumnIfMissing("pending_payments", col.name, col.ddl); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) addColumnIfMissing(table, column, ddl string) error {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec(`ALTER TABLE ` + table + ` ADD COLUMN ` + ddl); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	s.logger.Info("Added column", zap.String("table", table), zap.String("column", column))
	return nil
}
