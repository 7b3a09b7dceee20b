package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema mirrors the document collections of the ledger: books, pending
// payments, purchases, completion markers, payout requests and users.
const schema = `
CREATE TABLE IF NOT EXISTS books (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	price       NUMERIC(20, 7) NOT NULL CHECK (price > 0),
	description TEXT NOT NULL DEFAULT '',
	language    TEXT NOT NULL DEFAULT '',
	page_count  TEXT NOT NULL DEFAULT 'Unknown',
	cover       TEXT NOT NULL,
	pdf         TEXT NOT NULL,
	owner       TEXT NOT NULL,
	owner_uid   TEXT NOT NULL,
	sales_count BIGINT NOT NULL DEFAULT 0 CHECK (sales_count >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_books_owner ON books(owner);
CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at DESC);

CREATE TABLE IF NOT EXISTS pending_payments (
	payment_id     TEXT PRIMARY KEY,
	book_id        TEXT NOT NULL,
	user_uid       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	sweep_attempts INT NOT NULL DEFAULT 0,
	last_swept_at  TIMESTAMPTZ
);
ALTER TABLE pending_payments ADD COLUMN IF NOT EXISTS sweep_attempts INT NOT NULL DEFAULT 0;
ALTER TABLE pending_payments ADD COLUMN IF NOT EXISTS last_swept_at TIMESTAMPTZ;
CREATE INDEX IF NOT EXISTS idx_pending_payments_user ON pending_payments(user_uid);
CREATE INDEX IF NOT EXISTS idx_pending_payments_created_at ON pending_payments(created_at);
CREATE INDEX IF NOT EXISTS idx_pending_payments_sweep ON pending_payments(last_swept_at NULLS FIRST, created_at);

CREATE TABLE IF NOT EXISTS completed_payments (
	payment_id   TEXT PRIMARY KEY,
	book_id      TEXT NOT NULL,
	user_uid     TEXT NOT NULL,
	txid         TEXT NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS purchases (
	user_uid     TEXT NOT NULL,
	book_id      TEXT NOT NULL,
	purchased_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_uid, book_id)
);

CREATE TABLE IF NOT EXISTS payout_requests (
	id             TEXT PRIMARY KEY,
	username       TEXT NOT NULL,
	wallet_address TEXT NOT NULL,
	amount         NUMERIC(20, 2) NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	requested_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	approved_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_payout_requests_username ON payout_requests(username);

CREATE TABLE IF NOT EXISTS users (
	username           TEXT PRIMARY KEY,
	last_payout_at     TIMESTAMPTZ,
	last_payout_amount NUMERIC(20, 2)
);
`

// EnsureSchema creates the ledger tables if they do not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
