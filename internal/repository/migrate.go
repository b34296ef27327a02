package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is applied at startup; every statement is idempotent. Agreements and
// participants are owned by the document service, the tables exist here so the
// service can run standalone in dev and tests.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS agreements (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		primary_user_id BIGINT NOT NULL,
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'draft',
		payment_status TEXT NOT NULL DEFAULT 'not_setup',
		total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS agreement_participants (
		agreement_id TEXT NOT NULL REFERENCES agreements(id),
		user_id BIGINT NOT NULL,
		position INT NOT NULL DEFAULT 0,
		PRIMARY KEY (agreement_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS payment_distributions (
		agreement_id TEXT PRIMARY KEY REFERENCES agreements(id),
		total_amount DOUBLE PRECISION NOT NULL,
		duration_days INT NOT NULL,
		entries JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		agreement_id TEXT NOT NULL REFERENCES agreements(id),
		user_id BIGINT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_method TEXT NOT NULL DEFAULT 'wallet',
		transaction_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// one live completed payment per participant per agreement; the refund
	// path flips status to 'refunded' which frees the slot again
	`CREATE UNIQUE INDEX IF NOT EXISTS payments_completed_once
		ON payments (agreement_id, user_id) WHERE status = 'completed'`,
	`CREATE INDEX IF NOT EXISTS payments_by_agreement ON payments (agreement_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id BIGINT PRIMARY KEY,
		balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		type TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		payment_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// payment_id acts as the debit/refund idempotency key
	`CREATE UNIQUE INDEX IF NOT EXISTS wallet_tx_idempotency
		ON wallet_transactions (payment_id, type) WHERE payment_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS pricing_config (
		id TEXT PRIMARY KEY,
		daily_rate DOUBLE PRECISION NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by BIGINT,
		updated_by BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS personal_access_tokens (
		id BIGSERIAL PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		user_id BIGINT NOT NULL,
		abilities TEXT NOT NULL DEFAULT '*',
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
