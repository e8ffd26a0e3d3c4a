package store

import (
	"context"
	"fmt"
)

// Table and column names (including the historical "reccurring" spelling) are
// kept verbatim from the original store so existing data keeps loading.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS saving_accounts (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		balance NUMERIC NOT NULL DEFAULT 0,
		threshold NUMERIC NOT NULL DEFAULT 0,
		modifications NUMERIC NOT NULL DEFAULT 0,
		image_uri TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS credit_accounts (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		current_balance NUMERIC NOT NULL DEFAULT 0,
		pending_charges NUMERIC NOT NULL DEFAULT 0,
		image_uri TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS reccurring_expenses (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		amount NUMERIC NOT NULL DEFAULT 0,
		credited_to BIGINT NOT NULL REFERENCES credit_accounts(id) ON DELETE CASCADE,
		reccurring_date INT NOT NULL DEFAULT 1,
		paid_for_month BOOLEAN NOT NULL DEFAULT false,
		monthly_reset BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS planned_expenses (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		amount NUMERIC NOT NULL DEFAULT 0,
		credited_to BIGINT REFERENCES credit_accounts(id) ON DELETE CASCADE,
		withdrawn_from BIGINT REFERENCES saving_accounts(id) ON DELETE CASCADE,
		paid BOOLEAN NOT NULL DEFAULT false,
		paid_date DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reccurring_income (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		amount NUMERIC NOT NULL DEFAULT 0,
		deposited_to BIGINT NOT NULL REFERENCES saving_accounts(id) ON DELETE CASCADE,
		received BOOLEAN NOT NULL DEFAULT false,
		expected_date INT NOT NULL DEFAULT 1,
		monthly_reset BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS income (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		amount NUMERIC NOT NULL DEFAULT 0,
		deposited_to BIGINT NOT NULL REFERENCES saving_accounts(id) ON DELETE CASCADE,
		received BOOLEAN NOT NULL DEFAULT false,
		paid_date DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		amount NUMERIC NOT NULL DEFAULT 0,
		credited_to BIGINT REFERENCES credit_accounts(id) ON DELETE CASCADE,
		withdrawn_from BIGINT REFERENCES saving_accounts(id) ON DELETE CASCADE,
		deposited_to BIGINT REFERENCES saving_accounts(id) ON DELETE CASCADE,
		transaction_date TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		request_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		response_status INT,
		response_body JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema if it does not exist yet. Statements run inside
// one transaction so a partially created schema is never left behind.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("migrate begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement failed: %w", err)
		}
	}

	return tx.Commit(ctx)
}
