package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS vault_deposits (
		id             TEXT PRIMARY KEY,
		user_address   TEXT NOT NULL,
		gross_amount   NUMERIC(78,0) NOT NULL,
		net_amount     NUMERIC(78,0) NOT NULL,
		fee            NUMERIC(78,0) NOT NULL,
		xp_earned      BIGINT NOT NULL,
		new_xp_balance BIGINT NOT NULL,
		tx_hash        TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS vault_deposits_user_idx ON vault_deposits (user_address)`,
	`CREATE TABLE IF NOT EXISTS vault_withdrawals (
		id             TEXT PRIMARY KEY,
		user_address   TEXT NOT NULL,
		gross_amount   NUMERIC(78,0) NOT NULL,
		fee            NUMERIC(78,0) NOT NULL,
		net_amount     NUMERIC(78,0) NOT NULL,
		xp_earned      BIGINT NOT NULL,
		new_xp_balance BIGINT NOT NULL,
		recipient      TEXT NOT NULL,
		tx_hash        TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS vault_withdrawals_user_idx ON vault_withdrawals (user_address)`,
	`CREATE TABLE IF NOT EXISTS vault_claims (
		id           TEXT PRIMARY KEY,
		user_address TEXT NOT NULL,
		claimer      TEXT NOT NULL,
		amount       BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS vault_claims_user_idx ON vault_claims (user_address)`,
}

// Apply creates the journal schema.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
