// Package postgres persists vault operation records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stablevault/vault_service/services/vault"
)

// Journal implements the vault journal backed by PostgreSQL. The
// in-memory ledger remains the source of truth; the journal is an
// append-only audit trail written after commit.
type Journal struct {
	db *sql.DB
}

var _ vault.Journal = (*Journal)(nil)

// New creates a Journal using the provided database handle.
func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// RecordDeposit appends a deposit record.
func (j *Journal) RecordDeposit(ctx context.Context, rec *vault.DepositRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO vault_deposits (id, user_address, gross_amount, net_amount, fee, xp_earned, new_xp_balance, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, rec.User, rec.GrossAmount, rec.NetAmount, rec.Fee, rec.XPEarned, rec.NewXPBalance, rec.TxHash, timestamp(rec.CreatedAt))
	return err
}

// RecordWithdrawal appends a withdrawal record.
func (j *Journal) RecordWithdrawal(ctx context.Context, rec *vault.WithdrawalRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO vault_withdrawals (id, user_address, gross_amount, fee, net_amount, xp_earned, new_xp_balance, recipient, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, id, rec.User, rec.GrossAmount, rec.Fee, rec.NetAmount, rec.XPEarned, rec.NewXPBalance, rec.Recipient, rec.TxHash, timestamp(rec.CreatedAt))
	return err
}

// RecordClaim appends a claim record.
func (j *Journal) RecordClaim(ctx context.Context, rec *vault.ClaimRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO vault_claims (id, user_address, claimer, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, rec.User, rec.Claimer, rec.Amount, timestamp(rec.CreatedAt))
	return err
}

// CountDeposits reports the number of journalled deposits.
func (j *Journal) CountDeposits(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vault_deposits`).Scan(&n)
	return n, err
}

func timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
