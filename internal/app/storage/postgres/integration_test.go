package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/stablevault/vault_service/services/vault"
)

func TestJournalIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	j := New(db)

	before, err := j.CountDeposits(ctx)
	if err != nil {
		t.Fatalf("count deposits: %v", err)
	}

	err = j.RecordDeposit(ctx, &vault.DepositRecord{
		User:         "0x0000000000000000000000000000000000000001",
		GrossAmount:  "100",
		NetAmount:    "99",
		Fee:          "1",
		XPEarned:     10,
		NewXPBalance: 10,
	})
	if err != nil {
		t.Fatalf("record deposit: %v", err)
	}

	err = j.RecordWithdrawal(ctx, &vault.WithdrawalRecord{
		User:         "0x0000000000000000000000000000000000000001",
		GrossAmount:  "51",
		Fee:          "1",
		NetAmount:    "50",
		XPEarned:     10,
		NewXPBalance: 20,
		Recipient:    "0x0000000000000000000000000000000000000001",
	})
	if err != nil {
		t.Fatalf("record withdrawal: %v", err)
	}

	err = j.RecordClaim(ctx, &vault.ClaimRecord{
		User:    "0x0000000000000000000000000000000000000001",
		Claimer: "0x0000000000000000000000000000000000000002",
		Amount:  20,
	})
	if err != nil {
		t.Fatalf("record claim: %v", err)
	}

	after, err := j.CountDeposits(ctx)
	if err != nil {
		t.Fatalf("count deposits: %v", err)
	}
	if after != before+1 {
		t.Fatalf("expected %d deposits, got %d", before+1, after)
	}
}
