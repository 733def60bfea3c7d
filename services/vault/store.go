// Package vault implements the custodial savings vault service.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/stablevault/vault_service/services/base"
)

// Store keeps the vault's operation records. The ledger itself is not
// stored here: accounts live in memory under the guard, and records are
// written after an operation commits.
type Store struct {
	mu          sync.RWMutex
	deposits    *base.MemoryStore[*DepositRecord]
	withdrawals *base.MemoryStore[*WithdrawalRecord]
	claims      *base.MemoryStore[*ClaimRecord]
	ready       bool
}

// NewStore creates a new vault store.
func NewStore() *Store {
	return &Store{
		deposits:    base.NewMemoryStore[*DepositRecord](),
		withdrawals: base.NewMemoryStore[*WithdrawalRecord](),
		claims:      base.NewMemoryStore[*ClaimRecord](),
	}
}

// Initialize initializes the store.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deposits.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize deposit store: %w", err)
	}
	if err := s.withdrawals.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize withdrawal store: %w", err)
	}
	if err := s.claims.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize claim store: %w", err)
	}

	s.ready = true
	return nil
}

// Close closes the store (alias for Shutdown).
func (s *Store) Close(ctx context.Context) error {
	return s.Shutdown(ctx)
}

// Shutdown shuts down the store.
func (s *Store) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deposits.Close(ctx)
	s.withdrawals.Close(ctx)
	s.claims.Close(ctx)
	s.ready = false
	return nil
}

// Health checks store health.
func (s *Store) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return fmt.Errorf("store not ready")
	}
	return s.deposits.Health(ctx)
}

// CreateDeposit stores a deposit record.
func (s *Store) CreateDeposit(ctx context.Context, rec *DepositRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return fmt.Errorf("store not ready")
	}
	rec.GenerateID()
	rec.SetTimestamps()
	return s.deposits.Create(ctx, rec)
}

// CreateWithdrawal stores a withdrawal record.
func (s *Store) CreateWithdrawal(ctx context.Context, rec *WithdrawalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return fmt.Errorf("store not ready")
	}
	rec.GenerateID()
	rec.SetTimestamps()
	return s.withdrawals.Create(ctx, rec)
}

// CreateClaim stores a claim record.
func (s *Store) CreateClaim(ctx context.Context, rec *ClaimRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return fmt.Errorf("store not ready")
	}
	rec.GenerateID()
	rec.SetTimestamps()
	return s.claims.Create(ctx, rec)
}

// ListDeposits lists all deposit records.
func (s *Store) ListDeposits(ctx context.Context) ([]*DepositRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, fmt.Errorf("store not ready")
	}
	return s.deposits.List(ctx)
}

// ListWithdrawals lists all withdrawal records.
func (s *Store) ListWithdrawals(ctx context.Context) ([]*WithdrawalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, fmt.Errorf("store not ready")
	}
	return s.withdrawals.List(ctx)
}

// ListClaims lists all claim records.
func (s *Store) ListClaims(ctx context.Context) ([]*ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, fmt.Errorf("store not ready")
	}
	return s.claims.List(ctx)
}
