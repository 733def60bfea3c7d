// Package vault implements the custodial savings vault service.
//
// Users deposit a stable asset, the vault forwards net proceeds to an
// external yield-bearing lending venue, and returns a proportional share
// of principal plus yield on withdrawal, net of fixed fees. A decoupled
// XP subsystem accrues loyalty points per action with a one-time,
// authorization-gated claim.
package vault

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stablevault/vault_service/internal/logging"
	"github.com/stablevault/vault_service/internal/metrics"
	"github.com/stablevault/vault_service/services/base"
)

const (
	ServiceID   = "vault"
	ServiceName = "Savings Vault Service"
	Version     = "1.0.0"
)

// Config carries the construction-time addresses.
type Config struct {
	// Owner is the sole authority for administrative operations.
	Owner common.Address
	// VaultAddress is the vault's own custody account.
	VaultAddress common.Address
	// Asset is the stable asset (USDC).
	Asset common.Address
	// Pool is the yield venue (Aave pool).
	Pool common.Address
}

// Deps carries the external collaborators.
type Deps struct {
	Asset    AssetTransfer
	Venue    YieldVenue
	NewERC20 ERC20Factory
	Logger   logging.Logger
	Journal  Journal   // optional
	Sink     EventSink // optional; defaults to a log sink
}

// Service implements the savings vault.
type Service struct {
	*base.BaseService

	mu sync.RWMutex

	cfg    Config
	asset  AssetTransfer
	venue  YieldVenue
	new20  ERC20Factory
	aToken AssetTransfer
	aAddr  common.Address

	guard   *Guard
	ledger  *Ledger
	store   *Store
	journal Journal
	sink    EventSink

	claimEnabled bool
	claimers     map[common.Address]bool
}

// New creates a new vault service. It rejects a null asset or venue
// address; the yield-token address is resolved at Start.
func New(cfg Config, deps Deps) (*Service, error) {
	if zeroAddress(cfg.Asset) {
		return nil, ErrUsdcAddressZero
	}
	if zeroAddress(cfg.Pool) {
		return nil, ErrAavePoolAddressZero
	}

	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Sink == nil {
		deps.Sink = NewLogSink(deps.Logger)
	}

	baseService := base.NewBaseService(ServiceID, ServiceName, Version, deps.Logger)
	store := NewStore()

	svc := &Service{
		BaseService: baseService,
		cfg:         cfg,
		asset:       deps.Asset,
		venue:       deps.Venue,
		new20:       deps.NewERC20,
		guard:       NewGuard(),
		ledger:      NewLedger(),
		store:       store,
		journal:     deps.Journal,
		sink:        deps.Sink,
		claimers:    make(map[common.Address]bool),
	}

	baseService.SetStore(store)
	baseService.SetHooks(base.LifecycleHooks{
		OnAfterStart: svc.onAfterStart,
	})

	return svc, nil
}

// Store exposes the vault store.
func (s *Service) Store() *Store {
	return s.store
}

// onAfterStart resolves the yield-token and grants the venue unlimited
// spending authorization over both the base asset and the yield-token.
func (s *Service) onAfterStart(ctx context.Context) error {
	reserve, err := s.venue.GetReserveData(ctx, s.cfg.Asset)
	if err != nil {
		return fmt.Errorf("get reserve data: %w", err)
	}
	if reserve == nil || zeroAddress(reserve.ATokenAddress) {
		return ErrAUSDCAddressNotFound
	}

	s.mu.Lock()
	s.aAddr = reserve.ATokenAddress
	s.aToken = s.new20(reserve.ATokenAddress)
	aToken := s.aToken
	s.mu.Unlock()

	unlimited := new(big.Int).Set(WithdrawAll)
	if err := s.asset.Approve(ctx, s.cfg.Pool, unlimited); err != nil {
		return fmt.Errorf("approve asset for venue: %w", err)
	}
	if err := aToken.Approve(ctx, s.cfg.Pool, unlimited); err != nil {
		return fmt.Errorf("approve yield token for venue: %w", err)
	}

	s.Logger().Info("vault started",
		"asset", s.cfg.Asset.Hex(),
		"pool", s.cfg.Pool.Hex(),
		"yield_token", reserve.ATokenAddress.Hex(),
		"owner", s.cfg.Owner.Hex(),
	)
	return nil
}

// =============================================================================
// Deposit / Withdraw
// =============================================================================

// Deposit pulls grossAmount of the asset from user into vault custody,
// peels the fixed fee into the treasury, forwards the net to the yield
// venue on the vault's own behalf, and accrues XP. Ledger effects are
// applied before the external calls and rolled back if either fails.
func (s *Service) Deposit(ctx context.Context, user common.Address, gross *big.Int) (*DepositRecord, error) {
	if s.State() != base.StateRunning {
		return nil, fmt.Errorf("service not running")
	}

	release, err := s.guard.EnterPausable()
	if err != nil {
		s.noteGuardError(err)
		metrics.RecordDeposit("error")
		return nil, err
	}
	defer release()

	if gross.Cmp(MinDeposit) < 0 {
		metrics.RecordDeposit("error")
		return nil, ErrDepositTooLow
	}
	if gross.Cmp(MaxDeposit) > 0 {
		metrics.RecordDeposit("error")
		return nil, ErrDepositTooHigh
	}

	// Effects before interactions.
	snap := s.ledger.Snapshot(user)
	res := s.ledger.ApplyDeposit(user, gross)

	if err := s.asset.TransferIn(ctx, user, gross); err != nil {
		s.ledger.Restore(snap)
		metrics.RecordDeposit("error")
		return nil, fmt.Errorf("transfer in: %w", err)
	}
	if err := s.venue.Supply(ctx, s.cfg.Asset, res.Net, s.cfg.VaultAddress, AaveReferralCode); err != nil {
		s.ledger.Restore(snap)
		metrics.RecordDeposit("error")
		return nil, fmt.Errorf("venue supply: %w", err)
	}

	rec := &DepositRecord{
		User:         user.Hex(),
		GrossAmount:  res.Gross.String(),
		NetAmount:    res.Net.String(),
		Fee:          res.Fee.String(),
		XPEarned:     res.XPEarned,
		NewXPBalance: res.NewXPBalance,
	}
	s.commitDeposit(ctx, rec)

	s.sink.Emit(DepositEvent{
		User:         user,
		Gross:        res.Gross,
		Net:          res.Net,
		Fee:          res.Fee,
		XPEarned:     res.XPEarned,
		NewXPBalance: res.NewXPBalance,
	})
	metrics.RecordDeposit("ok")
	s.publishTotals()

	s.Logger().Info("deposit completed",
		"user", user.Hex(),
		"gross", res.Gross.String(),
		"net", res.Net.String(),
		"fee", res.Fee.String(),
	)
	return rec, nil
}

// Withdraw returns the requested net amount to user. Passing the
// WithdrawAll sentinel retires the entire principal and pays out the
// user's full proportional balance minus the fee. The fee is retained
// inside the vault.
func (s *Service) Withdraw(ctx context.Context, user common.Address, requested *big.Int) (*WithdrawalRecord, error) {
	if s.State() != base.StateRunning {
		return nil, fmt.Errorf("service not running")
	}

	release, err := s.guard.EnterPausable()
	if err != nil {
		s.noteGuardError(err)
		metrics.RecordWithdrawal("error")
		return nil, err
	}
	defer release()

	// The externally reported balance is ground truth for share
	// computation.
	poolBal, err := s.investedBalance(ctx)
	if err != nil {
		metrics.RecordWithdrawal("error")
		return nil, fmt.Errorf("query invested balance: %w", err)
	}

	plan, err := s.ledger.PlanWithdrawal(user, requested, poolBal)
	if err != nil {
		metrics.RecordWithdrawal("error")
		return nil, err
	}

	// Effects before interactions.
	snap := s.ledger.Snapshot(user)
	newXP := s.ledger.ApplyWithdrawal(plan)

	actual, err := s.venue.Withdraw(ctx, s.cfg.Asset, plan.Gross, s.cfg.VaultAddress)
	if err != nil {
		s.ledger.Restore(snap)
		metrics.RecordWithdrawal("error")
		return nil, fmt.Errorf("venue withdraw: %w", err)
	}
	if err := s.asset.TransferOut(ctx, user, plan.Net); err != nil {
		s.ledger.Restore(snap)
		metrics.RecordWithdrawal("error")
		// Funds were already released by the venue; custody now holds
		// them but the ledger no longer accounts for the retirement.
		s.Logger().Error("transfer out failed after venue release",
			"user", user.Hex(),
			"released", actual.String(),
			"error", err,
		)
		return nil, fmt.Errorf("transfer out: %w", err)
	}

	rec := &WithdrawalRecord{
		User:         user.Hex(),
		GrossAmount:  actual.String(),
		Fee:          plan.Fee.String(),
		NetAmount:    plan.Net.String(),
		XPEarned:     XPPerDeposit,
		NewXPBalance: newXP,
		Recipient:    user.Hex(),
	}
	s.commitWithdrawal(ctx, rec)

	s.sink.Emit(WithdrawalEvent{
		User:         user,
		Gross:        actual,
		Fee:          plan.Fee,
		Net:          plan.Net,
		XPEarned:     XPPerDeposit,
		NewXPBalance: newXP,
		Recipient:    user,
	})
	metrics.RecordWithdrawal("ok")
	s.publishTotals()

	s.Logger().Info("withdrawal completed",
		"user", user.Hex(),
		"gross", actual.String(),
		"net", plan.Net.String(),
		"full", plan.Full,
	)
	return rec, nil
}

// =============================================================================
// Queries
// =============================================================================

// RealBalance returns the user's current proportional claim on the
// vault's externally-held balance.
func (s *Service) RealBalance(ctx context.Context, user common.Address) (*big.Int, error) {
	poolBal, err := s.investedBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("query invested balance: %w", err)
	}
	return s.ledger.RealBalance(user, poolBal), nil
}

// TotalInvested returns the vault's total externally-held balance.
func (s *Service) TotalInvested(ctx context.Context) (*big.Int, error) {
	return s.investedBalance(ctx)
}

// Account returns a copy of the user's ledger entry.
func (s *Service) Account(user common.Address) UserAccount {
	return s.ledger.Account(user)
}

// Totals returns the vault-wide accumulators.
func (s *Service) Totals() Totals {
	return s.ledger.Totals()
}

// Paused reports the circuit breaker state.
func (s *Service) Paused() bool {
	return s.guard.Paused()
}

// ClaimEnabled reports the global claim gate.
func (s *Service) ClaimEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claimEnabled
}

// IsClaimerAuthorized reports membership in the authorized claimer set.
func (s *Service) IsClaimerAuthorized(claimer common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claimers[claimer]
}

// Constants returns the bound constants, read-only.
func (s *Service) Constants() map[string]string {
	return map[string]string{
		"min_deposit":    MinDeposit.String(),
		"max_deposit":    MaxDeposit.String(),
		"deposit_fee":    DepositFee.String(),
		"withdrawal_fee": WithdrawalFee.String(),
		"xp_per_deposit": fmt.Sprintf("%d", XPPerDeposit),
	}
}

// investedBalance queries the yield-token balance attributable to the
// vault.
func (s *Service) investedBalance(ctx context.Context) (*big.Int, error) {
	s.mu.RLock()
	aToken := s.aToken
	s.mu.RUnlock()

	if aToken == nil {
		return nil, fmt.Errorf("yield token not resolved")
	}
	return aToken.BalanceOf(ctx, s.cfg.VaultAddress)
}

// =============================================================================
// XP Claim
// =============================================================================

// Claim pays out the user's accrued XP balance exactly once. Only an
// authorized claimer may invoke it, and only while the global gate is
// on. The XP value itself never decreases; only the claimed flag flips.
func (s *Service) Claim(ctx context.Context, claimer, user common.Address) (uint64, error) {
	if s.State() != base.StateRunning {
		return 0, fmt.Errorf("service not running")
	}

	release, err := s.guard.Enter()
	if err != nil {
		s.noteGuardError(err)
		metrics.RecordClaim("error")
		return 0, err
	}
	defer release()

	if !s.IsClaimerAuthorized(claimer) {
		metrics.RecordClaim("error")
		return 0, ErrNotAuthorizedToClaim
	}
	if !s.ClaimEnabled() {
		metrics.RecordClaim("error")
		return 0, ErrClaimDisabled
	}

	amount, err := s.ledger.MarkClaimed(user)
	if err != nil {
		metrics.RecordClaim("error")
		return 0, err
	}

	rec := &ClaimRecord{
		User:    user.Hex(),
		Claimer: claimer.Hex(),
		Amount:  amount,
	}
	s.commitClaim(ctx, rec)

	s.sink.Emit(ClaimedEvent{User: user, Claimer: claimer, Amount: amount})
	metrics.RecordClaim("ok")

	s.Logger().Info("xp claimed",
		"user", user.Hex(),
		"claimer", claimer.Hex(),
		"amount", amount,
	)
	return amount, nil
}

// =============================================================================
// Administrative Operations
// =============================================================================

// SetClaimEnabled toggles the global claim gate. Owner only.
func (s *Service) SetClaimEnabled(caller common.Address, enabled bool) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.claimEnabled != enabled
	s.claimEnabled = enabled
	s.mu.Unlock()

	if changed {
		s.sink.Emit(ClaimStatusUpdatedEvent{Enabled: enabled})
		s.Logger().Info("claim gate updated", "enabled", enabled)
	}
	return nil
}

// SetClaimerAuthorization adds or removes an identity from the
// authorized claimer set. Owner only; the null identity is rejected.
func (s *Service) SetClaimerAuthorization(caller, claimer common.Address, authorized bool) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if zeroAddress(claimer) {
		return ErrInvalidClaimerAddress
	}

	s.mu.Lock()
	if authorized {
		s.claimers[claimer] = true
	} else {
		delete(s.claimers, claimer)
	}
	s.mu.Unlock()

	s.sink.Emit(ClaimerAuthorizationUpdatedEvent{Claimer: claimer, Authorized: authorized})
	s.Logger().Info("claimer authorization updated",
		"claimer", claimer.Hex(),
		"authorized", authorized,
	)
	return nil
}

// Pause trips the circuit breaker, blocking deposit and withdraw. Claim
// and administrative operations remain callable. Owner only.
func (s *Service) Pause(caller common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if s.guard.Pause() {
		s.sink.Emit(PausedEvent{Actor: caller})
		s.Logger().Warn("vault paused", "actor", caller.Hex())
	}
	return nil
}

// Unpause resets the circuit breaker. Owner only.
func (s *Service) Unpause(caller common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if s.guard.Unpause() {
		s.sink.Emit(UnpausedEvent{Actor: caller})
		s.Logger().Info("vault unpaused", "actor", caller.Hex())
	}
	return nil
}

// EmergencyWithdrawFees transfers the entire retained fee balance to
// recipient and resets the accumulator. This is the only path that
// extracts value that is not principal. Owner only.
func (s *Service) EmergencyWithdrawFees(ctx context.Context, caller, recipient common.Address) (*big.Int, error) {
	if err := s.requireOwner(caller); err != nil {
		return nil, err
	}
	if zeroAddress(recipient) {
		return nil, ErrRecipientZeroAddress
	}

	release, err := s.guard.Enter()
	if err != nil {
		s.noteGuardError(err)
		return nil, err
	}
	defer release()

	amount, err := s.ledger.TakeFees()
	if err != nil {
		return nil, err
	}

	if err := s.asset.TransferOut(ctx, recipient, amount); err != nil {
		s.ledger.RestoreFees(amount)
		return nil, fmt.Errorf("transfer out fees: %w", err)
	}

	s.sink.Emit(FeesWithdrawnEvent{Recipient: recipient, Amount: amount})
	s.publishTotals()

	s.Logger().Info("fees withdrawn",
		"recipient", recipient.Hex(),
		"amount", amount.String(),
	)
	return amount, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Service) requireOwner(caller common.Address) error {
	if caller != s.cfg.Owner {
		return ErrNotOwner
	}
	return nil
}

func (s *Service) noteGuardError(err error) {
	if err == ErrReentrantCall {
		metrics.RecordReentrancyRejection()
	}
}

func (s *Service) publishTotals() {
	t := s.ledger.Totals()
	metrics.SetLedgerTotals(t.TotalDepositedPrincipal, t.TotalFeesCollected, t.TotalXPDistributed)
}

// Record storage failures are logged, never surfaced: the ledger has
// already committed.

func (s *Service) commitDeposit(ctx context.Context, rec *DepositRecord) {
	if err := s.store.CreateDeposit(ctx, rec); err != nil {
		s.Logger().Warn("failed to store deposit record", "error", err)
	}
	if s.journal != nil {
		if err := s.journal.RecordDeposit(ctx, rec); err != nil {
			s.Logger().Warn("failed to journal deposit record", "error", err)
		}
	}
}

func (s *Service) commitWithdrawal(ctx context.Context, rec *WithdrawalRecord) {
	if err := s.store.CreateWithdrawal(ctx, rec); err != nil {
		s.Logger().Warn("failed to store withdrawal record", "error", err)
	}
	if s.journal != nil {
		if err := s.journal.RecordWithdrawal(ctx, rec); err != nil {
			s.Logger().Warn("failed to journal withdrawal record", "error", err)
		}
	}
}

func (s *Service) commitClaim(ctx context.Context, rec *ClaimRecord) {
	if err := s.store.CreateClaim(ctx, rec); err != nil {
		s.Logger().Warn("failed to store claim record", "error", err)
	}
	if s.journal != nil {
		if err := s.journal.RecordClaim(ctx, rec); err != nil {
			s.Logger().Warn("failed to journal claim record", "error", err)
		}
	}
}
