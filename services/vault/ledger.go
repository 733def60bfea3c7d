// Package vault implements the custodial savings vault service.
package vault

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger maintains exact proportional claims against a pooled,
// externally-growing balance. All arithmetic is unsigned, truncating
// integer division; dust left by floor division is accepted, not
// corrected.
//
// Mutations are serialized by the service guard; the internal lock only
// protects concurrent reads against a running mutation.
type Ledger struct {
	mu sync.RWMutex

	accounts       map[common.Address]*UserAccount
	totalPrincipal *big.Int
	totalFees      *big.Int
	totalXP        uint64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		accounts:       make(map[common.Address]*UserAccount),
		totalPrincipal: new(big.Int),
		totalFees:      new(big.Int),
	}
}

// Account returns a copy of the user's account. Absent accounts read as
// zero-valued.
func (l *Ledger) Account(user common.Address) UserAccount {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[user]
	if !ok {
		return UserAccount{Principal: new(big.Int)}
	}
	return UserAccount{
		Principal:  new(big.Int).Set(acct.Principal),
		XP:         acct.XP,
		HasClaimed: acct.HasClaimed,
	}
}

// Totals returns a copy of the vault-wide accumulators.
func (l *Ledger) Totals() Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Totals{
		TotalDepositedPrincipal: new(big.Int).Set(l.totalPrincipal),
		TotalFeesCollected:      new(big.Int).Set(l.totalFees),
		TotalXPDistributed:      l.totalXP,
	}
}

// account returns the live account entry, creating it if needed.
// Callers must hold the write lock.
func (l *Ledger) account(user common.Address) *UserAccount {
	acct, ok := l.accounts[user]
	if !ok {
		acct = &UserAccount{Principal: new(big.Int)}
		l.accounts[user] = acct
	}
	return acct
}

// RealBalance computes the user's exact proportional claim on the
// vault's total externally-held balance: 0 if the user has no principal
// or nothing is deposited, otherwise
// floor(principal * poolBalance / totalPrincipal).
//
// Both withdrawal branches use this same formula to prevent drift.
func (l *Ledger) RealBalance(user common.Address, poolBalance *big.Int) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.realBalanceLocked(user, poolBalance)
}

func (l *Ledger) realBalanceLocked(user common.Address, poolBalance *big.Int) *big.Int {
	acct, ok := l.accounts[user]
	if !ok || acct.Principal.Sign() == 0 || l.totalPrincipal.Sign() == 0 {
		return new(big.Int)
	}
	real := new(big.Int).Mul(acct.Principal, poolBalance)
	return real.Div(real, l.totalPrincipal)
}

// =============================================================================
// Deposit
// =============================================================================

// DepositResult captures the ledger effects of a deposit.
type DepositResult struct {
	Gross        *big.Int
	Net          *big.Int
	Fee          *big.Int
	XPEarned     uint64
	NewXPBalance uint64
}

// ApplyDeposit records a validated deposit: peels the fixed fee into the
// treasury, credits net principal, and accrues XP. The caller validates
// bounds and brackets the mutation with Snapshot/Restore.
func (l *Ledger) ApplyDeposit(user common.Address, gross *big.Int) *DepositResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	net := new(big.Int).Sub(gross, DepositFee)

	acct := l.account(user)
	l.totalFees.Add(l.totalFees, DepositFee)
	l.totalPrincipal.Add(l.totalPrincipal, net)
	acct.Principal.Add(acct.Principal, net)
	acct.XP += XPPerDeposit
	l.totalXP += XPPerDeposit

	return &DepositResult{
		Gross:        new(big.Int).Set(gross),
		Net:          net,
		Fee:          new(big.Int).Set(DepositFee),
		XPEarned:     XPPerDeposit,
		NewXPBalance: acct.XP,
	}
}

// =============================================================================
// Withdrawal
// =============================================================================

// WithdrawalPlan is the computed effect of a withdrawal before it is
// applied.
type WithdrawalPlan struct {
	User             common.Address
	Gross            *big.Int // requested from the venue
	Net              *big.Int // paid to the user
	Fee              *big.Int
	ProportionDeduct *big.Int // principal retired
	Full             bool
}

// PlanWithdrawal computes the withdrawal effects for the user against
// the externally reported pool balance.
//
// Full withdrawals (the WithdrawAll sentinel) retire the entire
// principal and pay out realBalance minus the fee. Partial withdrawals
// retire principal in the same ratio as the share being withdrawn:
// floor(gross * principal / realBalance). The two branches are
// deliberately asymmetric and must stay that way for compatibility with
// the on-chain reference.
func (l *Ledger) PlanWithdrawal(user common.Address, requested, poolBalance *big.Int) (*WithdrawalPlan, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[user]
	if !ok || acct.Principal.Sign() == 0 {
		return nil, ErrInvalidWithdrawalAmount
	}

	real := l.realBalanceLocked(user, poolBalance)

	if requested.Cmp(WithdrawAll) == 0 {
		if real.Cmp(WithdrawalFee) <= 0 {
			return nil, ErrInsufficientBalanceForWithdrawal
		}
		return &WithdrawalPlan{
			User:             user,
			Gross:            new(big.Int).Set(real),
			Net:              new(big.Int).Sub(real, WithdrawalFee),
			Fee:              new(big.Int).Set(WithdrawalFee),
			ProportionDeduct: new(big.Int).Set(acct.Principal),
			Full:             true,
		}, nil
	}

	if requested.Sign() == 0 {
		return nil, ErrInvalidWithdrawalAmount
	}

	gross := new(big.Int).Add(requested, WithdrawalFee)
	if gross.Cmp(real) > 0 {
		return nil, ErrInsufficientBalanceForWithdrawal
	}

	deduct := new(big.Int).Mul(gross, acct.Principal)
	deduct.Div(deduct, real)

	return &WithdrawalPlan{
		User:             user,
		Gross:            gross,
		Net:              new(big.Int).Set(requested),
		Fee:              new(big.Int).Set(WithdrawalFee),
		ProportionDeduct: deduct,
	}, nil
}

// ApplyWithdrawal records a planned withdrawal and returns the user's
// new XP balance.
func (l *Ledger) ApplyWithdrawal(plan *WithdrawalPlan) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.account(plan.User)
	acct.Principal.Sub(acct.Principal, plan.ProportionDeduct)
	l.totalPrincipal.Sub(l.totalPrincipal, plan.ProportionDeduct)
	l.totalFees.Add(l.totalFees, plan.Fee)
	acct.XP += XPPerDeposit
	l.totalXP += XPPerDeposit

	return acct.XP
}

// =============================================================================
// XP Claim
// =============================================================================

// MarkClaimed atomically reads the user's XP and flips the claimed flag.
// The read and the transition are indivisible: a second claim for the
// same user always observes HasClaimed. XP itself never decreases.
func (l *Ledger) MarkClaimed(user common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[user]
	if !ok {
		return 0, ErrNoXPToClaim
	}
	if acct.HasClaimed {
		return 0, ErrAlreadyClaimed
	}
	if acct.XP == 0 {
		return 0, ErrNoXPToClaim
	}

	acct.HasClaimed = true
	return acct.XP, nil
}

// =============================================================================
// Treasury
// =============================================================================

// TakeFees drains the fee accumulator, returning the amount taken.
func (l *Ledger) TakeFees() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.totalFees.Sign() == 0 {
		return nil, ErrNoFeesToWithdraw
	}
	taken := l.totalFees
	l.totalFees = new(big.Int)
	return taken, nil
}

// RestoreFees puts a drained fee balance back after a failed sweep.
func (l *Ledger) RestoreFees(amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalFees.Add(l.totalFees, amount)
}

// =============================================================================
// Snapshot / Rollback
// =============================================================================

// Snapshot captures the parts of the ledger a single operation can
// touch: one account plus the vault-wide accumulators. Operations are
// serialized by the guard, so restoring a snapshot is an exact
// all-or-nothing rollback.
type Snapshot struct {
	user       common.Address
	hadAccount bool
	account    UserAccount
	totals     Totals
}

// Snapshot captures the user's account and the totals.
func (l *Ledger) Snapshot(user common.Address) *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := &Snapshot{
		user: user,
		totals: Totals{
			TotalDepositedPrincipal: new(big.Int).Set(l.totalPrincipal),
			TotalFeesCollected:      new(big.Int).Set(l.totalFees),
			TotalXPDistributed:      l.totalXP,
		},
	}
	if acct, ok := l.accounts[user]; ok {
		snap.hadAccount = true
		snap.account = UserAccount{
			Principal:  new(big.Int).Set(acct.Principal),
			XP:         acct.XP,
			HasClaimed: acct.HasClaimed,
		}
	}
	return snap
}

// Restore reinstates a snapshot taken by Snapshot.
func (l *Ledger) Restore(snap *Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalPrincipal = new(big.Int).Set(snap.totals.TotalDepositedPrincipal)
	l.totalFees = new(big.Int).Set(snap.totals.TotalFeesCollected)
	l.totalXP = snap.totals.TotalXPDistributed

	if !snap.hadAccount {
		delete(l.accounts, snap.user)
		return
	}
	l.accounts[snap.user] = &UserAccount{
		Principal:  new(big.Int).Set(snap.account.Principal),
		XP:         snap.account.XP,
		HasClaimed: snap.account.HasClaimed,
	}
}

// PrincipalSum recomputes the sum of all account principals. Used by
// invariant checks in tests.
func (l *Ledger) PrincipalSum() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sum := new(big.Int)
	for _, acct := range l.accounts {
		sum.Add(sum, acct.Principal)
	}
	return sum
}
