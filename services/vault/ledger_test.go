package vault

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestApplyDepositSplitsFeeAndAccruesXP(t *testing.T) {
	l := NewLedger()

	res := l.ApplyDeposit(alice, big.NewInt(100))

	assert.Equal(t, int64(100), res.Gross.Int64())
	assert.Equal(t, int64(99), res.Net.Int64())
	assert.Equal(t, int64(1), res.Fee.Int64())
	assert.Equal(t, XPPerDeposit, res.XPEarned)
	assert.Equal(t, XPPerDeposit, res.NewXPBalance)

	acct := l.Account(alice)
	assert.Equal(t, int64(99), acct.Principal.Int64())
	assert.Equal(t, XPPerDeposit, acct.XP)
	assert.False(t, acct.HasClaimed)

	totals := l.Totals()
	assert.Equal(t, int64(99), totals.TotalDepositedPrincipal.Int64())
	assert.Equal(t, int64(1), totals.TotalFeesCollected.Int64())
	assert.Equal(t, XPPerDeposit, totals.TotalXPDistributed)
}

func TestPrincipalConservation(t *testing.T) {
	l := NewLedger()

	l.ApplyDeposit(alice, big.NewInt(100))
	l.ApplyDeposit(bob, big.NewInt(200))
	l.ApplyDeposit(alice, big.NewInt(500))

	assert.Zero(t, l.PrincipalSum().Cmp(l.Totals().TotalDepositedPrincipal))

	// Pool grew by yield; a partial withdrawal must preserve the
	// invariant.
	pool := new(big.Int).Add(l.Totals().TotalDepositedPrincipal, big.NewInt(80))
	plan, err := l.PlanWithdrawal(alice, big.NewInt(50), pool)
	require.NoError(t, err)
	l.ApplyWithdrawal(plan)

	assert.Zero(t, l.PrincipalSum().Cmp(l.Totals().TotalDepositedPrincipal))
}

func TestRealBalanceProportionalFairness(t *testing.T) {
	l := NewLedger()

	l.ApplyDeposit(alice, big.NewInt(100))
	l.ApplyDeposit(bob, big.NewInt(200))

	// Yield accrues on the pooled position.
	pool := new(big.Int).Add(l.Totals().TotalDepositedPrincipal, big.NewInt(33))

	a := l.RealBalance(alice, pool)
	b := l.RealBalance(bob, pool)

	// Bob deposited twice Alice's net principal, so his claim is twice
	// hers within one unit of floor-division dust.
	twice := new(big.Int).Mul(a, big.NewInt(2))
	diff := new(big.Int).Sub(twice, b)
	assert.LessOrEqual(t, diff.CmpAbs(big.NewInt(1)), 0,
		"expected 2*%s ~= %s", a, b)

	// Claims never exceed the pool.
	sum := new(big.Int).Add(a, b)
	assert.LessOrEqual(t, sum.Cmp(pool), 0)
}

func TestRealBalanceEmptyCases(t *testing.T) {
	l := NewLedger()

	assert.Zero(t, l.RealBalance(alice, big.NewInt(1000)).Sign())

	l.ApplyDeposit(alice, big.NewInt(100))
	assert.Zero(t, l.RealBalance(bob, big.NewInt(1000)).Sign())
}

func TestPlanWithdrawalFull(t *testing.T) {
	l := NewLedger()
	l.ApplyDeposit(alice, big.NewInt(100))

	pool := big.NewInt(120) // principal 99 plus yield

	plan, err := l.PlanWithdrawal(alice, WithdrawAll, pool)
	require.NoError(t, err)
	assert.True(t, plan.Full)
	assert.Equal(t, int64(120), plan.Gross.Int64())
	assert.Equal(t, int64(119), plan.Net.Int64())
	assert.Equal(t, int64(1), plan.Fee.Int64())
	assert.Equal(t, int64(99), plan.ProportionDeduct.Int64(), "full withdrawal retires all principal")

	l.ApplyWithdrawal(plan)
	acct := l.Account(alice)
	assert.Zero(t, acct.Principal.Sign())
	assert.Zero(t, l.RealBalance(alice, big.NewInt(5)).Sign(), "real balance is zero after full exit")
}

func TestPlanWithdrawalPartial(t *testing.T) {
	l := NewLedger()
	l.ApplyDeposit(alice, big.NewInt(100))

	pool := big.NewInt(198) // position doubled

	plan, err := l.PlanWithdrawal(alice, big.NewInt(50), pool)
	require.NoError(t, err)
	assert.False(t, plan.Full)
	assert.Equal(t, int64(51), plan.Gross.Int64())
	assert.Equal(t, int64(50), plan.Net.Int64())
	// floor(51 * 99 / 198) = 25
	assert.Equal(t, int64(25), plan.ProportionDeduct.Int64())
}

func TestPlanWithdrawalErrors(t *testing.T) {
	l := NewLedger()

	_, err := l.PlanWithdrawal(alice, big.NewInt(10), big.NewInt(100))
	assert.ErrorIs(t, err, ErrInvalidWithdrawalAmount, "no principal")

	l.ApplyDeposit(alice, big.NewInt(100))

	_, err = l.PlanWithdrawal(alice, big.NewInt(0), big.NewInt(99))
	assert.ErrorIs(t, err, ErrInvalidWithdrawalAmount)

	// Requested plus fee above real balance.
	_, err = l.PlanWithdrawal(alice, big.NewInt(99), big.NewInt(99))
	assert.ErrorIs(t, err, ErrInsufficientBalanceForWithdrawal)

	// Full withdrawal whose real balance cannot cover the fee.
	_, err = l.PlanWithdrawal(alice, WithdrawAll, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalanceForWithdrawal)
}

func TestMarkClaimed(t *testing.T) {
	l := NewLedger()

	_, err := l.MarkClaimed(alice)
	assert.ErrorIs(t, err, ErrNoXPToClaim, "unknown account")

	l.ApplyDeposit(alice, big.NewInt(100))

	amount, err := l.MarkClaimed(alice)
	require.NoError(t, err)
	assert.Equal(t, XPPerDeposit, amount)

	// Second claim is rejected and XP does not change.
	_, err = l.MarkClaimed(alice)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, XPPerDeposit, l.Account(alice).XP)

	// XP keeps accruing after a claim, but the flag stays set.
	l.ApplyDeposit(alice, big.NewInt(100))
	_, err = l.MarkClaimed(alice)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, 2*XPPerDeposit, l.Account(alice).XP)
}

func TestTakeAndRestoreFees(t *testing.T) {
	l := NewLedger()

	_, err := l.TakeFees()
	assert.ErrorIs(t, err, ErrNoFeesToWithdraw)

	l.ApplyDeposit(alice, big.NewInt(100))
	l.ApplyDeposit(bob, big.NewInt(100))

	taken, err := l.TakeFees()
	require.NoError(t, err)
	assert.Equal(t, int64(2), taken.Int64())
	assert.Zero(t, l.Totals().TotalFeesCollected.Sign())

	l.RestoreFees(taken)
	assert.Equal(t, int64(2), l.Totals().TotalFeesCollected.Int64())
}

func TestSnapshotRestore(t *testing.T) {
	l := NewLedger()
	l.ApplyDeposit(alice, big.NewInt(100))

	snap := l.Snapshot(alice)
	l.ApplyDeposit(alice, big.NewInt(500))
	l.Restore(snap)

	acct := l.Account(alice)
	assert.Equal(t, int64(99), acct.Principal.Int64())
	assert.Equal(t, XPPerDeposit, acct.XP)

	totals := l.Totals()
	assert.Equal(t, int64(99), totals.TotalDepositedPrincipal.Int64())
	assert.Equal(t, int64(1), totals.TotalFeesCollected.Int64())
	assert.Equal(t, XPPerDeposit, totals.TotalXPDistributed)
}

func TestSnapshotRestoreRemovesCreatedAccount(t *testing.T) {
	l := NewLedger()

	snap := l.Snapshot(alice)
	l.ApplyDeposit(alice, big.NewInt(100))
	l.Restore(snap)

	acct := l.Account(alice)
	assert.Zero(t, acct.Principal.Sign())
	assert.Zero(t, acct.XP)
	assert.Zero(t, l.Totals().TotalDepositedPrincipal.Sign())
}
