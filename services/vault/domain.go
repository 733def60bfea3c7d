// Package vault implements the custodial savings vault service.
package vault

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stablevault/vault_service/services/base"
)

// Bound constants, in base units of the 6-decimal stable asset.
// Exposed read-only through the service accessors.
var (
	MinDeposit    = big.NewInt(10)
	MaxDeposit    = big.NewInt(1_000_000_000_000)
	DepositFee    = big.NewInt(1)
	WithdrawalFee = big.NewInt(1)
)

// XPPerDeposit is the fixed XP increment accrued per deposit or withdrawal.
// XP reflects activity count, not value.
const XPPerDeposit uint64 = 10

// WithdrawAll is the sentinel withdrawal amount requesting the caller's
// entire proportional balance (max uint256).
var WithdrawAll = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// AaveReferralCode is passed on every venue supply call.
const AaveReferralCode uint16 = 0

// UserAccount is a user's ledger entry. Created implicitly on first
// deposit, never deleted.
type UserAccount struct {
	Principal  *big.Int `json:"principal"`
	XP         uint64   `json:"xp"`
	HasClaimed bool     `json:"has_claimed"`
}

// Totals is a snapshot of the vault-wide accumulators.
type Totals struct {
	TotalDepositedPrincipal *big.Int `json:"total_deposited_principal"`
	TotalFeesCollected      *big.Int `json:"total_fees_collected"`
	TotalXPDistributed      uint64   `json:"total_xp_distributed"`
}

// =============================================================================
// External Collaborators
// =============================================================================

// AssetTransfer moves a fungible asset between accounts on behalf of the
// vault and queries balances. Implementations must fail the enclosing
// operation if the underlying transfer fails.
type AssetTransfer interface {
	TransferIn(ctx context.Context, from common.Address, amount *big.Int) error
	TransferOut(ctx context.Context, to common.Address, amount *big.Int) error
	Approve(ctx context.Context, spender common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
}

// ReserveData describes a venue reserve for an asset.
type ReserveData struct {
	ATokenAddress       common.Address
	LiquidityIndex      *big.Int
	LiquidityRate       *big.Int
	VariableDebtToken   common.Address
	LastUpdateTimestamp uint64
}

// YieldVenue is the external lending venue the vault forwards funds to.
type YieldVenue interface {
	// Supply deposits amount of asset on behalf of beneficiary.
	Supply(ctx context.Context, asset common.Address, amount *big.Int, beneficiary common.Address, referralCode uint16) error
	// Withdraw releases up to amount of asset to recipient and returns
	// the actually-withdrawn amount, which may be less.
	Withdraw(ctx context.Context, asset common.Address, amount *big.Int, recipient common.Address) (*big.Int, error)
	// GetReserveData returns reserve metadata for asset.
	GetReserveData(ctx context.Context, asset common.Address) (*ReserveData, error)
}

// ERC20Factory binds an AssetTransfer adapter to a token address. The
// vault uses it once at start to resolve the yield-token handle.
type ERC20Factory func(token common.Address) AssetTransfer

// =============================================================================
// Records
// =============================================================================

// DepositRecord is the persisted record of a completed deposit.
type DepositRecord struct {
	base.BaseEntity

	User         string `json:"user"`
	GrossAmount  string `json:"gross_amount"`
	NetAmount    string `json:"net_amount"`
	Fee          string `json:"fee"`
	XPEarned     uint64 `json:"xp_earned"`
	NewXPBalance uint64 `json:"new_xp_balance"`
	TxHash       string `json:"tx_hash,omitempty"`
}

// WithdrawalRecord is the persisted record of a completed withdrawal.
type WithdrawalRecord struct {
	base.BaseEntity

	User         string `json:"user"`
	GrossAmount  string `json:"gross_amount"`
	Fee          string `json:"fee"`
	NetAmount    string `json:"net_amount"`
	XPEarned     uint64 `json:"xp_earned"`
	NewXPBalance uint64 `json:"new_xp_balance"`
	Recipient    string `json:"recipient"`
	TxHash       string `json:"tx_hash,omitempty"`
}

// ClaimRecord is the persisted record of a completed XP claim.
type ClaimRecord struct {
	base.BaseEntity

	User    string `json:"user"`
	Claimer string `json:"claimer"`
	Amount  uint64 `json:"amount"`
}

// Journal receives completed records for durable storage. Journal
// failures are logged, never surfaced: the in-memory ledger is the
// source of truth and records are written after commit.
type Journal interface {
	RecordDeposit(ctx context.Context, rec *DepositRecord) error
	RecordWithdrawal(ctx context.Context, rec *WithdrawalRecord) error
	RecordClaim(ctx context.Context, rec *ClaimRecord) error
}

// zeroAddress reports whether addr is the null identity.
func zeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
