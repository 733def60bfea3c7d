// Package vault implements the custodial savings vault service.
package vault

import "errors"

// Input validation errors.
var (
	ErrDepositTooLow           = errors.New("deposit below minimum")
	ErrDepositTooHigh          = errors.New("deposit above maximum")
	ErrInvalidWithdrawalAmount = errors.New("invalid withdrawal amount")
	ErrInvalidClaimerAddress   = errors.New("claimer address is zero")
	ErrRecipientZeroAddress    = errors.New("recipient address is zero")
)

// State and authorization errors.
var (
	ErrClaimDisabled                    = errors.New("claiming is disabled")
	ErrNotAuthorizedToClaim             = errors.New("caller not authorized to claim")
	ErrAlreadyClaimed                   = errors.New("account already claimed")
	ErrNoXPToClaim                      = errors.New("account has no xp to claim")
	ErrInsufficientBalanceForWithdrawal = errors.New("insufficient balance for withdrawal")
	ErrNoFeesToWithdraw                 = errors.New("no fees to withdraw")
	ErrNotOwner                         = errors.New("caller is not the owner")
)

// Construction-time configuration errors.
var (
	ErrUsdcAddressZero      = errors.New("usdc address is zero")
	ErrAavePoolAddressZero  = errors.New("aave pool address is zero")
	ErrAUSDCAddressNotFound = errors.New("ausdc address not found for asset")
)

// Admission errors.
var (
	ErrVaultPaused   = errors.New("vault is paused")
	ErrReentrantCall = errors.New("reentrant call rejected")
)
