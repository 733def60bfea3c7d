// Package vaultchain provides on-chain adapters for the vault service.
package vaultchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stablevault/vault_service/internal/chain"
)

// ERC20 adapts a fungible token contract to the vault's asset-transfer
// interface. Transfers out are sent from the vault's operator account;
// transfers in pull via transferFrom and require prior allowance from
// the depositor.
type ERC20 struct {
	client *chain.Client
	token  common.Address
	vault  common.Address
}

// NewERC20 creates an adapter bound to token, moving funds in and out
// of the vault custody account.
func NewERC20(client *chain.Client, token, vault common.Address) *ERC20 {
	return &ERC20{
		client: client,
		token:  token,
		vault:  vault,
	}
}

// Token returns the bound token address.
func (e *ERC20) Token() common.Address {
	return e.token
}

// TransferIn pulls amount from the holder into vault custody.
func (e *ERC20) TransferIn(ctx context.Context, from common.Address, amount *big.Int) error {
	data, err := chain.PackCall("transferFrom(address,address,uint256)", from, e.vault, amount)
	if err != nil {
		return fmt.Errorf("pack transferFrom: %w", err)
	}
	if _, err := e.client.Transact(ctx, e.token, data); err != nil {
		return fmt.Errorf("transferFrom: %w", err)
	}
	return nil
}

// TransferOut pushes amount from vault custody to the recipient.
func (e *ERC20) TransferOut(ctx context.Context, to common.Address, amount *big.Int) error {
	data, err := chain.PackCall("transfer(address,uint256)", to, amount)
	if err != nil {
		return fmt.Errorf("pack transfer: %w", err)
	}
	if _, err := e.client.Transact(ctx, e.token, data); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

// Approve grants spender an allowance over the vault's holdings.
func (e *ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int) error {
	data, err := chain.PackCall("approve(address,uint256)", spender, amount)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}
	if _, err := e.client.Transact(ctx, e.token, data); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return nil
}

// BalanceOf queries the holder's token balance.
func (e *ERC20) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	data, err := chain.PackCall("balanceOf(address)", holder)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := e.client.CallContract(ctx, e.token, data)
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	return chain.BigAt(out, 0)
}
