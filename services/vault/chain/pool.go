package vaultchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/stablevault/vault_service/internal/chain"
	"github.com/stablevault/vault_service/services/vault"
)

// Aave V3 reserve data struct layout, 15 words. The aToken address
// sits in the ninth slot.
const reserveDataATokenWord = 8

var withdrawEventSig = crypto.Keccak256Hash([]byte("Withdraw(address,address,address,uint256)"))

// AavePool adapts an Aave V3 lending pool to the vault's yield-venue
// interface.
type AavePool struct {
	client *chain.Client
	pool   common.Address
}

// NewAavePool creates an adapter bound to the pool contract.
func NewAavePool(client *chain.Client, pool common.Address) *AavePool {
	return &AavePool{
		client: client,
		pool:   pool,
	}
}

// Pool returns the bound pool address.
func (p *AavePool) Pool() common.Address {
	return p.pool
}

// Supply deposits amount of asset into the pool, crediting aTokens to
// onBehalfOf.
func (p *AavePool) Supply(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address, referralCode uint16) error {
	data, err := chain.PackCall("supply(address,uint256,address,uint16)", asset, amount, onBehalfOf, referralCode)
	if err != nil {
		return fmt.Errorf("pack supply: %w", err)
	}
	if _, err := p.client.Transact(ctx, p.pool, data); err != nil {
		return fmt.Errorf("supply: %w", err)
	}
	return nil
}

// Withdraw redeems up to amount of asset from the pool to the
// recipient, returning the amount actually released. The pool may
// release less than requested when amount exceeds the position, so
// the Withdraw event in the receipt is authoritative.
func (p *AavePool) Withdraw(ctx context.Context, asset common.Address, amount *big.Int, to common.Address) (*big.Int, error) {
	data, err := chain.PackCall("withdraw(address,uint256,address)", asset, amount, to)
	if err != nil {
		return nil, fmt.Errorf("pack withdraw: %w", err)
	}
	receipt, err := p.client.Transact(ctx, p.pool, data)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if released := withdrawnAmount(receipt, p.pool, asset); released != nil {
		return released, nil
	}
	return new(big.Int).Set(amount), nil
}

// GetReserveData fetches the pool's reserve record for asset.
func (p *AavePool) GetReserveData(ctx context.Context, asset common.Address) (*vault.ReserveData, error) {
	data, err := chain.PackCall("getReserveData(address)", asset)
	if err != nil {
		return nil, fmt.Errorf("pack getReserveData: %w", err)
	}
	out, err := p.client.CallContract(ctx, p.pool, data)
	if err != nil {
		return nil, fmt.Errorf("getReserveData: %w", err)
	}
	return decodeReserveData(out)
}

func decodeReserveData(out []byte) (*vault.ReserveData, error) {
	aToken, err := chain.AddressAt(out, reserveDataATokenWord)
	if err != nil {
		return nil, fmt.Errorf("decode reserve data: %w", err)
	}
	rd := &vault.ReserveData{ATokenAddress: aToken}
	if idx, err := chain.BigAt(out, 1); err == nil {
		rd.LiquidityIndex = idx
	}
	if rate, err := chain.BigAt(out, 2); err == nil {
		rd.LiquidityRate = rate
	}
	if debt, err := chain.AddressAt(out, 10); err == nil {
		rd.VariableDebtToken = debt
	}
	if ts, err := chain.BigAt(out, 6); err == nil {
		rd.LastUpdateTimestamp = ts.Uint64()
	}
	return rd, nil
}

// withdrawnAmount scans receipt logs for the pool's Withdraw event on
// the given reserve and returns its amount, or nil when absent.
func withdrawnAmount(receipt *types.Receipt, pool, asset common.Address) *big.Int {
	if receipt == nil {
		return nil
	}
	for _, lg := range receipt.Logs {
		if lg.Address != pool || len(lg.Topics) < 2 {
			continue
		}
		if lg.Topics[0] != withdrawEventSig {
			continue
		}
		if common.BytesToAddress(lg.Topics[1].Bytes()) != asset {
			continue
		}
		if len(lg.Data) < 32 {
			continue
		}
		return new(big.Int).SetBytes(lg.Data[:32])
	}
	return nil
}
