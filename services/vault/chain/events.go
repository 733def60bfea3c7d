package vaultchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Aave V3 pool event signatures. Supply carries the depositor and
// amount in the data segment; Withdraw carries only the amount.
var supplyEventSig = crypto.Keccak256Hash([]byte("Supply(address,address,address,uint256,uint16)"))

// VenueSupply is a decoded pool Supply event.
type VenueSupply struct {
	Reserve    common.Address
	User       common.Address
	OnBehalfOf common.Address
	Amount     *big.Int
}

// VenueWithdrawal is a decoded pool Withdraw event.
type VenueWithdrawal struct {
	Reserve common.Address
	User    common.Address
	To      common.Address
	Amount  *big.Int
}

// ParseSupply decodes a pool Supply log, or returns false if the log is
// a different event.
func ParseSupply(lg *types.Log) (VenueSupply, bool) {
	if len(lg.Topics) < 3 || lg.Topics[0] != supplyEventSig || len(lg.Data) < 2*32 {
		return VenueSupply{}, false
	}
	return VenueSupply{
		Reserve:    common.BytesToAddress(lg.Topics[1].Bytes()),
		OnBehalfOf: common.BytesToAddress(lg.Topics[2].Bytes()),
		User:       common.BytesToAddress(lg.Data[:32]),
		Amount:     new(big.Int).SetBytes(lg.Data[32:64]),
	}, true
}

// ParseWithdraw decodes a pool Withdraw log, or returns false if the
// log is a different event.
func ParseWithdraw(lg *types.Log) (VenueWithdrawal, bool) {
	if len(lg.Topics) < 4 || lg.Topics[0] != withdrawEventSig || len(lg.Data) < 32 {
		return VenueWithdrawal{}, false
	}
	return VenueWithdrawal{
		Reserve: common.BytesToAddress(lg.Topics[1].Bytes()),
		User:    common.BytesToAddress(lg.Topics[2].Bytes()),
		To:      common.BytesToAddress(lg.Topics[3].Bytes()),
		Amount:  new(big.Int).SetBytes(lg.Data[:32]),
	}, true
}

// VenueEvents scans receipt logs emitted by the pool contract and
// returns the decoded supplies and withdrawals, for indexer use.
func VenueEvents(receipt *types.Receipt, pool common.Address) ([]VenueSupply, []VenueWithdrawal) {
	if receipt == nil {
		return nil, nil
	}
	var (
		supplies    []VenueSupply
		withdrawals []VenueWithdrawal
	)
	for _, lg := range receipt.Logs {
		if lg.Address != pool {
			continue
		}
		if s, ok := ParseSupply(lg); ok {
			supplies = append(supplies, s)
			continue
		}
		if w, ok := ParseWithdraw(lg); ok {
			withdrawals = append(withdrawals, w)
		}
	}
	return supplies, withdrawals
}
