package vaultchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stablevault/vault_service/services/vault"
)

// Simulated is an in-memory token ledger and lending pool for
// development and tests. It models the subset of ERC-20 and Aave V3
// semantics the vault exercises: balance transfers with allowances,
// supply and withdraw against a reserve, and an aToken balance that
// grows when yield accrues.
type Simulated struct {
	mu sync.Mutex

	vault  common.Address
	pool   common.Address
	asset  common.Address
	aToken common.Address

	// balances[token][holder]
	balances map[common.Address]map[common.Address]*big.Int
	// allowances[token][owner][spender]
	allowances map[common.Address]map[common.Address]map[common.Address]*big.Int
}

// NewSimulated creates a backend with the reserve wired to a synthetic
// aToken address derived from the asset.
func NewSimulated(vaultAddr, poolAddr, assetAddr common.Address) *Simulated {
	aToken := common.BytesToAddress(append([]byte{0xaa}, assetAddr.Bytes()[1:]...))
	return &Simulated{
		vault:      vaultAddr,
		pool:       poolAddr,
		asset:      assetAddr,
		aToken:     aToken,
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]*big.Int),
	}
}

// ATokenAddress returns the synthetic yield-token address.
func (s *Simulated) ATokenAddress() common.Address {
	return s.aToken
}

// Mint credits amount of token to the holder.
func (s *Simulated) Mint(token, holder common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credit(token, holder, amount)
}

// AccrueYield grows the vault's aToken position by amount, modelling
// interest paid by the venue.
func (s *Simulated) AccrueYield(amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credit(s.aToken, s.vault, amount)
}

// Balance reports the holder's balance of token.
func (s *Simulated) Balance(token, holder common.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.balance(token, holder))
}

// ERC20 returns an asset-transfer view of token, suitable as the
// vault's token factory.
func (s *Simulated) ERC20(token common.Address) vault.AssetTransfer {
	return &simulatedToken{backend: s, token: token}
}

// Supply moves amount of asset from vault custody into the pool and
// mints matching aTokens to onBehalfOf.
func (s *Simulated) Supply(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address, referralCode uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if asset != s.asset {
		return fmt.Errorf("unknown reserve %s", asset.Hex())
	}
	if err := s.move(asset, s.vault, s.pool, amount); err != nil {
		return fmt.Errorf("supply: %w", err)
	}
	s.credit(s.aToken, onBehalfOf, amount)
	return nil
}

// Withdraw burns aTokens from the vault's position and releases asset
// to the recipient. A request above the position releases the whole
// position, matching Aave's max-withdraw behavior.
func (s *Simulated) Withdraw(ctx context.Context, asset common.Address, amount *big.Int, to common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if asset != s.asset {
		return nil, fmt.Errorf("unknown reserve %s", asset.Hex())
	}
	position := s.balance(s.aToken, s.vault)
	released := new(big.Int).Set(amount)
	if released.Cmp(position) > 0 {
		released.Set(position)
	}
	if released.Sign() == 0 {
		return nil, fmt.Errorf("withdraw: nothing supplied")
	}
	s.debit(s.aToken, s.vault, released)
	s.credit(asset, to, released)
	return released, nil
}

// GetReserveData reports the reserve record for asset.
func (s *Simulated) GetReserveData(ctx context.Context, asset common.Address) (*vault.ReserveData, error) {
	if asset != s.asset {
		return &vault.ReserveData{}, nil
	}
	return &vault.ReserveData{ATokenAddress: s.aToken}, nil
}

// ----------------------------------------------------------------------------

func (s *Simulated) balance(token, holder common.Address) *big.Int {
	holders := s.balances[token]
	if holders == nil {
		return new(big.Int)
	}
	bal := holders[holder]
	if bal == nil {
		return new(big.Int)
	}
	return bal
}

func (s *Simulated) credit(token, holder common.Address, amount *big.Int) {
	holders := s.balances[token]
	if holders == nil {
		holders = make(map[common.Address]*big.Int)
		s.balances[token] = holders
	}
	bal := holders[holder]
	if bal == nil {
		bal = new(big.Int)
		holders[holder] = bal
	}
	bal.Add(bal, amount)
}

func (s *Simulated) debit(token, holder common.Address, amount *big.Int) error {
	bal := s.balance(token, holder)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance of %s for %s", token.Hex(), holder.Hex())
	}
	bal.Sub(bal, amount)
	return nil
}

func (s *Simulated) move(token, from, to common.Address, amount *big.Int) error {
	if err := s.debit(token, from, amount); err != nil {
		return err
	}
	s.credit(token, to, amount)
	return nil
}

func (s *Simulated) allowance(token, owner, spender common.Address) *big.Int {
	owners := s.allowances[token]
	if owners == nil {
		return new(big.Int)
	}
	spenders := owners[owner]
	if spenders == nil {
		return new(big.Int)
	}
	al := spenders[spender]
	if al == nil {
		return new(big.Int)
	}
	return al
}

func (s *Simulated) setAllowance(token, owner, spender common.Address, amount *big.Int) {
	owners := s.allowances[token]
	if owners == nil {
		owners = make(map[common.Address]map[common.Address]*big.Int)
		s.allowances[token] = owners
	}
	spenders := owners[owner]
	if spenders == nil {
		spenders = make(map[common.Address]*big.Int)
		owners[owner] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
}

// simulatedToken is the per-token asset-transfer view over the shared
// backend. Transfers in consume the holder's allowance to the vault.
type simulatedToken struct {
	backend *Simulated
	token   common.Address
}

func (t *simulatedToken) TransferIn(ctx context.Context, from common.Address, amount *big.Int) error {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	allowance := b.allowance(t.token, from, b.vault)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("transferFrom: allowance %s below %s", allowance, amount)
	}
	if err := b.move(t.token, from, b.vault, amount); err != nil {
		return fmt.Errorf("transferFrom: %w", err)
	}
	b.setAllowance(t.token, from, b.vault, new(big.Int).Sub(allowance, amount))
	return nil
}

func (t *simulatedToken) TransferOut(ctx context.Context, to common.Address, amount *big.Int) error {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.move(t.token, b.vault, to, amount); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

func (t *simulatedToken) Approve(ctx context.Context, spender common.Address, amount *big.Int) error {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setAllowance(t.token, b.vault, spender, amount)
	return nil
}

func (t *simulatedToken) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	return t.backend.Balance(t.token, holder), nil
}

// ApproveFor grants spender an allowance from an arbitrary holder.
// Tests and the development harness use it to stand in for the
// depositor's own approval transaction.
func (s *Simulated) ApproveFor(token, owner, spender common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAllowance(token, owner, spender, amount)
}
