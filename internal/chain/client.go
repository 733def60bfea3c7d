// Package chain provides EVM blockchain interaction for the vault service.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client provides EVM RPC client functionality with a single operator
// key for write operations.
type Client struct {
	mu          sync.RWMutex
	eth         *ethclient.Client
	chainID     *big.Int
	operatorKey *ecdsa.PrivateKey
	gasLimit    uint64
	waitTimeout time.Duration
}

// Config holds client configuration.
type Config struct {
	RPCURL      string
	OperatorKey string // hex-encoded private key; empty for read-only
	GasLimit    uint64
	WaitTimeout time.Duration
}

// NewClient creates a new EVM client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect to RPC: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain ID: %w", err)
	}

	var key *ecdsa.PrivateKey
	if cfg.OperatorKey != "" {
		key, err = crypto.HexToECDSA(cfg.OperatorKey)
		if err != nil {
			return nil, fmt.Errorf("parse operator key: %w", err)
		}
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 400_000
	}
	waitTimeout := cfg.WaitTimeout
	if waitTimeout == 0 {
		waitTimeout = 2 * time.Minute
	}

	return &Client{
		eth:         eth,
		chainID:     chainID,
		operatorKey: key,
		gasLimit:    gasLimit,
		waitTimeout: waitTimeout,
	}, nil
}

// OperatorAddress returns the address of the operator key.
func (c *Client) OperatorAddress() (common.Address, error) {
	if c.operatorKey == nil {
		return common.Address{}, fmt.Errorf("no operator key configured")
	}
	return crypto.PubkeyToAddress(c.operatorKey.PublicKey), nil
}

// ChainID returns the connected chain ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// CallContract performs a read-only eth_call against the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	out, err := c.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s: %w", to.Hex(), err)
	}
	return out, nil
}

// Transact signs and submits a transaction to the contract and waits
// for it to be mined. It fails if the transaction reverts.
func (c *Client) Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	if c.operatorKey == nil {
		return nil, fmt.Errorf("operator key required for write operations")
	}

	operatorAddr := crypto.PubkeyToAddress(c.operatorKey.PublicKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	nonce, err := c.eth.PendingNonceAt(ctx, operatorAddr)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), c.gasLimit, gasPrice, data)

	signer := types.NewEIP155Signer(c.chainID)
	signedTx, err := types.SignTx(tx, signer, c.operatorKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.eth, signedTx)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", signedTx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction reverted: %s", signedTx.Hash().Hex())
	}
	return receipt, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
