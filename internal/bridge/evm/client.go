package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/catenahq/bridge-backend/internal/bridge"
)

const defaultGasLimit = 300_000

// Client wraps a JSON-RPC connection to one chain. The connection is dialed
// lazily on first use so provider construction stays network-free.
type Client struct {
	rpcURL  string
	chainID *big.Int

	mu  sync.Mutex
	eth *ethclient.Client
}

// NewClient prepares a client for the given endpoint. No connection is made
// here.
func NewClient(rpcURL string, networkID uint64) *Client {
	return &Client{
		rpcURL:  rpcURL,
		chainID: new(big.Int).SetUint64(networkID),
	}
}

// ChainID returns the EVM network id used for transaction signing.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *Client) conn(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		return c.eth, nil
	}
	eth, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.rpcURL, err)
	}
	c.eth = eth
	return c.eth, nil
}

// NativeBalance reads the wallet's native-asset balance.
func (c *Client) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.BalanceAt(ctx, owner, nil)
}

// SuggestGasPrice proxies the node's gas price oracle.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.SuggestGasPrice(ctx)
}

// SendSigned builds a transaction for the given call, has the signer sign it,
// and broadcasts it. Returns the transaction hash once the node accepts it.
func (c *Client) SendSigned(ctx context.Context, signer bridge.Signer, to common.Address, value *big.Int, data []byte) (string, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return "", err
	}

	from := signer.Address()
	nonce, err := eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch gas price: %w", err)
	}
	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      defaultGasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	})

	signed, err := signer.SignTx(ctx, tx, c.chainID)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("broadcast transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}
