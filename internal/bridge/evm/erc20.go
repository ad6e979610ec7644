package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal ERC20 surface: just the calls the bridge needs.
const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("parse ABI: %v", err))
	}
	return parsed
}

func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// TokenBalance reads balanceOf(owner) on the token contract.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := c.call(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	return unpackUint256(erc20ABI, "balanceOf", out)
}

// TokenAllowance reads allowance(owner, spender) on the token contract.
func (c *Client) TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}
	out, err := c.call(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("call allowance: %w", err)
	}
	return unpackUint256(erc20ABI, "allowance", out)
}

// TokenDecimals reads the token's decimals.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (int32, error) {
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}
	out, err := c.call(ctx, token, data)
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}
	vals, err := erc20ABI.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	dec, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", vals[0])
	}
	return int32(dec), nil
}

// ApproveCalldata encodes approve(spender, amount).
func ApproveCalldata(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}

func unpackUint256(parsed abi.ABI, method string, out []byte) (*big.Int, error) {
	vals, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s type %T", method, vals[0])
	}
	return v, nil
}
