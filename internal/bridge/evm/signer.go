package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/catenahq/bridge-backend/internal/bridge"
)

// KeySigner signs with a raw private key. Used by the service wallet and by
// tests; wallet-extension callers supply their own bridge.Signer instead.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

var _ bridge.Signer = (*KeySigner)(nil)

// NewKeySigner parses a hex private key (with or without 0x prefix).
func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	return &KeySigner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.addr
}

func (s *KeySigner) SignTx(_ context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}
