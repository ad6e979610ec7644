package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/catenahq/bridge-backend/internal/bridge"
)

// PlasmaProvider serves routes leaving a plasma/checkpoint chain. After the
// relayer observes the burn inside a checkpoint, the transfer becomes
// exitable and a user-signed exit transaction finalizes receipt.
type PlasmaProvider struct {
	*Provider
}

var (
	_ bridge.Provider       = (*PlasmaProvider)(nil)
	_ bridge.ExitCapability = (*PlasmaProvider)(nil)
)

func NewPlasmaProvider(cfg Config) (*PlasmaProvider, error) {
	base, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &PlasmaProvider{Provider: base}, nil
}

// ExitTransaction finalizes a checkpointed exit for the transfer, paying out
// to recipient.
func (p *PlasmaProvider) ExitTransaction(ctx context.Context, id, recipient string, signer bridge.Signer) (string, error) {
	call, err := p.relayer.ClaimCalldata(ctx, id, recipient)
	if err != nil {
		return "", fmt.Errorf("fetch exit calldata: %w", err)
	}
	to, err := parseAddress(call.To)
	if err != nil {
		return "", fmt.Errorf("exit target: %w", err)
	}
	data, err := hexutil.Decode(call.Data)
	if err != nil {
		return "", fmt.Errorf("decode exit calldata: %w", err)
	}
	txHash, err := p.client.SendSigned(ctx, signer, to, nil, data)
	if err != nil {
		return "", fmt.Errorf("%w: exit transaction: %v", bridge.ErrSubmissionFailed, err)
	}
	p.logger.Infow("Exit transaction submitted", "pair", p.pair.String(), "id", id, "txHash", txHash)
	return txHash, nil
}

// ExitableTransactions lists the wallet's transfers eligible for exit.
func (p *PlasmaProvider) ExitableTransactions(ctx context.Context, walletAddress string) ([]*bridge.Transaction, error) {
	raw, err := p.relayer.Transactions(ctx, walletAddress, "exitable")
	if err != nil {
		return nil, fmt.Errorf("fetch exitable transactions: %w", err)
	}
	return p.toTransactions(raw)
}
