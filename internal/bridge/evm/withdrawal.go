package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/catenahq/bridge-backend/internal/bridge"
)

// RollupProvider serves routes leaving an optimistic rollup. Withdrawals sit
// in a challenge period after processing; once the relayer reports them
// claimable, a second user-signed execution releases the funds on the target
// chain.
type RollupProvider struct {
	*Provider
}

var (
	_ bridge.Provider             = (*RollupProvider)(nil)
	_ bridge.WithdrawalCapability = (*RollupProvider)(nil)
)

func NewRollupProvider(cfg Config) (*RollupProvider, error) {
	base, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &RollupProvider{Provider: base}, nil
}

// ExecuteWithdrawal finalizes a claimable withdrawal using the proof calldata
// prepared by the relayer.
func (p *RollupProvider) ExecuteWithdrawal(ctx context.Context, withdrawalID string, signer bridge.Signer) (string, error) {
	call, err := p.relayer.ClaimCalldata(ctx, withdrawalID, "")
	if err != nil {
		return "", fmt.Errorf("fetch withdrawal calldata: %w", err)
	}
	to, err := parseAddress(call.To)
	if err != nil {
		return "", fmt.Errorf("withdrawal target: %w", err)
	}
	data, err := hexutil.Decode(call.Data)
	if err != nil {
		return "", fmt.Errorf("decode withdrawal calldata: %w", err)
	}
	txHash, err := p.client.SendSigned(ctx, signer, to, nil, data)
	if err != nil {
		return "", fmt.Errorf("%w: execute withdrawal: %v", bridge.ErrSubmissionFailed, err)
	}
	p.logger.Infow("Withdrawal execution submitted", "pair", p.pair.String(), "withdrawalId", withdrawalID, "txHash", txHash)
	return txHash, nil
}

// ClaimableWithdrawals lists the wallet's withdrawals awaiting execution.
func (p *RollupProvider) ClaimableWithdrawals(ctx context.Context, walletAddress string) ([]*bridge.Transaction, error) {
	raw, err := p.relayer.Transactions(ctx, walletAddress, "claimable")
	if err != nil {
		return nil, fmt.Errorf("fetch claimable withdrawals: %w", err)
	}
	return p.toTransactions(raw)
}
