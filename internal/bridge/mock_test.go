package bridge

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/catenahq/bridge-backend/internal/chain"
)

// mockProvider is a scripted in-memory provider shared by the package tests.
// TransactionStatus walks statusSeq one entry per call and sticks on the last
// entry, which makes poll-loop progressions deterministic.
type mockProvider struct {
	pair ChainPair

	mu           sync.Mutex
	statusSeq    []Status
	statusIdx    int
	statusCalls  int
	statusErr    error
	statusTxHash string

	fee       FeeEstimate
	feeErr    error
	submitErr error
	history   []*Transaction

	submitted []*Transaction
}

var _ Provider = (*mockProvider)(nil)

func newMockProvider(pair ChainPair) *mockProvider {
	return &mockProvider{
		pair: pair,
		fee: FeeEstimate{
			BridgeFee:   decimal.RequireFromString("0.001"),
			RelayerFee:  decimal.RequireFromString("0.002"),
			GasEstimate: decimal.RequireFromString("0.0005"),
			TotalFee:    decimal.RequireFromString("0.0035"),
		},
	}
}

func (m *mockProvider) Pair() ChainPair { return m.pair }

func (m *mockProvider) SupportedAssets(context.Context) ([]Asset, error) {
	return []Asset{{
		SourceToken: TokenInfo{Address: "0x1111", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		TargetToken: TokenInfo{Address: "0x2222", Symbol: "USDC.e", Name: "Bridged USDC", Decimals: 6},
	}}, nil
}

func (m *mockProvider) MappedToken(_ context.Context, tokenAddress string) (string, error) {
	if tokenAddress == "0x1111" {
		return "0x2222", nil
	}
	return "", ErrTokenMappingNotFound
}

func (m *mockProvider) TokenBalance(context.Context, string, string) (decimal.Decimal, error) {
	return decimal.RequireFromString("42.5"), nil
}

func (m *mockProvider) TokenAllowance(context.Context, string, string) (Allowance, error) {
	return Allowance{Allowance: decimal.RequireFromString("100"), Approved: true}, nil
}

func (m *mockProvider) ApproveToken(context.Context, string, decimal.Decimal, Signer) (string, error) {
	return "0xapprove", nil
}

func (m *mockProvider) EstimateFee(context.Context, string, decimal.Decimal) (FeeEstimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.feeErr != nil {
		return FeeEstimate{}, m.feeErr
	}
	return m.fee, nil
}

func (m *mockProvider) BridgeAsset(_ context.Context, tokenAddress string, amount decimal.Decimal, recipient string, _ Signer) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	tx := &Transaction{
		ID:          "mock-tx-1",
		SourceChain: m.pair.Source,
		TargetChain: m.pair.Target,
		SourceToken: tokenAddress,
		Amount:      amount,
		Recipient:   recipient,
		TxHash:      "0xabc",
		Status:      StatusPending,
		Timestamp:   time.Now().Unix(),
	}
	m.submitted = append(m.submitted, tx)
	return tx, nil
}

func (m *mockProvider) TransactionStatus(_ context.Context, id string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	status := StatusPending
	if len(m.statusSeq) > 0 {
		status = m.statusSeq[m.statusIdx]
		if m.statusIdx < len(m.statusSeq)-1 {
			m.statusIdx++
		}
	}
	return &Transaction{
		ID:          id,
		SourceChain: m.pair.Source,
		TargetChain: m.pair.Target,
		TxHash:      m.statusTxHash,
		Status:      status,
	}, nil
}

func (m *mockProvider) TransactionHistory(context.Context, string) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history, nil
}

func (m *mockProvider) Health(context.Context) ProviderHealth {
	return ProviderHealth{Healthy: true, LastSuccess: time.Now()}
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

func (m *mockProvider) setStatusSeq(seq ...Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusSeq = seq
	m.statusIdx = 0
}

// mockRollupProvider adds the withdrawal capability.
type mockRollupProvider struct {
	*mockProvider

	mu        sync.Mutex
	executed  []string
	claimable []*Transaction
}

var _ WithdrawalCapability = (*mockRollupProvider)(nil)

func (m *mockRollupProvider) ExecuteWithdrawal(_ context.Context, withdrawalID string, _ Signer) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executed = append(m.executed, withdrawalID)
	return "0xclaim", nil
}

func (m *mockRollupProvider) ClaimableWithdrawals(context.Context, string) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimable, nil
}

// mockPlasmaProvider adds the exit capability.
type mockPlasmaProvider struct {
	*mockProvider

	mu        sync.Mutex
	exited    [][2]string // id, recipient
	exitables []*Transaction
}

var _ ExitCapability = (*mockPlasmaProvider)(nil)

func (m *mockPlasmaProvider) ExitTransaction(_ context.Context, id, recipient string, _ Signer) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exited = append(m.exited, [2]string{id, recipient})
	return "0xexit", nil
}

func (m *mockPlasmaProvider) ExitableTransactions(context.Context, string) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitables, nil
}

type mockSigner struct{}

func (mockSigner) Address() common.Address { return common.HexToAddress("0x00000000000000000000000000000000000000aa") }

func (mockSigner) SignTx(_ context.Context, tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	return tx, nil
}

// newTestOrchestrator builds the default six-route registry backed by mocks.
// Routes leaving Arbitrum get the withdrawal capability, routes leaving
// Polygon the exit capability, mirroring the production factory.
func newTestOrchestrator(t *testing.T) (*Orchestrator, map[ChainPair]*mockProvider) {
	t.Helper()

	mocks := make(map[ChainPair]*mockProvider, len(DefaultPairs))
	factory := func(pair ChainPair) (Provider, error) {
		base := newMockProvider(pair)
		mocks[pair] = base
		switch pair.Source {
		case chain.Arbitrum:
			return &mockRollupProvider{mockProvider: base}, nil
		case chain.Polygon:
			return &mockPlasmaProvider{mockProvider: base}, nil
		default:
			return base, nil
		}
	}

	registry, err := NewRegistry(DefaultPairs, factory)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return NewOrchestrator(registry, chain.Catena, testLogger()), mocks
}

func testLogger() *zap.SugaredLogger {
	logger, _ := zap.NewDevelopment()
	return logger.Sugar()
}
