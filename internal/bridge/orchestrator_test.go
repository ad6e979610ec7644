package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catenahq/bridge-backend/internal/chain"
)

func TestOrchestrator_DefaultTarget(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	assert.Equal(t, chain.Ethereum, orch.DefaultTarget(chain.Catena))
	assert.Equal(t, chain.Catena, orch.DefaultTarget(chain.Ethereum))
	assert.Equal(t, chain.Catena, orch.DefaultTarget(chain.Polygon))
	assert.Equal(t, chain.Catena, orch.DefaultTarget(chain.Arbitrum))
}

func TestOrchestrator_QuoteUsesDefaultTarget(t *testing.T) {
	orch, mocks := newTestOrchestrator(t)
	amount := decimal.RequireFromString("1.5")

	explicit, err := orch.Quote(context.Background(), "0x1111", amount, chain.Catena, chain.Ethereum)
	require.NoError(t, err)

	defaulted, err := orch.Quote(context.Background(), "0x1111", amount, chain.Catena, "")
	require.NoError(t, err)

	assert.Equal(t, explicit, defaulted)
	assert.True(t, defaulted.TotalFee.Equal(mocks[ChainPair{Source: chain.Catena, Target: chain.Ethereum}].fee.TotalFee))
}

func TestOrchestrator_QuoteUnknownRoute(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.Quote(context.Background(), "0x1111", decimal.NewFromInt(1), chain.Ethereum, chain.Polygon)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestOrchestrator_SubmitRoutesToPairProvider(t *testing.T) {
	orch, mocks := newTestOrchestrator(t)
	amount := decimal.RequireFromString("1.5")

	tx, err := orch.Submit(context.Background(), "0x1111", amount, "0xrecipient", chain.Ethereum, mockSigner{}, "")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, tx.Status)
	assert.Equal(t, chain.Ethereum, tx.SourceChain)
	assert.Equal(t, chain.Catena, tx.TargetChain)
	assert.Equal(t, "0xabc", tx.TxHash)
	assert.True(t, tx.Amount.Equal(amount))

	submitted := mocks[ChainPair{Source: chain.Ethereum, Target: chain.Catena}].submitted
	require.Len(t, submitted, 1)
	assert.Equal(t, tx.ID, submitted[0].ID)
}

func TestOrchestrator_WrapPassesTaxonomyThrough(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.MappedToken(context.Background(), "0xdead", chain.Catena, chain.Ethereum)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenMappingNotFound)
}

func TestOrchestrator_WrapHidesUnderlyingCause(t *testing.T) {
	orch, mocks := newTestOrchestrator(t)
	m := mocks[ChainPair{Source: chain.Catena, Target: chain.Ethereum}]
	m.feeErr = errors.New("rpc: connection refused to 10.0.0.5:8545")

	_, err := orch.Quote(context.Background(), "0x1111", decimal.NewFromInt(1), chain.Catena, chain.Ethereum)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "10.0.0.5")
	assert.Contains(t, err.Error(), "estimate bridge fee failed")
}

func TestOrchestrator_HistoryMergesRoutesNewestFirst(t *testing.T) {
	orch, mocks := newTestOrchestrator(t)

	mocks[ChainPair{Source: chain.Catena, Target: chain.Ethereum}].history = []*Transaction{
		{ID: "old", Status: StatusCompleted, Timestamp: 100},
	}
	mocks[ChainPair{Source: chain.Polygon, Target: chain.Catena}].history = []*Transaction{
		{ID: "new", Status: StatusPending, Timestamp: 300},
		{ID: "mid", Status: StatusProcessing, Timestamp: 200},
	}

	txs, err := orch.History(context.Background(), "0xwallet", "", "")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "new", txs[0].ID)
	assert.Equal(t, "mid", txs[1].ID)
	assert.Equal(t, "old", txs[2].ID)
}

func TestOrchestrator_HistorySingleRoute(t *testing.T) {
	orch, mocks := newTestOrchestrator(t)
	mocks[ChainPair{Source: chain.Ethereum, Target: chain.Catena}].history = []*Transaction{
		{ID: "a", Timestamp: 1},
		{ID: "b", Timestamp: 2},
	}

	txs, err := orch.History(context.Background(), "0xwallet", chain.Ethereum, chain.Catena)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "b", txs[0].ID)
}

func TestOrchestrator_ListClaimable_Withdrawal(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	pair := ChainPair{Source: chain.Arbitrum, Target: chain.Catena}

	p, err := orch.registry.Resolve(pair.Source, pair.Target)
	require.NoError(t, err)
	rollup := p.(*mockRollupProvider)
	rollup.claimable = []*Transaction{{ID: "w-1", Status: StatusClaimable}}

	txs, err := orch.ListClaimable(context.Background(), "0xwallet", chain.Arbitrum)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "w-1", txs[0].ID)
}

func TestOrchestrator_ListClaimable_Exit(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	p, err := orch.registry.Resolve(chain.Polygon, chain.Catena)
	require.NoError(t, err)
	plasma := p.(*mockPlasmaProvider)
	plasma.exitables = []*Transaction{{ID: "e-1", Status: StatusClaimable}}

	txs, err := orch.ListClaimable(context.Background(), "0xwallet", chain.Polygon)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "e-1", txs[0].ID)
}

func TestOrchestrator_ListClaimable_Unsupported(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.ListClaimable(context.Background(), "0xwallet", chain.Ethereum)
	require.Error(t, err)

	var claimErr *ClaimNotSupportedError
	require.ErrorAs(t, err, &claimErr)
	assert.Equal(t, chain.Ethereum, claimErr.Chain)
}

func TestOrchestrator_FinalizeClaim_DispatchesByCapability(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	p, err := orch.registry.Resolve(chain.Arbitrum, chain.Catena)
	require.NoError(t, err)
	rollup := p.(*mockRollupProvider)

	txHash, err := orch.FinalizeClaim(context.Background(), chain.Arbitrum, "w-1", "0xrecipient", mockSigner{})
	require.NoError(t, err)
	assert.Equal(t, "0xclaim", txHash)
	assert.Equal(t, []string{"w-1"}, rollup.executed)

	p, err = orch.registry.Resolve(chain.Polygon, chain.Catena)
	require.NoError(t, err)
	plasma := p.(*mockPlasmaProvider)

	txHash, err = orch.FinalizeClaim(context.Background(), chain.Polygon, "e-1", "0xrecipient", mockSigner{})
	require.NoError(t, err)
	assert.Equal(t, "0xexit", txHash)
	require.Len(t, plasma.exited, 1)
	assert.Equal(t, [2]string{"e-1", "0xrecipient"}, plasma.exited[0])
}

func TestOrchestrator_FinalizeClaim_Unsupported(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.FinalizeClaim(context.Background(), chain.Catena, "tx-1", "0xrecipient", mockSigner{})
	require.Error(t, err)

	var claimErr *ClaimNotSupportedError
	assert.ErrorAs(t, err, &claimErr)
}

func TestOrchestrator_Health(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	health, err := orch.Health(context.Background(), chain.Catena, chain.Ethereum)
	require.NoError(t, err)
	assert.True(t, health.Healthy)
	assert.WithinDuration(t, time.Now(), health.LastSuccess, time.Minute)
}
