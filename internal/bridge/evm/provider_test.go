package evm

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catenahq/bridge-backend/internal/bridge"
	"github.com/catenahq/bridge-backend/internal/chain"
)

const testBridgeContract = "0x000000000000000000000000000000000000b01d"

func testConfig(relayerURL string) Config {
	logger, _ := zap.NewDevelopment()
	return Config{
		Pair:            bridge.ChainPair{Source: chain.Catena, Target: chain.Ethereum},
		SourceNetworkID: 9100,
		TargetNetworkID: 1,
		RPCURL:          "http://127.0.0.1:8545",
		RelayerURL:      relayerURL,
		BridgeContract:  testBridgeContract,
		Logger:          logger.Sugar(),
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)
	return p
}

func TestNewProvider_Validation(t *testing.T) {
	cfg := testConfig("http://relayer.local")

	bad := cfg
	bad.RPCURL = ""
	_, err := NewProvider(bad)
	assert.ErrorContains(t, err, "rpc url")

	bad = cfg
	bad.RelayerURL = ""
	_, err = NewProvider(bad)
	assert.ErrorContains(t, err, "relayer url")

	bad = cfg
	bad.BridgeContract = "not-an-address"
	_, err = NewProvider(bad)
	assert.ErrorContains(t, err, "bridge contract")
}

func TestProvider_Capabilities(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	base, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)
	rollup, err := NewRollupProvider(testConfig(srv.URL))
	require.NoError(t, err)
	plasma, err := NewPlasmaProvider(testConfig(srv.URL))
	require.NoError(t, err)

	var p bridge.Provider = base
	_, isWithdrawal := p.(bridge.WithdrawalCapability)
	_, isExit := p.(bridge.ExitCapability)
	assert.False(t, isWithdrawal, "plain lock-and-mint routes have no claim step")
	assert.False(t, isExit)

	p = rollup
	_, isWithdrawal = p.(bridge.WithdrawalCapability)
	_, isExit = p.(bridge.ExitCapability)
	assert.True(t, isWithdrawal)
	assert.False(t, isExit)

	p = plasma
	_, isWithdrawal = p.(bridge.WithdrawalCapability)
	_, isExit = p.(bridge.ExitCapability)
	assert.False(t, isWithdrawal)
	assert.True(t, isExit)
}

func TestProvider_MappedToken(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/tokens/0x1111/mapping" {
			json.NewEncoder(w).Encode(map[string]string{"address": "0x2222"})
			return
		}
		http.NotFound(w, r)
	})

	mapped, err := p.MappedToken(context.Background(), "0x1111")
	require.NoError(t, err)
	assert.Equal(t, "0x2222", mapped)

	_, err = p.MappedToken(context.Background(), "0xdead")
	require.Error(t, err)
	assert.ErrorIs(t, err, bridge.ErrTokenMappingNotFound)
}

func TestProvider_EstimateFee(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(relayerFee{
			BridgeFee:   "0.001",
			RelayerFee:  "0.002",
			GasEstimate: "0.0005",
		})
	})

	fee, err := p.EstimateFee(context.Background(), "0x1111", decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.True(t, fee.TotalFee.Equal(decimal.RequireFromString("0.0035")), "total %s", fee.TotalFee)
}

func TestProvider_EstimateFeeMalformed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(relayerFee{BridgeFee: "n/a", RelayerFee: "0", GasEstimate: "0"})
	})

	_, err := p.EstimateFee(context.Background(), "0x1111", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse bridge fee")
}

func TestProvider_TransactionStatus(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/transactions/rel-1":
			json.NewEncoder(w).Encode(relayerTransaction{
				ID:          "rel-1",
				SourceChain: "catena",
				TargetChain: "ethereum",
				Amount:      "1.5",
				TxHash:      "0xabc",
				Status:      "relaying",
				Timestamp:   1700000000,
			})
		default:
			http.NotFound(w, r)
		}
	})

	tx, err := p.TransactionStatus(context.Background(), "rel-1")
	require.NoError(t, err)
	assert.Equal(t, bridge.StatusProcessing, tx.Status)
	assert.Equal(t, chain.Catena, tx.SourceChain)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("1.5")))

	_, err = p.TransactionStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, bridge.ErrTransactionNotFound)
}

func TestProvider_TransactionHistorySkipsMalformed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"transactions": []relayerTransaction{
				{ID: "ok", Amount: "2", Status: "completed"},
				{ID: "broken", Amount: "not-a-number", Status: "completed"},
			},
		})
	})

	txs, err := p.TransactionHistory(context.Background(), "0xwallet")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "ok", txs[0].ID)
}

func TestProvider_SupportedAssets(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"assets": []relayerAsset{{
				SourceToken: relayerToken{Address: "0x1111", Symbol: "USDC", Decimals: 6},
				TargetToken: relayerToken{Address: "0x2222", Symbol: "USDC.e", Decimals: 6},
			}},
		})
	})

	assets, err := p.SupportedAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "USDC", assets[0].SourceToken.Symbol)
	assert.Equal(t, "USDC.e", assets[0].TargetToken.Symbol)
	assert.Equal(t, int32(6), assets[0].TargetToken.Decimals)
}

func TestProvider_Health(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(relayerHealth{Healthy: true})
	})

	h := p.Health(context.Background())
	assert.True(t, h.Healthy)
	assert.False(t, h.LastSuccess.IsZero())
}

func TestProvider_HealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	p, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)
	srv.Close()

	h := p.Health(context.Background())
	assert.False(t, h.Healthy)
	assert.NotEmpty(t, h.LastError)
	assert.True(t, h.LastSuccess.IsZero())
}

func TestStatusFromRelayer(t *testing.T) {
	cases := map[string]bridge.Status{
		"pending":    bridge.StatusPending,
		"processing": bridge.StatusProcessing,
		"relaying":   bridge.StatusProcessing,
		"attesting":  bridge.StatusProcessing,
		"claimable":  bridge.StatusClaimable,
		"exitable":   bridge.StatusClaimable,
		"completed":  bridge.StatusCompleted,
		"failed":     bridge.StatusFailed,
		"canceled":   bridge.StatusCanceled,
		"cancelled":  bridge.StatusCanceled,
		"COMPLETED":  bridge.StatusCompleted,
		" pending ":  bridge.StatusPending,
		"reorged":    bridge.StatusUnknown,
		"":           bridge.StatusUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, statusFromRelayer(in), "%q", in)
	}
}

func TestToSmallestUnit(t *testing.T) {
	assert.Equal(t, big.NewInt(1_500_000), toSmallestUnit(decimal.RequireFromString("1.5"), 6))
	assert.Equal(t, big.NewInt(1), toSmallestUnit(decimal.RequireFromString("0.000001"), 6))
	// Sub-smallest-unit dust is truncated, never rounded up.
	assert.Equal(t, big.NewInt(1_500_000), toSmallestUnit(decimal.RequireFromString("1.5000009"), 6))
}

func TestParseAddress(t *testing.T) {
	_, err := parseAddress(testBridgeContract)
	require.NoError(t, err)

	_, err = parseAddress("0xzz")
	assert.Error(t, err)
}
