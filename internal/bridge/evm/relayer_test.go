package evm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayerClient_Fee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/fees", r.URL.Path)
		assert.Equal(t, "0x1111", r.URL.Query().Get("token"))
		assert.Equal(t, "1.5", r.URL.Query().Get("amount"))
		json.NewEncoder(w).Encode(relayerFee{
			BridgeFee:   "0.001",
			RelayerFee:  "0.002",
			GasEstimate: "0.0005",
		})
	}))
	defer srv.Close()

	client := NewRelayerClient(srv.URL, nil)
	fee, err := client.Fee(context.Background(), "0x1111", "1.5")
	require.NoError(t, err)
	assert.Equal(t, "0.001", fee.BridgeFee)
	assert.Equal(t, "0.002", fee.RelayerFee)
	assert.Equal(t, "0.0005", fee.GasEstimate)
}

func TestRelayerClient_MappedTokenNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no mapping"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewRelayerClient(srv.URL, nil)
	_, err := client.MappedToken(context.Background(), "0xdead")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "no mapping")
}

func TestRelayerClient_Register(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reg relayerRegistration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, "0xabc", reg.TxHash)
		assert.Equal(t, "catena", reg.SourceChain)
		assert.Equal(t, "1.5", reg.Amount)

		json.NewEncoder(w).Encode(relayerTransaction{
			ID:          "rel-1",
			SourceChain: reg.SourceChain,
			TargetChain: reg.TargetChain,
			Amount:      reg.Amount,
			TxHash:      reg.TxHash,
			Status:      "pending",
			Timestamp:   1700000000,
		})
	}))
	defer srv.Close()

	client := NewRelayerClient(srv.URL, nil)
	tx, err := client.Register(context.Background(), relayerRegistration{
		TxHash:      "0xabc",
		SourceChain: "catena",
		TargetChain: "ethereum",
		SourceToken: "0x1111",
		Amount:      "1.5",
		Sender:      "0xsender",
		Recipient:   "0xrecipient",
	})
	require.NoError(t, err)
	assert.Equal(t, "rel-1", tx.ID)
	assert.Equal(t, int64(1700000000), tx.Timestamp)
}

func TestRelayerClient_TransactionsStatusFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xwallet", r.URL.Query().Get("address"))
		assert.Equal(t, "claimable", r.URL.Query().Get("status"))
		json.NewEncoder(w).Encode(map[string]any{
			"transactions": []relayerTransaction{
				{ID: "w-1", Amount: "1", Status: "claimable"},
			},
		})
	}))
	defer srv.Close()

	client := NewRelayerClient(srv.URL, nil)
	txs, err := client.Transactions(context.Background(), "0xwallet", "claimable")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "w-1", txs[0].ID)
}

func TestRelayerClient_ClaimCalldata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/w-1/claim", r.URL.Path)
		assert.Equal(t, "0xrecipient", r.URL.Query().Get("recipient"))
		json.NewEncoder(w).Encode(relayerCalldata{
			To:   "0x000000000000000000000000000000000000beef",
			Data: "0xdeadbeef",
		})
	}))
	defer srv.Close()

	client := NewRelayerClient(srv.URL, nil)
	call, err := client.ClaimCalldata(context.Background(), "w-1", "0xrecipient")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", call.Data)
}

func TestRelayerClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		json.NewEncoder(w).Encode(relayerHealth{Healthy: true, Version: "1.4.2"})
	}))
	defer srv.Close()

	client := NewRelayerClient(srv.URL, nil)
	h, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Healthy)
	assert.Equal(t, "1.4.2", h.Version)
}

func TestRelayerClient_ServerErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "indexer catching up", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewRelayerClient(srv.URL, nil)
	_, err := client.Assets(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Contains(t, err.Error(), "indexer catching up")
}
