package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// RelayerClient talks to a bridge route's relayer/indexer HTTP API: asset
// catalogues, token mappings, fee schedules, transfer registration, and
// status/history reads. The relayer is the authoritative view of a transfer's
// cross-chain progress.
type RelayerClient struct {
	baseURL string
	http    *http.Client
}

// NewRelayerClient wraps the relayer endpoint. A nil httpClient uses the
// default client.
func NewRelayerClient(baseURL string, httpClient *http.Client) *RelayerClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RelayerClient{baseURL: baseURL, http: httpClient}
}

// StatusError is a non-2xx relayer response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relayer returned %d: %s", e.Code, e.Body)
}

type relayerToken struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

type relayerAsset struct {
	SourceToken relayerToken `json:"sourceToken"`
	TargetToken relayerToken `json:"targetToken"`
}

type relayerFee struct {
	BridgeFee   string `json:"bridgeFee"`
	RelayerFee  string `json:"relayerFee"`
	GasEstimate string `json:"gasEstimate"`
}

type relayerTransaction struct {
	ID          string `json:"id"`
	SourceChain string `json:"sourceChain"`
	TargetChain string `json:"targetChain"`
	SourceToken string `json:"sourceToken"`
	TargetToken string `json:"targetToken"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
	TxHash      string `json:"txHash"`
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
}

type relayerRegistration struct {
	TxHash      string `json:"txHash"`
	SourceChain string `json:"sourceChain"`
	TargetChain string `json:"targetChain"`
	SourceToken string `json:"sourceToken"`
	Amount      string `json:"amount"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
}

// relayerCalldata is a prepared finalization call: destination contract plus
// hex-encoded input (proof data included by the relayer).
type relayerCalldata struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

type relayerHealth struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Assets lists bridgeable assets for this route.
func (c *RelayerClient) Assets(ctx context.Context) ([]relayerAsset, error) {
	resp, err := doJSON[struct {
		Assets []relayerAsset `json:"assets"`
	}](ctx, c, http.MethodGet, "/v1/assets", nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Assets, nil
}

// MappedToken resolves the target-chain counterpart of a source token.
func (c *RelayerClient) MappedToken(ctx context.Context, tokenAddress string) (string, error) {
	resp, err := doJSON[struct {
		Address string `json:"address"`
	}](ctx, c, http.MethodGet, "/v1/tokens/"+url.PathEscape(tokenAddress)+"/mapping", nil, nil)
	if err != nil {
		return "", err
	}
	return resp.Address, nil
}

// Fee fetches the fee schedule for a transfer of amount (decimal string).
func (c *RelayerClient) Fee(ctx context.Context, tokenAddress, amount string) (*relayerFee, error) {
	q := url.Values{}
	q.Set("token", tokenAddress)
	q.Set("amount", amount)
	return doJSON[relayerFee](ctx, c, http.MethodGet, "/v1/fees", q, nil)
}

// Register reports a broadcast source-chain transaction so the relayer can
// track it, returning the canonical transfer record.
func (c *RelayerClient) Register(ctx context.Context, reg relayerRegistration) (*relayerTransaction, error) {
	return doJSON[relayerTransaction](ctx, c, http.MethodPost, "/v1/transactions", nil, reg)
}

// Transaction fetches one transfer by id.
func (c *RelayerClient) Transaction(ctx context.Context, id string) (*relayerTransaction, error) {
	return doJSON[relayerTransaction](ctx, c, http.MethodGet, "/v1/transactions/"+url.PathEscape(id), nil, nil)
}

// Transactions lists a wallet's transfers, optionally filtered by status.
func (c *RelayerClient) Transactions(ctx context.Context, walletAddress, status string) ([]relayerTransaction, error) {
	q := url.Values{}
	q.Set("address", walletAddress)
	if status != "" {
		q.Set("status", status)
	}
	resp, err := doJSON[struct {
		Transactions []relayerTransaction `json:"transactions"`
	}](ctx, c, http.MethodGet, "/v1/transactions", q, nil)
	if err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// ClaimCalldata fetches the prepared finalization call for a claimable
// transfer. The relayer rejects transfers whose challenge period has not
// elapsed.
func (c *RelayerClient) ClaimCalldata(ctx context.Context, id, recipient string) (*relayerCalldata, error) {
	q := url.Values{}
	if recipient != "" {
		q.Set("recipient", recipient)
	}
	return doJSON[relayerCalldata](ctx, c, http.MethodGet, "/v1/transactions/"+url.PathEscape(id)+"/claim", q, nil)
}

// Health probes the relayer.
func (c *RelayerClient) Health(ctx context.Context) (*relayerHealth, error) {
	return doJSON[relayerHealth](ctx, c, http.MethodGet, "/v1/health", nil, nil)
}

func doJSON[T any](ctx context.Context, c *RelayerClient, method, path string, query url.Values, body any) (*T, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relayer request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var out T
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
