package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/catenahq/bridge-backend/internal/bridge"
	"github.com/catenahq/bridge-backend/internal/chain"
)

// Lock/deposit entrypoint shared by the Catena bridge contracts.
const bridgeABIJSON = `[
	{"inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"},{"name":"targetChainId","type":"uint256"}],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var bridgeABI = mustParseABI(bridgeABIJSON)

// Config describes one directional route.
type Config struct {
	Pair            bridge.ChainPair
	SourceNetworkID uint64
	TargetNetworkID uint64
	RPCURL          string
	RelayerURL      string
	BridgeContract  string
	Logger          *zap.SugaredLogger
	HTTPClient      *http.Client
}

// Provider is the lock-and-mint implementation of bridge.Provider backing
// every route: deposits lock on the source-chain bridge contract and the
// relayer mints on the target chain. Routes needing a second finalization
// step wrap this in RollupProvider or PlasmaProvider.
type Provider struct {
	pair       bridge.ChainPair
	client     *Client
	relayer    *RelayerClient
	bridgeAddr common.Address
	targetID   *big.Int
	logger     *zap.SugaredLogger
}

var _ bridge.Provider = (*Provider)(nil)

// NewProvider validates the route configuration. It performs no network I/O;
// both the RPC and relayer connections are first touched by operations.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("route %s: rpc url is required", cfg.Pair)
	}
	if cfg.RelayerURL == "" {
		return nil, fmt.Errorf("route %s: relayer url is required", cfg.Pair)
	}
	if !common.IsHexAddress(cfg.BridgeContract) {
		return nil, fmt.Errorf("route %s: invalid bridge contract address %q", cfg.Pair, cfg.BridgeContract)
	}
	return &Provider{
		pair:       cfg.Pair,
		client:     NewClient(cfg.RPCURL, cfg.SourceNetworkID),
		relayer:    NewRelayerClient(cfg.RelayerURL, cfg.HTTPClient),
		bridgeAddr: common.HexToAddress(cfg.BridgeContract),
		targetID:   new(big.Int).SetUint64(cfg.TargetNetworkID),
		logger:     cfg.Logger,
	}, nil
}

func (p *Provider) Pair() bridge.ChainPair { return p.pair }

func (p *Provider) SupportedAssets(ctx context.Context) ([]bridge.Asset, error) {
	raw, err := p.relayer.Assets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	assets := make([]bridge.Asset, 0, len(raw))
	for _, a := range raw {
		assets = append(assets, bridge.Asset{
			SourceToken: tokenInfo(a.SourceToken),
			TargetToken: tokenInfo(a.TargetToken),
		})
	}
	return assets, nil
}

func (p *Provider) MappedToken(ctx context.Context, tokenAddress string) (string, error) {
	mapped, err := p.relayer.MappedToken(ctx, tokenAddress)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s on %s", bridge.ErrTokenMappingNotFound, tokenAddress, p.pair.Source)
		}
		return "", fmt.Errorf("resolve mapping: %w", err)
	}
	return mapped, nil
}

func (p *Provider) TokenBalance(ctx context.Context, tokenAddress, walletAddress string) (decimal.Decimal, error) {
	token, err := parseAddress(tokenAddress)
	if err != nil {
		return decimal.Zero, err
	}
	owner, err := parseAddress(walletAddress)
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := p.client.TokenBalance(ctx, token, owner)
	if err != nil {
		return decimal.Zero, err
	}
	decimals, err := p.tokenDecimals(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(raw, -decimals), nil
}

func (p *Provider) TokenAllowance(ctx context.Context, tokenAddress, walletAddress string) (bridge.Allowance, error) {
	token, err := parseAddress(tokenAddress)
	if err != nil {
		return bridge.Allowance{}, err
	}
	owner, err := parseAddress(walletAddress)
	if err != nil {
		return bridge.Allowance{}, err
	}
	raw, err := p.client.TokenAllowance(ctx, token, owner, p.bridgeAddr)
	if err != nil {
		return bridge.Allowance{}, err
	}
	decimals, err := p.tokenDecimals(ctx, token)
	if err != nil {
		return bridge.Allowance{}, err
	}
	allowance := decimal.NewFromBigInt(raw, -decimals)
	return bridge.Allowance{
		Allowance: allowance,
		Approved:  raw.Sign() > 0,
	}, nil
}

func (p *Provider) ApproveToken(ctx context.Context, tokenAddress string, amount decimal.Decimal, signer bridge.Signer) (string, error) {
	token, err := parseAddress(tokenAddress)
	if err != nil {
		return "", err
	}
	decimals, err := p.tokenDecimals(ctx, token)
	if err != nil {
		return "", err
	}
	data, err := ApproveCalldata(p.bridgeAddr, toSmallestUnit(amount, decimals))
	if err != nil {
		return "", fmt.Errorf("encode approve: %w", err)
	}
	txHash, err := p.client.SendSigned(ctx, signer, token, nil, data)
	if err != nil {
		return "", fmt.Errorf("%w: approve: %v", bridge.ErrSubmissionFailed, err)
	}
	p.logger.Infow("Token approval submitted", "pair", p.pair.String(), "token", tokenAddress, "txHash", txHash)
	return txHash, nil
}

func (p *Provider) EstimateFee(ctx context.Context, tokenAddress string, amount decimal.Decimal) (bridge.FeeEstimate, error) {
	raw, err := p.relayer.Fee(ctx, tokenAddress, amount.String())
	if err != nil {
		return bridge.FeeEstimate{}, fmt.Errorf("fetch fee schedule: %w", err)
	}
	bridgeFee, err := decimal.NewFromString(raw.BridgeFee)
	if err != nil {
		return bridge.FeeEstimate{}, fmt.Errorf("parse bridge fee %q: %w", raw.BridgeFee, err)
	}
	relayerFee, err := decimal.NewFromString(raw.RelayerFee)
	if err != nil {
		return bridge.FeeEstimate{}, fmt.Errorf("parse relayer fee %q: %w", raw.RelayerFee, err)
	}
	gasEstimate, err := decimal.NewFromString(raw.GasEstimate)
	if err != nil {
		return bridge.FeeEstimate{}, fmt.Errorf("parse gas estimate %q: %w", raw.GasEstimate, err)
	}
	return bridge.FeeEstimate{
		BridgeFee:   bridgeFee,
		RelayerFee:  relayerFee,
		GasEstimate: gasEstimate,
		TotalFee:    bridgeFee.Add(relayerFee).Add(gasEstimate),
	}, nil
}

func (p *Provider) BridgeAsset(ctx context.Context, tokenAddress string, amount decimal.Decimal, recipient string, signer bridge.Signer) (*bridge.Transaction, error) {
	token, err := parseAddress(tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bridge.ErrSubmissionFailed, err)
	}
	to, err := parseAddress(recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bridge.ErrSubmissionFailed, err)
	}
	decimals, err := p.tokenDecimals(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bridge.ErrSubmissionFailed, err)
	}

	data, err := bridgeABI.Pack("deposit", token, toSmallestUnit(amount, decimals), to, p.targetID)
	if err != nil {
		return nil, fmt.Errorf("%w: encode deposit: %v", bridge.ErrSubmissionFailed, err)
	}
	txHash, err := p.client.SendSigned(ctx, signer, p.bridgeAddr, nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bridge.ErrSubmissionFailed, err)
	}

	tx := &bridge.Transaction{
		ID:          uuid.NewString(),
		SourceChain: p.pair.Source,
		TargetChain: p.pair.Target,
		SourceToken: tokenAddress,
		Amount:      amount,
		Recipient:   recipient,
		TxHash:      txHash,
		Status:      bridge.StatusPending,
		Timestamp:   time.Now().Unix(),
	}

	// The deposit is on-chain either way; a failed registration only means
	// tracking falls back to the tx hash until the relayer picks the event
	// up on its own.
	reg, err := p.relayer.Register(ctx, relayerRegistration{
		TxHash:      txHash,
		SourceChain: string(p.pair.Source),
		TargetChain: string(p.pair.Target),
		SourceToken: tokenAddress,
		Amount:      amount.String(),
		Sender:      signer.Address().Hex(),
		Recipient:   recipient,
	})
	if err != nil {
		p.logger.Warnw("Relayer registration failed; tracking by tx hash", "pair", p.pair.String(), "txHash", txHash, "error", err)
		return tx, nil
	}
	tx.ID = reg.ID
	tx.TargetToken = reg.TargetToken
	if reg.Timestamp > 0 {
		tx.Timestamp = reg.Timestamp
	}
	return tx, nil
}

func (p *Provider) TransactionStatus(ctx context.Context, id string) (*bridge.Transaction, error) {
	raw, err := p.relayer.Transaction(ctx, id)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", bridge.ErrTransactionNotFound, id)
		}
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return p.toTransaction(raw)
}

func (p *Provider) TransactionHistory(ctx context.Context, walletAddress string) ([]*bridge.Transaction, error) {
	raw, err := p.relayer.Transactions(ctx, walletAddress, "")
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return p.toTransactions(raw)
}

func (p *Provider) Health(ctx context.Context) bridge.ProviderHealth {
	h, err := p.relayer.Health(ctx)
	if err != nil {
		return bridge.ProviderHealth{Healthy: false, LastError: err.Error()}
	}
	out := bridge.ProviderHealth{Healthy: h.Healthy, LastError: h.Error}
	if h.Healthy {
		out.LastSuccess = time.Now()
	}
	return out
}

func (p *Provider) tokenDecimals(ctx context.Context, token common.Address) (int32, error) {
	decimals, err := p.client.TokenDecimals(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("read token decimals: %w", err)
	}
	return decimals, nil
}

func (p *Provider) toTransaction(raw *relayerTransaction) (*bridge.Transaction, error) {
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", raw.Amount, err)
	}
	return &bridge.Transaction{
		ID:          raw.ID,
		SourceChain: chain.ID(raw.SourceChain),
		TargetChain: chain.ID(raw.TargetChain),
		SourceToken: raw.SourceToken,
		TargetToken: raw.TargetToken,
		Amount:      amount,
		Recipient:   raw.Recipient,
		TxHash:      raw.TxHash,
		Status:      statusFromRelayer(raw.Status),
		Timestamp:   raw.Timestamp,
	}, nil
}

func (p *Provider) toTransactions(raw []relayerTransaction) ([]*bridge.Transaction, error) {
	out := make([]*bridge.Transaction, 0, len(raw))
	for i := range raw {
		tx, err := p.toTransaction(&raw[i])
		if err != nil {
			p.logger.Warnw("Skipping malformed relayer record", "id", raw[i].ID, "error", err)
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// statusFromRelayer maps the relayer's status vocabulary onto the bridge
// state machine. Anything unrecognized is StatusUnknown: non-terminal, kept
// polling, never shown as progress.
func statusFromRelayer(s string) bridge.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return bridge.StatusPending
	case "processing", "relaying", "attesting":
		return bridge.StatusProcessing
	case "claimable", "exitable":
		return bridge.StatusClaimable
	case "completed":
		return bridge.StatusCompleted
	case "failed":
		return bridge.StatusFailed
	case "canceled", "cancelled":
		return bridge.StatusCanceled
	default:
		return bridge.StatusUnknown
	}
}

func tokenInfo(t relayerToken) bridge.TokenInfo {
	return bridge.TokenInfo{
		Address:  t.Address,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: t.Decimals,
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func toSmallestUnit(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}
