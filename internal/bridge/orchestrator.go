package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/catenahq/bridge-backend/internal/chain"
)

// Orchestrator is the façade used by callers. It resolves providers through
// the registry, applies the default-target-chain policy, and wraps provider
// errors into coarse, caller-presentable ones. Only the taxonomy kinds in
// errors.go are part of the public contract; underlying causes are logged,
// never exposed.
type Orchestrator struct {
	registry *Registry
	home     chain.ID
	logger   *zap.SugaredLogger
}

// NewOrchestrator wires a registry and the wallet's home chain.
func NewOrchestrator(registry *Registry, home chain.ID, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		home:     home,
		logger:   logger,
	}
}

// DefaultTarget picks the "other side" for callers that omit a target chain:
// the home chain routes to Ethereum, everything else routes home. This keeps
// single-argument call sites ignorant of the routing table.
func (o *Orchestrator) DefaultTarget(source chain.ID) chain.ID {
	if source == o.home {
		return chain.Ethereum
	}
	return o.home
}

// Pairs returns the supported routes.
func (o *Orchestrator) Pairs() []ChainPair {
	return o.registry.Pairs()
}

func (o *Orchestrator) resolve(source, target chain.ID) (Provider, error) {
	if target == "" {
		target = o.DefaultTarget(source)
	}
	return o.registry.Resolve(source, target)
}

// Quote returns a fresh fee estimate for the transfer. Pass target "" to use
// the default-target policy.
func (o *Orchestrator) Quote(ctx context.Context, tokenAddress string, amount decimal.Decimal, source, target chain.ID) (FeeEstimate, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return FeeEstimate{}, err
	}
	fee, err := p.EstimateFee(ctx, tokenAddress, amount)
	if err != nil {
		return FeeEstimate{}, o.wrap("estimate bridge fee", p.Pair(), err)
	}
	return fee, nil
}

// Submit broadcasts the source-chain transfer and returns the pending
// transaction. Resubmission after failure must be an explicit caller action.
func (o *Orchestrator) Submit(ctx context.Context, tokenAddress string, amount decimal.Decimal, recipient string, source chain.ID, signer Signer, target chain.ID) (*Transaction, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return nil, err
	}
	tx, err := p.BridgeAsset(ctx, tokenAddress, amount, recipient, signer)
	if err != nil {
		return nil, o.wrap("submit bridge transfer", p.Pair(), err)
	}
	o.logger.Infow("Bridge transfer submitted",
		"id", tx.ID,
		"pair", p.Pair().String(),
		"token", tokenAddress,
		"amount", amount.String(),
		"recipient", recipient,
		"txHash", tx.TxHash,
	)
	return tx, nil
}

// Track re-queries the authoritative status of a transfer.
func (o *Orchestrator) Track(ctx context.Context, id string, source, target chain.ID) (*Transaction, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return nil, err
	}
	tx, err := p.TransactionStatus(ctx, id)
	if err != nil {
		return nil, o.wrap("fetch transfer status", p.Pair(), err)
	}
	return tx, nil
}

// History lists the wallet's transfers. With source "", every supported route
// is queried and the results merged newest-first; individual route failures
// are logged and skipped so one unreachable relayer does not blank the whole
// view.
func (o *Orchestrator) History(ctx context.Context, walletAddress string, source, target chain.ID) ([]*Transaction, error) {
	if source != "" {
		p, err := o.resolve(source, target)
		if err != nil {
			return nil, err
		}
		txs, err := p.TransactionHistory(ctx, walletAddress)
		if err != nil {
			return nil, o.wrap("fetch transaction history", p.Pair(), err)
		}
		sortNewestFirst(txs)
		return txs, nil
	}

	var (
		merged   []*Transaction
		failures int
		pairs    = o.registry.Pairs()
	)
	for _, pair := range pairs {
		p, err := o.registry.Resolve(pair.Source, pair.Target)
		if err != nil {
			continue
		}
		txs, err := p.TransactionHistory(ctx, walletAddress)
		if err != nil {
			failures++
			o.logger.Warnw("History fetch failed for route", "pair", pair.String(), "error", err)
			continue
		}
		merged = append(merged, txs...)
	}
	if failures == len(pairs) && len(pairs) > 0 {
		return nil, fmt.Errorf("fetch transaction history failed")
	}
	sortNewestFirst(merged)
	return merged, nil
}

// SupportedAssets enumerates bridgeable assets on the route.
func (o *Orchestrator) SupportedAssets(ctx context.Context, source, target chain.ID) ([]Asset, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return nil, err
	}
	assets, err := p.SupportedAssets(ctx)
	if err != nil {
		return nil, o.wrap("fetch supported assets", p.Pair(), err)
	}
	return assets, nil
}

// MappedToken resolves the target-chain counterpart of a source token.
func (o *Orchestrator) MappedToken(ctx context.Context, tokenAddress string, source, target chain.ID) (string, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return "", err
	}
	mapped, err := p.MappedToken(ctx, tokenAddress)
	if err != nil {
		return "", o.wrap("resolve mapped token", p.Pair(), err)
	}
	return mapped, nil
}

// TokenBalance reads a wallet's source-chain balance through the route's
// provider.
func (o *Orchestrator) TokenBalance(ctx context.Context, tokenAddress, walletAddress string, source, target chain.ID) (decimal.Decimal, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return decimal.Zero, err
	}
	bal, err := p.TokenBalance(ctx, tokenAddress, walletAddress)
	if err != nil {
		return decimal.Zero, o.wrap("fetch token balance", p.Pair(), err)
	}
	return bal, nil
}

// TokenAllowance reads the wallet's bridge allowance for a token.
func (o *Orchestrator) TokenAllowance(ctx context.Context, tokenAddress, walletAddress string, source, target chain.ID) (Allowance, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return Allowance{}, err
	}
	allowance, err := p.TokenAllowance(ctx, tokenAddress, walletAddress)
	if err != nil {
		return Allowance{}, o.wrap("fetch token allowance", p.Pair(), err)
	}
	return allowance, nil
}

// ApproveToken grants the route's bridge contract an allowance.
func (o *Orchestrator) ApproveToken(ctx context.Context, tokenAddress string, amount decimal.Decimal, source chain.ID, signer Signer, target chain.ID) (string, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return "", err
	}
	txHash, err := p.ApproveToken(ctx, tokenAddress, amount, signer)
	if err != nil {
		return "", o.wrap("approve token", p.Pair(), err)
	}
	return txHash, nil
}

// ListClaimable lists transfers on the given chain awaiting a second
// finalization transaction. Chains without a claim mechanism yield
// ClaimNotSupportedError.
func (o *Orchestrator) ListClaimable(ctx context.Context, walletAddress string, id chain.ID) ([]*Transaction, error) {
	p, err := o.resolve(id, "")
	if err != nil {
		return nil, err
	}
	switch cp := p.(type) {
	case WithdrawalCapability:
		txs, err := cp.ClaimableWithdrawals(ctx, walletAddress)
		if err != nil {
			return nil, o.wrap("fetch claimable withdrawals", p.Pair(), err)
		}
		return txs, nil
	case ExitCapability:
		txs, err := cp.ExitableTransactions(ctx, walletAddress)
		if err != nil {
			return nil, o.wrap("fetch exitable transactions", p.Pair(), err)
		}
		return txs, nil
	default:
		return nil, &ClaimNotSupportedError{Chain: id}
	}
}

// FinalizeClaim unifies withdrawal execution and exit behind one call,
// selecting the mechanism by the chain's provider capability. recipient is
// only consulted by exit-style bridges.
func (o *Orchestrator) FinalizeClaim(ctx context.Context, id chain.ID, transactionID, recipient string, signer Signer) (string, error) {
	p, err := o.resolve(id, "")
	if err != nil {
		return "", err
	}
	switch cp := p.(type) {
	case WithdrawalCapability:
		txHash, err := cp.ExecuteWithdrawal(ctx, transactionID, signer)
		if err != nil {
			return "", o.wrap("execute withdrawal", p.Pair(), err)
		}
		return txHash, nil
	case ExitCapability:
		txHash, err := cp.ExitTransaction(ctx, transactionID, recipient, signer)
		if err != nil {
			return "", o.wrap("exit transaction", p.Pair(), err)
		}
		return txHash, nil
	default:
		return "", &ClaimNotSupportedError{Chain: id}
	}
}

// Health probes the route's provider.
func (o *Orchestrator) Health(ctx context.Context, source, target chain.ID) (ProviderHealth, error) {
	p, err := o.resolve(source, target)
	if err != nil {
		return ProviderHealth{}, err
	}
	return p.Health(ctx), nil
}

// wrap reduces a provider error to its taxonomy kind. Known kinds pass
// through untouched; anything else is logged with its cause and replaced by a
// coarse operation-level error.
func (o *Orchestrator) wrap(op string, pair ChainPair, err error) error {
	if isTaxonomy(err) {
		o.logger.Debugw("Bridge operation rejected", "op", op, "pair", pair.String(), "error", err)
		return err
	}
	o.logger.Errorw("Bridge operation failed", "op", op, "pair", pair.String(), "error", err)
	return fmt.Errorf("%s failed", op)
}

func isTaxonomy(err error) bool {
	var (
		capErr   *CapabilityError
		claimErr *ClaimNotSupportedError
	)
	return errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrTokenMappingNotFound) ||
		errors.Is(err, ErrSubmissionFailed) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.As(err, &capErr) ||
		errors.As(err, &claimErr)
}

func sortNewestFirst(txs []*Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
}
