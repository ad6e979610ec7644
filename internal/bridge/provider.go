package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// Signer is the opaque signing capability supplied by the caller. The bridge
// only invokes it; it never inspects or persists key material.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Provider encapsulates the mechanics of moving an asset across one ordered
// chain pair. A provider is directional: (A,B) and (B,A) are separate
// instances even when they share plumbing.
//
// Every method is a potential network boundary. Constructors must not touch
// the network; connections are established lazily on first use so the
// registry can build eagerly at startup.
type Provider interface {
	// Pair returns the route this provider serves.
	Pair() ChainPair

	// SupportedAssets enumerates bridgeable assets on the source chain.
	// Side-effect-free network read.
	SupportedAssets(ctx context.Context) ([]Asset, error)

	// MappedToken resolves the wrapped/mirrored token address on the target
	// chain. Returns ErrTokenMappingNotFound when no counterpart exists.
	MappedToken(ctx context.Context, tokenAddress string) (string, error)

	// TokenBalance reads the wallet's balance of a source-chain token.
	TokenBalance(ctx context.Context, tokenAddress, walletAddress string) (decimal.Decimal, error)

	// TokenAllowance reads the wallet's allowance toward the bridge contract.
	TokenAllowance(ctx context.Context, tokenAddress, walletAddress string) (Allowance, error)

	// ApproveToken grants the bridge contract an allowance. Idempotent from
	// the caller's perspective; repeated calls simply re-approve.
	ApproveToken(ctx context.Context, tokenAddress string, amount decimal.Decimal, signer Signer) (string, error)

	// EstimateFee computes a fresh fee breakdown for the transfer.
	EstimateFee(ctx context.Context, tokenAddress string, amount decimal.Decimal) (FeeEstimate, error)

	// BridgeAsset submits the source-chain lock/burn transaction and returns
	// the transfer in StatusPending with TxHash populated. Fails with
	// ErrSubmissionFailed on signer rejection or RPC error.
	BridgeAsset(ctx context.Context, tokenAddress string, amount decimal.Decimal, recipient string, signer Signer) (*Transaction, error)

	// TransactionStatus re-queries the authoritative transfer state and
	// returns a fresh snapshot. Safe to call repeatedly; no on-chain side
	// effects.
	TransactionStatus(ctx context.Context, id string) (*Transaction, error)

	// TransactionHistory lists the wallet's transfers on this route.
	TransactionHistory(ctx context.Context, walletAddress string) ([]*Transaction, error)

	// Health probes provider liveness, independent of any transaction.
	Health(ctx context.Context) ProviderHealth
}

// WithdrawalCapability is implemented by providers for optimistic-rollup
// routes whose withdrawals need an explicit execution once the challenge
// period has elapsed. Dispatch is by interface satisfaction, never by
// probing method presence at call time.
type WithdrawalCapability interface {
	// ExecuteWithdrawal finalizes a claimable rollup withdrawal.
	ExecuteWithdrawal(ctx context.Context, withdrawalID string, signer Signer) (string, error)

	// ClaimableWithdrawals lists withdrawals awaiting execution.
	ClaimableWithdrawals(ctx context.Context, walletAddress string) ([]*Transaction, error)
}

// ExitCapability is implemented by providers for plasma/checkpoint routes
// that finalize withdrawals with an exit transaction.
type ExitCapability interface {
	// ExitTransaction finalizes a checkpointed exit.
	ExitTransaction(ctx context.Context, id, recipient string, signer Signer) (string, error)

	// ExitableTransactions lists transfers eligible for exit.
	ExitableTransactions(ctx context.Context, walletAddress string) ([]*Transaction, error)
}
