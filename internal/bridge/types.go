package bridge

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/catenahq/bridge-backend/internal/chain"
)

// Status is the provider-driven lifecycle state of a bridge transaction.
// The client only observes transitions; it never advances a status itself.
type Status string

const (
	// StatusUnknown is the defensive default when a provider cannot classify
	// the current state. Non-terminal, eligible for continued polling, but
	// never shown to the user as progress.
	StatusUnknown Status = "unknown"
	// StatusPending means the source-chain transaction has been broadcast but
	// not yet confirmed.
	StatusPending Status = "pending"
	// StatusProcessing means the source-chain transaction is confirmed and the
	// cross-chain relay/attestation is in flight.
	StatusProcessing Status = "processing"
	// StatusClaimable means funds are provably available on the target chain
	// but need a second user-signed transaction to release.
	StatusClaimable Status = "claimable"

	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// rank orders statuses for the most-advanced-status-wins policy.
// Transitions never move backward; a regressive snapshot is a provider defect.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusProcessing:
		return 2
	case StatusClaimable:
		return 3
	case StatusCompleted, StatusFailed, StatusCanceled:
		return 4
	default:
		return 0
	}
}

// Terminal reports whether no further polling or mutation may occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// AtLeast reports whether s is as advanced as other under the status ordering.
func (s Status) AtLeast(other Status) bool {
	return s.rank() >= other.rank()
}

// ChainPair is an ordered (source, target) route. (A,B) and (B,A) are
// distinct routes backed by distinct providers.
type ChainPair struct {
	Source chain.ID `json:"source"`
	Target chain.ID `json:"target"`
}

func (p ChainPair) String() string {
	return fmt.Sprintf("%s->%s", p.Source, p.Target)
}

// TokenInfo describes one token on one chain.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

// Asset pairs a source token with its wrapped/mirrored counterpart on the
// target chain. Produced on demand and never persisted; it goes stale when
// the user switches either side of the route.
type Asset struct {
	SourceToken TokenInfo `json:"sourceToken"`
	TargetToken TokenInfo `json:"targetToken"`
}

// FeeEstimate is a fresh per-quote fee breakdown in the asset's smallest
// unit. Decimal values avoid floating-point loss; there is no identity or
// lifecycle beyond the request/response pair.
type FeeEstimate struct {
	BridgeFee   decimal.Decimal `json:"bridgeFee"`
	RelayerFee  decimal.Decimal `json:"relayerFee"`
	GasEstimate decimal.Decimal `json:"gasEstimate"`
	TotalFee    decimal.Decimal `json:"totalFee"`
}

// Allowance is the result of a token allowance check against a bridge
// contract.
type Allowance struct {
	Allowance decimal.Decimal `json:"allowance"`
	Approved  bool            `json:"isApproved"`
}

// Transaction is the central bridge transfer entity. The provider is the
// source of truth; the local copy is an eventually-consistent cache mutated
// only through Lifecycle polling.
type Transaction struct {
	ID          string          `json:"id"`
	SourceChain chain.ID        `json:"sourceChain"`
	TargetChain chain.ID        `json:"targetChain"`
	SourceToken string          `json:"sourceToken"`
	TargetToken string          `json:"targetToken"`
	Amount      decimal.Decimal `json:"amount"`
	Recipient   string          `json:"recipient"`
	TxHash      string          `json:"txHash,omitempty"`
	Status      Status          `json:"status"`
	Timestamp   int64           `json:"timestamp"` // creation time, unix seconds
}

// ProviderHealth is a liveness probe result, independent of any transaction.
type ProviderHealth struct {
	Healthy     bool      `json:"healthy"`
	LastError   string    `json:"lastError,omitempty"`
	LastSuccess time.Time `json:"lastSuccess"`
}
