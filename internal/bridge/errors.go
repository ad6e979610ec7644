package bridge

import (
	"errors"
	"fmt"

	"github.com/catenahq/bridge-backend/internal/chain"
)

var (
	// ErrProviderNotFound means the requested route is unsupported. Always a
	// caller or configuration error, never retried.
	ErrProviderNotFound = errors.New("no bridge provider for chain pair")

	// ErrInitializationFailed is fatal at startup: the registry refuses to
	// run with a partially-populated provider map.
	ErrInitializationFailed = errors.New("bridge provider initialization failed")

	// ErrTokenMappingNotFound means the source token has no counterpart on
	// the target chain.
	ErrTokenMappingNotFound = errors.New("token mapping not found")

	// ErrSubmissionFailed covers signer rejection and RPC failure during
	// transfer submission. Resubmission must be an explicit new user action.
	ErrSubmissionFailed = errors.New("bridge submission failed")

	// ErrTransactionNotFound means the provider has no record of the id.
	ErrTransactionNotFound = errors.New("bridge transaction not found")
)

// CapabilityError reports an extended operation invoked against a provider
// that does not implement it.
type CapabilityError struct {
	Capability string
	Chain      chain.ID
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s not supported on %s", e.Capability, e.Chain)
}

// ClaimNotSupportedError reports a claim/exit request against a chain whose
// bridge protocol has no second finalization step.
type ClaimNotSupportedError struct {
	Chain chain.ID
}

func (e *ClaimNotSupportedError) Error() string {
	return fmt.Sprintf("claims not supported on %s", e.Chain)
}
