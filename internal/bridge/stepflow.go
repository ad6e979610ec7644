package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/catenahq/bridge-backend/internal/chain"
)

// Step is a stage of the bridge submission workflow.
type Step string

const (
	StepForm         Step = "form"
	StepConfirmation Step = "confirmation"
	StepProgress     Step = "progress"
	StepComplete     Step = "complete"
)

// ErrInvalidTransition rejects a step change the workflow does not allow from
// its current state. The flow is left unchanged.
var ErrInvalidTransition = errors.New("invalid step transition")

// StepFlowOption configures a StepFlow.
type StepFlowOption func(*StepFlow)

// WithLifecycleOptions forwards options to the lifecycle started on submit.
func WithLifecycleOptions(opts ...LifecycleOption) StepFlowOption {
	return func(f *StepFlow) {
		f.lifecycleOpts = opts
	}
}

// StepFlow drives one bridge submission through
// form -> confirmation -> progress -> complete, wrapping a single transaction
// lifecycle plus the pre-submission data collection.
type StepFlow struct {
	orch          *Orchestrator
	logger        *zap.SugaredLogger
	lifecycleOpts []LifecycleOption

	mu          sync.Mutex
	step        Step
	sourceChain chain.ID
	targetChain chain.ID // empty means default-target policy
	sourceToken string
	amount      decimal.Decimal
	recipient   string
	quote       *FeeEstimate
	lifecycle   *Lifecycle
}

// NewStepFlow starts a workflow at the form step for transfers leaving
// sourceChain.
func NewStepFlow(orch *Orchestrator, source chain.ID, logger *zap.SugaredLogger, opts ...StepFlowOption) *StepFlow {
	f := &StepFlow{
		orch:        orch,
		logger:      logger,
		step:        StepForm,
		sourceChain: source,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Step returns the current workflow stage.
func (f *StepFlow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Quote returns the fee estimate fetched on confirmation, if any.
func (f *StepFlow) Quote() *FeeEstimate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quote == nil {
		return nil
	}
	q := *f.quote
	return &q
}

// Transaction returns a snapshot of the attached transfer, or nil before
// submission.
func (f *StepFlow) Transaction() *Transaction {
	f.mu.Lock()
	lc := f.lifecycle
	f.mu.Unlock()
	if lc == nil {
		return nil
	}
	tx := lc.Snapshot()
	return &tx
}

// SetSourceToken records the selected token. Form step only.
func (f *StepFlow) SetSourceToken(address string) error {
	return f.editForm(func() { f.sourceToken = address })
}

// SetAmount records the transfer amount. Form step only.
func (f *StepFlow) SetAmount(amount decimal.Decimal) error {
	return f.editForm(func() { f.amount = amount })
}

// SetRecipient records the target-chain recipient. Form step only.
func (f *StepFlow) SetRecipient(address string) error {
	return f.editForm(func() { f.recipient = address })
}

// SetTargetChain switches the route. Asset availability and mappings are
// chain-pair-specific, so the selected token, amount, and fee estimate are
// reset to defaults rather than silently referencing the wrong pair.
func (f *StepFlow) SetTargetChain(target chain.ID) error {
	return f.editForm(func() {
		if target == f.targetChain {
			return
		}
		f.targetChain = target
		f.sourceToken = ""
		f.amount = decimal.Zero
		f.quote = nil
	})
}

func (f *StepFlow) editForm(apply func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepForm {
		return fmt.Errorf("%w: form edits only allowed in %s, currently %s", ErrInvalidTransition, StepForm, f.step)
	}
	apply()
	return nil
}

// Confirm advances form -> confirmation. The transition is guarded by a
// selected token, a positive amount, and a recipient, and fetches a fee quote
// as its side effect; a failed quote keeps the flow on the form.
func (f *StepFlow) Confirm(ctx context.Context) error {
	f.mu.Lock()
	if f.step != StepForm {
		f.mu.Unlock()
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, f.step)
	}
	if f.sourceToken == "" {
		f.mu.Unlock()
		return fmt.Errorf("%w: no token selected", ErrInvalidTransition)
	}
	if !f.amount.GreaterThan(decimal.Zero) {
		f.mu.Unlock()
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransition)
	}
	if f.recipient == "" {
		f.mu.Unlock()
		return fmt.Errorf("%w: recipient is required", ErrInvalidTransition)
	}
	token, amount, source, target := f.sourceToken, f.amount, f.sourceChain, f.targetChain
	f.mu.Unlock()

	quote, err := f.orch.Quote(ctx, token, amount, source, target)
	if err != nil {
		return fmt.Errorf("fetch quote: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepForm {
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, f.step)
	}
	f.quote = &quote
	f.step = StepConfirmation
	return nil
}

// Submit advances confirmation -> progress by submitting the transfer. On
// failure the flow stays in confirmation with the error surfaced so the user
// can retry explicitly; nothing is resubmitted automatically.
func (f *StepFlow) Submit(ctx context.Context, signer Signer) error {
	f.mu.Lock()
	if f.step != StepConfirmation {
		f.mu.Unlock()
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, f.step)
	}
	token, amount, recipient := f.sourceToken, f.amount, f.recipient
	source, target := f.sourceChain, f.targetChain
	f.mu.Unlock()

	tx, err := f.orch.Submit(ctx, token, amount, recipient, source, signer, target)
	if err != nil {
		return fmt.Errorf("submit transfer: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepConfirmation {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, f.step)
	}
	f.lifecycle = NewLifecycle(f.orch, tx, f.logger, f.lifecycleOpts...)
	f.lifecycle.Start(ctx)
	f.step = StepProgress
	return nil
}

// Back steps the workflow backward one stage. Refused while the attached
// transfer is pending or processing: an on-chain operation mid-flight has
// nothing to roll back. Stepping back from progress detaches the finished
// attempt.
func (f *StepFlow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.step {
	case StepConfirmation:
		f.step = StepForm
		return nil
	case StepProgress:
		if err := f.backGuardLocked(); err != nil {
			return err
		}
		if f.lifecycle != nil {
			go f.lifecycle.Stop()
			f.lifecycle = nil
		}
		f.step = StepConfirmation
		return nil
	default:
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, f.step)
	}
}

func (f *StepFlow) backGuardLocked() error {
	if f.lifecycle == nil {
		return nil
	}
	status := f.lifecycle.Snapshot().Status
	if status == StatusPending || status == StatusProcessing {
		return fmt.Errorf("%w: transfer is %s", ErrInvalidTransition, status)
	}
	return nil
}

// FinalizeClaim submits the second, chain-specific finalization transaction
// for a claimable transfer.
func (f *StepFlow) FinalizeClaim(ctx context.Context, signer Signer) error {
	f.mu.Lock()
	if f.step != StepProgress || f.lifecycle == nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: finalize from %s", ErrInvalidTransition, f.step)
	}
	tx := f.lifecycle.Snapshot()
	lc := f.lifecycle
	f.mu.Unlock()

	if tx.Status != StatusClaimable {
		return fmt.Errorf("%w: transfer is %s, not %s", ErrInvalidTransition, tx.Status, StatusClaimable)
	}

	txHash, err := f.orch.FinalizeClaim(ctx, tx.SourceChain, tx.ID, tx.Recipient, signer)
	if err != nil {
		return fmt.Errorf("finalize claim: %w", err)
	}
	f.logger.Infow("Bridge claim finalized", "id", tx.ID, "txHash", txHash)
	lc.MarkClaimed()
	return nil
}

// Complete advances progress -> complete. Legal only once the attached
// transfer has reached a terminal status; failed and canceled transfers also
// close out here rather than looping.
func (f *StepFlow) Complete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepProgress || f.lifecycle == nil {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, f.step)
	}
	status := f.lifecycle.Snapshot().Status
	if !status.Terminal() {
		return fmt.Errorf("%w: transfer is %s", ErrInvalidTransition, status)
	}
	f.step = StepComplete
	return nil
}

// Reset starts the workflow over from complete, clearing all form fields and
// fee state.
func (f *StepFlow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepComplete {
		return fmt.Errorf("%w: reset from %s", ErrInvalidTransition, f.step)
	}
	if f.lifecycle != nil {
		go f.lifecycle.Stop()
		f.lifecycle = nil
	}
	f.sourceToken = ""
	f.amount = decimal.Zero
	f.recipient = ""
	f.targetChain = ""
	f.quote = nil
	f.step = StepForm
	return nil
}

// Close tears the workflow down, cancelling any active poll timer so it
// cannot fire into a disposed consumer. The on-chain transfer, once
// broadcast, is unaffected.
func (f *StepFlow) Close() {
	f.mu.Lock()
	lc := f.lifecycle
	f.mu.Unlock()
	if lc != nil {
		lc.Stop()
	}
}
