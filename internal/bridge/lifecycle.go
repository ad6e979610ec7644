package bridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval matches the wallet's status re-check cadence.
	DefaultPollInterval = 10 * time.Second

	// DefaultMaxPollFailures bounds polling against an unreachable provider:
	// after this many consecutive failed polls the lifecycle gives up and
	// reports tracking as lost rather than polling forever.
	DefaultMaxPollFailures = 30
)

// LifecycleState describes the poller itself, not the transaction.
type LifecycleState string

const (
	// LifecycleTracking means the poll loop is running.
	LifecycleTracking LifecycleState = "tracking"
	// LifecycleStopped means polling ended normally: terminal status reached,
	// the transaction became claimable, or the owner tore the lifecycle down.
	LifecycleStopped LifecycleState = "stopped"
	// LifecycleLost means the failure ceiling was hit. The cached transaction
	// keeps its last known status; it is the tracking that is lost, not the
	// transfer.
	LifecycleLost LifecycleState = "lost"
)

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithPollInterval overrides the re-check cadence.
func WithPollInterval(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithMaxPollFailures overrides the consecutive-failure ceiling.
func WithMaxPollFailures(n int) LifecycleOption {
	return func(l *Lifecycle) {
		if n > 0 {
			l.maxFailures = n
		}
	}
}

// WithUpdateFunc registers a callback invoked with a snapshot copy after each
// applied status change. Called from the poll goroutine.
func WithUpdateFunc(fn func(Transaction)) LifecycleOption {
	return func(l *Lifecycle) {
		l.onUpdate = fn
	}
}

// Lifecycle keeps one transaction's cached status current while it is
// non-terminal and stops automatically once it is. Exactly one poll timer per
// instance; only the owning lifecycle mutates its cached copy, readers get
// value snapshots.
type Lifecycle struct {
	orch        *Orchestrator
	logger      *zap.SugaredLogger
	interval    time.Duration
	maxFailures int
	onUpdate    func(Transaction)

	mu       sync.RWMutex
	tx       Transaction
	state    LifecycleState
	failures int
	started  bool

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewLifecycle wraps a freshly-submitted transaction. Start must be called to
// begin polling.
func NewLifecycle(orch *Orchestrator, tx *Transaction, logger *zap.SugaredLogger, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		orch:        orch,
		logger:      logger,
		interval:    DefaultPollInterval,
		maxFailures: DefaultMaxPollFailures,
		tx:          *tx,
		state:       LifecycleStopped,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the poll loop. One-shot: restarting a finished lifecycle is
// a no-op. It returns immediately; if the transaction is already terminal or
// claimable there is nothing to poll and the lifecycle stays stopped.
func (l *Lifecycle) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	if l.tx.Status.Terminal() || l.tx.Status == StatusClaimable {
		l.mu.Unlock()
		l.once.Do(func() { close(l.done) })
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state = LifecycleTracking
	l.mu.Unlock()

	go l.run(pollCtx)
}

// Stop cancels the poll timer and waits for the loop to exit. Best-effort by
// design: it stops observation only, never the on-chain transfer.
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-l.done
}

// Snapshot returns a copy of the cached transaction.
func (l *Lifecycle) Snapshot() Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tx
}

// State reports the poller state.
func (l *Lifecycle) State() LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Lifecycle) run(ctx context.Context) {
	defer l.once.Do(func() { close(l.done) })

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.setState(LifecycleStopped)
			return
		case <-ticker.C:
			if done := l.poll(ctx); done {
				return
			}
		}
	}
}

// poll performs one status re-check. Transient failures are swallowed here:
// a single missed poll is not user-significant, so the tick is merely
// rescheduled until the failure ceiling is hit.
func (l *Lifecycle) poll(ctx context.Context) (done bool) {
	l.mu.RLock()
	id, source, target := l.tx.ID, l.tx.SourceChain, l.tx.TargetChain
	l.mu.RUnlock()

	snap, err := l.orch.Track(ctx, id, source, target)
	if err != nil {
		l.mu.Lock()
		l.failures++
		failures := l.failures
		l.mu.Unlock()

		l.logger.Debugw("Status poll failed; will retry", "id", id, "failures", failures, "error", err)
		if failures >= l.maxFailures {
			l.logger.Warnw("Giving up on status polling", "id", id, "failures", failures)
			l.setState(LifecycleLost)
			return true
		}
		return false
	}

	l.mu.Lock()
	l.failures = 0
	applied, stop := l.applyLocked(snap)
	var updated Transaction
	if applied {
		updated = l.tx
	}
	if stop {
		l.state = LifecycleStopped
	}
	l.mu.Unlock()

	if applied && l.onUpdate != nil {
		l.onUpdate(updated)
	}
	return stop
}

// applyLocked merges a fresh snapshot under the most-advanced-status-wins
// policy. A regressive status is a provider defect: logged, discarded, local
// copy kept. Returns whether the snapshot was applied and whether polling
// should stop.
func (l *Lifecycle) applyLocked(snap *Transaction) (applied, stop bool) {
	cur := l.tx.Status
	next := snap.Status

	if !next.AtLeast(cur) {
		l.logger.Warnw("Provider returned regressive status; keeping cached",
			"id", l.tx.ID,
			"cached", cur,
			"received", next,
		)
		return false, false
	}

	changed := next != cur || (snap.TxHash != "" && snap.TxHash != l.tx.TxHash)
	l.tx.Status = next
	if snap.TxHash != "" {
		l.tx.TxHash = snap.TxHash
	}
	if snap.TargetToken != "" {
		l.tx.TargetToken = snap.TargetToken
	}

	if changed && next != cur {
		l.logger.Infow("Bridge transfer status advanced", "id", l.tx.ID, "from", cur, "to", next)
	}

	// Claimable transfers wait on a user-signed claim, not on polling.
	stop = next.Terminal() || next == StatusClaimable
	return changed, stop
}

// MarkClaimed records a successful claim finalization against the cached
// copy. Used by flows that complete a claimable transfer out-of-band of the
// provider's own status feed.
func (l *Lifecycle) MarkClaimed() {
	l.mu.Lock()
	changed := l.tx.Status != StatusCompleted && StatusCompleted.AtLeast(l.tx.Status)
	if changed {
		l.tx.Status = StatusCompleted
	}
	updated := l.tx
	l.mu.Unlock()

	if changed && l.onUpdate != nil {
		l.onUpdate(updated)
	}
}

func (l *Lifecycle) setState(s LifecycleState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}
