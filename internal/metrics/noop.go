package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncTransactionCreated is a no-op.
func (n *NoopRecorder) IncTransactionCreated() {}

// IncTransactionDeleted is a no-op.
func (n *NoopRecorder) IncTransactionDeleted() {}

// IncLedgerCacheHit is a no-op.
func (n *NoopRecorder) IncLedgerCacheHit() {}

// IncLedgerCacheMiss is a no-op.
func (n *NoopRecorder) IncLedgerCacheMiss() {}

// ObserveLedgerListDuration is a no-op.
func (n *NoopRecorder) ObserveLedgerListDuration(duration time.Duration) {}

// IncSignup is a no-op.
func (n *NoopRecorder) IncSignup() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncAccountDeleted is a no-op.
func (n *NoopRecorder) IncAccountDeleted() {}

// IncEventPublished is a no-op.
func (n *NoopRecorder) IncEventPublished(status string) {}
