// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Login outcome labels.
const (
	LoginSuccess = "success"
	LoginFailed  = "failed"
)

// Event publication outcome labels.
const (
	PublishSuccess = "success"
	PublishFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Ledger metrics
	IncTransactionCreated()
	IncTransactionDeleted()
	IncLedgerCacheHit()
	IncLedgerCacheMiss()
	ObserveLedgerListDuration(duration time.Duration)

	// Account metrics
	IncSignup()
	IncLogin(status string) // status: "success" or "failed"
	IncAccountDeleted()

	// Event pipeline metrics
	IncEventPublished(status string) // status: "success" or "failed"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
