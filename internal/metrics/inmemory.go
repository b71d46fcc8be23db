package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TransactionsCreated       uint64
	TransactionsDeleted       uint64
	LedgerCacheHits           uint64
	LedgerCacheMisses         uint64
	LedgerListDurationCount   uint64
	LedgerListDurationTotalNs int64
	Signups                   uint64
	LoginsSucceeded           uint64
	LoginsFailed              uint64
	AccountsDeleted           uint64
	EventsPublished           uint64
	EventsFailed              uint64
}

// InMemoryRecorder stores metrics in memory.
// It backs the /metrics endpoint and is used directly by tests.
type InMemoryRecorder struct {
	transactionsCreated       atomic.Uint64
	transactionsDeleted       atomic.Uint64
	ledgerCacheHits           atomic.Uint64
	ledgerCacheMisses         atomic.Uint64
	ledgerListDurationCount   atomic.Uint64
	ledgerListDurationTotalNs atomic.Int64
	signups                   atomic.Uint64
	loginsSucceeded           atomic.Uint64
	loginsFailed              atomic.Uint64
	accountsDeleted           atomic.Uint64
	eventsPublished           atomic.Uint64
	eventsFailed              atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		TransactionsCreated:       m.transactionsCreated.Load(),
		TransactionsDeleted:       m.transactionsDeleted.Load(),
		LedgerCacheHits:           m.ledgerCacheHits.Load(),
		LedgerCacheMisses:         m.ledgerCacheMisses.Load(),
		LedgerListDurationCount:   m.ledgerListDurationCount.Load(),
		LedgerListDurationTotalNs: m.ledgerListDurationTotalNs.Load(),
		Signups:                   m.signups.Load(),
		LoginsSucceeded:           m.loginsSucceeded.Load(),
		LoginsFailed:              m.loginsFailed.Load(),
		AccountsDeleted:           m.accountsDeleted.Load(),
		EventsPublished:           m.eventsPublished.Load(),
		EventsFailed:              m.eventsFailed.Load(),
	}
}

// IncTransactionCreated increments the created counter.
func (m *InMemoryRecorder) IncTransactionCreated() {
	m.transactionsCreated.Add(1)
}

// IncTransactionDeleted increments the deleted counter.
func (m *InMemoryRecorder) IncTransactionDeleted() {
	m.transactionsDeleted.Add(1)
}

// IncLedgerCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncLedgerCacheHit() {
	m.ledgerCacheHits.Add(1)
}

// IncLedgerCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncLedgerCacheMiss() {
	m.ledgerCacheMisses.Add(1)
}

// ObserveLedgerListDuration records how long a List took.
func (m *InMemoryRecorder) ObserveLedgerListDuration(duration time.Duration) {
	m.ledgerListDurationCount.Add(1)
	m.ledgerListDurationTotalNs.Add(duration.Nanoseconds())
}

// IncSignup increments the signup counter.
func (m *InMemoryRecorder) IncSignup() {
	m.signups.Add(1)
}

// IncLogin increments the login counter for status.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == LoginSuccess {
		m.loginsSucceeded.Add(1)
		return
	}
	m.loginsFailed.Add(1)
}

// IncAccountDeleted increments the account deletion counter.
func (m *InMemoryRecorder) IncAccountDeleted() {
	m.accountsDeleted.Add(1)
}

// IncEventPublished increments the event counter for status.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	if status == PublishSuccess {
		m.eventsPublished.Add(1)
		return
	}
	m.eventsFailed.Add(1)
}
