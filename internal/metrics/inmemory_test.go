package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncTransactionCreated()
	m.IncTransactionCreated()
	m.IncTransactionDeleted()
	m.IncLedgerCacheHit()
	m.IncLedgerCacheMiss()
	m.ObserveLedgerListDuration(2 * time.Millisecond)
	m.ObserveLedgerListDuration(3 * time.Millisecond)
	m.IncSignup()
	m.IncLogin(LoginSuccess)
	m.IncLogin(LoginFailed)
	m.IncLogin(LoginFailed)
	m.IncAccountDeleted()
	m.IncEventPublished(PublishSuccess)
	m.IncEventPublished(PublishFailed)

	got := m.Snapshot()
	want := Snapshot{
		TransactionsCreated:       2,
		TransactionsDeleted:       1,
		LedgerCacheHits:           1,
		LedgerCacheMisses:         1,
		LedgerListDurationCount:   2,
		LedgerListDurationTotalNs: int64(5 * time.Millisecond),
		Signups:                   1,
		LoginsSucceeded:           1,
		LoginsFailed:              2,
		AccountsDeleted:           1,
		EventsPublished:           1,
		EventsFailed:              1,
	}

	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestInMemoryRecorder_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncTransactionCreated()
		}()
	}
	wg.Wait()

	if got := m.Snapshot().TransactionsCreated; got != 50 {
		t.Errorf("TransactionsCreated = %d, want 50", got)
	}
}

func TestNoopRecorder_ImplementsRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncTransactionCreated()
	r.IncLogin(LoginSuccess)
	r.ObserveLedgerListDuration(time.Second)
}
