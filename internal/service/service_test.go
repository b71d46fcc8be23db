package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/tallybook/tally/internal/auth"
	"github.com/tallybook/tally/internal/cache"
	"github.com/tallybook/tally/internal/events"
	"github.com/tallybook/tally/internal/model"
	"github.com/tallybook/tally/internal/repository/memory"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var fastParams = auth.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func fastHash(password string) (string, error) {
	return auth.HashPasswordWithParams(password, fastParams)
}

// fakeCache mirrors the versioned behaviour of cache.Cache in memory.
type fakeCache struct {
	mu       sync.Mutex
	versions map[string]int64
	entries  map[string]*model.Ledger
	failGet  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		versions: make(map[string]int64),
		entries:  make(map[string]*model.Ledger),
	}
}

func (c *fakeCache) key(userID string, version int64) string {
	return userID + ":" + strconv.FormatInt(version, 10)
}

func (c *fakeCache) GetLedger(ctx context.Context, userID string) (*model.Ledger, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, 0, errors.New("redis down")
	}
	v := c.versions[userID]
	l, ok := c.entries[c.key(userID, v)]
	if !ok {
		return nil, v, cache.ErrCacheMiss
	}
	return l, v, nil
}

func (c *fakeCache) SetLedger(ctx context.Context, userID string, version int64, l *model.Ledger, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(userID, version)] = l
	return nil
}

func (c *fakeCache) InvalidateLedger(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[userID]++
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	store     *memory.Store
	cache     *fakeCache
	publisher *recordingPublisher
	txs       *TransactionService
	user      *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	c := newFakeCache()
	pub := &recordingPublisher{}

	user := &model.User{ID: "user-1", Name: "Ada", Email: "ada@example.com", CreatedAt: time.Now().UTC()}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	svc := NewTransactionService(store, TransactionServiceConfig{
		Cache:     c,
		Publisher: pub,
		Logger:    discardLogger,
	})

	return &testEnv{store: store, cache: c, publisher: pub, txs: svc, user: user}
}

func assertTotals(t *testing.T, l *model.Ledger, income, expense, balance string) {
	t.Helper()
	got := l.Totals
	if got.Income.String() != income || got.Expense.String() != expense || got.Balance.String() != balance {
		t.Errorf("totals = (%s, %s, %s), want (%s, %s, %s)",
			got.Income, got.Expense, got.Balance, income, expense, balance)
	}
}

// gatedStore blocks ListTransactions until release is closed or the
// call's context ends.
type gatedStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStore) ListTransactions(ctx context.Context, userID string) ([]*model.Transaction, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.ListTransactions(ctx, userID)
}
