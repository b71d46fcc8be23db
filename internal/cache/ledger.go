package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tallybook/tally/internal/model"
)

// Cache key prefixes and TTLs.
const (
	ledgerKeyPrefix        = "ledger:"
	ledgerVersionKeyPrefix = "ledger:ver:"

	// DefaultLedgerTTL is the TTL for cached ledgers.
	DefaultLedgerTTL = 10 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// cachedTransaction is the stored form of a transaction.
type cachedTransaction struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      model.Kind      `json:"kind"`
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"created_at"`
}

// cachedLedger is the stored form of a ledger.
type cachedLedger struct {
	Transactions []cachedTransaction `json:"transactions"`
	Income       decimal.Decimal     `json:"income"`
	Expense      decimal.Decimal     `json:"expense"`
	Balance      decimal.Decimal     `json:"balance"`
}

// LedgerVersion returns the current cache generation of a user's ledger.
// A user that has never been invalidated is at version 0.
func (c *Cache) LedgerVersion(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Get(ctx, ledgerVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	return v, nil
}

// GetLedger retrieves the cached ledger for the user's current version.
// It returns the version it looked at so a miss can be filled under that
// same version. Returns ErrCacheMiss if not found.
func (c *Cache) GetLedger(ctx context.Context, userID string) (*model.Ledger, int64, error) {
	version, err := c.LedgerVersion(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	data, err := c.client.Get(ctx, ledgerKey(userID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, ErrCacheMiss
	}
	if err != nil {
		return nil, version, fmt.Errorf("redis get failed: %w", err)
	}

	var cached cachedLedger
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, version, fmt.Errorf("decode cached ledger: %w", err)
	}

	return cached.toLedger(userID), version, nil
}

// SetLedger stores a ledger under the given version.
// A ledger loaded before an invalidation lands under a stale version and is never read.
func (c *Cache) SetLedger(ctx context.Context, userID string, version int64, ledger *model.Ledger, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}

	data, err := json.Marshal(newCachedLedger(ledger))
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := c.client.Set(ctx, ledgerKey(userID, version), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateLedger bumps the user's ledger version so every cached copy goes stale.
func (c *Cache) InvalidateLedger(ctx context.Context, userID string) error {
	if err := c.client.Incr(ctx, ledgerVersionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return nil
}

func newCachedLedger(l *model.Ledger) cachedLedger {
	txs := make([]cachedTransaction, 0, len(l.Transactions))
	for _, tx := range l.Transactions {
		txs = append(txs, cachedTransaction{
			ID:        tx.ID,
			Text:      tx.Text,
			Amount:    tx.Amount,
			Kind:      tx.Kind,
			Category:  tx.Category,
			CreatedAt: tx.CreatedAt,
		})
	}
	return cachedLedger{
		Transactions: txs,
		Income:       l.Totals.Income,
		Expense:      l.Totals.Expense,
		Balance:      l.Totals.Balance,
	}
}

func (c cachedLedger) toLedger(userID string) *model.Ledger {
	txs := make([]*model.Transaction, 0, len(c.Transactions))
	for _, tx := range c.Transactions {
		txs = append(txs, &model.Transaction{
			ID:        tx.ID,
			UserID:    userID,
			Text:      tx.Text,
			Amount:    tx.Amount,
			Kind:      tx.Kind,
			Category:  tx.Category,
			CreatedAt: tx.CreatedAt,
		})
	}
	return &model.Ledger{
		Transactions: txs,
		Totals: model.Totals{
			Income:  c.Income,
			Expense: c.Expense,
			Balance: c.Balance,
		},
	}
}

func ledgerKey(userID string, version int64) string {
	return ledgerKeyPrefix + userID + ":" + strconv.FormatInt(version, 10)
}

func ledgerVersionKey(userID string) string {
	return ledgerVersionKeyPrefix + userID
}
