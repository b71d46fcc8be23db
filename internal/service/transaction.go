package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tallybook/tally/internal/cache"
	"github.com/tallybook/tally/internal/events"
	"github.com/tallybook/tally/internal/ledger"
	"github.com/tallybook/tally/internal/metrics"
	"github.com/tallybook/tally/internal/model"
	"github.com/tallybook/tally/internal/repository"
)

const (
	maxTextLength     = 500
	maxCategoryLength = 64

	// ledgerFillTimeout bounds a shared cache fill, which outlives the
	// caller that started it.
	ledgerFillTimeout = 10 * time.Second
)

// LedgerStore persists transactions. Every method reports
// repository.ErrUserNotFound when the owner does not exist.
type LedgerStore interface {
	AppendTransaction(ctx context.Context, tx *model.Transaction) error
	ListTransactions(ctx context.Context, userID string) ([]*model.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

// LedgerCache is the read-through cache in front of List.
// GetLedger returns cache.ErrCacheMiss with the version a fill should use.
type LedgerCache interface {
	GetLedger(ctx context.Context, userID string) (*model.Ledger, int64, error)
	SetLedger(ctx context.Context, userID string, version int64, ledger *model.Ledger, ttl time.Duration) error
	InvalidateLedger(ctx context.Context, userID string) error
}

// TransactionService handles ledger business logic.
type TransactionService struct {
	store     LedgerStore
	cache     LedgerCache
	cacheTTL  time.Duration
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// TransactionServiceConfig holds the optional collaborators of TransactionService.
// A nil Cache disables caching; a nil Publisher drops events.
type TransactionServiceConfig struct {
	Cache     LedgerCache
	CacheTTL  time.Duration
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(store LedgerStore, cfg TransactionServiceConfig) *TransactionService {
	if cfg.Publisher == nil {
		cfg.Publisher = events.NewNoop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultLedgerTTL
	}
	return &TransactionService{
		store:     store,
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// CreateTransactionInput defines input for creating a transaction.
// Amount is the decoded request value: a JSON number, a numeric string or nil.
type CreateTransactionInput struct {
	UserID   string
	Text     string
	Amount   any
	Category string
}

// Create validates the input, resolves kind and category, and appends the
// transaction to the user's ledger.
func (s *TransactionService) Create(ctx context.Context, input CreateTransactionInput) (*model.Transaction, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, invalid("text", msgMissingFields)
	}
	if input.Amount == nil {
		return nil, invalid("amount", msgMissingFields)
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		return nil, invalid("text", fmt.Sprintf("text must be at most %d characters", maxTextLength))
	}

	amount, err := ledger.ParseAmount(input.Amount)
	if err != nil {
		if errors.Is(err, ledger.ErrAmountMissing) {
			return nil, invalid("amount", msgMissingFields)
		}
		return nil, invalid("amount", err.Error())
	}

	category := strings.TrimSpace(input.Category)
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return nil, invalid("category", fmt.Sprintf("category must be at most %d characters", maxCategoryLength))
	}

	kind, category := ledger.Resolve(amount, category)

	tx := &model.Transaction{
		ID:        ulid.Make().String(),
		UserID:    input.UserID,
		Text:      text,
		Amount:    amount,
		Kind:      kind,
		Category:  category,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.store.AppendTransaction(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.metrics.IncTransactionCreated()
	s.afterMutation(ctx, events.TransactionCreated(tx))

	s.logger.InfoContext(ctx, "transaction_created",
		"user_id", tx.UserID,
		"transaction_id", tx.ID,
		"kind", tx.Kind,
	)

	return tx, nil
}

// List returns the user's transactions in insertion order with their totals.
func (s *TransactionService) List(ctx context.Context, userID string) (*model.Ledger, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveLedgerListDuration(time.Since(start))
	}()

	if s.cache == nil {
		return s.load(ctx, userID)
	}

	cached, version, err := s.cache.GetLedger(ctx, userID)
	if err == nil {
		s.metrics.IncLedgerCacheHit()
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Redis trouble: serve from the store without filling.
		s.logger.WarnContext(ctx, "ledger_cache_read_failed", "user_id", userID, "error", err)
		return s.load(ctx, userID)
	}
	s.metrics.IncLedgerCacheMiss()

	// The fill is shared by every caller waiting on this version, so it
	// must not inherit the cancellation of whichever caller started it.
	key := userID + ":" + strconv.FormatInt(version, 10)
	ch := s.group.DoChan(key, func() (any, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerFillTimeout)
		defer cancel()

		l, err := s.load(fillCtx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetLedger(fillCtx, userID, version, l, s.cacheTTL); err != nil {
			s.logger.WarnContext(fillCtx, "ledger_cache_write_failed", "user_id", userID, "error", err)
		}
		return l, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Ledger), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Delete removes one of the user's transactions.
// Another user's transaction is reported as not found.
func (s *TransactionService) Delete(ctx context.Context, userID, transactionID string) error {
	if err := s.store.DeleteTransaction(ctx, userID, transactionID); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound
		case errors.Is(err, repository.ErrTransactionNotFound):
			return ErrTransactionNotFound
		}
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	s.metrics.IncTransactionDeleted()
	s.afterMutation(ctx, events.TransactionDeleted(userID, transactionID, s.now().UTC()))

	s.logger.InfoContext(ctx, "transaction_deleted",
		"user_id", userID,
		"transaction_id", transactionID,
	)

	return nil
}

func (s *TransactionService) load(ctx context.Context, userID string) (*model.Ledger, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &model.Ledger{
		Transactions: txs,
		Totals:       ledger.Aggregate(txs),
	}, nil
}

// afterMutation invalidates the cached ledger and publishes the event.
// The mutation is already committed, so failures are logged only.
func (s *TransactionService) afterMutation(ctx context.Context, event events.Event) {
	invalidateLedger(ctx, s.cache, s.logger, event.UserID)
	publish(ctx, s.publisher, s.metrics, s.logger, event)
}

func invalidateLedger(ctx context.Context, c LedgerCache, logger *slog.Logger, userID string) {
	if c == nil {
		return
	}
	if err := c.InvalidateLedger(ctx, userID); err != nil {
		logger.ErrorContext(ctx, "ledger_cache_invalidate_failed", "user_id", userID, "error", err)
	}
}

func publish(ctx context.Context, p events.Publisher, recorder metrics.Recorder, logger *slog.Logger, event events.Event) {
	if err := p.Publish(ctx, event); err != nil {
		recorder.IncEventPublished(metrics.PublishFailed)
		logger.WarnContext(ctx, "event_publish_failed", "type", event.Type, "user_id", event.UserID, "error", err)
		return
	}
	recorder.IncEventPublished(metrics.PublishSuccess)
}
