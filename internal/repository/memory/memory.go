// Package memory provides an in-process store with the same contract as the
// PostgreSQL repository. It backs local development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/tallybook/tally/internal/model"
	"github.com/tallybook/tally/internal/repository"
)

// Store keeps users and their ledgers in memory.
// All operations are serialized by a single mutex.
type Store struct {
	mu      sync.Mutex
	users   map[string]*model.User
	byEmail map[string]string
	ledgers map[string][]*model.Transaction
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		ledgers: make(map[string][]*model.Transaction),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// CreateUser stores a new user. Emails must be unique.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return repository.ErrEmailExists
	}

	u := *user
	s.users[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// DeleteUser removes a user together with their ledger.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.users, id)
	delete(s.ledgers, id)
	return nil
}

// AppendTransaction adds a transaction to the end of a user's ledger.
func (s *Store) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[tx.UserID]; !ok {
		return repository.ErrUserNotFound
	}

	cp := *tx
	s.ledgers[tx.UserID] = append(s.ledgers[tx.UserID], &cp)
	return nil
}

// ListTransactions returns copies of a user's transactions in insertion order.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, repository.ErrUserNotFound
	}

	ledger := s.ledgers[userID]
	out := make([]*model.Transaction, len(ledger))
	for i, tx := range ledger {
		cp := *tx
		out[i] = &cp
	}
	return out, nil
}

// DeleteTransaction removes one transaction from a user's ledger.
func (s *Store) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return repository.ErrUserNotFound
	}

	ledger := s.ledgers[userID]
	idx := slices.IndexFunc(ledger, func(tx *model.Transaction) bool {
		return tx.ID == transactionID
	})
	if idx == -1 {
		return repository.ErrTransactionNotFound
	}

	s.ledgers[userID] = slices.Delete(ledger, idx, idx+1)
	return nil
}
