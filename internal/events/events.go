// Package events publishes ledger change notifications to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallybook/tally/internal/model"
)

// Event types. They double as AMQP routing keys.
const (
	TypeTransactionCreated = "transaction.created"
	TypeTransactionDeleted = "transaction.deleted"
	TypeAccountDeleted     = "account.deleted"
)

// Event is a ledger change notification.
// Transaction fields are empty for events that do not concern one transaction.
type Event struct {
	Type          string           `json:"type"`
	UserID        string           `json:"user_id"`
	TransactionID string           `json:"transaction_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Kind          model.Kind       `json:"kind,omitempty"`
	Category      string           `json:"category,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// TransactionCreated builds the event for a newly appended transaction.
func TransactionCreated(tx *model.Transaction) Event {
	amount := tx.Amount
	return Event{
		Type:          TypeTransactionCreated,
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Amount:        &amount,
		Kind:          tx.Kind,
		Category:      tx.Category,
		OccurredAt:    tx.CreatedAt,
	}
}

// TransactionDeleted builds the event for a removed transaction.
func TransactionDeleted(userID, transactionID string, at time.Time) Event {
	return Event{
		Type:          TypeTransactionDeleted,
		UserID:        userID,
		TransactionID: transactionID,
		OccurredAt:    at,
	}
}

// AccountDeleted builds the event for a removed account.
func AccountDeleted(userID string, at time.Time) Event {
	return Event{
		Type:       TypeAccountDeleted,
		UserID:     userID,
		OccurredAt: at,
	}
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes an event from JSON.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// NewNoop returns a Publisher that drops events.
func NewNoop() Publisher {
	return NoopPublisher{}
}

// Publish is a no-op.
func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// Close is a no-op.
func (NoopPublisher) Close() error { return nil }
