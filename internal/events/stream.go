package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultStreamKey is the Redis stream ledger events are appended to.
	DefaultStreamKey = "stream:ledger_events"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	streamPublishTimeout = 100 * time.Millisecond
)

// StreamPublisher appends events to a capped Redis stream.
// Each entry carries the event type and the JSON payload.
type StreamPublisher struct {
	redis  *redis.Client
	stream string
	logger *slog.Logger
}

// NewStreamPublisher creates a publisher on an existing Redis client.
// The client is owned by the caller; Close does not close it.
func NewStreamPublisher(client *redis.Client, stream string, logger *slog.Logger) *StreamPublisher {
	if stream == "" {
		stream = DefaultStreamKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPublisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "events.stream"),
	}
}

// Publish adds one entry to the stream.
func (p *StreamPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, streamPublishTimeout)
	defer cancel()

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"type":    event.Type,
			"payload": string(body),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}

	p.logger.DebugContext(ctx, "event_published",
		"type", event.Type,
		"user_id", event.UserID,
		"stream_id", id,
	)
	return nil
}

// Close is a no-op; the Redis client belongs to the cache.
func (p *StreamPublisher) Close() error {
	return nil
}
