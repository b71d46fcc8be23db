package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("events: publisher closed")

type amqpConn interface {
	IsClosed() bool
	Close() error
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url, exchange string) (amqpConn, amqpChannel, error)

// AMQPPublisher publishes events to a durable topic exchange.
// The routing key is the event type so consumers can bind on "transaction.*".
// A dropped connection or channel is redialed on the next Publish.
type AMQPPublisher struct {
	mu       sync.Mutex
	url      string
	exchange string
	dial     dialFunc
	conn     amqpConn
	channel  amqpChannel
	closed   bool
	logger   *slog.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	return newAMQPPublisher(url, exchange, dialExchange, logger)
}

func newAMQPPublisher(url, exchange string, dial dialFunc, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, channel, err := dial(url, exchange)
	if err != nil {
		return nil, err
	}

	return &AMQPPublisher{
		url:      url,
		exchange: exchange,
		dial:     dial,
		conn:     conn,
		channel:  channel,
		logger:   logger,
	}, nil
}

func dialExchange(url, exchange string) (amqpConn, amqpChannel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	return conn, channel, nil
}

// Publish sends one persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	// amqp091 channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(ctx); err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	if err != nil && p.channel.IsClosed() {
		// The broker closed the channel under us; one retry on a fresh one.
		if rerr := p.ensureChannel(ctx); rerr != nil {
			return fmt.Errorf("publish event: %w", errors.Join(err, rerr))
		}
		err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.DebugContext(ctx, "event_published",
		"type", event.Type,
		"user_id", event.UserID,
		"exchange", p.exchange,
	)
	return nil
}

// ensureChannel redials when the connection or channel has gone away.
// Callers hold p.mu.
func (p *AMQPPublisher) ensureChannel(ctx context.Context) error {
	if p.closed {
		return ErrPublisherClosed
	}
	if p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		return nil
	}

	p.teardown()

	conn, channel, err := p.dial(p.url, p.exchange)
	if err != nil {
		p.logger.WarnContext(ctx, "amqp_reconnect_failed", "exchange", p.exchange, "error", err)
		return fmt.Errorf("reconnect AMQP: %w", err)
	}
	p.conn, p.channel = conn, channel
	p.logger.InfoContext(ctx, "amqp_reconnected", "exchange", p.exchange)
	return nil
}

func (p *AMQPPublisher) teardown() error {
	var err error
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return nil
	}
	return err
}

// Close closes the channel and connection. Later Publish calls fail with
// ErrPublisherClosed instead of redialing.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return p.teardown()
}
