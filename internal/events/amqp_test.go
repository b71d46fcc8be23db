package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return amqp091.ErrClosed
	}
	c.closed = true
	return nil
}

type fakeChannel struct {
	fakeConn
	published []string
	// failNext closes the channel and fails the next publish, as the broker
	// does when it tears the channel down mid-flight.
	failNext bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, _ amqp091.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return amqp091.ErrClosed
	}
	if c.failNext {
		c.failNext = false
		c.closed = true
		return amqp091.ErrClosed
	}
	c.published = append(c.published, key)
	return nil
}

type fakeBroker struct {
	dials    int
	failDial error
	channels []*fakeChannel
	conns    []*fakeConn
}

func (b *fakeBroker) dial(_, _ string) (amqpConn, amqpChannel, error) {
	b.dials++
	if b.failDial != nil {
		return nil, nil, b.failDial
	}
	conn, ch := &fakeConn{}, &fakeChannel{}
	b.conns = append(b.conns, conn)
	b.channels = append(b.channels, ch)
	return conn, ch, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAMQPPublisher(t *testing.T, b *fakeBroker) *AMQPPublisher {
	t.Helper()
	p, err := newAMQPPublisher("amqp://broker", "tally.events", b.dial, quietLogger())
	if err != nil {
		t.Fatalf("newAMQPPublisher failed: %v", err)
	}
	return p
}

func TestAMQPPublisher_RedialsAfterConnectionDrop(t *testing.T) {
	b := &fakeBroker{}
	p := newTestAMQPPublisher(t, b)
	ctx := context.Background()

	if err := p.Publish(ctx, AccountDeleted("u1", time.Now())); err != nil {
		t.Fatalf("first Publish: %v", err)
	}

	_ = b.conns[0].Close()

	if err := p.Publish(ctx, TransactionDeleted("u1", "t1", time.Now())); err != nil {
		t.Fatalf("Publish after drop: %v", err)
	}

	if b.dials != 2 {
		t.Errorf("dials = %d, want 2", b.dials)
	}
	if got := b.channels[1].published; len(got) != 1 || got[0] != TypeTransactionDeleted {
		t.Errorf("redialed channel published %v", got)
	}
	if !b.channels[0].IsClosed() {
		t.Error("stale channel left open")
	}
}

func TestAMQPPublisher_RetriesOnceWhenChannelClosesMidPublish(t *testing.T) {
	b := &fakeBroker{}
	p := newTestAMQPPublisher(t, b)
	b.channels[0].failNext = true

	if err := p.Publish(context.Background(), AccountDeleted("u1", time.Now())); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if b.dials != 2 {
		t.Errorf("dials = %d, want 2", b.dials)
	}
	if got := b.channels[1].published; len(got) != 1 || got[0] != TypeAccountDeleted {
		t.Errorf("retry published %v", got)
	}
}

func TestAMQPPublisher_RedialFailureIsRetriedLater(t *testing.T) {
	b := &fakeBroker{}
	p := newTestAMQPPublisher(t, b)
	ctx := context.Background()

	_ = b.channels[0].Close()
	b.failDial = errors.New("connection refused")

	err := p.Publish(ctx, AccountDeleted("u1", time.Now()))
	if !errors.Is(err, b.failDial) {
		t.Fatalf("Publish error = %v, want dial error", err)
	}

	b.failDial = nil
	if err := p.Publish(ctx, AccountDeleted("u1", time.Now())); err != nil {
		t.Fatalf("Publish after broker recovered: %v", err)
	}
	if b.dials != 3 {
		t.Errorf("dials = %d, want 3", b.dials)
	}
}

func TestAMQPPublisher_PublishAfterClose(t *testing.T) {
	b := &fakeBroker{}
	p := newTestAMQPPublisher(t, b)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := p.Publish(context.Background(), AccountDeleted("u1", time.Now()))
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish error = %v, want ErrPublisherClosed", err)
	}
	if b.dials != 1 {
		t.Errorf("dials = %d, want 1", b.dials)
	}
}

func TestAMQPPublisher_CloseAfterBrokerDrop(t *testing.T) {
	b := &fakeBroker{}
	p := newTestAMQPPublisher(t, b)
	_ = b.conns[0].Close()

	if err := p.Close(); err != nil {
		t.Errorf("Close after drop: %v", err)
	}
}
