//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/tallybook/tally/internal/testutil"
)

func TestIntegrationAMQPPublisher_RoutesByType(t *testing.T) {
	url := testutil.RequireEnv(t, "TEST_AMQP_URL")
	exchange := testutil.UniqueID("tally-test")

	pub, err := NewAMQPPublisher(url, exchange, nil)
	if err != nil {
		t.Fatalf("NewAMQPPublisher failed: %v", err)
	}
	defer pub.Close()

	conn, err := amqp091.Dial(url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatalf("declare queue: %v", err)
	}
	if err := ch.QueueBind(q.Name, "transaction.*", exchange, false, nil); err != nil {
		t.Fatalf("bind queue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pub.Publish(ctx, AccountDeleted("u1", time.Now())); err != nil {
		t.Fatalf("Publish account event: %v", err)
	}
	if err := pub.Publish(ctx, TransactionDeleted("u1", "t1", time.Now())); err != nil {
		t.Fatalf("Publish transaction event: %v", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	select {
	case d := <-msgs:
		e, err := Unmarshal(d.Body)
		if err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if e.Type != TypeTransactionDeleted || e.TransactionID != "t1" {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
