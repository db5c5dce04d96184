package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
)

type mockChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (m *mockChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	m.exchange = exchange
	m.key = key
	m.msg = msg
	return m.err
}

func (m *mockChannel) Close() error {
	m.closed = true
	return nil
}

func TestAMQPPublisher_PublishStatusChange(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "billing.events")
	change := StatusChange{
		UserID:         "u1",
		Email:          "a@x.com",
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		PreviousStatus: "pending",
		Status:         "active",
		Source:         "webhook",
		OccurredAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := p.PublishStatusChange(context.Background(), change); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ch.exchange != "billing.events" || ch.key != RoutingKeyStatusChanged {
		t.Fatalf("unexpected routing %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.ContentType != "application/json" || ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing headers %+v", ch.msg)
	}
	var got StatusChange
	if err := json.Unmarshal(ch.msg.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !got.OccurredAt.Equal(change.OccurredAt) {
		t.Fatalf("expected occurred_at %s, got %s", change.OccurredAt, got.OccurredAt)
	}
	got.OccurredAt = change.OccurredAt
	if got != change {
		t.Fatalf("expected %+v, got %+v", change, got)
	}
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := &mockChannel{err: errors.New("channel closed")}
	p := newAMQPPublisher(ch, "billing.events")

	if err := p.PublishStatusChange(context.Background(), StatusChange{Status: "active"}); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestAMQPPublisher_CanceledContext(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "billing.events")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.PublishStatusChange(ctx, StatusChange{Status: "active"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if ch.key != "" {
		t.Fatalf("nothing should be published on a canceled context")
	}
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQPPublisher(ch, "billing.events")
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ch.closed {
		t.Fatalf("expected channel to be closed")
	}
}
