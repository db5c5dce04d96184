// Package events publica cambios de estado de suscripcion hacia RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// RoutingKeyStatusChanged es la clave de ruteo de cada cambio de estado.
const RoutingKeyStatusChanged = "subscription.status_changed"

// StatusChange describe una escritura de estado ya persistida.
type StatusChange struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	CustomerID     string    `json:"customer_id"`
	SubscriptionID string    `json:"subscription_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	Source         string    `json:"source"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher emite cambios de estado.
type Publisher interface {
	PublishStatusChange(ctx context.Context, change StatusChange) error
	Close() error
}

// NopPublisher descarta todo; se usa cuando AMQP_URL no esta configurado.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChange(context.Context, StatusChange) error { return nil }
func (NopPublisher) Close() error                                            { return nil }

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publica en un exchange topic.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

// DialAMQP conecta, abre un canal y declara el exchange (topic, durable).
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	const op = "events.DialAMQP"
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func newAMQPPublisher(ch amqpChannel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

func (p *AMQPPublisher) PublishStatusChange(ctx context.Context, change StatusChange) error {
	const op = "events.PublishStatusChange"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(p.exchange, RoutingKeyStatusChanged, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    change.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
