// Package events implements the delivery-event broker adapter
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"dealerchat/internal/core/domain"
	"dealerchat/internal/core/ports"
)

// Ensure both publishers implement the port
var (
	_ ports.EventPublisher = (*AMQPPublisher)(nil)
	_ ports.EventPublisher = (*NoopPublisher)(nil)
)

// Envelope wraps every published event
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Meta carries event identity and timing
type Meta struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AMQPPublisher publishes delivery events to a topic exchange
type AMQPPublisher struct {
	conn     *amqp091.Connection
	exchange string
}

// NewAMQPPublisher dials the broker and declares the exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{
		conn:     conn,
		exchange: exchange,
	}, nil
}

// PublishDelivery emits one delivery record, routed by transport
func (p *AMQPPublisher) PublishDelivery(ctx context.Context, evt *domain.DeliveryEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(Envelope{
		Meta: Meta{
			EventID:    evt.EventID,
			EventType:  "whatsapp.delivery.sent",
			OccurredAt: evt.SentAt,
		},
		Data: evt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := fmt.Sprintf("whatsapp.%s.sent", evt.Source)
	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp091.Publishing{
		ContentType: "application/json",
		MessageId:   evt.EventID,
		Timestamp:   evt.SentAt,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Debug("Delivery event published",
		"event_id", evt.EventID,
		"routing_key", key,
	)
	return nil
}

// Close releases the broker connection
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

// PublishDelivery does nothing
func (NoopPublisher) PublishDelivery(ctx context.Context, evt *domain.DeliveryEvent) error {
	return nil
}
