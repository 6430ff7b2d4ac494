// Package notify delivers booking events to downstream consumers such as the
// confirmation email sender.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/groom-booking/backend/internal/storage/models"
)

// Routing keys published on the bookings exchange.
const (
	KeyBookingConfirmed     = "booking.confirmed"
	KeyBookingCreated       = "booking.created"
	KeyBookingStatusChanged = "booking.status_changed"
)

// Event is the JSON body of every published message.
type Event struct {
	Type           string         `json:"type"`
	Booking        models.Booking `json:"booking"`
	PreviousStatus models.Status  `json:"previous_status,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

// NewCreatedEvent builds the event for a new booking. Confirmed bookings use
// the confirmation key so the email sender can subscribe to just those.
func NewCreatedEvent(b models.Booking) (string, Event) {
	key := KeyBookingCreated
	if b.Status == models.StatusConfirmed {
		key = KeyBookingConfirmed
	}
	return key, Event{Type: key, Booking: b, OccurredAt: time.Now().UTC()}
}

// NewStatusEvent builds the event for a status change.
func NewStatusEvent(b models.Booking, previous models.Status) (string, Event) {
	return KeyBookingStatusChanged, Event{
		Type:           KeyBookingStatusChanged,
		Booking:        b,
		PreviousStatus: previous,
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher sends booking events to a RabbitMQ topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishJSON marshals v and publishes it with the given routing key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
	})
}

// BookingCreated publishes a created or confirmed event.
func (p *Publisher) BookingCreated(ctx context.Context, b models.Booking) error {
	key, ev := NewCreatedEvent(b)
	return p.PublishJSON(ctx, key, ev)
}

// BookingStatusChanged publishes a status change event.
func (p *Publisher) BookingStatusChanged(ctx context.Context, b models.Booking, previous models.Status) error {
	key, ev := NewStatusEvent(b, previous)
	return p.PublishJSON(ctx, key, ev)
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
