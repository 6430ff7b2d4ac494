package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer reads booking events from the exchange on a private queue. Each
// server instance gets its own queue so every replica sees every event.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewConsumer dials url and binds a server-named, exclusive queue to keys on
// the topic exchange.
func NewConsumer(url, exchange string, keys ...string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange: %w", err))
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fail(fmt.Errorf("declare queue: %w", err))
	}
	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fail(fmt.Errorf("bind %s: %w", key, err))
		}
	}

	return &Consumer{conn: conn, ch: ch, queue: q.Name}, nil
}

// Listen hands every decodable event to fn until ctx is cancelled or the
// channel closes. Undecodable messages are logged and dropped.
func (c *Consumer) Listen(ctx context.Context, fn func(Event)) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			ev, err := DecodeEvent(d.Body)
			if err != nil {
				log.Printf("Warning: dropping booking event %q: %v", d.RoutingKey, err)
				_ = d.Nack(false, false)
				continue
			}
			fn(ev)
			_ = d.Ack(false)
		}
	}
}

// Close closes the channel and connection.
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// DecodeEvent parses a published event body.
func DecodeEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, err
	}
	if ev.Booking.Date == "" {
		return Event{}, fmt.Errorf("event %q has no booking date", ev.Type)
	}
	return ev, nil
}

// DateInvalidator drops cached state for a date.
type DateInvalidator interface {
	InvalidateDate(date string)
}

// InvalidateOnEvent returns a Listen callback that evicts the event's date
// from cache.
func InvalidateOnEvent(cache DateInvalidator) func(Event) {
	return func(ev Event) {
		cache.InvalidateDate(ev.Booking.Date)
	}
}

// CacheInvalidator drops cached state per date or entirely.
type CacheInvalidator interface {
	DateInvalidator
	Invalidate()
}

// eventSource is satisfied by *Consumer.
type eventSource interface {
	Listen(ctx context.Context, fn func(Event)) error
	Close() error
}

// CacheSync keeps a read cache in step with bookings written by other
// replicas, reconnecting to the broker whenever the consumer stops.
type CacheSync struct {
	dial  func() (eventSource, error)
	cache CacheInvalidator
	retry time.Duration
}

// NewCacheSync creates a sync loop consuming booking.* from exchange.
func NewCacheSync(url, exchange string, cache CacheInvalidator, retry time.Duration) *CacheSync {
	return &CacheSync{
		dial: func() (eventSource, error) {
			return NewConsumer(url, exchange, "booking.*")
		},
		cache: cache,
		retry: retry,
	}
}

// Run consumes until ctx is cancelled. Events published while disconnected
// are lost, so the whole cache is dropped on every (re)connect.
func (s *CacheSync) Run(ctx context.Context) {
	for {
		src, err := s.dial()
		if err != nil {
			log.Printf("Warning: cache sync cannot reach broker: %v", err)
		} else {
			s.cache.Invalidate()
			if err := src.Listen(ctx, InvalidateOnEvent(s.cache)); err != nil {
				log.Printf("Warning: cache sync stopped: %v", err)
			}
			src.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retry):
		}
	}
}
