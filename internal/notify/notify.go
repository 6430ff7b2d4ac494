package notify

import (
	"context"
	"errors"
	"log"

	"github.com/groom-booking/backend/internal/storage/models"
)

// Notifier receives committed booking events.
type Notifier interface {
	BookingCreated(ctx context.Context, b models.Booking) error
	BookingStatusChanged(ctx context.Context, b models.Booking, previous models.Status) error
}

// LogNotifier writes events to the standard logger. It stands in for the
// broker when none is configured.
type LogNotifier struct{}

func (LogNotifier) BookingCreated(ctx context.Context, b models.Booking) error {
	key, _ := NewCreatedEvent(b)
	log.Printf("Event %s: booking %s on %s %s with %s for %s", key, b.ID, b.Date, b.Time, b.Groomer, b.Customer.Name)
	return nil
}

func (LogNotifier) BookingStatusChanged(ctx context.Context, b models.Booking, previous models.Status) error {
	log.Printf("Event %s: booking %s %s -> %s", KeyBookingStatusChanged, b.ID, previous, b.Status)
	return nil
}

// Fanout delivers every event to each notifier in turn. One failing notifier
// does not stop the others.
type Fanout []Notifier

func (f Fanout) BookingCreated(ctx context.Context, b models.Booking) error {
	var errs []error
	for _, n := range f {
		if err := n.BookingCreated(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) BookingStatusChanged(ctx context.Context, b models.Booking, previous models.Status) error {
	var errs []error
	for _, n := range f {
		if err := n.BookingStatusChanged(ctx, b, previous); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
