package storage

import (
	"context"
	"errors"

	"github.com/groom-booking/backend/internal/storage/models"
)

var (
	// ErrNotFound is returned when a booking id does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrSlotTaken is returned when a store-level uniqueness constraint rejects a
	// second occupying booking for the same slot.
	ErrSlotTaken = errors.New("slot already booked")
)

// BookingStore is the durable row storage behind the booking engine. SQLite,
// Postgres, Google Sheets and in-memory backends all satisfy it.
type BookingStore interface {
	// ListBookings returns every booking matching filter.
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)

	// GetBooking returns a single booking or ErrNotFound.
	GetBooking(ctx context.Context, id string) (*models.Booking, error)

	// InsertBooking persists b, assigning its ID and timestamps.
	InsertBooking(ctx context.Context, b *models.Booking) (*models.Booking, error)

	// UpdateBookingStatus overwrites the status of booking id.
	UpdateBookingStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error)
}

// Pinger is implemented by stores that can report connectivity cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks store if it implements Pinger and succeeds otherwise.
func Ping(ctx context.Context, store BookingStore) error {
	if p, ok := store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
