// Package memory provides an in-process BookingStore for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/storage/models"
)

// Store keeps bookings in a map. Like the SQL stores it rejects a second
// occupying booking on the same slot and service.
type Store struct {
	mu       sync.RWMutex
	bookings map[string]models.Booking
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		bookings: make(map[string]models.Booking),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListBookings returns matching bookings ordered by date, time and groomer.
func (s *Store) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Booking
	for _, b := range s.bookings {
		if filter.Matches(b) {
			out = append(out, b)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Groomer != b.Groomer {
			return a.Groomer < b.Groomer
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

// GetBooking returns the booking with id or storage.ErrNotFound.
func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

// InsertBooking stores a copy of b with a fresh id.
func (s *Store) InsertBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := *b
	if out.Status.Occupies() && s.occupiedLocked(out, "") {
		return nil, storage.ErrSlotTaken
	}

	out.ID = uuid.NewString()
	out.CreatedAt = s.now()
	out.UpdatedAt = out.CreatedAt
	s.bookings[out.ID] = out

	return &out, nil
}

// UpdateBookingStatus overwrites the status of booking id.
func (s *Store) UpdateBookingStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	b.Status = status
	if status.Occupies() && s.occupiedLocked(b, id) {
		return nil, storage.ErrSlotTaken
	}

	b.UpdatedAt = s.now()
	s.bookings[id] = b
	return &b, nil
}

func (s *Store) occupiedLocked(b models.Booking, excludeID string) bool {
	for id, other := range s.bookings {
		if id == excludeID || !other.Status.Occupies() {
			continue
		}
		if other.Date == b.Date && other.Time == b.Time &&
			strings.EqualFold(other.Groomer, b.Groomer) &&
			other.ServiceType == b.ServiceType {
			return true
		}
	}
	return false
}
