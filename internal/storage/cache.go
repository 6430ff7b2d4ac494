package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/groom-booking/backend/internal/storage/models"
)

// CachedStore decorates a BookingStore with a short-lived per-date read cache.
// Slow backends such as a spreadsheet benefit most. Writes through the
// decorator invalidate the affected date.
type CachedStore struct {
	next  BookingStore
	dates *expirable.LRU[string, []models.Booking]

	// gen counts invalidations per date. A read only fills the cache if no
	// invalidation of its date happened while it was in flight.
	mu     sync.Mutex
	gen    map[string]uint64
	purges uint64
}

// NewCachedStore wraps next. size bounds the number of cached dates and ttl how
// long a cached date is served before the backend is read again.
func NewCachedStore(next BookingStore, size int, ttl time.Duration) *CachedStore {
	if size <= 0 {
		size = 64
	}
	return &CachedStore{
		next:  next,
		dates: expirable.NewLRU[string, []models.Booking](size, nil, ttl),
		gen:   make(map[string]uint64),
	}
}

// ListBookings serves date-filtered reads from cache unless ForceRefresh is set.
// Reads without a date always go to the backend.
func (c *CachedStore) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.Date == "" {
		return c.next.ListBookings(ctx, filter)
	}

	all, ok := c.dates.Get(filter.Date)
	if !ok || filter.ForceRefresh {
		gen, purges := c.generation(filter.Date)

		var err error
		all, err = c.next.ListBookings(ctx, models.BookingFilter{Date: filter.Date, ForceRefresh: filter.ForceRefresh})
		if err != nil {
			return nil, err
		}
		c.fill(filter.Date, all, gen, purges)
	}

	out := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *CachedStore) generation(date string) (uint64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[date], c.purges
}

// fill caches rows read at generation gen unless date was invalidated since.
func (c *CachedStore) fill(date string, rows []models.Booking, gen, purges uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[date] != gen || c.purges != purges {
		return
	}
	c.dates.Add(date, rows)
}

// GetBooking reads through to the backend.
func (c *CachedStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return c.next.GetBooking(ctx, id)
}

// InsertBooking writes through and invalidates the booking's date.
func (c *CachedStore) InsertBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	defer c.InvalidateDate(b.Date)
	return c.next.InsertBooking(ctx, b)
}

// UpdateBookingStatus writes through and invalidates the booking's date.
func (c *CachedStore) UpdateBookingStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error) {
	updated, err := c.next.UpdateBookingStatus(ctx, id, status)
	if updated != nil {
		c.InvalidateDate(updated.Date)
	}
	return updated, err
}

// InvalidateDate drops the cached bookings for one date and discards any read
// of that date still in flight.
func (c *CachedStore) InvalidateDate(date string) {
	c.mu.Lock()
	c.gen[date]++
	c.dates.Remove(date)
	c.mu.Unlock()
}

// Invalidate drops every cached date and discards reads in flight.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.purges++
	c.dates.Purge()
	c.mu.Unlock()
}

// Ping forwards to the wrapped store.
func (c *CachedStore) Ping(ctx context.Context) error {
	return Ping(ctx, c.next)
}
