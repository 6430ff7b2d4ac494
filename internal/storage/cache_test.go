package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/groom-booking/backend/internal/storage/models"
)

type countingStore struct {
	BookingStore
	lists int
}

func (c *countingStore) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	c.lists++
	return c.BookingStore.ListBookings(ctx, f)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{BookingStore: newTestRepo(t)}
	cache := NewCachedStore(backend, 8, time.Minute)

	if _, err := cache.InsertBooking(ctx, newBooking("2025-06-01", "09:00", "Groomer 1", models.StatusConfirmed)); err != nil {
		t.Fatalf("InsertBooking: %v", err)
	}

	for i := 0; i < 3; i++ {
		list, err := cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01"})
		if err != nil {
			t.Fatalf("ListBookings: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("expected 1 booking, got %d", len(list))
		}
	}
	if backend.lists != 1 {
		t.Fatalf("expected a single backend read, got %d", backend.lists)
	}

	cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01", ForceRefresh: true})
	if backend.lists != 2 {
		t.Fatalf("expected forceRefresh to bypass the cache, got %d reads", backend.lists)
	}

	// Status filters apply to cached rows.
	pending, _ := cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01", Status: models.StatusPending})
	if len(pending) != 0 || backend.lists != 2 {
		t.Fatalf("expected filtered cached read, got %d rows and %d reads", len(pending), backend.lists)
	}

	// Writes invalidate the date.
	cache.InsertBooking(ctx, newBooking("2025-06-01", "10:00", "Groomer 1", models.StatusConfirmed))
	list, _ := cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01"})
	if len(list) != 2 || backend.lists != 3 {
		t.Fatalf("expected invalidated read of 2 rows, got %d rows and %d reads", len(list), backend.lists)
	}

	// Writes made by another replica arrive as explicit invalidations.
	cache.InvalidateDate("2025-06-01")
	cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01"})
	if backend.lists != 4 {
		t.Fatalf("expected InvalidateDate to force a backend read, got %d reads", backend.lists)
	}
}

// gatedStore blocks ListBookings after taking its snapshot until release is
// closed, so a write can land while the read is in flight.
type gatedStore struct {
	BookingStore
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (g *gatedStore) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	list, err := g.BookingStore.ListBookings(ctx, f)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.read)
		<-g.release
	}
	return list, err
}

func TestCachedStore_InFlightReadDoesNotOutliveInsert(t *testing.T) {
	ctx := context.Background()
	backend := &gatedStore{
		BookingStore: newTestRepo(t),
		read:         make(chan struct{}),
		release:      make(chan struct{}),
	}
	cache := NewCachedStore(backend, 8, time.Minute)

	done := make(chan []models.Booking)
	go func() {
		list, _ := cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01"})
		done <- list
	}()
	<-backend.read

	if _, err := cache.InsertBooking(ctx, newBooking("2025-06-01", "09:00", "Groomer 1", models.StatusConfirmed)); err != nil {
		t.Fatalf("InsertBooking: %v", err)
	}
	close(backend.release)
	if snapshot := <-done; len(snapshot) != 0 {
		t.Fatalf("expected the in-flight read to predate the insert, got %d rows", len(snapshot))
	}

	list, err := cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01"})
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the committed booking after the insert, got %d rows", len(list))
	}
}

func TestCachedStore_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{BookingStore: newTestRepo(t)}
	cache := NewCachedStore(backend, 8, time.Minute)

	cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01"})
	cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-02"})
	cache.Invalidate()
	cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01"})
	cache.ListBookings(ctx, models.BookingFilter{Date: "2025-06-02"})
	if backend.lists != 4 {
		t.Fatalf("expected every date to be re-read after Invalidate, got %d reads", backend.lists)
	}
}
