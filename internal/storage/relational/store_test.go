package relational

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/storage/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bookings.db")), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}

	s, err := New(context.Background(), db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func confirmed(date, tod, groomer string) *models.Booking {
	return &models.Booking{
		Date:        date,
		Time:        tod,
		Groomer:     groomer,
		ServiceType: "grooming",
		Pet:         models.PetInfo{Name: "Biscuit", Breed: "Corgi"},
		Customer:    models.CustomerInfo{Name: "Dana", Email: "dana@example.com"},
		Status:      models.StatusConfirmed,
	}
}

func TestStore_InsertListGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.InsertBooking(ctx, confirmed("2025-06-01", "09:00", "Groomer 1"))
	if err != nil {
		t.Fatalf("InsertBooking: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be assigned, got %+v", created)
	}
	if _, err := s.InsertBooking(ctx, confirmed("2025-06-02", "09:00", "Groomer 1")); err != nil {
		t.Fatalf("InsertBooking: %v", err)
	}

	list, err := s.ListBookings(ctx, models.BookingFilter{Date: "2025-06-01"})
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(list) != 1 || list[0].Pet.Name != "Biscuit" || list[0].Customer.Email != "dana@example.com" {
		t.Fatalf("unexpected list %+v", list)
	}

	got, err := s.GetBooking(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Time != "09:00" || got.Status != models.StatusConfirmed {
		t.Fatalf("unexpected booking %+v", got)
	}

	if _, err := s.GetBooking(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_OccupiedSlotIsUnique(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.InsertBooking(ctx, confirmed("2025-06-01", "09:00", "Groomer 1"))
	if err != nil {
		t.Fatalf("InsertBooking: %v", err)
	}

	if _, err := s.InsertBooking(ctx, confirmed("2025-06-01", "09:00", "Groomer 1")); !errors.Is(err, storage.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	if _, err := s.UpdateBookingStatus(ctx, first.ID, models.StatusCancelled); err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if _, err := s.InsertBooking(ctx, confirmed("2025-06-01", "09:00", "Groomer 1")); err != nil {
		t.Fatalf("expected slot to be free after cancellation, got %v", err)
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	b, _ := s.InsertBooking(ctx, confirmed("2025-06-01", "10:00", "Groomer 2"))

	updated, err := s.UpdateBookingStatus(ctx, b.ID, models.StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if updated.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}

	list, _ := s.ListBookings(ctx, models.BookingFilter{Status: models.StatusCompleted})
	if len(list) != 1 {
		t.Fatalf("expected one completed booking, got %d", len(list))
	}

	if _, err := s.UpdateBookingStatus(ctx, "missing", models.StatusCancelled); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
