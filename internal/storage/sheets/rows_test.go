package sheets

import (
	"testing"
	"time"

	"github.com/groom-booking/backend/internal/storage/models"
)

func TestRowToBooking_SheetFormattedValues(t *testing.T) {
	cells := []any{
		"abc-123", "6/1/2025", "9:00:00 AM", "Groomer 2", "Grooming",
		"Biscuit", "Corgi", "small", "",
		"Dana", "dana@example.com", "555-0100",
		"Confirmed", "2025-05-30T12:00:00Z",
	}

	b, ok := RowToBooking(cells, time.UTC)
	if !ok {
		t.Fatalf("expected row to map")
	}
	if b.Date != "2025-06-01" || b.Time != "09:00" {
		t.Fatalf("expected normalized date/time, got %q %q", b.Date, b.Time)
	}
	if b.ServiceType != "grooming" || b.Status != models.StatusConfirmed {
		t.Fatalf("unexpected service/status %q %q", b.ServiceType, b.Status)
	}
	if b.Pet.Name != "Biscuit" || b.Customer.Phone != "555-0100" {
		t.Fatalf("unexpected pet/customer %+v %+v", b.Pet, b.Customer)
	}
	if !b.CreatedAt.Equal(time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created_at %v", b.CreatedAt)
	}
}

func TestRowToBooking_ShortAndLegacyRows(t *testing.T) {
	// Trailing empty cells are omitted by the API.
	b, ok := RowToBooking([]any{"id-1", "2025-06-01", "10:00"}, time.UTC)
	if !ok {
		t.Fatalf("expected short row to map")
	}
	if b.Groomer != "" || b.Status != models.StatusPending {
		t.Fatalf("expected blank groomer and pending status, got %+v", b)
	}

	if _, ok := RowToBooking([]any{"", "2025-06-01"}, time.UTC); ok {
		t.Fatalf("rows without an id must be skipped")
	}
	if _, ok := RowToBooking([]any{}, time.UTC); ok {
		t.Fatalf("empty rows must be skipped")
	}
}

func TestBookingToRow_RoundTripsThroughRowToBooking(t *testing.T) {
	in := models.Booking{
		ID:          "id-9",
		Date:        "2025-06-01",
		Time:        "14:00",
		Groomer:     "Groomer 1",
		ServiceType: "grooming",
		Pet:         models.PetInfo{Name: "Rex"},
		Customer:    models.CustomerInfo{Name: "Sam", Email: "sam@example.com"},
		Status:      models.StatusCancelled,
		CreatedAt:   time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	row := BookingToRow(in)
	if len(row) != len(header) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(header))
	}

	out, ok := RowToBooking(row, time.UTC)
	if !ok {
		t.Fatalf("expected row to map back")
	}
	if out.ID != in.ID || out.Date != in.Date || out.Time != in.Time || out.Status != in.Status {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}
