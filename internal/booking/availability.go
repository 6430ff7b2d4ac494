// Package booking is the slot reservation and availability engine: it resolves
// which slots are free, places holds, and commits bookings to the store.
package booking

import (
	"context"
	"log"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/groom-booking/backend/internal/reservation"
	"github.com/groom-booking/backend/internal/slot"
	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/storage/models"
)

var tracer = otel.Tracer("github.com/groom-booking/backend/internal/booking")

// AvailabilitySlot is one cell of the availability matrix.
type AvailabilitySlot struct {
	Time      string `json:"time"`
	Groomer   string `json:"groomer"`
	Available bool   `json:"available"`
}

// Availability is the result of a resolution. When the store could not be read
// every slot is reported available and Degraded is set.
type Availability struct {
	Date     string
	Slots    []AvailabilitySlot
	Degraded bool
	Error    string
}

// Available reports whether key is listed as free.
func (a Availability) Available(key slot.Key) bool {
	for _, s := range a.Slots {
		if s.Time == key.Time && strings.EqualFold(s.Groomer, key.Groomer) {
			return s.Available
		}
	}
	return false
}

// Resolver computes availability from booked slots in the store and live holds
// in the ledger. It holds no cache of its own.
type Resolver struct {
	store   storage.BookingStore
	ledger  *reservation.Ledger
	catalog *slot.Catalog

	failOpen   atomic.Int64
	onDegraded func(date string, err error)
}

// NewResolver creates a resolver.
func NewResolver(store storage.BookingStore, ledger *reservation.Ledger, catalog *slot.Catalog) *Resolver {
	return &Resolver{store: store, ledger: ledger, catalog: catalog}
}

// OnDegraded registers fn to be called whenever a resolution fails open.
func (r *Resolver) OnDegraded(fn func(date string, err error)) {
	r.onDegraded = fn
}

// FailOpenCount returns how many resolutions have failed open since start.
func (r *Resolver) FailOpenCount() int64 {
	return r.failOpen.Load()
}

// GetAvailability returns every catalog slot for date with its availability.
// It never fails: a store error yields an all-available, degraded result.
func (r *Resolver) GetAvailability(ctx context.Context, date string, forceRefresh bool) Availability {
	date = slot.NormalizeDateIn(date, r.catalog.Location())

	ctx, span := tracer.Start(ctx, "booking.GetAvailability", trace.WithAttributes(
		attribute.String("booking.date", date),
		attribute.Bool("booking.force_refresh", forceRefresh),
	))
	defer span.End()

	result := Availability{Date: date}

	bookings, err := r.store.ListBookings(ctx, models.BookingFilter{Date: date, ForceRefresh: forceRefresh})
	if err != nil {
		n := r.failOpen.Add(1)
		log.Printf("Warning: availability for %s failing open (%d since start): %v", date, n, err)
		span.RecordError(err)
		span.AddEvent("availability.fail_open")
		span.SetStatus(codes.Error, "store read failed")
		if r.onDegraded != nil {
			r.onDegraded(date, err)
		}

		for _, k := range r.catalog.AllSlots(date) {
			result.Slots = append(result.Slots, AvailabilitySlot{Time: k.Time, Groomer: k.Groomer, Available: true})
		}
		result.Degraded = true
		result.Error = "booking store unavailable; showing all slots as open"
		return result
	}

	occupied := make(map[string]bool)
	for _, b := range bookings {
		if !r.occupies(b) {
			continue
		}
		occupied[r.catalog.Key(date, b.Time, b.Groomer).String()] = true
	}

	// Holds are read after the store call so no ledger lock is held across I/O.
	held := r.ledger.ActiveSlotsForDate(date)
	for _, k := range held {
		occupied[r.catalog.Key(date, k.Time, k.Groomer).String()] = true
	}

	for _, k := range r.catalog.AllSlots(date) {
		result.Slots = append(result.Slots, AvailabilitySlot{
			Time:      k.Time,
			Groomer:   k.Groomer,
			Available: !occupied[k.String()],
		})
	}

	span.SetAttributes(
		attribute.Int("booking.bookings", len(bookings)),
		attribute.Int("booking.holds", len(held)),
	)
	return result
}

func (r *Resolver) occupies(b models.Booking) bool {
	return b.Status.Occupies() && r.catalog.OccupiesSlots(b.ServiceType)
}
