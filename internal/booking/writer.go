package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/groom-booking/backend/internal/reservation"
	"github.com/groom-booking/backend/internal/slot"
	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/storage/models"
)

// Notifier receives booking events after they are committed. Calls are made
// in the background and their errors are only logged.
type Notifier interface {
	BookingCreated(ctx context.Context, b models.Booking) error
	BookingStatusChanged(ctx context.Context, b models.Booking, previous models.Status) error
}

// notifyTimeout bounds a single background notification.
const notifyTimeout = 10 * time.Second

// Request is a booking submission.
type Request struct {
	Date          string
	Time          string
	Groomer       string
	ServiceType   string
	Pet           models.PetInfo
	Customer      models.CustomerInfo
	ReservationID string
}

// Writer commits bookings to the store after checking the slot is free.
type Writer struct {
	store    storage.BookingStore
	resolver *Resolver
	ledger   *reservation.Ledger
	catalog  *slot.Catalog
	notifier Notifier
	listener HoldListener

	// StrictTransitions enforces the status transition table on updates.
	StrictTransitions bool
}

// NewWriter creates a booking writer. notifier and listener may be nil.
func NewWriter(store storage.BookingStore, resolver *Resolver, ledger *reservation.Ledger, catalog *slot.Catalog, notifier Notifier, listener HoldListener) *Writer {
	return &Writer{
		store:    store,
		resolver: resolver,
		ledger:   ledger,
		catalog:  catalog,
		notifier: notifier,
		listener: listener,
	}
}

// CreateBooking validates req, checks the slot and inserts a confirmed booking.
// Other statuses are reached only through UpdateBookingStatus. With a
// reservation id the hold is trusted; without one availability and the store
// are both checked. The hold is released only after a successful insert.
func (w *Writer) CreateBooking(ctx context.Context, req Request) (*models.Booking, error) {
	key, err := resolveKey(w.catalog, req.Date, req.Time, req.Groomer)
	if err != nil {
		return nil, err
	}
	if err := validateContact(req); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "booking.CreateBooking", trace.WithAttributes(
		attribute.String("booking.slot", key.String()),
		attribute.Bool("booking.with_hold", req.ReservationID != ""),
	))
	defer span.End()

	if req.ReservationID != "" {
		if !w.ledger.Validate(key, req.ReservationID) {
			span.SetStatus(codes.Error, "hold invalid")
			return nil, slotUnavailable(MsgHoldExpired)
		}
	} else if err := w.checkFree(ctx, key, ""); err != nil {
		span.SetStatus(codes.Error, "slot taken")
		return nil, err
	}

	service := strings.ToLower(strings.TrimSpace(req.ServiceType))
	if service == "" {
		service = w.catalog.Service()
	}

	row := &models.Booking{
		Date:        key.Date,
		Time:        key.Time,
		Groomer:     key.Groomer,
		ServiceType: service,
		Pet:         trimPet(req.Pet),
		Customer:    trimCustomer(req.Customer),
		Status:      models.StatusConfirmed,
	}

	created, err := w.store.InsertBooking(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if errors.Is(err, storage.ErrSlotTaken) {
			return nil, slotUnavailable(MsgSlotTaken)
		}
		return nil, storeError("saving booking", err)
	}

	if req.ReservationID != "" {
		if h, ok := w.ledger.RemoveByID(req.ReservationID); ok && w.listener != nil {
			w.listener.SlotReleased(h)
		}
	}

	log.Printf("Booking %s created for %s (%s)", created.ID, key, created.Status)
	w.notify(func(ctx context.Context, n Notifier) error {
		return n.BookingCreated(ctx, *created)
	})
	return created, nil
}

// UpdateBookingStatus overwrites the status of booking id. Moving a booking
// into an occupying status re-checks that nobody else holds its slot.
func (w *Writer) UpdateBookingStatus(ctx context.Context, id, status string) (*models.Booking, error) {
	next, ok := models.ParseStatus(status)
	if !ok {
		return nil, validationError("status", fmt.Sprintf("unknown status %q", status))
	}

	current, err := w.store.GetBooking(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &Error{Kind: ErrBookingNotFound, Message: "booking not found"}
	}
	if err != nil {
		return nil, storeError("loading booking", err)
	}

	previous := current.Status
	if w.StrictTransitions && !CanTransition(previous, next) {
		return nil, validationError("status", fmt.Sprintf("cannot move from %s to %s", previous, next))
	}

	if next.Occupies() && !previous.Occupies() && w.catalog.OccupiesSlots(current.ServiceType) {
		key := w.catalog.Key(current.Date, current.Time, current.Groomer)
		if err := w.checkFree(ctx, key, current.ID); err != nil {
			return nil, err
		}
	}

	updated, err := w.store.UpdateBookingStatus(ctx, id, next)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, &Error{Kind: ErrBookingNotFound, Message: "booking not found"}
	case errors.Is(err, storage.ErrSlotTaken):
		return nil, slotUnavailable(MsgSlotTaken)
	case err != nil:
		return nil, storeError("updating booking status", err)
	}

	log.Printf("Booking %s status %s -> %s", id, previous, next)
	w.notify(func(ctx context.Context, n Notifier) error {
		return n.BookingStatusChanged(ctx, *updated, previous)
	})
	return updated, nil
}

// GetBooking returns one booking.
func (w *Writer) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := w.store.GetBooking(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &Error{Kind: ErrBookingNotFound, Message: "booking not found"}
	}
	if err != nil {
		return nil, storeError("loading booking", err)
	}
	return b, nil
}

// ListBookings returns bookings matching filter. Dates are normalized and
// statuses validated first.
func (w *Writer) ListBookings(ctx context.Context, date, status string) ([]models.Booking, error) {
	var filter models.BookingFilter
	if strings.TrimSpace(date) != "" {
		filter.Date = slot.NormalizeDateIn(date, w.catalog.Location())
		if !slot.ValidDate(filter.Date) {
			return nil, validationError("date", "must be a date like 2025-06-01")
		}
	}
	if strings.TrimSpace(status) != "" {
		s, ok := models.ParseStatus(status)
		if !ok {
			return nil, validationError("status", fmt.Sprintf("unknown status %q", status))
		}
		filter.Status = s
	}

	list, err := w.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, storeError("listing bookings", err)
	}
	return list, nil
}

// checkFree confirms key is free in a fresh resolution and has no occupying
// booking in the store other than excludeID. The second read guards against
// rows the resolver's snapshot missed.
func (w *Writer) checkFree(ctx context.Context, key slot.Key, excludeID string) error {
	if excludeID == "" {
		avail := w.resolver.GetAvailability(ctx, key.Date, true)
		if !avail.Available(key) {
			return slotUnavailable(MsgSlotTaken)
		}
	}

	existing, err := w.store.ListBookings(ctx, models.BookingFilter{Date: key.Date, ForceRefresh: true})
	if err != nil {
		return storeError("checking slot", err)
	}
	for _, b := range existing {
		if b.ID == excludeID || !b.Status.Occupies() || !w.catalog.OccupiesSlots(b.ServiceType) {
			continue
		}
		if w.catalog.Key(b.Date, b.Time, b.Groomer) == key {
			return slotUnavailable(MsgSlotTaken)
		}
	}
	return nil
}

func (w *Writer) notify(fn func(context.Context, Notifier) error) {
	if w.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx, w.notifier); err != nil {
			log.Printf("Warning: booking notification failed: %v", err)
		}
	}()
}

func validateContact(req Request) error {
	if strings.TrimSpace(req.Customer.Name) == "" {
		return validationError("customer.name", "is required")
	}
	email := strings.TrimSpace(req.Customer.Email)
	phone := strings.TrimSpace(req.Customer.Phone)
	if email == "" && phone == "" {
		return validationError("customer", "email or phone is required")
	}
	if email != "" && !strings.Contains(email, "@") {
		return validationError("customer.email", "is not a valid email address")
	}
	if strings.TrimSpace(req.Pet.Name) == "" {
		return validationError("pet.name", "is required")
	}
	return nil
}

func trimPet(p models.PetInfo) models.PetInfo {
	return models.PetInfo{
		Name:  strings.TrimSpace(p.Name),
		Breed: strings.TrimSpace(p.Breed),
		Size:  strings.TrimSpace(p.Size),
		Notes: strings.TrimSpace(p.Notes),
	}
}

func trimCustomer(c models.CustomerInfo) models.CustomerInfo {
	return models.CustomerInfo{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}
