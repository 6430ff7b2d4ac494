package websocket

import (
	"context"
	"log"

	"github.com/groom-booking/backend/internal/reservation"
	"github.com/groom-booking/backend/internal/storage/models"
)

// EventBroadcaster turns domain events into hub broadcasts. It serves as both
// the hold listener and a booking notifier.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a broadcaster on hub.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// SlotHeld broadcasts a slot.held event.
func (b *EventBroadcaster) SlotHeld(h reservation.Hold) {
	expires := h.ExpiresAt().UTC()
	b.broadcast(h.Slot.Date, NewMessage(TypeSlotHeld, SlotPayload{
		ReservationID: h.ID,
		Date:          h.Slot.Date,
		Time:          h.Slot.Time,
		Groomer:       h.Slot.Groomer,
		ExpiresAt:     &expires,
	}))
}

// SlotReleased broadcasts a slot.released event.
func (b *EventBroadcaster) SlotReleased(h reservation.Hold) {
	b.broadcast(h.Slot.Date, NewMessage(TypeSlotReleased, SlotPayload{
		ReservationID: h.ID,
		Date:          h.Slot.Date,
		Time:          h.Slot.Time,
		Groomer:       h.Slot.Groomer,
	}))
}

// BookingCreated broadcasts a booking.created event.
func (b *EventBroadcaster) BookingCreated(ctx context.Context, bk models.Booking) error {
	b.broadcast(bk.Date, NewMessage(TypeBookingCreated, bookingPayload(bk, "")))
	return nil
}

// BookingStatusChanged broadcasts a booking.status_changed event.
func (b *EventBroadcaster) BookingStatusChanged(ctx context.Context, bk models.Booking, previous models.Status) error {
	b.broadcast(bk.Date, NewMessage(TypeBookingStatusChanged, bookingPayload(bk, previous)))
	return nil
}

// AvailabilityDegraded broadcasts that availability for date is failing open.
func (b *EventBroadcaster) AvailabilityDegraded(date string, err error) {
	b.broadcast(date, NewMessage(TypeAvailabilityDegraded, DegradedPayload{
		Date:    date,
		Message: err.Error(),
	}))
}

func bookingPayload(bk models.Booking, previous models.Status) BookingPayload {
	return BookingPayload{
		BookingID:      bk.ID,
		Date:           bk.Date,
		Time:           bk.Time,
		Groomer:        bk.Groomer,
		ServiceType:    bk.ServiceType,
		PetName:        bk.Pet.Name,
		Status:         string(bk.Status),
		PreviousStatus: string(previous),
	}
}

func (b *EventBroadcaster) broadcast(date string, msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.BroadcastFor(date, data)
}
