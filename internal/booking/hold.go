package booking

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/groom-booking/backend/internal/reservation"
	"github.com/groom-booking/backend/internal/slot"
)

// Hold modes select the TTL of a new hold.
const (
	ModeBrowse  = "browse"
	ModeReserve = "reserve"
)

// HoldListener is told when holds appear and disappear.
type HoldListener interface {
	SlotHeld(h reservation.Hold)
	SlotReleased(h reservation.Hold)
}

// TTLs are the hold durations per mode.
type TTLs struct {
	Browse  time.Duration
	Reserve time.Duration
}

// ReserveRequest asks for a hold on one slot.
type ReserveRequest struct {
	Date    string
	Time    string
	Groomer string
	Mode    string
}

// HoldService places, looks up and releases holds on behalf of clients.
type HoldService struct {
	resolver *Resolver
	ledger   *reservation.Ledger
	catalog  *slot.Catalog
	ttls     TTLs
	listener HoldListener
}

// NewHoldService creates a hold service. listener may be nil.
func NewHoldService(resolver *Resolver, ledger *reservation.Ledger, catalog *slot.Catalog, ttls TTLs, listener HoldListener) *HoldService {
	if ttls.Browse <= 0 {
		ttls.Browse = 5 * time.Minute
	}
	if ttls.Reserve <= 0 {
		ttls.Reserve = 10 * time.Minute
	}
	return &HoldService{
		resolver: resolver,
		ledger:   ledger,
		catalog:  catalog,
		ttls:     ttls,
		listener: listener,
	}
}

// TTLs returns the configured hold durations.
func (s *HoldService) TTLs() TTLs {
	return s.ttls
}

// Reserve checks the slot against fresh availability and places a hold on it.
// It fails with ErrSlotUnavailable when the slot is booked or already held.
func (s *HoldService) Reserve(ctx context.Context, req ReserveRequest) (reservation.Hold, error) {
	key, err := resolveKey(s.catalog, req.Date, req.Time, req.Groomer)
	if err != nil {
		return reservation.Hold{}, err
	}

	var ttl time.Duration
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "", ModeReserve:
		ttl = s.ttls.Reserve
	case ModeBrowse:
		ttl = s.ttls.Browse
	default:
		return reservation.Hold{}, validationError("mode", "must be browse or reserve")
	}

	avail := s.resolver.GetAvailability(ctx, key.Date, true)
	if !avail.Available(key) {
		return reservation.Hold{}, slotUnavailable(MsgSlotTaken)
	}

	h, ok := s.ledger.Create(key, ttl)
	if !ok {
		return reservation.Hold{}, slotUnavailable(MsgSlotTaken)
	}

	log.Printf("Hold %s placed on %s for %s", h.ID, key, ttl)
	if s.listener != nil {
		s.listener.SlotHeld(h)
	}
	return h, nil
}

// ExpiresIn returns the time h has left.
func (s *HoldService) ExpiresIn(h reservation.Hold) time.Duration {
	return h.Remaining(s.ledger.Now())
}

// ActiveHolds returns the number of holds in the ledger.
func (s *HoldService) ActiveHolds() int {
	return s.ledger.Len()
}

// Lookup returns the live hold with id.
func (s *HoldService) Lookup(id string) (reservation.Hold, error) {
	h, ok := s.ledger.Get(id)
	if !ok {
		return reservation.Hold{}, &Error{Kind: ErrReservationNotFound, Message: "reservation not found or expired"}
	}
	return h, nil
}

// Release removes the hold with id, e.g. when the client picks another slot.
func (s *HoldService) Release(id string) error {
	h, ok := s.ledger.RemoveByID(id)
	if !ok {
		return &Error{Kind: ErrReservationNotFound, Message: "reservation not found or expired"}
	}
	if s.listener != nil {
		s.listener.SlotReleased(h)
	}
	return nil
}

// resolveKey validates and normalizes the slot fields of a request. A blank
// groomer falls to the default; an unknown one is rejected.
func resolveKey(c *slot.Catalog, date, tod, groomer string) (slot.Key, error) {
	if strings.TrimSpace(date) == "" {
		return slot.Key{}, validationError("appointmentDate", "is required")
	}
	d := slot.NormalizeDateIn(date, c.Location())
	if !slot.ValidDate(d) {
		return slot.Key{}, validationError("appointmentDate", "must be a date like 2025-06-01")
	}

	if strings.TrimSpace(tod) == "" {
		return slot.Key{}, validationError("appointmentTime", "is required")
	}
	if !c.HasTime(tod) {
		return slot.Key{}, validationError("appointmentTime", "is not an offered slot time")
	}

	g := c.DefaultGroomer()
	if strings.TrimSpace(groomer) != "" {
		var ok bool
		if g, ok = c.LookupGroomer(groomer); !ok {
			return slot.Key{}, validationError("groomer", "is not a known groomer")
		}
	}

	return slot.Key{Date: d, Time: slot.NormalizeTimeIn(tod, c.Location()), Groomer: g}, nil
}
