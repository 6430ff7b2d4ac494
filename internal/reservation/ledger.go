// Package reservation holds short-lived slot holds that keep a slot from being
// booked by anyone else while a customer completes checkout.
package reservation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/groom-booking/backend/internal/slot"
)

// Clock supplies the current time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

// Now returns time.Now.
func (RealClock) Now() time.Time { return time.Now() }

// Hold is a live claim on a single slot.
type Hold struct {
	ID        string        `json:"id"`
	Slot      slot.Key      `json:"slot"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// ExpiresAt returns the instant after which the hold is no longer valid.
func (h Hold) ExpiresAt() time.Time {
	return h.CreatedAt.Add(h.TTL)
}

// Expired reports whether the hold's age exceeds its TTL at now.
func (h Hold) Expired(now time.Time) bool {
	return now.Sub(h.CreatedAt) > h.TTL
}

// Remaining returns the time left before expiry, never negative.
func (h Hold) Remaining(now time.Time) time.Duration {
	left := h.ExpiresAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Ledger is the in-memory store of holds. All methods are safe for concurrent
// use and never fail; a single mutex serializes every operation so two creates
// on the same slot resolve first-wins.
type Ledger struct {
	mu     sync.Mutex
	bySlot map[string]*Hold
	byID   map[string]string

	clock    Clock
	location *time.Location
	newID    func() string
}

// NewLedger creates an empty ledger. Slot dates are normalized in loc.
func NewLedger(clock Clock, loc *time.Location) *Ledger {
	if clock == nil {
		clock = RealClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{
		bySlot:   make(map[string]*Hold),
		byID:     make(map[string]string),
		clock:    clock,
		location: loc,
		newID:    uuid.NewString,
	}
}

// Create places a hold on key for ttl. A stale hold occupying the key is evicted
// first. If a live hold already occupies the key, Create returns that hold and
// false. It does not consult the booking store; callers check availability
// before creating.
func (l *Ledger) Create(key slot.Key, ttl time.Duration) (Hold, bool) {
	key = key.Normalize(l.location)
	k := key.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if existing, ok := l.bySlot[k]; ok {
		if !existing.Expired(now) {
			return *existing, false
		}
		l.evictLocked(k, existing)
	}

	h := &Hold{
		ID:        l.newID(),
		Slot:      key,
		CreatedAt: now,
		TTL:       ttl,
	}
	l.bySlot[k] = h
	l.byID[h.ID] = k

	return *h, true
}

// Validate reports whether holdID is the live hold on key. An expired hold
// found on the key is evicted.
func (l *Ledger) Validate(key slot.Key, holdID string) bool {
	k := key.Normalize(l.location).String()

	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.bySlot[k]
	if !ok {
		return false
	}
	if h.Expired(l.clock.Now()) {
		l.evictLocked(k, h)
		return false
	}
	return h.ID == holdID
}

// Get returns the live hold with the given id. Expired holds are evicted and
// reported as absent.
func (l *Ledger) Get(holdID string) (Hold, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k, ok := l.byID[holdID]
	if !ok {
		return Hold{}, false
	}
	h := l.bySlot[k]
	if h == nil || h.ID != holdID {
		delete(l.byID, holdID)
		return Hold{}, false
	}
	if h.Expired(l.clock.Now()) {
		l.evictLocked(k, h)
		return Hold{}, false
	}
	return *h, true
}

// Remove evicts whatever hold occupies key and returns it.
func (l *Ledger) Remove(key slot.Key) (Hold, bool) {
	k := key.Normalize(l.location).String()

	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.bySlot[k]
	if !ok {
		return Hold{}, false
	}
	l.evictLocked(k, h)
	return *h, true
}

// RemoveByID evicts the hold with the given id, live or not.
func (l *Ledger) RemoveByID(holdID string) (Hold, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k, ok := l.byID[holdID]
	if !ok {
		return Hold{}, false
	}
	h := l.bySlot[k]
	if h == nil || h.ID != holdID {
		delete(l.byID, holdID)
		return Hold{}, false
	}
	l.evictLocked(k, h)
	return *h, true
}

// Sweep evicts every expired hold and returns what it removed.
func (l *Ledger) Sweep() []Hold {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	var evicted []Hold
	for k, h := range l.bySlot {
		if h.Expired(now) {
			evicted = append(evicted, *h)
			l.evictLocked(k, h)
		}
	}
	return evicted
}

// ActiveSlotsForDate returns the keys of all live holds on date, sorted by
// time then groomer.
func (l *Ledger) ActiveSlotsForDate(date string) []slot.Key {
	date = slot.NormalizeDateIn(date, l.location)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	var keys []slot.Key
	for _, h := range l.bySlot {
		if h.Slot.Date == date && !h.Expired(now) {
			keys = append(keys, h.Slot)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Time != keys[j].Time {
			return keys[i].Time < keys[j].Time
		}
		return keys[i].Groomer < keys[j].Groomer
	})
	return keys
}

// Now returns the ledger clock's current time.
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

// Len returns the number of holds currently stored, including expired ones
// not yet swept.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bySlot)
}

func (l *Ledger) evictLocked(k string, h *Hold) {
	delete(l.bySlot, k)
	delete(l.byID, h.ID)
}
