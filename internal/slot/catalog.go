package slot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Key identifies one bookable unit: a calendar date, a start time and a groomer.
// Two keys are equal only after normalization.
type Key struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Groomer string `json:"groomer"`
}

// Normalize returns k with its date and time canonicalized in loc.
func (k Key) Normalize(loc *time.Location) Key {
	return Key{
		Date:    NormalizeDateIn(k.Date, loc),
		Time:    NormalizeTimeIn(k.Time, loc),
		Groomer: strings.TrimSpace(k.Groomer),
	}
}

// String returns the composite map key "date|time|groomer". Groomer names
// compare case-insensitively.
func (k Key) String() string {
	return k.Date + "|" + k.Time + "|" + strings.ToLower(k.Groomer)
}

// Catalog is the fixed universe of (time, groomer) pairs offered every day.
// It is immutable after construction.
type Catalog struct {
	times    []string
	groomers []string
	service  string
	location *time.Location
}

// NewCatalog builds a catalog from configured slot start times and groomer names.
// Times are normalized and de-duplicated; service names the booking classification
// these slots belong to (e.g. "grooming").
func NewCatalog(times, groomers []string, service string, loc *time.Location) (*Catalog, error) {
	if loc == nil {
		loc = time.Local
	}

	c := &Catalog{
		service:  strings.ToLower(strings.TrimSpace(service)),
		location: loc,
	}

	seen := make(map[string]bool)
	for _, raw := range times {
		t, ok := parseClock(raw)
		if !ok {
			return nil, fmt.Errorf("invalid slot time %q", raw)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		c.times = append(c.times, t)
	}

	seenGroomer := make(map[string]bool)
	for _, raw := range groomers {
		g := strings.TrimSpace(raw)
		if g == "" || seenGroomer[strings.ToLower(g)] {
			continue
		}
		seenGroomer[strings.ToLower(g)] = true
		c.groomers = append(c.groomers, g)
	}

	if len(c.times) == 0 {
		return nil, errors.New("catalog needs at least one slot time")
	}
	if len(c.groomers) == 0 {
		return nil, errors.New("catalog needs at least one groomer")
	}
	if c.service == "" {
		return nil, errors.New("catalog needs a service classification")
	}

	return c, nil
}

// AllSlots returns every key for date, ordered by time then groomer.
func (c *Catalog) AllSlots(date string) []Key {
	date = NormalizeDateIn(date, c.location)
	keys := make([]Key, 0, len(c.times)*len(c.groomers))
	for _, t := range c.times {
		for _, g := range c.groomers {
			keys = append(keys, Key{Date: date, Time: t, Groomer: g})
		}
	}
	return keys
}

// Times returns a copy of the configured start times.
func (c *Catalog) Times() []string {
	return append([]string(nil), c.times...)
}

// Groomers returns a copy of the configured groomer names.
func (c *Catalog) Groomers() []string {
	return append([]string(nil), c.groomers...)
}

// DefaultGroomer is the groomer unassigned bookings fall to.
func (c *Catalog) DefaultGroomer() string {
	return c.groomers[0]
}

// Service returns the lower-cased booking classification of these slots.
func (c *Catalog) Service() string {
	return c.service
}

// Location returns the timezone calendar dates are read in.
func (c *Catalog) Location() *time.Location {
	return c.location
}

// ResolveGroomer maps name onto a configured groomer, case-insensitively.
// Blank or unknown names resolve to the default groomer.
func (c *Catalog) ResolveGroomer(name string) string {
	if g, ok := c.LookupGroomer(name); ok {
		return g
	}
	return c.DefaultGroomer()
}

// LookupGroomer is like ResolveGroomer but reports unknown names instead of
// defaulting them.
func (c *Catalog) LookupGroomer(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, g := range c.groomers {
		if strings.EqualFold(g, name) {
			return g, true
		}
	}
	return "", false
}

// HasTime reports whether t (after normalization) is an offered start time.
func (c *Catalog) HasTime(t string) bool {
	t = NormalizeTimeIn(t, c.location)
	for _, ct := range c.times {
		if ct == t {
			return true
		}
	}
	return false
}

// OccupiesSlots reports whether a booking of the given service type consumes a
// slot in this catalog. Blank service types count as the catalog's service.
func (c *Catalog) OccupiesSlots(serviceType string) bool {
	s := strings.ToLower(strings.TrimSpace(serviceType))
	return s == "" || s == c.service
}

// Key builds a normalized key, resolving the groomer against the catalog.
func (c *Catalog) Key(date, tod, groomer string) Key {
	return Key{
		Date:    NormalizeDateIn(date, c.location),
		Time:    NormalizeTimeIn(tod, c.location),
		Groomer: c.ResolveGroomer(groomer),
	}
}
