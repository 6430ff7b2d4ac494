// Package calendar renders bookings as an iCalendar (ICS) feed so groomers can
// subscribe to their schedule.
package calendar

import (
	"bufio"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/groom-booking/backend/internal/storage/models"
)

const (
	utcLayout  = "20060102T150405Z"
	prodID     = "-//groom-booking//schedule//EN"
	maxLineLen = 75
)

// Event is one VEVENT.
type Event struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// FromBooking builds the event for a booking. The booking's date and time are
// read in loc. It reports false if they do not parse.
func FromBooking(b models.Booking, loc *time.Location, length time.Duration) (Event, bool) {
	start, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.Time, loc)
	if err != nil {
		return Event{}, false
	}

	summary := b.Pet.Name
	if b.Pet.Breed != "" {
		summary += " (" + b.Pet.Breed + ")"
	}
	if b.ServiceType != "" {
		summary += " - " + b.ServiceType
	}

	var desc []string
	if b.Customer.Name != "" {
		desc = append(desc, "Customer: "+b.Customer.Name)
	}
	if b.Customer.Phone != "" {
		desc = append(desc, "Phone: "+b.Customer.Phone)
	}
	if b.Pet.Size != "" {
		desc = append(desc, "Size: "+b.Pet.Size)
	}
	if b.Pet.Notes != "" {
		desc = append(desc, "Notes: "+b.Pet.Notes)
	}

	return Event{
		UID:         b.ID + "@groom-booking",
		Summary:     summary,
		Description: strings.Join(desc, "\n"),
		Start:       start,
		End:         start.Add(length),
	}, true
}

// Feed selects the confirmed bookings of groomer and returns their events in
// start order. Each booking's groomer goes through resolve first, so rows with
// a blank or legacy name land where the availability engine counts them.
func Feed(bookings []models.Booking, groomer string, resolve func(string) string, loc *time.Location, length time.Duration) []Event {
	var events []Event
	for _, b := range bookings {
		if b.Status != models.StatusConfirmed || resolve(b.Groomer) != groomer {
			continue
		}
		if e, ok := FromBooking(b, loc, length); ok {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	return events
}

// Write renders events as a VCALENDAR named name. Times are written in UTC.
func Write(w io.Writer, name string, events []Event, now time.Time) error {
	bw := bufio.NewWriter(w)
	line := func(s string) {
		bw.WriteString(fold(s))
		bw.WriteString("\r\n")
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:" + prodID)
	line("CALSCALE:GREGORIAN")
	line("X-WR-CALNAME:" + escape(name))

	stamp := now.UTC().Format(utcLayout)
	for _, e := range events {
		line("BEGIN:VEVENT")
		line("UID:" + escape(e.UID))
		line("DTSTAMP:" + stamp)
		line("DTSTART:" + e.Start.UTC().Format(utcLayout))
		line("DTEND:" + e.End.UTC().Format(utcLayout))
		line("SUMMARY:" + escape(e.Summary))
		if e.Description != "" {
			line("DESCRIPTION:" + escape(e.Description))
		}
		line("END:VEVENT")
	}

	line("END:VCALENDAR")
	return bw.Flush()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// fold splits content lines longer than 75 octets, continuing with a space.
// Splits never land inside a UTF-8 sequence.
func fold(s string) string {
	if len(s) <= maxLineLen {
		return s
	}

	var b strings.Builder
	limit := maxLineLen
	for len(s) > limit {
		cut := limit
		for cut > 0 && s[cut]&0xC0 == 0x80 {
			cut--
		}
		b.WriteString(s[:cut])
		b.WriteString("\r\n ")
		s = s[cut:]
		// Continuation lines lose one octet to the leading space.
		limit = maxLineLen - 1
	}
	b.WriteString(s)
	return b.String()
}
