// Package slot defines bookable slot keys, the slot catalog, and the date/time
// normalization every lookup is keyed on.
package slot

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format.
const DateLayout = "2006-01-02"

// zonedLayouts carry an explicit offset; the instant is moved into the caller's
// location before the calendar day is read.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
}

// localLayouts have no zone, so their date components are taken as written.
var localLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// NormalizeDate returns the YYYY-MM-DD calendar day of input in the process's
// local timezone. See NormalizeDateIn.
func NormalizeDate(input string) string {
	return NormalizeDateIn(input, time.Local)
}

// NormalizeDateIn returns the YYYY-MM-DD calendar day of input as perceived in loc.
// It never fails: unparseable values fall back to the text before a 'T' or space,
// and finally to the trimmed input itself.
func NormalizeDateIn(input string, loc *time.Location) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc).Format(DateLayout)
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Format(DateLayout)
		}
	}

	if i := strings.IndexAny(s, "T "); i > 0 {
		return s[:i]
	}
	return s
}

// ValidDate reports whether s is already a canonical YYYY-MM-DD date.
func ValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

var clockPattern = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?(?:[:.](\d{2}))?\s*(?:([ap])\.?m?\.?)?$`)

// NormalizeTime returns input as a zero-padded 24-hour "HH:MM". Accepted forms
// include "9:00", "09:00:00", "9.00", "9:00 AM", "2pm" and full ISO date-times.
// Unparseable input is returned unchanged after a logged warning.
func NormalizeTime(input string) string {
	return NormalizeTimeIn(input, time.Local)
}

// NormalizeTimeIn is NormalizeTime for date-times that carry an offset: the
// instant is moved into loc first, so the result pairs with NormalizeDateIn
// on the same input. Other forms are read as wall-clock time.
func NormalizeTimeIn(input string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(input)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc).Format("15:04")
		}
	}

	out, ok := parseClock(input)
	if !ok {
		log.Printf("Warning: unrecognized time value %q", input)
		return input
	}
	return out
}

// ValidTime reports whether s is a canonical "HH:MM" value.
func ValidTime(s string) bool {
	out, ok := parseClock(s)
	return ok && out == s
}

func parseClock(input string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", false
	}

	// Date-times carry the clock after the separator.
	if i := strings.IndexAny(s, "t "); i == len(DateLayout) && ValidDate(s[:i]) {
		s = strings.TrimSpace(s[i+1:])
		if j := strings.IndexAny(s, "z+-"); j > 0 {
			s = s[:j]
		}
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	meridiem := m[4]
	if m[2] == "" && meridiem == "" {
		return "", false
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 {
		return "", false
	}

	switch meridiem {
	case "a":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour < 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
