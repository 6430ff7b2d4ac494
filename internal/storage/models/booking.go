// Package models contains the domain models for the application.
package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

// Booking status constants
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Statuses lists every known status.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusExpired}

// ParseStatus maps a case-insensitive status name onto a known Status.
func ParseStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "canceled" {
		s = string(StatusCancelled)
	}
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Occupies reports whether a booking in this status takes its slot.
// Confirmed and expired bookings do; pending, completed and cancelled do not.
func (s Status) Occupies() bool {
	return s == StatusConfirmed || s == StatusExpired
}

// PetInfo describes the animal being booked in.
type PetInfo struct {
	Name  string `json:"name"`
	Breed string `json:"breed,omitempty"`
	Size  string `json:"size,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// CustomerInfo holds the contact details of the person booking.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Booking is a persisted appointment. Date is a plain "YYYY-MM-DD" calendar day
// and Time a 24-hour "HH:MM" start; neither carries a timezone.
type Booking struct {
	ID          string       `json:"id"`
	Date        string       `json:"appointment_date"`
	Time        string       `json:"appointment_time"`
	Groomer     string       `json:"groomer"`
	ServiceType string       `json:"service_type"`
	Pet         PetInfo      `json:"pet"`
	Customer    CustomerInfo `json:"customer"`
	Status      Status       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BookingFilter narrows ListBookings. Zero values match everything.
type BookingFilter struct {
	Date   string
	Status Status

	// ForceRefresh asks the store to bypass any read cache it keeps.
	ForceRefresh bool
}

// Matches reports whether b satisfies the filter's date and status.
func (f BookingFilter) Matches(b Booking) bool {
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}
