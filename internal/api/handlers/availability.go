package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/groom-booking/backend/internal/api/middleware"
	"github.com/groom-booking/backend/internal/booking"
	"github.com/groom-booking/backend/internal/slot"
)

// AvailabilityResponse is the availability matrix for one date.
type AvailabilityResponse struct {
	Success            bool                       `json:"success"`
	Date               string                     `json:"date"`
	AvailableTimeSlots []booking.AvailabilitySlot `json:"availableTimeSlots"`
	Degraded           bool                       `json:"degraded,omitempty"`
	Warning            string                     `json:"warning,omitempty"`
}

// GetAvailability returns every slot of a date and whether it can be booked.
func GetAvailability(resolver *booking.Resolver, catalog *slot.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		raw := strings.TrimSpace(q.Get("date"))
		if raw == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date is required")
			return
		}
		date := slot.NormalizeDateIn(raw, catalog.Location())
		if !slot.ValidDate(date) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date must look like 2025-06-01")
			return
		}

		forceRefresh, _ := strconv.ParseBool(q.Get("forceRefresh"))

		result := resolver.GetAvailability(r.Context(), date, forceRefresh)
		writeJSON(w, http.StatusOK, AvailabilityResponse{
			Success:            true,
			Date:               result.Date,
			AvailableTimeSlots: result.Slots,
			Degraded:           result.Degraded,
			Warning:            result.Error,
		})
	}
}
