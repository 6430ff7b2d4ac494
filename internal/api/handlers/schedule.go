package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/groom-booking/backend/internal/api/middleware"
	"github.com/groom-booking/backend/internal/booking"
	"github.com/groom-booking/backend/internal/calendar"
	"github.com/groom-booking/backend/internal/slot"
	"github.com/groom-booking/backend/internal/storage/models"
)

const maxScheduleDays = 31

// GroomerSchedule serves a groomer's confirmed bookings as an ICS feed.
func GroomerSchedule(writer *booking.Writer, catalog *slot.Catalog, length time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groomer, ok := catalog.LookupGroomer(mux.Vars(r)["groomer"])
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unknown groomer")
			return
		}

		loc := catalog.Location()
		q := r.URL.Query()

		from := time.Now().In(loc)
		if raw := q.Get("from"); raw != "" {
			d := slot.NormalizeDateIn(raw, loc)
			if !slot.ValidDate(d) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "from must look like 2025-06-01")
				return
			}
			from, _ = time.ParseInLocation(slot.DateLayout, d, loc)
		}

		days := 14
		if raw := q.Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxScheduleDays {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "days must be between 1 and 31")
				return
			}
			days = n
		}

		var bookings []models.Booking
		for i := 0; i < days; i++ {
			date := from.AddDate(0, 0, i).Format(slot.DateLayout)
			list, err := writer.ListBookings(r.Context(), date, string(models.StatusConfirmed))
			if err != nil {
				writeBookingError(w, err)
				return
			}
			bookings = append(bookings, list...)
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="schedule.ics"`)
		events := calendar.Feed(bookings, groomer, catalog.ResolveGroomer, loc, length)
		if err := calendar.Write(w, groomer, events, time.Now()); err != nil {
			log.Printf("Error writing schedule for %s: %v", groomer, err)
		}
	}
}
