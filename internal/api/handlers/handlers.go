// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/groom-booking/backend/internal/api/middleware"
	"github.com/groom-booking/backend/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeBookingError maps a booking error onto a status code and error code.
func writeBookingError(w http.ResponseWriter, err error) {
	var be *booking.Error
	if !errors.As(err, &be) {
		log.Printf("Unexpected error: %v", err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "An unexpected error occurred")
		return
	}

	switch {
	case errors.Is(err, booking.ErrValidation):
		var details any
		if be.Field != "" {
			details = map[string]string{"field": be.Field}
		}
		middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, be.Error(), details)
	case errors.Is(err, booking.ErrSlotUnavailable):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrSlotUnavailable, be.Message)
	case errors.Is(err, booking.ErrReservationNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrReservationNotFound, be.Message)
	case errors.Is(err, booking.ErrBookingNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrBookingNotFound, be.Message)
	case errors.Is(err, booking.ErrStore):
		log.Printf("Store error: %v", err)
		middleware.WriteError(w, http.StatusServiceUnavailable, middleware.ErrStore, "Bookings are temporarily unavailable, please try again")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, be.Error())
	}
}
