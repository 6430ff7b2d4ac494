package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/groom-booking/backend/internal/api/middleware"
	"github.com/groom-booking/backend/internal/booking"
	"github.com/groom-booking/backend/internal/reservation"
)

// ReservationRequest is the body of POST /api/reservations.
type ReservationRequest struct {
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Groomer         string `json:"groomer"`
	Mode            string `json:"mode,omitempty"`
}

// ReservationResponse describes a live hold.
type ReservationResponse struct {
	Success         bool   `json:"success"`
	ReservationID   string `json:"reservationId"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Groomer         string `json:"groomer"`
	ExpiresIn       int    `json:"expiresIn"`
}

func reservationResponse(holds *booking.HoldService, h reservation.Hold) ReservationResponse {
	return ReservationResponse{
		Success:         true,
		ReservationID:   h.ID,
		AppointmentDate: h.Slot.Date,
		AppointmentTime: h.Slot.Time,
		Groomer:         h.Slot.Groomer,
		ExpiresIn:       int(holds.ExpiresIn(h).Seconds()),
	}
}

// CreateReservation places a hold on a slot.
func CreateReservation(holds *booking.HoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		h, err := holds.Reserve(r.Context(), booking.ReserveRequest{
			Date:    req.AppointmentDate,
			Time:    req.AppointmentTime,
			Groomer: req.Groomer,
			Mode:    req.Mode,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, reservationResponse(holds, h))
	}
}

// GetReservation reports a hold's slot and remaining lifetime.
func GetReservation(holds *booking.HoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := holds.Lookup(mux.Vars(r)["id"])
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reservationResponse(holds, h))
	}
}

// DeleteReservation releases a hold.
func DeleteReservation(holds *booking.HoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := holds.Release(mux.Vars(r)["id"]); err != nil {
			writeBookingError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
