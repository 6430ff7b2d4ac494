package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/groom-booking/backend/internal/api/middleware"
	"github.com/groom-booking/backend/internal/booking"
	"github.com/groom-booking/backend/internal/storage/models"
)

// BookingRequest is the body of POST /api/bookings.
type BookingRequest struct {
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Groomer         string `json:"groomer"`
	ServiceType     string `json:"serviceType"`
	PetName         string `json:"petName"`
	PetBreed        string `json:"petBreed"`
	PetSize         string `json:"petSize"`
	PetNotes        string `json:"petNotes"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	ReservationID   string `json:"reservationId,omitempty"`
}

// BookingResponse is a booking in API responses.
type BookingResponse struct {
	ID              string              `json:"id"`
	AppointmentDate string              `json:"appointmentDate"`
	AppointmentTime string              `json:"appointmentTime"`
	Groomer         string              `json:"groomer"`
	ServiceType     string              `json:"serviceType"`
	Pet             models.PetInfo      `json:"pet"`
	Customer        models.CustomerInfo `json:"customer"`
	Status          models.Status       `json:"status"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func toBookingResponse(b models.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		AppointmentDate: b.Date,
		AppointmentTime: b.Time,
		Groomer:         b.Groomer,
		ServiceType:     b.ServiceType,
		Pet:             b.Pet,
		Customer:        b.Customer,
		Status:          b.Status,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type bookingEnvelope struct {
	Success bool            `json:"success"`
	Booking BookingResponse `json:"booking"`
}

// CreateBooking commits a booking, consuming the reservation if one is given.
func CreateBooking(writer *booking.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		created, err := writer.CreateBooking(r.Context(), booking.Request{
			Date:        req.AppointmentDate,
			Time:        req.AppointmentTime,
			Groomer:     req.Groomer,
			ServiceType: req.ServiceType,
			Pet: models.PetInfo{
				Name:  req.PetName,
				Breed: req.PetBreed,
				Size:  req.PetSize,
				Notes: req.PetNotes,
			},
			Customer: models.CustomerInfo{
				Name:  req.CustomerName,
				Email: req.CustomerEmail,
				Phone: req.CustomerPhone,
			},
			ReservationID: req.ReservationID,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, bookingEnvelope{Success: true, Booking: toBookingResponse(*created)})
	}
}

// ListBookings returns bookings filtered by the optional date and status
// query parameters.
func ListBookings(writer *booking.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		list, err := writer.ListBookings(r.Context(), q.Get("date"), q.Get("status"))
		if err != nil {
			writeBookingError(w, err)
			return
		}

		out := make([]BookingResponse, 0, len(list))
		for _, b := range list {
			out = append(out, toBookingResponse(b))
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "bookings": out})
	}
}

// GetBooking returns a single booking.
func GetBooking(writer *booking.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := writer.GetBooking(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bookingEnvelope{Success: true, Booking: toBookingResponse(*b)})
	}
}

// StatusRequest is the body of PUT /api/bookings/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// UpdateBookingStatus changes a booking's status.
func UpdateBookingStatus(writer *booking.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		updated, err := writer.UpdateBookingStatus(r.Context(), mux.Vars(r)["id"], req.Status)
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bookingEnvelope{Success: true, Booking: toBookingResponse(*updated)})
	}
}
