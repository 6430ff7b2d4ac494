// Package api provides HTTP routing for the booking API.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/groom-booking/backend/internal/api/handlers"
	"github.com/groom-booking/backend/internal/api/middleware"
	"github.com/groom-booking/backend/internal/booking"
	"github.com/groom-booking/backend/internal/slot"
	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/websocket"
)

// Services are the collaborators the routes are served from.
type Services struct {
	Store       storage.BookingStore
	StoreDriver string
	Catalog     *slot.Catalog
	Resolver    *booking.Resolver
	Holds       *booking.HoldService
	Writer      *booking.Writer
	Hub         *websocket.Hub

	AdminSecret string
	SlotLength  time.Duration
	StaticDir   string
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.Store)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(s.StoreDriver, s.Holds, s.Resolver, s.Hub)).Methods("GET")
	api.HandleFunc("/settings", handlers.GetSettings(s.Catalog, s.Holds)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub)).Methods("GET")

	// Customer booking flow
	api.HandleFunc("/availability", handlers.GetAvailability(s.Resolver, s.Catalog)).Methods("GET")
	api.HandleFunc("/reservations", handlers.CreateReservation(s.Holds)).Methods("POST")
	api.HandleFunc("/reservations/{id}", handlers.GetReservation(s.Holds)).Methods("GET")
	api.HandleFunc("/reservations/{id}", handlers.DeleteReservation(s.Holds)).Methods("DELETE")
	api.HandleFunc("/bookings", handlers.CreateBooking(s.Writer)).Methods("POST")

	// Admin endpoints
	admin := middleware.AdminAuth(s.AdminSecret)
	api.Handle("/bookings", admin(handlers.ListBookings(s.Writer))).Methods("GET")
	api.Handle("/bookings/{id}", admin(handlers.GetBooking(s.Writer))).Methods("GET")
	api.Handle("/bookings/{id}/status", admin(handlers.UpdateBookingStatus(s.Writer))).Methods("PUT")
	api.Handle("/groomers/{groomer}/schedule.ics", admin(handlers.GroomerSchedule(s.Writer, s.Catalog, s.SlotLength))).Methods("GET")

	// Serve static frontend files
	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return r
}
