package handlers

import (
	"net/http"

	"github.com/groom-booking/backend/internal/booking"
	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"store_connected"`
}

// HealthCheck reports whether the booking store is reachable.
func HealthCheck(store storage.BookingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := storage.Ping(r.Context(), store) == nil

		status := "healthy"
		code := http.StatusOK
		if !connected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{Status: status, StoreConnected: connected})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	StoreDriver      string `json:"store_driver"`
	ActiveHolds      int    `json:"active_holds"`
	DashboardClients int    `json:"dashboard_clients"`
	FailOpenCount    int64  `json:"fail_open_count"`
}

// Status reports live engine counters.
func Status(driver string, holds *booking.HoldService, resolver *booking.Resolver, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			StoreDriver:      driver,
			ActiveHolds:      holds.ActiveHolds(),
			DashboardClients: hub.ClientCount(),
			FailOpenCount:    resolver.FailOpenCount(),
		})
	}
}
