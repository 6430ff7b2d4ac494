package handlers

import (
	"net/http"

	"github.com/groom-booking/backend/internal/booking"
	"github.com/groom-booking/backend/internal/slot"
)

// SettingsResponse describes the slot catalog and hold lifetimes the booking
// UI renders from.
type SettingsResponse struct {
	Success           bool     `json:"success"`
	TimeSlots         []string `json:"timeSlots"`
	Groomers          []string `json:"groomers"`
	ServiceType       string   `json:"serviceType"`
	Timezone          string   `json:"timezone"`
	BrowseHoldSeconds int      `json:"browseHoldSeconds"`
	HoldSeconds       int      `json:"holdSeconds"`
}

// GetSettings returns the booking configuration.
func GetSettings(catalog *slot.Catalog, holds *booking.HoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ttls := holds.TTLs()
		writeJSON(w, http.StatusOK, SettingsResponse{
			Success:           true,
			TimeSlots:         catalog.Times(),
			Groomers:          catalog.Groomers(),
			ServiceType:       catalog.Service(),
			Timezone:          catalog.Location().String(),
			BrowseHoldSeconds: int(ttls.Browse.Seconds()),
			HoldSeconds:       int(ttls.Reserve.Seconds()),
		})
	}
}
