package booking

import "github.com/groom-booking/backend/internal/storage/models"

// transitions lists the allowed status moves when strict transitions are on.
// Completed and cancelled bookings are final.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled, models.StatusExpired},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled, models.StatusExpired},
	models.StatusExpired:   {models.StatusConfirmed, models.StatusCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
// Re-applying the current status is always allowed.
func CanTransition(from, to models.Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
