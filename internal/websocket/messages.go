package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeSlotHeld             MessageType = "slot.held"
	TypeSlotReleased         MessageType = "slot.released"
	TypeBookingCreated       MessageType = "booking.created"
	TypeBookingStatusChanged MessageType = "booking.status_changed"
	TypeAvailabilityDegraded MessageType = "availability.degraded"

	// Client -> Server command types
	TypePing  MessageType = "ping"
	TypeWatch MessageType = "watch"

	// Server -> Client response types
	TypePong     MessageType = "pong"
	TypeWatching MessageType = "watching"
	TypeError    MessageType = "error"
)

// Message is the envelope of every WebSocket frame.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ClientMessage is what clients send. Date is read by watch commands.
type ClientMessage struct {
	Type MessageType `json:"type"`
	Date string      `json:"date,omitempty"`
}

// WatchingPayload confirms a watch command. An empty date means all dates.
type WatchingPayload struct {
	Date string `json:"date"`
}

// SlotPayload is the payload for slot.held and slot.released events.
type SlotPayload struct {
	ReservationID string     `json:"reservation_id"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	Groomer       string     `json:"groomer"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// BookingPayload is the payload for booking.created and booking.status_changed
// events. Customer contact details are left out.
type BookingPayload struct {
	BookingID      string `json:"booking_id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Groomer        string `json:"groomer"`
	ServiceType    string `json:"service_type"`
	PetName        string `json:"pet_name"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

// DegradedPayload is the payload for availability.degraded events.
type DegradedPayload struct {
	Date    string `json:"date"`
	Message string `json:"message"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
