package booking

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrStore               = errors.New("store error")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrBookingNotFound     = errors.New("booking not found")
)

// Error is returned by every booking operation that fails. Kind is one of the
// Err* sentinels; Err is the underlying cause, if any.
type Error struct {
	Kind    error
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// User-facing messages for the conflict cases.
const (
	MsgSlotTaken   = "This slot was just taken, please pick another."
	MsgHoldExpired = "Your hold expired, please pick another slot."
)

func validationError(field, message string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

func slotUnavailable(message string) error {
	return &Error{Kind: ErrSlotUnavailable, Message: message}
}

func storeError(op string, err error) error {
	return &Error{Kind: ErrStore, Message: op, Err: err}
}
