package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTarget is returned when a referenced device is not in the inventory.
	ErrUnknownTarget = errors.New("dispatch: unknown target")

	// ErrMissingField is returned when an action lacks a field it requires.
	ErrMissingField = errors.New("dispatch: missing required field")

	// ErrNotPaired is returned when a Bluetooth device is not paired with the requested zone.
	ErrNotPaired = errors.New("dispatch: bluetooth device not paired with zone")

	// ErrDownstream is returned when a device call failed or was not acknowledged.
	ErrDownstream = errors.New("dispatch: downstream device call failed")

	// ErrUnsupportedAction is returned for an action with no handler.
	ErrUnsupportedAction = errors.New("dispatch: unsupported action")

	// ErrSessionBusy is returned when a session lock could not be taken in time.
	ErrSessionBusy = errors.New("dispatch: session busy")
)

// Error is a dispatch failure with a message meant for the caller.
// errors.Is matches it against its Kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
