package device

import "errors"

var (
	// ErrUnreachable is returned when a device could not be reached at all.
	ErrUnreachable = errors.New("device: unreachable")

	// ErrInvalidEndpoint is returned when an endpoint URL cannot be used.
	ErrInvalidEndpoint = errors.New("device: invalid endpoint")
)
