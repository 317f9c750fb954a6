package command

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCommand is returned when a payload violates the command schema.
	ErrInvalidCommand = errors.New("command: invalid")

	// ErrMalformed is returned when a payload is not valid JSON.
	ErrMalformed = errors.New("command: malformed JSON")
)

// Violation describes a single schema violation.
// Field is the JSON name of the offending property, or "" for the payload itself.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + " " + v.Message
}

// ValidationError carries every violation found in a payload.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidCommand, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidCommand.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidCommand
}
