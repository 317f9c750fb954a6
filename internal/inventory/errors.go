package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInventory is returned when the inventory document fails validation.
var ErrInvalidInventory = errors.New("inventory: invalid")

// Problem is one validation failure, located by a JSON-pointer-like path
// such as "/audioZones/1/outputs/0".
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in an inventory document.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Path + " " + p.Message
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInventory, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidInventory.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInventory
}
