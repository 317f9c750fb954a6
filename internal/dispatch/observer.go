package dispatch

import (
	"errors"
	"time"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// Outcome classifies how a command ended.
type Outcome string

// Command outcomes.
const (
	// OutcomeAccepted means the command succeeded.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected means the caller sent something invalid (4xx).
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means a device or the coordinator failed (5xx).
	OutcomeFailed Outcome = "failed"
)

// Record describes one executed command.
type Record struct {
	Action   command.Action
	Command  *command.Command // nil if the payload did not parse
	Session  *session.Session // session after the command, if it touched one
	Outcome  Outcome
	Err      error
	Duration time.Duration
	At       time.Time
}

// Observer receives a Record after every command. Observe runs on the
// request goroutine and must not block.
type Observer interface {
	Observe(Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Record)

// Observe calls f(r).
func (f ObserverFunc) Observe(r Record) { f(r) }

// outcomeOf classifies err.
func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, ErrDownstream), errors.Is(err, ErrSessionBusy):
		return OutcomeFailed
	case IsClientError(err):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

// IsClientError reports whether err was caused by the caller's command.
func IsClientError(err error) bool {
	return errors.Is(err, command.ErrInvalidCommand) ||
		errors.Is(err, command.ErrMalformed) ||
		errors.Is(err, ErrUnknownTarget) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrNotPaired) ||
		errors.Is(err, ErrUnsupportedAction) ||
		errors.Is(err, session.ErrSessionNotFound)
}
