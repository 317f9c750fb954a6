package session

import (
	"errors"

	"github.com/nerrad567/media-coordinator/internal/command"
)

var (
	// ErrSessionNotFound is returned when a session id does not exist.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrReservationClosed is returned when a reservation is used after
	// Commit or Release.
	ErrReservationClosed = errors.New("session: reservation already closed")
)

// State is a session's transport state.
type State string

// Session states. A session starts in StatePlaying.
const (
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	switch s {
	case StatePlaying, StatePaused, StateStopped:
		return true
	}
	return false
}

// Session is one playback instance.
//
// Optional fields are nil when unset and encode as JSON null.
// LastSeekSeconds is omitted until the first SEEK.
type Session struct {
	SessionID        string               `json:"sessionId"`
	ContentRef       *string              `json:"contentRef"`
	TargetTVID       *string              `json:"targetTvId"`
	AudioRoute       command.AudioRoute   `json:"audioRoute"`
	AudioZoneID      *string              `json:"audioZoneId"`
	AudioOutput      *command.AudioOutput `json:"audioOutput"`
	State            State                `json:"state"`
	LastSeekSeconds  *float64             `json:"lastSeekSeconds,omitempty"`
	CreatedAtEpochMs int64                `json:"createdAtEpochMs"`
	UpdatedAtEpochMs int64                `json:"updatedAtEpochMs"`
}

// DeepCopy returns a copy that shares no pointers with s.
func (s *Session) DeepCopy() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.ContentRef = copyPtr(s.ContentRef)
	out.TargetTVID = copyPtr(s.TargetTVID)
	out.AudioZoneID = copyPtr(s.AudioZoneID)
	out.AudioOutput = copyPtr(s.AudioOutput)
	out.LastSeekSeconds = copyPtr(s.LastSeekSeconds)
	return &out
}

// CreateParams are the caller-supplied fields of a new session.
// Empty strings are stored as null. AudioRoute defaults to tv.
type CreateParams struct {
	ContentRef  string
	TargetTVID  string
	AudioRoute  command.AudioRoute
	AudioZoneID string
	AudioOutput command.AudioOutput
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	State           *State
	LastSeekSeconds *float64
	AudioRoute      *command.AudioRoute
	AudioZoneID     *string
	AudioOutput     *command.AudioOutput
}

// apply merges p into s.
func (p Patch) apply(s *Session) {
	if p.State != nil {
		s.State = *p.State
	}
	if p.LastSeekSeconds != nil {
		s.LastSeekSeconds = copyPtr(p.LastSeekSeconds)
	}
	if p.AudioRoute != nil {
		s.AudioRoute = *p.AudioRoute
	}
	if p.AudioZoneID != nil {
		s.AudioZoneID = copyPtr(p.AudioZoneID)
	}
	if p.AudioOutput != nil {
		s.AudioOutput = copyPtr(p.AudioOutput)
	}
}

// SetState returns a Patch that only changes the state.
func SetState(state State) Patch {
	return Patch{State: &state}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func optional[T ~string](v T) *T {
	if v == "" {
		return nil
	}
	return &v
}
