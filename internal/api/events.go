package api

import (
	"github.com/nerrad567/media-coordinator/internal/dispatch"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// CommandEvent is the payload broadcast on ChannelCommandDispatched.
type CommandEvent struct {
	Action     string  `json:"action"`
	Outcome    string  `json:"outcome"`
	SessionID  string  `json:"sessionId,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"durationMs"`
}

// SessionEvent is the payload broadcast on ChannelSessionChanged.
type SessionEvent struct {
	Action  string          `json:"action"`
	Session session.Session `json:"session"`
}

// NewEventRelay returns an observer that pushes every dispatched command,
// and every session it changed, to the hub's subscribers.
func NewEventRelay(hub *Hub) dispatch.Observer {
	return dispatch.ObserverFunc(func(rec dispatch.Record) {
		ev := CommandEvent{
			Action:     string(rec.Action),
			Outcome:    string(rec.Outcome),
			DurationMs: float64(rec.Duration.Microseconds()) / 1000,
		}
		if rec.Session != nil {
			ev.SessionID = rec.Session.SessionID
		}
		if rec.Err != nil {
			ev.Error = dispatch.Message(rec.Err)
		}
		hub.Broadcast(ChannelCommandDispatched, ev)

		// A session is present whenever one was committed, including a
		// best-effort PLAY whose TV call failed afterwards.
		if rec.Session != nil {
			hub.BroadcastFor(ChannelSessionChanged, rec.Session.SessionID, SessionEvent{
				Action:  string(rec.Action),
				Session: *rec.Session,
			})
		}
	})
}
