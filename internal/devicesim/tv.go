package devicesim

import (
	"net/http"
	"sync"
)

// Playback states.
const (
	PlaybackIdle    = "idle"
	PlaybackPlaying = "playing"
	PlaybackPaused  = "paused"
)

// TVState is the observable state of a simulated TV.
type TVState struct {
	ActiveSessionID   *string  `json:"activeSessionId"`
	CurrentContentRef *string  `json:"currentContentRef"`
	State             string   `json:"state"`
	LastSeekSeconds   *float64 `json:"lastSeekSeconds"`
}

// TV simulates a TV player. It holds at most one active session; a new
// play replaces it. Safe for concurrent use.
type TV struct {
	mu     sync.Mutex
	state  TVState
	logger Logger
}

// NewTV returns an idle TV. A nil logger discards access logs.
func NewTV(logger Logger) *TV {
	if logger == nil {
		logger = noopLogger{}
	}
	return &TV{state: TVState{State: PlaybackIdle}, logger: logger}
}

// State returns a copy of the current state.
func (t *TV) State() TVState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// snapshot copies the state. Caller must hold mu.
func (t *TV) snapshot() TVState {
	s := t.state
	s.ActiveSessionID = copyPtr(t.state.ActiveSessionID)
	s.CurrentContentRef = copyPtr(t.state.CurrentContentRef)
	s.LastSeekSeconds = copyPtr(t.state.LastSeekSeconds)
	return s
}

// Handler returns the TV's HTTP routes.
func (t *TV) Handler() http.Handler {
	r := newRouter("tv", t.logger)
	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, t.State())
	})
	r.Post("/play", postHandler(t.play))
	r.Post("/pause", postHandler(t.sessionAction(func(s *TVState) { s.State = PlaybackPaused })))
	r.Post("/resume", postHandler(t.sessionAction(func(s *TVState) { s.State = PlaybackPlaying })))
	r.Post("/seek", postHandler(t.seek))
	r.Post("/stop", postHandler(t.sessionAction(func(s *TVState) {
		*s = TVState{State: PlaybackIdle}
	})))
	return r
}

// play starts contentRef under sessionId, replacing whatever was playing.
func (t *TV) play(w http.ResponseWriter, p payload) {
	sessionID, contentRef := p.str("sessionId"), p.str("contentRef")
	if sessionID == "" || contentRef == "" {
		reject(w, "sessionId and contentRef are required")
		return
	}

	t.mu.Lock()
	t.state = TVState{
		ActiveSessionID:   &sessionID,
		CurrentContentRef: &contentRef,
		State:             PlaybackPlaying,
	}
	snap := t.snapshot()
	t.mu.Unlock()

	accept(w, snap)
}

// seek records the position for the active session.
func (t *TV) seek(w http.ResponseWriter, p payload) {
	sessionID := p.str("sessionId")
	if sessionID == "" {
		reject(w, "sessionId is required")
		return
	}
	seconds, ok := p.number("seekSeconds")
	if !ok {
		reject(w, "seekSeconds must be a number")
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isActive(sessionID) {
		reject(w, "sessionId does not match active session")
		return
	}
	t.state.LastSeekSeconds = &seconds
	accept(w, t.snapshot())
}

// sessionAction builds a handler that applies mutate when the request names
// the active session.
func (t *TV) sessionAction(mutate func(*TVState)) func(http.ResponseWriter, payload) {
	return func(w http.ResponseWriter, p payload) {
		sessionID := p.str("sessionId")
		if sessionID == "" {
			reject(w, "sessionId is required")
			return
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.isActive(sessionID) {
			reject(w, "sessionId does not match active session")
			return
		}
		mutate(&t.state)
		accept(w, t.snapshot())
	}
}

// isActive reports whether id is the active session. Caller must hold mu.
func (t *TV) isActive(id string) bool {
	return t.state.ActiveSessionID != nil && *t.state.ActiveSessionID == id
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
