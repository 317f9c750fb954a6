package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/media-coordinator/internal/command"
)

// idSuffixLen is the number of random hex characters after the time prefix.
const idSuffixLen = 12

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store holds every session created during the process lifetime.
//
// Sessions live only in memory and are never deleted; a stopped session
// stays readable. Every read returns a deep copy, so callers can modify
// what they get without touching the stored record.
//
// Two kinds of locking are involved:
//   - mu protects the maps and is held only for the duration of one call.
//   - Lock(id) is a per-session lock held by the dispatcher for a whole
//     command, including its device call, so commands on one session run
//     one at a time while other sessions proceed.
//
// All public methods are thread-safe.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session // Committed sessions by ID
	order    []string            // Creation order, for List
	reserved map[string]struct{} // IDs held between Reserve and Commit/Release

	locks  *keyedLocks
	now    func() time.Time
	random func() string
	logger Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(logger Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// withRandom replaces the id suffix source.
func withRandom(random func() string) Option {
	return func(s *Store) { s.random = random }
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		reserved: make(map[string]struct{}),
		locks:    newKeyedLocks(),
		now:      time.Now,
		random:   randomSuffix,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idSuffixLen]
}

// newIDLocked draws ids until one is unused. Caller must hold s.mu.
func (s *Store) newIDLocked() string {
	for {
		id := fmt.Sprintf("sess_%x_%s", s.now().UnixMilli(), s.random())
		if _, taken := s.sessions[id]; taken {
			continue
		}
		if _, taken := s.reserved[id]; taken {
			continue
		}
		return id
	}
}

// Create adds a new playing session and returns a copy of it.
//
// The id has the form sess_<unix ms in hex>_<12 random hex chars> and is
// unique among committed and reserved sessions. AudioRoute defaults to tv;
// both timestamps are set to now.
func (s *Store) Create(params CreateParams) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(s.newIDLocked(), params)
}

// Get retrieves a session by ID.
// Returns ErrSessionNotFound if the session does not exist.
// The returned session is a deep copy; callers can safely modify it.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return *sess.DeepCopy(), nil
}

// Update applies patch to the session and re-stamps UpdatedAtEpochMs.
//
// Only the fields set in patch change. UpdatedAtEpochMs always moves
// forward, even when two updates land in the same millisecond. Field
// semantics (valid transitions, known zones) are the dispatcher's concern
// and are not checked here.
//
// Returns ErrSessionNotFound if the session does not exist.
func (s *Store) Update(id string, patch Patch) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	patch.apply(sess)
	sess.UpdatedAtEpochMs = s.nextStamp(sess.UpdatedAtEpochMs)

	s.logger.Debug("session updated", "session_id", id, "state", sess.State)
	return *sess.DeepCopy(), nil
}

// nextStamp returns the current time in ms, bumped past prev if the clock
// has not moved on.
func (s *Store) nextStamp(prev int64) int64 {
	now := s.now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}

// List returns copies of every session in creation order.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.sessions[id].DeepCopy())
	}
	return out
}

// Len returns the number of committed sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Lock takes the exclusive lock for a session id, waiting until it is free
// or ctx is done. The returned function releases it and is safe to call
// more than once. The id does not have to exist.
func (s *Store) Lock(ctx context.Context, id string) (func(), error) {
	unlock, err := s.locks.acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("locking session %s: %w", id, err)
	}
	return unlock, nil
}

// Reserve allocates a session id without publishing a session.
//
// Confirmed delivery uses it so a PLAY can hand the TV a session id before
// the session exists: Get, Update and List do not see a reserved id until
// Commit. Exactly one of Commit or Release must follow; a second call
// returns ErrReservationClosed.
func (s *Store) Reserve(params CreateParams) *Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newIDLocked()
	s.reserved[id] = struct{}{}
	return &Reservation{store: s, id: id, params: params}
}

// Reservation is a session id held between Reserve and Commit/Release.
type Reservation struct {
	store  *Store
	id     string
	params CreateParams
	closed bool
}

// ID returns the reserved session id.
func (r *Reservation) ID() string {
	return r.id
}

// insertLocked stores a new playing session. Caller must hold s.mu.
func (s *Store) insertLocked(id string, params CreateParams) Session {
	route := params.AudioRoute
	if route == "" {
		route = command.AudioRouteTV
	}
	now := s.now().UnixMilli()
	sess := &Session{
		SessionID:        id,
		ContentRef:       optional(params.ContentRef),
		TargetTVID:       optional(params.TargetTVID),
		AudioRoute:       route,
		AudioZoneID:      optional(params.AudioZoneID),
		AudioOutput:      optional(params.AudioOutput),
		State:            StatePlaying,
		CreatedAtEpochMs: now,
		UpdatedAtEpochMs: now,
	}
	s.sessions[id] = sess
	s.order = append(s.order, id)

	s.logger.Info("session created", "session_id", id, "target_tv_id", params.TargetTVID)
	return *sess.DeepCopy()
}

// Commit publishes the session with state playing and both timestamps set
// to now.
func (r *Reservation) Commit() (Session, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.closed {
		return Session{}, ErrReservationClosed
	}
	r.closed = true
	delete(s.reserved, r.id)

	return s.insertLocked(r.id, r.params), nil
}

// Release gives the id back without creating a session.
func (r *Reservation) Release() error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.closed {
		return ErrReservationClosed
	}
	r.closed = true
	delete(s.reserved, r.id)
	return nil
}
