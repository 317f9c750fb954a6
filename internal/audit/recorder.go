package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/media-coordinator/internal/dispatch"
)

// writeTimeout bounds each insert made by the Recorder.
const writeTimeout = 5 * time.Second

// Logger is the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder writes dispatch records to a Repository in the background.
//
// Observe only queues; a single goroutine does the inserts, so a slow disk
// never delays a command. Close drains the queue before returning.
//
// Thread Safety:
//   - Observe and Close are safe for concurrent use.
//   - Observe after Close is a no-op.
type Recorder struct {
	repo    Repository
	logger  Logger
	entries chan Entry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts a recorder with room for buffer pending entries.
// Entries arriving while the buffer is full are dropped with a warning.
func NewRecorder(repo Repository, logger Logger, buffer int) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		repo:    repo,
		logger:  logger,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Observe implements dispatch.Observer.
func (r *Recorder) Observe(rec dispatch.Record) {
	entry := EntryFromRecord(rec)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.entries <- entry:
	default:
		r.logger.Warn("command log buffer full, dropping entry", "action", entry.Action)
	}
}

// Close flushes pending entries and stops the writer.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.entries)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.repo.Create(ctx, &entry); err != nil {
			r.logger.Error("writing command log entry failed", "action", entry.Action, "error", err)
		}
		cancel()
	}
}

// EntryFromRecord converts a dispatch record to a log entry.
func EntryFromRecord(rec dispatch.Record) Entry {
	e := Entry{
		Action:     string(rec.Action),
		Outcome:    string(rec.Outcome),
		DurationMs: float64(rec.Duration.Microseconds()) / 1000,
		CreatedAt:  rec.At.UTC(),
	}
	if e.Action == "" {
		e.Action = "UNKNOWN"
	}
	if rec.Session != nil {
		e.SessionID = rec.Session.SessionID
	} else if rec.Command != nil && rec.Command.SessionID != nil {
		e.SessionID = *rec.Command.SessionID
	}
	if rec.Err != nil {
		e.Error = dispatch.Message(rec.Err)
	}
	if rec.Command != nil {
		if b, err := json.Marshal(rec.Command); err == nil {
			e.Payload = b
		}
	}
	return e
}
