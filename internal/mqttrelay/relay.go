package mqttrelay

import (
	"sync"
	"time"

	"github.com/nerrad567/media-coordinator/internal/dispatch"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/mqtt"
)

// Publisher is the part of the MQTT client the relay needs.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// CommandEvent is published on {prefix}/command/{action}.
type CommandEvent struct {
	Action     string  `json:"action"`
	Outcome    string  `json:"outcome"`
	SessionID  string  `json:"sessionId,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"durationMs"`
	Timestamp  string  `json:"timestamp"`
}

type message struct {
	topic    string
	payload  any
	retained bool
}

// Relay publishes dispatch records from a background goroutine.
//
// For every record it publishes a {prefix}/command/{ACTION} event. When the
// record carries a session it also publishes a retained
// {prefix}/session/{id} snapshot, so a subscriber that connects later sees
// each session's latest state.
//
// Observe never blocks: when the queue is full the message is dropped with
// a warning. Close publishes what is queued, then stops.
type Relay struct {
	pub    Publisher
	topics mqtt.Topics
	logger Logger
	queue  chan message
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRelay starts a relay with room for buffer queued messages.
func NewRelay(pub Publisher, topics mqtt.Topics, logger Logger, buffer int) *Relay {
	if logger == nil {
		logger = noopLogger{}
	}
	if buffer <= 0 {
		buffer = 256
	}
	r := &Relay{
		pub:    pub,
		topics: topics,
		logger: logger,
		queue:  make(chan message, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Observe implements dispatch.Observer.
func (r *Relay) Observe(rec dispatch.Record) {
	action := string(rec.Action)
	if action == "" {
		action = "UNKNOWN"
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	ev := CommandEvent{
		Action:     action,
		Outcome:    string(rec.Outcome),
		DurationMs: float64(rec.Duration.Microseconds()) / 1000,
		Timestamp:  at.UTC().Format(time.RFC3339Nano),
	}
	if rec.Err != nil {
		ev.Error = dispatch.Message(rec.Err)
	}
	if rec.Session != nil {
		ev.SessionID = rec.Session.SessionID
	}

	r.enqueue(message{topic: r.topics.CommandEvent(action), payload: ev})
	// Committed sessions are retained even when the device call after the
	// commit failed; the session is live either way.
	if rec.Session != nil {
		r.enqueue(message{topic: r.topics.Session(rec.Session.SessionID), payload: *rec.Session, retained: true})
	}
}

func (r *Relay) enqueue(m message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- m:
	default:
		r.logger.Warn("mqtt relay queue full, dropping message", "topic", m.topic)
	}
}

// Close publishes whatever is queued and stops the relay.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Relay) run() {
	defer close(r.done)
	for m := range r.queue {
		if err := r.pub.PublishJSON(m.topic, m.payload, m.retained); err != nil {
			r.logger.Warn("mqtt publish failed", "topic", m.topic, "error", err)
			continue
		}
		r.logger.Debug("mqtt published", "topic", m.topic)
	}
}
