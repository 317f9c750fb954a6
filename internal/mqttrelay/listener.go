package mqttrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/media-coordinator/internal/dispatch"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/mqtt"
)

const (
	// defaultRequestTimeout bounds one command received over MQTT.
	defaultRequestTimeout = 30 * time.Second

	// defaultMaxInFlight caps how many MQTT commands execute at once.
	defaultMaxInFlight = 16
)

var (
	// ErrInvalidRequest is returned for request envelopes that cannot be used.
	ErrInvalidRequest = errors.New("mqttrelay: invalid request")

	// ErrListenerClosed is returned for requests that arrive after Close.
	ErrListenerClosed = errors.New("mqttrelay: listener closed")
)

// Subscriber is the part of the MQTT client the listener needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Executor runs a raw command body.
type Executor interface {
	Execute(ctx context.Context, payload []byte) (dispatch.Result, error)
}

// Request is the envelope clients publish on {prefix}/request.
type Request struct {
	RequestID string          `json:"requestId"`
	Command   json.RawMessage `json:"command"`
}

// Response is published on {prefix}/response/{requestId}.
type Response struct {
	RequestID string           `json:"requestId"`
	OK        bool             `json:"ok"`
	Result    *dispatch.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Listener executes commands received on the request topic.
//
// The MQTT client delivers messages on a single router goroutine, and a
// handler that blocks there stalls every other subscription (including the
// acknowledgements for our own replies). Handle therefore only decodes the
// envelope; the dispatch and the reply publish run on their own goroutine,
// at most maxInFlight at a time.
//
// Thread Safety: Handle may be called concurrently. Close waits for every
// accepted request to be answered.
type Listener struct {
	exec    Executor
	pub     Publisher
	topics  mqtt.Topics
	logger  Logger
	timeout time.Duration
	slots   chan struct{}

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

// NewListener returns a listener that replies through pub.
func NewListener(exec Executor, pub Publisher, topics mqtt.Topics, logger Logger) *Listener {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Listener{
		exec:    exec,
		pub:     pub,
		topics:  topics,
		logger:  logger,
		timeout: defaultRequestTimeout,
		slots:   make(chan struct{}, defaultMaxInFlight),
	}
}

// Listen subscribes to the request topic.
func (l *Listener) Listen(sub Subscriber, qos byte) error {
	if err := sub.Subscribe(l.topics.CommandRequest(), qos, l.Handle); err != nil {
		return fmt.Errorf("subscribing to command requests: %w", err)
	}
	return nil
}

// Handle accepts one request message and returns without waiting for the
// command to run. Envelopes without a requestId cannot be answered and are
// returned as errors for the client to log.
func (l *Listener) Handle(_ string, payload []byte) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.RequestID == "" {
		return fmt.Errorf("%w: requestId is required", ErrInvalidRequest)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("%w: dropping request %s", ErrListenerClosed, req.RequestID)
	}
	l.inFlight.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.inFlight.Done()
		l.slots <- struct{}{}
		defer func() { <-l.slots }()
		l.respond(req)
	}()
	return nil
}

// respond executes req and publishes the reply.
func (l *Listener) respond(req Request) {
	resp := Response{RequestID: req.RequestID}
	if len(req.Command) == 0 {
		resp.Error = "command is required"
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		res, err := l.exec.Execute(ctx, req.Command)
		cancel()
		if err != nil {
			resp.Error = dispatch.Message(err)
		} else {
			resp.OK = true
			resp.Result = &res
		}
	}

	if err := l.pub.PublishJSON(l.topics.CommandResponse(req.RequestID), resp, false); err != nil {
		l.logger.Warn("publishing mqtt command response failed", "request_id", req.RequestID, "error", err)
		return
	}
	l.logger.Debug("mqtt command handled", "request_id", req.RequestID, "ok", resp.OK)
}

// Close stops accepting requests and waits for in-flight ones to finish.
// It is safe to call more than once.
func (l *Listener) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.inFlight.Wait()
}
