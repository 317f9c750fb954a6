package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/inventory"
)

// maxResponseBytes caps how much of a device reply is read.
const maxResponseBytes = 1 << 20

// Device paths.
const (
	PathPlay          = "/play"
	PathAttachSession = "/attach-session"
	PathSetVolume     = "/set-volume"
)

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Call describes one finished outbound request.
type Call struct {
	URL      string
	Path     string
	Status   int
	Duration time.Duration
	Err      error
}

// Options configures a Client.
type Options struct {
	// Timeout bounds each call. Zero leaves only the transport defaults.
	Timeout time.Duration

	// Transport is wrapped with OpenTelemetry instrumentation.
	// Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	Logger Logger

	// OnCall, if set, is invoked after every request. It must not block.
	OnCall func(Call)
}

// Client issues JSON POSTs to TV players and audio zones.
//
// It never retries: a failed call is reported once and the dispatcher
// decides what that means for the session. Every request is traced through
// otelhttp, and OnCall sees every finished request, failed or not.
//
// A Client is safe for concurrent use.
type Client struct {
	http   *http.Client
	logger Logger
	onCall func(Call)
}

// New creates a device client.
func New(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: otelhttp.NewTransport(base,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "device POST " + r.URL.Path
				}),
			),
		},
		logger: logger,
		onCall: opts.OnCall,
	}
}

// Response is a device reply.
type Response struct {
	Status int
	// Body is the decoded JSON object, or {"raw": text} when the reply was
	// not a JSON object.
	Body map[string]any
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Acknowledged reports a 2xx status whose body does not say accepted=false.
func (r Response) Acknowledged() bool {
	if !r.OK() {
		return false
	}
	if accepted, ok := r.Body["accepted"].(bool); ok && !accepted {
		return false
	}
	return true
}

// Reason returns the device's error message, if it sent one.
func (r Response) Reason() string {
	if msg, ok := r.Body["error"].(string); ok {
		return msg
	}
	return ""
}

// Post sends payload as JSON to endpoint+path.
//
// A trailing slash on endpoint is ignored. Any HTTP status is a Response,
// not an error; callers decide what a 4xx or 5xx means. Errors are only
// returned when no reply was received:
//   - ErrInvalidEndpoint: the URL cannot be built into a request
//   - ErrUnreachable: connection refused, timeout or ctx cancellation
func (c *Client) Post(ctx context.Context, endpoint, path string, payload any) (Response, error) {
	url := strings.TrimRight(endpoint, "/") + path

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encoding payload for %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("%w: %s: %v", ErrInvalidEndpoint, url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: POST %s: %v", ErrUnreachable, url, err)
		c.report(Call{URL: url, Path: path, Duration: time.Since(start), Err: err})
		return Response{}, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		err = fmt.Errorf("%w: reading reply from %s: %v", ErrUnreachable, url, err)
		c.report(Call{URL: url, Path: path, Status: resp.StatusCode, Duration: time.Since(start), Err: err})
		return Response{}, err
	}

	out := Response{Status: resp.StatusCode, Body: decodeBody(raw)}
	c.report(Call{URL: url, Path: path, Status: resp.StatusCode, Duration: time.Since(start)})

	if !out.OK() {
		c.logger.Warn("device replied with error status", "url", url, "status", out.Status, "reason", out.Reason())
	} else {
		c.logger.Debug("device call completed", "url", url, "status", out.Status)
	}
	return out, nil
}

func (c *Client) report(call Call) {
	if c.onCall != nil {
		c.onCall(call)
	}
}

func decodeBody(raw []byte) map[string]any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return map[string]any{"raw": string(raw)}
	}
	return obj
}

// StartPlayback asks a TV to play contentRef for a session.
func (c *Client) StartPlayback(ctx context.Context, tv inventory.TV, sessionID, contentRef string) (Response, error) {
	return c.Post(ctx, tv.Endpoint, PathPlay, map[string]any{
		"sessionId":  sessionID,
		"contentRef": contentRef,
	})
}

// AttachSession routes a session's audio to a zone.
func (c *Client) AttachSession(ctx context.Context, zone inventory.AudioZone, sessionID string, output command.AudioOutput) (Response, error) {
	return c.Post(ctx, zone.Endpoint, PathAttachSession, map[string]any{
		"sessionId":   sessionID,
		"audioOutput": output,
	})
}

// SetVolume sets a zone's volume.
func (c *Client) SetVolume(ctx context.Context, zone inventory.AudioZone, level float64) (Response, error) {
	return c.Post(ctx, zone.Endpoint, PathSetVolume, map[string]any{
		"volumeLevel": level,
	})
}
