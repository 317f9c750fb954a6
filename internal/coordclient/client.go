// Package coordclient is a small HTTP client for the coordinator API.
package coordclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nerrad567/media-coordinator/internal/inventory"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// DefaultBaseURL is the coordinator address used when none is configured.
const DefaultBaseURL = "http://localhost:8080"

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

// ErrInvalidReply is returned when a reply body cannot be decoded.
var ErrInvalidReply = errors.New("coordclient: invalid reply")

// APIError is a non-2xx coordinator reply.
type APIError struct {
	Status  int
	Message string          `json:"error"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("coordinator returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("coordinator returned %d: %s", e.Status, e.Message)
}

// Reply is a raw coordinator response.
type Reply struct {
	Status int
	Body   json.RawMessage
}

// OK reports a 2xx status.
func (r Reply) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client talks to one coordinator.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. A nil httpClient gets an instrumented
// client with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// BaseURL returns the coordinator address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send posts a raw command payload and returns the reply whatever its
// status. Only transport failures are errors.
func (c *Client) Send(ctx context.Context, payload []byte) (Reply, error) {
	return c.do(ctx, http.MethodPost, "/command", payload)
}

// SendCommand encodes cmd and posts it.
func (c *Client) SendCommand(ctx context.Context, cmd any) (Reply, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return Reply{}, fmt.Errorf("encoding command: %w", err)
	}
	return c.Send(ctx, data)
}

// ListTargets runs LIST_TARGETS.
func (c *Client) ListTargets(ctx context.Context) (inventory.Inventory, error) {
	var inv inventory.Inventory
	err := c.getJSON(ctx, http.MethodPost, "/command", []byte(`{"action":"LIST_TARGETS"}`), &inv)
	return inv, err
}

// Sessions lists the coordinator's sessions.
func (c *Client) Sessions(ctx context.Context) ([]session.Session, error) {
	var body struct {
		Sessions []session.Session `json:"sessions"`
	}
	if err := c.getJSON(ctx, http.MethodGet, "/sessions", nil, &body); err != nil {
		return nil, err
	}
	return body.Sessions, nil
}

// Session fetches one session.
func (c *Client) Session(ctx context.Context, id string) (session.Session, error) {
	var sess session.Session
	err := c.getJSON(ctx, http.MethodGet, "/sessions/"+id, nil, &sess)
	return sess, err
}

// Health checks GET /health and returns the reported version.
func (c *Client) Health(ctx context.Context) (string, error) {
	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := c.getJSON(ctx, http.MethodGet, "/health", nil, &body); err != nil {
		return "", err
	}
	return body.Version, nil
}

// getJSON runs a request and decodes a 2xx body into out. Other statuses
// become an *APIError.
func (c *Client) getJSON(ctx context.Context, method, path string, body []byte, out any) error {
	reply, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if !reply.OK() {
		return decodeAPIError(reply)
	}
	if err := json.Unmarshal(reply.Body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidReply, method, path, err)
	}
	return nil
}

// do sends one request and reads at most maxResponseBytes of the reply.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (Reply, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Reply{}, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("reading reply: %w", err)
	}
	return Reply{Status: resp.StatusCode, Body: data}, nil
}

// decodeAPIError uses the coordinator's error envelope when the body has
// one, and the raw body otherwise.
func decodeAPIError(r Reply) error {
	apiErr := &APIError{Status: r.Status}
	if err := json.Unmarshal(r.Body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(r.Body))
	}
	return apiErr
}
