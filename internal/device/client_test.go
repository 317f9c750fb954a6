package device

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/inventory"
)

// recordingServer captures requests and replies with a fixed status and body.
type recordingServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Payload     map[string]any
}

func newRecordingServer(t *testing.T, status int, body string) (*recordingServer, *httptest.Server) {
	t.Helper()
	rs := &recordingServer{status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(data, &payload)

		rs.mu.Lock()
		rs.requests = append(rs.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Payload:     payload,
		})
		rs.mu.Unlock()

		w.WriteHeader(rs.status)
		_, _ = io.WriteString(w, rs.body)
	}))
	t.Cleanup(srv.Close)
	return rs, srv
}

func (rs *recordingServer) last(t *testing.T) recordedRequest {
	t.Helper()
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.requests) == 0 {
		t.Fatal("no request recorded")
	}
	return rs.requests[len(rs.requests)-1]
}

func TestClient_StartPlayback(t *testing.T) {
	rs, srv := newRecordingServer(t, http.StatusOK, `{"accepted":true,"state":{"state":"playing"}}`)
	c := New(Options{})

	resp, err := c.StartPlayback(context.Background(), inventory.TV{TVID: "tv", Endpoint: srv.URL + "/"}, "sess_1", "demo-video")
	if err != nil {
		t.Fatalf("StartPlayback() error = %v", err)
	}
	if !resp.Acknowledged() {
		t.Errorf("Acknowledged() = false for %+v", resp)
	}

	req := rs.last(t)
	if req.Method != http.MethodPost || req.Path != PathPlay {
		t.Errorf("request = %s %s, want POST /play", req.Method, req.Path)
	}
	if req.ContentType != "application/json" {
		t.Errorf("Content-Type = %q", req.ContentType)
	}
	if req.Payload["sessionId"] != "sess_1" || req.Payload["contentRef"] != "demo-video" {
		t.Errorf("payload = %v", req.Payload)
	}
}

func TestClient_AttachSessionAndSetVolume(t *testing.T) {
	rs, srv := newRecordingServer(t, http.StatusOK, `{"accepted":true}`)
	c := New(Options{})
	zone := inventory.AudioZone{AudioZoneID: "zone", Endpoint: srv.URL}

	if _, err := c.AttachSession(context.Background(), zone, "sess_1", command.AudioOutputBluetooth); err != nil {
		t.Fatalf("AttachSession() error = %v", err)
	}
	req := rs.last(t)
	if req.Path != PathAttachSession || req.Payload["audioOutput"] != "bluetooth" || req.Payload["sessionId"] != "sess_1" {
		t.Errorf("attach request = %+v", req)
	}

	if _, err := c.SetVolume(context.Background(), zone, 35); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	req = rs.last(t)
	if req.Path != PathSetVolume || req.Payload["volumeLevel"] != float64(35) {
		t.Errorf("volume request = %+v", req)
	}
}

func TestClient_NonSuccessIsNotAnError(t *testing.T) {
	_, srv := newRecordingServer(t, http.StatusBadRequest, `{"accepted":false,"error":"sessionId does not match active session"}`)
	c := New(Options{})

	resp, err := c.Post(context.Background(), srv.URL, "/pause", map[string]any{"sessionId": "x"})
	if err != nil {
		t.Fatalf("Post() error = %v, want nil for HTTP 400", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.Status)
	}
	if resp.OK() || resp.Acknowledged() {
		t.Error("400 reply reported as OK")
	}
	if resp.Reason() != "sessionId does not match active session" {
		t.Errorf("Reason() = %q", resp.Reason())
	}
}

func TestResponse_Acknowledged(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want bool
	}{
		{"2xx with accepted true", Response{Status: 200, Body: map[string]any{"accepted": true}}, true},
		{"2xx without accepted", Response{Status: 204, Body: map[string]any{}}, true},
		{"2xx with accepted false", Response{Status: 200, Body: map[string]any{"accepted": false}}, false},
		{"5xx", Response{Status: 503, Body: map[string]any{"accepted": true}}, false},
		{"3xx", Response{Status: 302}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Acknowledged(); got != tt.want {
				t.Errorf("Acknowledged() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_BodyDecoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]any
	}{
		{"json object", `{"ok":true}`, map[string]any{"ok": true}},
		{"plain text", "upstream exploded", map[string]any{"raw": "upstream exploded"}},
		{"json array", `[1,2]`, map[string]any{"raw": "[1,2]"}},
		{"empty", "", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newRecordingServer(t, http.StatusOK, tt.body)
			resp, err := New(Options{}).Post(context.Background(), srv.URL, "/x", struct{}{})
			if err != nil {
				t.Fatalf("Post() error = %v", err)
			}
			if len(resp.Body) != len(tt.want) {
				t.Fatalf("Body = %v, want %v", resp.Body, tt.want)
			}
			for k, v := range tt.want {
				if resp.Body[k] != v {
					t.Errorf("Body[%q] = %v, want %v", k, resp.Body[k], v)
				}
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var calls []Call
	c := New(Options{OnCall: func(call Call) { calls = append(calls, call) }})

	_, err := c.Post(context.Background(), url, PathPlay, map[string]any{})
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Post() error = %v, want ErrUnreachable", err)
	}
	if len(calls) != 1 || calls[0].Err == nil || calls[0].Path != PathPlay {
		t.Errorf("OnCall records = %+v", calls)
	}
}

func TestClient_InvalidEndpoint(t *testing.T) {
	_, err := New(Options{}).Post(context.Background(), "://bad", PathPlay, nil)
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("Post() error = %v, want ErrInvalidEndpoint", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Options{Timeout: 50 * time.Millisecond})
	_, err := c.Post(context.Background(), srv.URL, PathPlay, nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Post() error = %v, want ErrUnreachable on timeout", err)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	_, srv := newRecordingServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Post(ctx, srv.URL, PathPlay, nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Post() error = %v, want ErrUnreachable", err)
	}
}

func TestClient_OnCallSuccess(t *testing.T) {
	_, srv := newRecordingServer(t, http.StatusAccepted, `{}`)
	var got Call
	c := New(Options{OnCall: func(call Call) { got = call }})

	if _, err := c.Post(context.Background(), srv.URL, PathSetVolume, nil); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if got.Status != http.StatusAccepted || got.Err != nil || got.URL != srv.URL+PathSetVolume {
		t.Errorf("OnCall record = %+v", got)
	}
}
