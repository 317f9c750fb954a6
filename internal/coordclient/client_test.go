package coordclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCoordinator(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok","version":"1.2.3"}`) //nolint:errcheck
	})
	mux.HandleFunc("/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		switch string(body) {
		case `{"action":"LIST_TARGETS"}`:
			io.WriteString(w, `{"tvs":[{"tvId":"tv_1","displayName":"TV","endpoint":"http://tv"}],"audioZones":[],"bluetoothDevices":[]}`) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"Invalid command","code":"validation_error","details":[{"path":"/action"}]}`) //nolint:errcheck
		}
	})
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"sessions":[{"sessionId":"sess_a","state":"playing","audioRoute":"tv"}],"count":1}`) //nolint:errcheck
	})
	mux.HandleFunc("/sessions/sess_missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"Session not found","code":"not_found"}`) //nolint:errcheck
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Health(t *testing.T) {
	srv := newCoordinator(t)
	c := New(srv.URL+"/", nil)

	if c.BaseURL() != srv.URL {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", c.BaseURL())
	}
	version, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if version != "1.2.3" {
		t.Errorf("version = %q", version)
	}
}

func TestClient_ListTargets(t *testing.T) {
	c := New(newCoordinator(t).URL, nil)

	inv, err := c.ListTargets(context.Background())
	if err != nil {
		t.Fatalf("ListTargets() error = %v", err)
	}
	if len(inv.TVs) != 1 || inv.TVs[0].TVID != "tv_1" {
		t.Errorf("TVs = %+v", inv.TVs)
	}
}

func TestClient_SendReturnsErrorReplies(t *testing.T) {
	c := New(newCoordinator(t).URL, nil)

	reply, err := c.Send(context.Background(), []byte(`{"action":"NOPE"}`))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.OK() || reply.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", reply.Status)
	}

	reply, err = c.SendCommand(context.Background(), map[string]string{"action": "LIST_TARGETS"})
	if err != nil || !reply.OK() {
		t.Errorf("SendCommand() = %+v, %v", reply, err)
	}
}

func TestClient_Sessions(t *testing.T) {
	c := New(newCoordinator(t).URL, nil)

	sessions, err := c.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "sess_a" {
		t.Errorf("sessions = %+v", sessions)
	}

	_, err = c.Session(context.Background(), "sess_missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Session() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "not_found" || apiErr.Message != "Session not found" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_InvalidReply(t *testing.T) {
	c := New(newCoordinator(t).URL, nil)

	var out struct{}
	err := c.getJSON(context.Background(), http.MethodGet, "/broken", nil, &out)
	if !errors.Is(err, ErrInvalidReply) {
		t.Errorf("error = %v, want ErrInvalidReply", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := New(url, nil).Health(context.Background()); err == nil {
		t.Error("Health() against closed server: want error")
	}
}
