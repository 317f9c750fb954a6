package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/media-coordinator/internal/audit"
	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/device"
	"github.com/nerrad567/media-coordinator/internal/dispatch"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/config"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/logging"
	"github.com/nerrad567/media-coordinator/internal/inventory"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// deviceStub answers every device call with {"accepted": true} and
// remembers the paths it saw.
type deviceStub struct {
	mu    sync.Mutex
	paths []string
}

func (d *deviceStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.paths = append(d.paths, r.URL.Path)
	d.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"accepted":true}`)) //nolint:errcheck
}

func (d *deviceStub) Paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paths...)
}

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *session.Store
	devices *deviceStub
}

// newTestEnv wires a real dispatcher against stub devices. tv_dead and
// zone_dead point at a closed listener so calls to them fail downstream.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	stub := &deviceStub{}
	live := httptest.NewServer(stub)
	t.Cleanup(live.Close)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	inv := inventory.New(inventory.Inventory{
		TVs: []inventory.TV{
			{TVID: "tv_living_room", DisplayName: "Living room", Endpoint: live.URL},
			{TVID: "tv_dead", DisplayName: "Attic", Endpoint: deadURL},
		},
		AudioZones: []inventory.AudioZone{
			{AudioZoneID: "zone_living_room", DisplayName: "Living room", Endpoint: live.URL,
				Outputs: []command.AudioOutput{command.AudioOutputWired, command.AudioOutputBluetooth}},
			{AudioZoneID: "zone_dead", DisplayName: "Garage", Endpoint: deadURL,
				Outputs: []command.AudioOutput{command.AudioOutputWired}},
		},
		BluetoothDevices: []inventory.BluetoothDevice{
			{BluetoothDeviceID: "bt_headphones", DisplayName: "Headphones", MACAddress: "AA:BB", PairedWithZoneID: "zone_living_room"},
		},
	})

	store := session.NewStore()
	d, err := dispatch.New(dispatch.Options{
		Inventory: inv,
		Store:     store,
		Devices:   device.New(device.Options{Timeout: 2 * time.Second}),
	})
	if err != nil {
		t.Fatalf("dispatch.New() error = %v", err)
	}

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:       config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:   logging.Discard(),
		Commands: d,
		Sessions: store,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	d.AddObserver(NewEventRelay(srv.Hub()))

	return testEnv{server: srv, handler: srv.Handler(), store: store, devices: stub}
}

func (e testEnv) post(t *testing.T, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec, decodeBody(t, rec)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func (e testEnv) play(t *testing.T) string {
	t.Helper()
	rec, body := e.post(t, `{"action":"PLAY","targetTvId":"tv_living_room","contentRef":"demo-video"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PLAY status = %d, body = %s", rec.Code, rec.Body.String())
	}
	sess := body["session"].(map[string]any)
	return sess["sessionId"].(string)
}

func TestNew_RequiresDeps(t *testing.T) {
	store := session.NewStore()
	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Commands: &dispatch.Dispatcher{}, Sessions: store}},
		{"no commands", Deps{Logger: logging.Discard(), Sessions: store}},
		{"no sessions", Deps{Logger: logging.Discard(), Commands: &dispatch.Dispatcher{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestCommand_ValidationListsEveryViolation(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.post(t, `{"action":"FLY","volumeLevel":150,"colour":"red"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["code"] != ErrCodeValidation || body["error"] != "Invalid command" {
		t.Errorf("body = %v", body)
	}
	details, ok := body["details"].([]any)
	if !ok || len(details) != 3 {
		t.Fatalf("details = %v, want 3 violations", body["details"])
	}
	if env.store.Len() != 0 {
		t.Errorf("store has %d sessions, want 0", env.store.Len())
	}
}

func TestCommand_ClientErrors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name    string
		body    string
		status  int
		code    string
		message string
	}{
		{"malformed", `{"action":`, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body"},
		{"unknown tv", `{"action":"PLAY","targetTvId":"tv_nope","contentRef":"x"}`,
			http.StatusBadRequest, ErrCodeUnknownTarget, "Unknown targetTvId: tv_nope"},
		{"missing content", `{"action":"PLAY","targetTvId":"tv_living_room"}`,
			http.StatusBadRequest, ErrCodeBadRequest, "targetTvId and contentRef are required for PLAY"},
		{"not paired", `{"action":"SELECT_BLUETOOTH_DEVICE","audioZoneId":"zone_dead","bluetoothDeviceId":"bt_headphones"}`,
			http.StatusBadRequest, ErrCodeBadRequest, "Bluetooth device is not paired with the requested zone"},
		{"unknown session", `{"action":"STOP","sessionId":"sess_missing"}`,
			http.StatusNotFound, ErrCodeNotFound, "Session not found"},
		{"volume out of range", `{"action":"SET_VOLUME","audioZoneId":"zone_living_room","volumeLevel":150}`,
			http.StatusBadRequest, ErrCodeValidation, "Invalid command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.post(t, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if body["code"] != tt.code {
				t.Errorf("code = %v, want %s", body["code"], tt.code)
			}
			if body["error"] != tt.message {
				t.Errorf("error = %v, want %q", body["error"], tt.message)
			}
		})
	}
	if env.store.Len() != 0 {
		t.Errorf("store has %d sessions, want 0", env.store.Len())
	}
	if paths := env.devices.Paths(); len(paths) != 0 {
		t.Errorf("devices contacted: %v", paths)
	}
}

func TestCommand_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.play(t)

	rec, body := env.post(t, `{"action":"PAUSE","sessionId":"`+id+`"}`)
	if rec.Code != http.StatusOK || body["accepted"] != true {
		t.Fatalf("PAUSE = %d %v", rec.Code, body)
	}
	if state := body["session"].(map[string]any)["state"]; state != "paused" {
		t.Errorf("state = %v, want paused", state)
	}

	rec, body = env.post(t, `{"action":"MOVE_AUDIO","sessionId":"`+id+`","audioZoneId":"zone_living_room"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("MOVE_AUDIO = %d %s", rec.Code, rec.Body.String())
	}
	sess := body["session"].(map[string]any)
	if sess["audioRoute"] != "zone" || sess["audioZoneId"] != "zone_living_room" || sess["audioOutput"] != "wired" {
		t.Errorf("session after MOVE_AUDIO = %v", sess)
	}

	rec, body = env.post(t, `{"action":"SET_VOLUME","audioZoneId":"zone_living_room","volumeLevel":30}`)
	if rec.Code != http.StatusOK || body["accepted"] != true {
		t.Fatalf("SET_VOLUME = %d %v", rec.Code, body)
	}
	if _, ok := body["session"]; ok {
		t.Error("SET_VOLUME response carries a session")
	}

	rec, body = env.post(t, `{"action":"SELECT_BLUETOOTH_DEVICE","audioZoneId":"zone_living_room","bluetoothDeviceId":"bt_headphones"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("SELECT_BLUETOOTH_DEVICE = %d %s", rec.Code, rec.Body.String())
	}
	selected := body["selected"].(map[string]any)
	if selected["bluetoothDeviceId"] != "bt_headphones" {
		t.Errorf("selected = %v", selected)
	}

	want := []string{device.PathPlay, device.PathAttachSession, device.PathSetVolume}
	got := env.devices.Paths()
	if len(got) != len(want) {
		t.Fatalf("device paths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("device path[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCommand_ListTargets(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.post(t, `{"action":"LIST_TARGETS"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, key := range []string{"tvs", "audioZones", "bluetoothDevices"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
	if zones := body["audioZones"].([]any); len(zones) != 2 {
		t.Errorf("audioZones = %d, want 2", len(zones))
	}
}

func TestCommand_DownstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	id := env.play(t)

	rec, body := env.post(t, `{"action":"MOVE_AUDIO","sessionId":"`+id+`","audioZoneId":"zone_dead"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body %s)", rec.Code, rec.Body.String())
	}
	if body["code"] != ErrCodeDownstream {
		t.Errorf("code = %v", body["code"])
	}

	sess, err := env.store.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.AudioRoute != command.AudioRouteTV {
		t.Errorf("audioRoute = %s, want tv (no update after failed zone call)", sess.AudioRoute)
	}
}

func TestCommand_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	big := `{"action":"PLAY","contentRef":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	rec, body := env.post(t, big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if body["code"] != ErrCodeTooLarge {
		t.Errorf("code = %v", body["code"])
	}
}

func TestCommand_WrongContentType(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{"action":"LIST_TARGETS"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestSessions(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if body := decodeBody(t, rec); body["count"] != float64(0) {
		t.Errorf("empty list = %v", body)
	}

	first := env.play(t)
	second := env.play(t)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	body := decodeBody(t, rec)
	list := body["sessions"].([]any)
	if len(list) != 2 {
		t.Fatalf("sessions = %d, want 2", len(list))
	}
	if list[0].(map[string]any)["sessionId"] != first || list[1].(map[string]any)["sessionId"] != second {
		t.Errorf("sessions not in creation order: %v", list)
	}

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+first, nil))
	if rec.Code != http.StatusOK || decodeBody(t, rec)["sessionId"] != first {
		t.Errorf("GET /sessions/%s = %d %s", first, rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/sess_nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", rec.Code)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schema/command", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["$id"] != command.SchemaID {
		t.Errorf("$id = %v", body["$id"])
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/command", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /command status = %d, want 405", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)
	env.server.cfg.CORS.AllowedOrigins = []string{"http://dashboard.local"}
	handler := env.server.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/command", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://dashboard.local" {
		t.Errorf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin received CORS headers")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-fixed")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-fixed" {
		t.Errorf("X-Request-ID = %q, want req-fixed", got)
	}
}

func TestServer_StartClose(t *testing.T) {
	env := newTestEnv(t)
	if err := env.server.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start = nil, want error")
	}
	if err := env.server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer env.server.Close()

	if err := env.server.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	resp, err := http.Post("http://"+env.server.Addr()+"/command", "application/json",
		bytes.NewBufferString(`{"action":"LIST_TARGETS"}`))
	if err != nil {
		t.Fatalf("POST /command: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

type stubCommandLog struct {
	filter audit.Filter
}

func (s *stubCommandLog) Create(context.Context, *audit.Entry) error { return nil }

func (s *stubCommandLog) List(_ context.Context, f audit.Filter) (*audit.ListResult, error) {
	s.filter = f
	return &audit.ListResult{Entries: []audit.Entry{{ID: "cmd-1", Action: "PLAY", Outcome: "accepted"}}, Total: 1, Limit: 5}, nil
}

func TestListCommands(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/commands", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled log status = %d, want 404", rec.Code)
	}

	log := &stubCommandLog{}
	env.server.auditLog = log
	handler := env.server.Handler()

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/commands?action=PLAY&sessionId=sess_1&limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if log.filter.Action != "PLAY" || log.filter.SessionID != "sess_1" || log.filter.Limit != 5 {
		t.Errorf("filter = %+v", log.filter)
	}
	if body := decodeBody(t, rec); body["total"] != float64(1) {
		t.Errorf("body = %v", body)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/commands?limit=ten", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}
