package devicesim

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/device"
	"github.com/nerrad567/media-coordinator/internal/inventory"
)

func post(t *testing.T, h http.Handler, path, body string) (int, Reply) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var reply Reply
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatalf("decoding reply from %s: %v", path, err)
	}
	return rec.Code, reply
}

func TestTV_Lifecycle(t *testing.T) {
	tv := NewTV(nil)
	h := tv.Handler()

	steps := []struct {
		path      string
		body      string
		wantOK    bool
		wantErr   string
		wantState string
	}{
		{"/pause", `{"sessionId":"sess_a"}`, false, "sessionId does not match active session", PlaybackIdle},
		{"/play", `{"sessionId":"sess_a"}`, false, "sessionId and contentRef are required", PlaybackIdle},
		{"/play", `{"sessionId":"sess_a","contentRef":"movie:1"}`, true, "", PlaybackPlaying},
		{"/pause", `{}`, false, "sessionId is required", PlaybackPlaying},
		{"/pause", `{"sessionId":"sess_b"}`, false, "sessionId does not match active session", PlaybackPlaying},
		{"/pause", `{"sessionId":"sess_a"}`, true, "", PlaybackPaused},
		{"/seek", `{"sessionId":"sess_a","seekSeconds":"10"}`, false, "seekSeconds must be a number", PlaybackPaused},
		{"/seek", `{"sessionId":"sess_a","seekSeconds":90}`, true, "", PlaybackPaused},
		{"/resume", `{"sessionId":"sess_a"}`, true, "", PlaybackPlaying},
		{"/stop", `{"sessionId":"sess_a"}`, true, "", PlaybackIdle},
	}

	for _, step := range steps {
		code, reply := post(t, h, step.path, step.body)
		if code != http.StatusOK {
			t.Fatalf("%s %s: status = %d, want 200", step.path, step.body, code)
		}
		if reply.Accepted != step.wantOK || reply.Error != step.wantErr {
			t.Fatalf("%s %s: reply = %+v", step.path, step.body, reply)
		}
		if got := tv.State().State; got != step.wantState {
			t.Fatalf("%s %s: state = %q, want %q", step.path, step.body, got, step.wantState)
		}
	}

	final := tv.State()
	if final.ActiveSessionID != nil || final.CurrentContentRef != nil || final.LastSeekSeconds != nil {
		t.Errorf("state after stop = %+v, want cleared", final)
	}
}

func TestTV_PlayClearsSeek(t *testing.T) {
	tv := NewTV(nil)
	h := tv.Handler()

	post(t, h, "/play", `{"sessionId":"sess_a","contentRef":"movie:1"}`)
	post(t, h, "/seek", `{"sessionId":"sess_a","seekSeconds":30}`)
	if s := tv.State(); s.LastSeekSeconds == nil || *s.LastSeekSeconds != 30 {
		t.Fatalf("LastSeekSeconds = %v, want 30", s.LastSeekSeconds)
	}

	post(t, h, "/play", `{"sessionId":"sess_b","contentRef":"movie:2"}`)
	s := tv.State()
	if s.LastSeekSeconds != nil {
		t.Errorf("LastSeekSeconds = %v, want nil", *s.LastSeekSeconds)
	}
	if *s.ActiveSessionID != "sess_b" || *s.CurrentContentRef != "movie:2" {
		t.Errorf("state = %+v", s)
	}
}

func TestTV_StateIsCopy(t *testing.T) {
	tv := NewTV(nil)
	post(t, tv.Handler(), "/play", `{"sessionId":"sess_a","contentRef":"movie:1"}`)

	s := tv.State()
	*s.ActiveSessionID = "mutated"
	if got := *tv.State().ActiveSessionID; got != "sess_a" {
		t.Errorf("ActiveSessionID = %q after mutating a copy", got)
	}
}

func TestZone_Operations(t *testing.T) {
	zone := NewZone(nil)
	h := zone.Handler()

	initial := zone.State()
	if initial.AudioOutput != "wired" || initial.VolumeLevel != 50 || initial.Muted {
		t.Fatalf("initial state = %+v", initial)
	}

	tests := []struct {
		path    string
		body    string
		wantOK  bool
		wantErr string
	}{
		{"/attach-session", `{}`, false, "sessionId is required"},
		{"/attach-session", `{"sessionId":"sess_a","audioOutput":"both"}`, true, ""},
		{"/set-volume", `{"volumeLevel":"loud"}`, false, "volumeLevel must be a number"},
		{"/set-volume", `{"volumeLevel":101}`, false, "volumeLevel out of range"},
		{"/set-volume", `{"volumeLevel":35}`, true, ""},
		{"/set-mute", `{"muted":"yes"}`, false, "muted must be a boolean"},
		{"/set-mute", `{"muted":true}`, true, ""},
		{"/select-bluetooth-device", `{}`, false, "bluetoothDeviceId is required"},
		{"/select-bluetooth-device", `{"bluetoothDeviceId":"bt_1"}`, true, ""},
		{"/detach-session", `{"sessionId":"sess_b"}`, false, "sessionId does not match active session"},
	}
	for _, tt := range tests {
		_, reply := post(t, h, tt.path, tt.body)
		if reply.Accepted != tt.wantOK || reply.Error != tt.wantErr {
			t.Fatalf("%s %s: reply = %+v", tt.path, tt.body, reply)
		}
	}

	s := zone.State()
	if *s.ActiveSessionID != "sess_a" || s.AudioOutput != "bluetooth" || *s.BluetoothDeviceID != "bt_1" {
		t.Errorf("state = %+v", s)
	}
	if s.VolumeLevel != 35 || !s.Muted {
		t.Errorf("volume/mute = %v/%v, want 35/true", s.VolumeLevel, s.Muted)
	}

	_, reply := post(t, h, "/detach-session", `{"sessionId":"sess_a"}`)
	if !reply.Accepted {
		t.Fatalf("detach rejected: %s", reply.Error)
	}
	s = zone.State()
	if s.ActiveSessionID != nil || s.BluetoothDeviceID != nil {
		t.Errorf("state after detach = %+v", s)
	}
}

func TestZone_AttachDefaultsToWired(t *testing.T) {
	zone := NewZone(nil)
	h := zone.Handler()

	post(t, h, "/select-bluetooth-device", `{"bluetoothDeviceId":"bt_1"}`)
	post(t, h, "/attach-session", `{"sessionId":"sess_a"}`)

	s := zone.State()
	if s.AudioOutput != "wired" || s.BluetoothDeviceID != nil {
		t.Errorf("state = %+v, want wired output with no bluetooth device", s)
	}
}

func TestRoutes_HealthStateAndBadJSON(t *testing.T) {
	handlers := map[string]http.Handler{
		"tv":   NewTV(nil).Handler(),
		"zone": NewZone(nil).Handler(),
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/health", "/state"} {
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				if rec.Code != http.StatusOK {
					t.Errorf("GET %s = %d", path, rec.Code)
				}
			}

			path := "/play"
			if name == "zone" {
				path = "/set-volume"
			}
			code, reply := post(t, h, path, `{not json`)
			if code != http.StatusBadRequest || reply.Accepted {
				t.Errorf("bad JSON: status = %d, reply = %+v", code, reply)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("unknown route = %d, want 404", rec.Code)
			}
		})
	}
}

// The simulators speak the contract the coordinator's device client expects.
func TestDeviceClientAgainstSimulators(t *testing.T) {
	tv := NewTV(nil)
	zone := NewZone(nil)
	tvSrv := httptest.NewServer(tv.Handler())
	defer tvSrv.Close()
	zoneSrv := httptest.NewServer(zone.Handler())
	defer zoneSrv.Close()

	client := device.New(device.Options{Timeout: 2 * time.Second})
	ctx := context.Background()

	resp, err := client.StartPlayback(ctx, inventory.TV{TVID: "tv_1", Endpoint: tvSrv.URL}, "sess_a", "movie:1")
	if err != nil || !resp.Acknowledged() {
		t.Fatalf("StartPlayback = %+v, %v", resp, err)
	}

	z := inventory.AudioZone{AudioZoneID: "zone_1", Endpoint: zoneSrv.URL + "/"}
	resp, err = client.AttachSession(ctx, z, "sess_a", command.AudioOutputBoth)
	if err != nil || !resp.Acknowledged() {
		t.Fatalf("AttachSession = %+v, %v", resp, err)
	}

	resp, err = client.SetVolume(ctx, z, 150)
	if err != nil {
		t.Fatalf("SetVolume error = %v", err)
	}
	if resp.Acknowledged() || resp.Reason() != "volumeLevel out of range" {
		t.Errorf("SetVolume(150) = %+v, want rejection", resp)
	}

	if s := tv.State(); s.State != PlaybackPlaying || *s.ActiveSessionID != "sess_a" {
		t.Errorf("tv state = %+v", s)
	}
	if s := zone.State(); s.AudioOutput != "both" || *s.ActiveSessionID != "sess_a" {
		t.Errorf("zone state = %+v", s)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", NewTV(nil).Handler(), func(a net.Addr) { addrCh <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("Serve returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not start")
	}

	resp, err := http.Get("http://" + addr.String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
