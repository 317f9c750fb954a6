package devicesim

import (
	"net/http"
	"sync"
)

const (
	defaultAudioOutput = "wired"
	defaultVolume      = 50
)

// ZoneState is the observable state of a simulated audio zone.
type ZoneState struct {
	ActiveSessionID   *string `json:"activeSessionId"`
	AudioOutput       string  `json:"audioOutput"`
	VolumeLevel       float64 `json:"volumeLevel"`
	Muted             bool    `json:"muted"`
	BluetoothDeviceID *string `json:"bluetoothDeviceId"`
}

// Zone simulates an audio zone.
type Zone struct {
	mu     sync.Mutex
	state  ZoneState
	logger Logger
}

// NewZone returns a detached zone on wired output at volume 50.
func NewZone(logger Logger) *Zone {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Zone{
		state:  ZoneState{AudioOutput: defaultAudioOutput, VolumeLevel: defaultVolume},
		logger: logger,
	}
}

// State returns a copy of the current state.
func (z *Zone) State() ZoneState {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.snapshot()
}

func (z *Zone) snapshot() ZoneState {
	s := z.state
	s.ActiveSessionID = copyPtr(z.state.ActiveSessionID)
	s.BluetoothDeviceID = copyPtr(z.state.BluetoothDeviceID)
	return s
}

// Handler returns the zone's HTTP routes.
func (z *Zone) Handler() http.Handler {
	r := newRouter("zone", z.logger)
	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, z.State())
	})
	r.Post("/attach-session", postHandler(z.attach))
	r.Post("/detach-session", postHandler(z.detach))
	r.Post("/set-volume", postHandler(z.setVolume))
	r.Post("/set-mute", postHandler(z.setMute))
	r.Post("/select-bluetooth-device", postHandler(z.selectBluetooth))
	return r
}

// attach makes sessionId the active session. audioOutput defaults to wired
// and any selected Bluetooth device is cleared.
func (z *Zone) attach(w http.ResponseWriter, p payload) {
	sessionID := p.str("sessionId")
	if sessionID == "" {
		reject(w, "sessionId is required")
		return
	}
	output := p.str("audioOutput")
	if output == "" {
		output = defaultAudioOutput
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	z.state.ActiveSessionID = &sessionID
	z.state.AudioOutput = output
	z.state.BluetoothDeviceID = nil
	accept(w, z.snapshot())
}

// detach clears the active session. It is rejected unless sessionId matches.
func (z *Zone) detach(w http.ResponseWriter, p payload) {
	sessionID := p.str("sessionId")
	if sessionID == "" {
		reject(w, "sessionId is required")
		return
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	if z.state.ActiveSessionID == nil || *z.state.ActiveSessionID != sessionID {
		reject(w, "sessionId does not match active session")
		return
	}
	z.state.ActiveSessionID = nil
	z.state.BluetoothDeviceID = nil
	accept(w, z.snapshot())
}

// setVolume accepts any number in [0, 100], fractions included.
func (z *Zone) setVolume(w http.ResponseWriter, p payload) {
	level, ok := p.number("volumeLevel")
	if !ok {
		reject(w, "volumeLevel must be a number")
		return
	}
	if level < 0 || level > 100 {
		reject(w, "volumeLevel out of range")
		return
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	z.state.VolumeLevel = level
	accept(w, z.snapshot())
}

func (z *Zone) setMute(w http.ResponseWriter, p payload) {
	muted, ok := p.boolean("muted")
	if !ok {
		reject(w, "muted must be a boolean")
		return
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	z.state.Muted = muted
	accept(w, z.snapshot())
}

func (z *Zone) selectBluetooth(w http.ResponseWriter, p payload) {
	deviceID := p.str("bluetoothDeviceId")
	if deviceID == "" {
		reject(w, "bluetoothDeviceId is required")
		return
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	z.state.AudioOutput = "bluetooth"
	z.state.BluetoothDeviceID = &deviceID
	accept(w, z.snapshot())
}
