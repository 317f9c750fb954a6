package command

// Action identifies what a command asks the coordinator to do.
type Action string

// Supported actions.
const (
	ActionPlay                  Action = "PLAY"
	ActionStop                  Action = "STOP"
	ActionPause                 Action = "PAUSE"
	ActionResume                Action = "RESUME"
	ActionSeek                  Action = "SEEK"
	ActionSetVolume             Action = "SET_VOLUME"
	ActionMoveAudio             Action = "MOVE_AUDIO"
	ActionSelectBluetoothDevice Action = "SELECT_BLUETOOTH_DEVICE"
	ActionListTargets           Action = "LIST_TARGETS"
)

// AllActions returns every supported action in declaration order.
func AllActions() []Action {
	return []Action{
		ActionPlay,
		ActionStop,
		ActionPause,
		ActionResume,
		ActionSeek,
		ActionSetVolume,
		ActionMoveAudio,
		ActionSelectBluetoothDevice,
		ActionListTargets,
	}
}

// IsValid reports whether a is a supported action.
func (a Action) IsValid() bool {
	_, ok := validActions[a]
	return ok
}

// AudioRoute says whether sound goes through the TV or through an audio zone.
type AudioRoute string

// Audio routes.
const (
	AudioRouteTV   AudioRoute = "tv"
	AudioRouteZone AudioRoute = "zone"
)

// IsValid reports whether r is a known audio route.
func (r AudioRoute) IsValid() bool {
	return r == AudioRouteTV || r == AudioRouteZone
}

// AudioOutput is the physical output an audio zone drives.
type AudioOutput string

// Audio outputs.
const (
	AudioOutputWired     AudioOutput = "wired"
	AudioOutputBluetooth AudioOutput = "bluetooth"
	AudioOutputBoth      AudioOutput = "both"
)

// AllAudioOutputs returns every known audio output.
func AllAudioOutputs() []AudioOutput {
	return []AudioOutput{AudioOutputWired, AudioOutputBluetooth, AudioOutputBoth}
}

// IsValid reports whether o is a known audio output.
func (o AudioOutput) IsValid() bool {
	switch o {
	case AudioOutputWired, AudioOutputBluetooth, AudioOutputBoth:
		return true
	}
	return false
}

var validActions = func() map[Action]struct{} {
	m := make(map[Action]struct{}, len(AllActions()))
	for _, a := range AllActions() {
		m[a] = struct{}{}
	}
	return m
}()

// Command is a validated coordinator command.
//
// Optional fields are nil when the payload omitted them. Which fields an
// action actually needs is decided by the dispatcher, not here.
type Command struct {
	Action            Action       `json:"action" jsonschema:"enum=PLAY,enum=STOP,enum=PAUSE,enum=RESUME,enum=SEEK,enum=SET_VOLUME,enum=MOVE_AUDIO,enum=SELECT_BLUETOOTH_DEVICE,enum=LIST_TARGETS"`
	SessionID         *string      `json:"sessionId,omitempty"`
	ContentRef        *string      `json:"contentRef,omitempty"`
	TargetTVID        *string      `json:"targetTvId,omitempty"`
	AudioRoute        *AudioRoute  `json:"audioRoute,omitempty" jsonschema:"enum=tv,enum=zone"`
	AudioZoneID       *string      `json:"audioZoneId,omitempty"`
	AudioOutput       *AudioOutput `json:"audioOutput,omitempty" jsonschema:"enum=wired,enum=bluetooth,enum=both"`
	BluetoothDeviceID *string      `json:"bluetoothDeviceId,omitempty"`
	SeekSeconds       *float64     `json:"seekSeconds,omitempty"`
	VolumeLevel       *float64     `json:"volumeLevel,omitempty" jsonschema:"minimum=0,maximum=100"`
}

// DeviceRef is a device identifier referenced by a command.
type DeviceRef struct {
	Field string
	ID    string
}

// DeviceRefs lists the device identifiers the command references, in the
// order they are resolved: targetTvId, audioZoneId, bluetoothDeviceId.
// Empty identifiers are treated as absent.
func (c Command) DeviceRefs() []DeviceRef {
	var refs []DeviceRef
	if id := Value(c.TargetTVID); id != "" {
		refs = append(refs, DeviceRef{Field: "targetTvId", ID: id})
	}
	if id := Value(c.AudioZoneID); id != "" {
		refs = append(refs, DeviceRef{Field: "audioZoneId", ID: id})
	}
	if id := Value(c.BluetoothDeviceID); id != "" {
		refs = append(refs, DeviceRef{Field: "bluetoothDeviceId", ID: id})
	}
	return refs
}

// Value dereferences an optional string, returning "" for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// String returns a pointer to s. Handy when building commands in code.
func String(s string) *string {
	return &s
}

// Number returns a pointer to f.
func Number(f float64) *float64 {
	return &f
}
