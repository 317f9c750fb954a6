package dispatch

import (
	"encoding/json"

	"github.com/nerrad567/media-coordinator/internal/command"
	"github.com/nerrad567/media-coordinator/internal/inventory"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// Selection is the outcome of SELECT_BLUETOOTH_DEVICE.
type Selection struct {
	AudioZoneID       string `json:"audioZoneId"`
	BluetoothDeviceID string `json:"bluetoothDeviceId"`
}

// Result is the action-specific outcome of a command.
//
// It encodes as the inventory snapshot for LIST_TARGETS and as
// {"accepted", "session"?, "selected"?} for everything else.
type Result struct {
	Action   command.Action
	Accepted bool
	Targets  *inventory.Inventory
	Session  *session.Session
	Selected *Selection
}

type acceptedBody struct {
	Accepted bool             `json:"accepted"`
	Session  *session.Session `json:"session,omitempty"`
	Selected *Selection       `json:"selected,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Targets != nil {
		return json.Marshal(r.Targets)
	}
	return json.Marshal(acceptedBody{
		Accepted: r.Accepted,
		Session:  r.Session,
		Selected: r.Selected,
	})
}
