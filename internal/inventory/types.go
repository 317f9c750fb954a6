package inventory

import "github.com/nerrad567/media-coordinator/internal/command"

// TV is a playback device.
//
// Extra holds any properties of the inventory record beyond the ones named
// here. They are kept through decoding and written back when the TV is
// encoded, after the known fields and sorted by key, so LIST_TARGETS returns
// every property the file gives.
type TV struct {
	TVID        string `json:"tvId"`
	DisplayName string `json:"displayName"`
	Endpoint    string `json:"endpoint"`
	PlayerType  string `json:"playerType,omitempty"`
	Extra       Extra  `json:"-"`
}

// AudioZone is an addressable set of speakers.
type AudioZone struct {
	AudioZoneID string                `json:"audioZoneId"`
	DisplayName string                `json:"displayName"`
	Outputs     []command.AudioOutput `json:"outputs"`
	Endpoint    string                `json:"endpoint"`
	Extra       Extra                 `json:"-"`
}

// BluetoothDevice is a Bluetooth sink paired with one audio zone.
type BluetoothDevice struct {
	BluetoothDeviceID string `json:"bluetoothDeviceId"`
	DisplayName       string `json:"displayName"`
	MACAddress        string `json:"macAddress"`
	PairedWithZoneID  string `json:"pairedWithZoneId"`
	Extra             Extra  `json:"-"`
}

// Inventory is the full device catalog, in document order.
type Inventory struct {
	TVs              []TV              `json:"tvs"`
	AudioZones       []AudioZone       `json:"audioZones"`
	BluetoothDevices []BluetoothDevice `json:"bluetoothDevices"`
}

// DeepCopy returns a copy that shares no slices or maps with inv.
func (inv Inventory) DeepCopy() Inventory {
	out := Inventory{
		TVs:              make([]TV, len(inv.TVs)),
		AudioZones:       make([]AudioZone, len(inv.AudioZones)),
		BluetoothDevices: make([]BluetoothDevice, len(inv.BluetoothDevices)),
	}
	for i, tv := range inv.TVs {
		tv.Extra = tv.Extra.clone()
		out.TVs[i] = tv
	}
	for i, z := range inv.AudioZones {
		z.Outputs = append([]command.AudioOutput(nil), z.Outputs...)
		z.Extra = z.Extra.clone()
		out.AudioZones[i] = z
	}
	for i, bt := range inv.BluetoothDevices {
		bt.Extra = bt.Extra.clone()
		out.BluetoothDevices[i] = bt
	}
	return out
}
