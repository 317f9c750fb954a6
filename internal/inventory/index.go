package inventory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nerrad567/media-coordinator/internal/command"
)

// Index resolves device identifiers in O(1). It is immutable.
type Index struct {
	inventory        Inventory
	tvByID           map[string]TV
	zoneByID         map[string]AudioZone
	bluetoothDevByID map[string]BluetoothDevice
}

// Load reads and parses the inventory document at path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading inventory %s: %w", path, err)
	}
	return idx, nil
}

// Parse validates an inventory document and builds its Index.
// Validation failures are returned as *ValidationError.
func Parse(data []byte) (*Index, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInventory, err)
	}
	if problems := validateDocument(raw); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInventory, err)
	}
	return New(inv), nil
}

// New builds an Index over inv without validating it.
// Callers outside tests should prefer Parse or Load.
func New(inv Inventory) *Index {
	inv = inv.DeepCopy()
	idx := &Index{
		inventory:        inv,
		tvByID:           make(map[string]TV, len(inv.TVs)),
		zoneByID:         make(map[string]AudioZone, len(inv.AudioZones)),
		bluetoothDevByID: make(map[string]BluetoothDevice, len(inv.BluetoothDevices)),
	}
	for _, tv := range inv.TVs {
		idx.tvByID[tv.TVID] = tv
	}
	for _, z := range inv.AudioZones {
		idx.zoneByID[z.AudioZoneID] = z
	}
	for _, bt := range inv.BluetoothDevices {
		idx.bluetoothDevByID[bt.BluetoothDeviceID] = bt
	}
	return idx
}

// ResolveTV looks up a TV by tvId.
func (idx *Index) ResolveTV(id string) (TV, bool) {
	tv, ok := idx.tvByID[id]
	tv.Extra = tv.Extra.clone()
	return tv, ok
}

// ResolveZone looks up an audio zone by audioZoneId.
func (idx *Index) ResolveZone(id string) (AudioZone, bool) {
	z, ok := idx.zoneByID[id]
	if ok {
		z.Outputs = append([]command.AudioOutput(nil), z.Outputs...)
		z.Extra = z.Extra.clone()
	}
	return z, ok
}

// ResolveBluetoothDevice looks up a Bluetooth device by bluetoothDeviceId.
func (idx *Index) ResolveBluetoothDevice(id string) (BluetoothDevice, bool) {
	bt, ok := idx.bluetoothDevByID[id]
	bt.Extra = bt.Extra.clone()
	return bt, ok
}

// Snapshot returns a copy of the whole catalog in document order.
func (idx *Index) Snapshot() Inventory {
	return idx.inventory.DeepCopy()
}

// Counts returns the number of TVs, audio zones and Bluetooth devices.
func (idx *Index) Counts() (tvs, zones, bluetoothDevices int) {
	return len(idx.inventory.TVs), len(idx.inventory.AudioZones), len(idx.inventory.BluetoothDevices)
}
