package inventory

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Extra holds item properties beyond the known ones. The inventory format
// allows them, and they are returned unchanged by LIST_TARGETS.
type Extra map[string]json.RawMessage

var (
	tvKeys        = []string{"tvId", "displayName", "endpoint", "playerType"}
	zoneKeys      = []string{"audioZoneId", "displayName", "outputs", "endpoint"}
	bluetoothKeys = []string{"bluetoothDeviceId", "displayName", "macAddress", "pairedWithZoneId"}
)

// extraFields returns every property of the object in data that is not in known.
func extraFields(data []byte, known []string) (Extra, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return Extra(all), nil
}

// marshalWithExtra encodes v, which must encode as a JSON object, followed
// by the extra properties in key order. Known properties win over extras.
func marshalWithExtra(v any, extra Extra, known []string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return b, err
	}

	skip := make(map[string]struct{}, len(known))
	for _, k := range known {
		skip[k] = struct{}{}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if _, ok := skip[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	empty := len(b) == 2
	for _, k := range keys {
		if !empty {
			buf.WriteByte(',')
		}
		empty = false
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// clone returns a copy that shares no raw values with e. nil stays nil.
func (e Extra) clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// UnmarshalJSON decodes a TV, keeping unknown properties in Extra.
func (tv *TV) UnmarshalJSON(data []byte) error {
	type plain TV
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, tvKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*tv = TV(p)
	return nil
}

// MarshalJSON encodes a TV with its Extra properties.
func (tv TV) MarshalJSON() ([]byte, error) {
	type plain TV
	return marshalWithExtra(plain(tv), tv.Extra, tvKeys)
}

// UnmarshalJSON decodes an AudioZone, keeping unknown properties in Extra.
func (z *AudioZone) UnmarshalJSON(data []byte) error {
	type plain AudioZone
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, zoneKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*z = AudioZone(p)
	return nil
}

// MarshalJSON encodes an AudioZone with its Extra properties.
func (z AudioZone) MarshalJSON() ([]byte, error) {
	type plain AudioZone
	return marshalWithExtra(plain(z), z.Extra, zoneKeys)
}

// UnmarshalJSON decodes a BluetoothDevice, keeping unknown properties in Extra.
func (bt *BluetoothDevice) UnmarshalJSON(data []byte) error {
	type plain BluetoothDevice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := extraFields(data, bluetoothKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*bt = BluetoothDevice(p)
	return nil
}

// MarshalJSON encodes a BluetoothDevice with its Extra properties.
func (bt BluetoothDevice) MarshalJSON() ([]byte, error) {
	type plain BluetoothDevice
	return marshalWithExtra(plain(bt), bt.Extra, bluetoothKeys)
}
