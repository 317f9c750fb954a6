// Package inventory loads the static device catalog and resolves device
// identifiers against it.
//
// The inventory document is a JSON object with exactly three arrays:
//
//	{
//	  "tvs":              [{"tvId": "...", "displayName": "...", "endpoint": "...", "playerType": "..."}],
//	  "audioZones":       [{"audioZoneId": "...", "displayName": "...", "outputs": ["wired"], "endpoint": "..."}],
//	  "bluetoothDevices": [{"bluetoothDeviceId": "...", "displayName": "...", "macAddress": "...", "pairedWithZoneId": "..."}]
//	}
//
// Load validates the whole document before building anything and reports
// every problem it finds. A coordinator with a malformed inventory does not
// start.
//
// An Index never changes after construction, so every method is safe for
// concurrent use without locking.
package inventory
