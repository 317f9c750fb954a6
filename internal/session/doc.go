// Package session is the coordinator's in-memory session store.
//
// A session ties one playback request to a TV, an audio route and its
// transport state. Sessions are created by PLAY and then only ever
// updated: a stopped session stays queryable and nothing is removed for
// the lifetime of the process.
//
// The Store owns every record. Readers always receive copies, and updates
// go through a typed Patch so no field outside the Session type can end up
// in a record.
//
// Concurrency:
//   - All Store methods are safe for concurrent use.
//   - Lock serialises work on a single session id. Commands for different
//     sessions never wait on each other.
//   - Reserve/Commit lets a caller hold a fresh id while it waits on a
//     device, and publish the session only once the device has accepted it.
package session
