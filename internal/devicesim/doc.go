// Package devicesim implements in-memory stand-ins for the TV players and
// audio zones the coordinator drives.
//
// Each simulator keeps a single piece of state and exposes it over the same
// JSON contract real devices speak: POST endpoints that answer
// {"accepted": true, "state": {...}} or {"accepted": false, "error": "..."},
// plus GET /state and GET /health. Rejections are reported in the body with
// a 200 status, as the devices do.
//
// The simulators back local development (cmd/devicesim) and the end-to-end
// tests of the coordinator.
package devicesim
