// Package api is the coordinator's HTTP surface.
//
// Routes:
//
//	GET  /health          liveness, {"status":"ok","version":...}
//	POST /command         execute a command (see package dispatch)
//	GET  /sessions        every session, in creation order
//	GET  /sessions/{id}   one session
//	GET  /schema/command  JSON Schema for POST /command bodies
//	GET  /commands        audit trail, newest first (needs the database)
//	GET  /ws              WebSocket feed of session and command events
//
// Errors are always {"error": message, "code": code} with an optional
// "details" field. Invalid commands list every schema violation in details;
// a device failure after a session was committed carries that session.
//
// The server follows the same lifecycle as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
