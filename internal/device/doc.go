// Package device is the coordinator's outbound HTTP client for TV players
// and audio zones.
//
// Every call is a JSON POST to an endpoint taken from the inventory:
//
//	TV:    POST {endpoint}/play            {"sessionId", "contentRef"}
//	Zone:  POST {endpoint}/attach-session  {"sessionId", "audioOutput"}
//	Zone:  POST {endpoint}/set-volume      {"volumeLevel"}
//
// A reply of any status is returned to the caller as a Response; only
// transport failures (refused connection, timeout, cancelled context) are
// errors. There are no retries. Deciding what a non-2xx reply means is up
// to the dispatcher.
package device
