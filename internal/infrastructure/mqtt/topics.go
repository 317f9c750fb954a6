package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "mediacoord"

// Topics builds the coordinator's topic names under a prefix.
type Topics struct {
	Prefix string
}

// NewTopics returns builders for prefix, trimming any trailing slash.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) join(parts ...string) string {
	return t.Prefix + "/" + strings.Join(parts, "/")
}

// SystemStatus is the retained online/offline topic.
//
// Example: mediacoord/system/status
func (t Topics) SystemStatus() string {
	return t.join("system", "status")
}

// Session is the retained topic for one session.
//
// Example: mediacoord/session/sess_18f3a_0c1d2e3f4a5b
func (t Topics) Session(sessionID string) string {
	return t.join("session", sessionID)
}

// AllSessions matches every session topic.
func (t Topics) AllSessions() string {
	return t.join("session", "+")
}

// CommandEvent is the topic for executed commands of one action.
//
// Example: mediacoord/command/PLAY
func (t Topics) CommandEvent(action string) string {
	return t.join("command", action)
}

// AllCommandEvents matches every command event topic.
func (t Topics) AllCommandEvents() string {
	return t.join("command", "+")
}

// CommandRequest is where clients publish commands to execute.
func (t Topics) CommandRequest() string {
	return t.join("request")
}

// CommandResponse is where the reply to requestID is published.
func (t Topics) CommandResponse(requestID string) string {
	return t.join("response", requestID)
}
