package websocket

import "codeberg.org/nexusdigital/identity/nexus/session"

// Event is one message pushed to a connected client.
type Event struct {
	Type    string           `json:"type"`
	Session session.Snapshot `json:"session"`
}

const (
	// EventSessionState carries the full session snapshot; sent once on
	// connect and again on every change.
	EventSessionState = "session_state"
)
