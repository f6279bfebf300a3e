// Package sse implements Server-Sent Events so a browser can follow one
// viewer session while its lookups settle.
package sse

import (
	"time"

	"github.com/tagview/tagview-server/internal/viewer"
)

// Most interactions are plain request/response. The stream only exists so
// lookup results that arrive after a submission can be pushed instead of
// polled.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
	// EventSessionUpdated carries a new snapshot of the session state.
	EventSessionUpdated EventType = "session.updated"
	// EventSessionClosed is sent when the session no longer exists.
	EventSessionClosed EventType = "session.closed"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// ConnectedEventData is the data payload for connected events.
type ConnectedEventData struct {
	ClientID  string `json:"client_id"`
	SessionID string `json:"session_id"`
}

// SessionEventData is the data payload for session events.
type SessionEventData struct {
	SessionID string        `json:"session_id"`
	State     *viewer.State `json:"state,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewConnectedEvent creates a connected event.
func NewConnectedEvent(clientID, sessionID string) Event {
	return Event{
		Type:      EventConnected,
		Timestamp: time.Now(),
		Data:      ConnectedEventData{ClientID: clientID, SessionID: sessionID},
	}
}

// NewSessionUpdatedEvent creates a session.updated event.
func NewSessionUpdatedEvent(sessionID string, state viewer.State) Event {
	return Event{
		Type:      EventSessionUpdated,
		Timestamp: time.Now(),
		Data:      SessionEventData{SessionID: sessionID, State: &state},
	}
}

// NewSessionClosedEvent creates a session.closed event.
func NewSessionClosedEvent(sessionID string) Event {
	return Event{
		Type:      EventSessionClosed,
		Timestamp: time.Now(),
		Data:      SessionEventData{SessionID: sessionID},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
