// Package mqtt publishes fixture telemetry with abstraction for testing.
package mqtt

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/sweeney/probe-fixture/internal/fixture"
)

// marshalNoEscape marshals v without HTML-escaping <, > and & so the state
// vector dump frame appears literally in the JSON payload.
func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Topic is the MQTT topic for probe state transitions.
const Topic = "factory/fixture/probe/events"

// TopicSystem is the MQTT topic for controller lifecycle events.
const TopicSystem = "factory/fixture/probe/system"

// Publisher publishes fixture events to MQTT.
type Publisher interface {
	// Publish sends a probe state transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event TransitionEvent) error

	// PublishSystem sends a controller lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// TransitionEvent represents one probe state transition.
type TransitionEvent struct {
	Timestamp time.Time
	From      fixture.State
	To        fixture.State
	Vector    fixture.StateVector
}

// SystemEvent represents a controller lifecycle event
// (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Probe ProbePayload `json:"probe"`
}

// ProbePayload contains the transition details.
type ProbePayload struct {
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	State     string `json:"state"`
	Count     uint32 `json:"count"`
	Vector    string `json:"vector"`
}

// FormatPayload creates the JSON payload for a transition event. The raw
// dump frame rides along so host tooling can reuse its existing parser.
func FormatPayload(event TransitionEvent) ([]byte, error) {
	payload := Payload{
		Probe: ProbePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			From:      event.From.String(),
			To:        event.To.String(),
			State:     string(byte(event.To)),
			Count:     event.Vector.Count,
			Vector:    event.Vector.Encode(),
		},
	}
	return marshalNoEscape(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return marshalNoEscape(payload)
}
