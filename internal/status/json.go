package status

import (
	"bytes"
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	State         string      `json:"state"`
	StateCode     string      `json:"state_code"`
	Ready         bool        `json:"ready"`
	Vector        string      `json:"vector"`
	Count         uint32      `json:"count"`
	PWMFrequency  uint32      `json:"pwm_frequency"`
	Sensors       SensorsJSON `json:"sensors"`
	Motor         MotorJSON   `json:"motor"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"activity_counts"`
	Config        ConfigJSON  `json:"config"`
}

// SensorsJSON is the JSON representation of the debounced sensor flags.
type SensorsJSON struct {
	Jumper      bool `json:"jumper"`
	DebugButton bool `json:"debug_button"`
	ExtremeUp   bool `json:"extreme_up"`
	Up          bool `json:"up"`
	Down        bool `json:"down"`
	Safety      bool `json:"safety"`
}

// MotorJSON is the JSON representation of the motor signals.
type MotorJSON struct {
	Direction string `json:"direction"`
	Enabled   bool   `json:"enabled"`
	Lock      bool   `json:"lock"`
	Duty      bool   `json:"duty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	Drives         int `json:"drives"`
	Stops          int `json:"stops"`
	EmergencyStops int `json:"emergency_stops"`
	Commands       int `json:"commands"`
	Dumps          int `json:"dumps"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs         int64  `json:"poll_ms"`
	ControlDevice  string `json:"control_device"`
	DebugDevice    string `json:"debug_device"`
	BaudRate       int    `json:"baud_rate"`
	Broker         string `json:"broker"`
	HTTPPort       string `json:"http_port"`
	JumperOverride bool   `json:"jumper_override"`
	PWMFrequency   int64  `json:"pwm_frequency"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	v := snap.Vector

	direction := "up"
	if v.MotorDir {
		direction = "down"
	}

	return StatusInner{
		State:        v.State.String(),
		StateCode:    string(byte(v.State)),
		Ready:        snap.Started,
		Vector:       v.Encode(),
		Count:        v.Count,
		PWMFrequency: v.PWMFrequency,
		Sensors: SensorsJSON{
			Jumper:      v.Jumper,
			DebugButton: v.DebugButton,
			ExtremeUp:   v.SensorExtremeUp,
			Up:          v.SensorUp,
			Down:        v.SensorDown,
			Safety:      v.SensorSafety,
		},
		Motor: MotorJSON{
			Direction: direction,
			// The enable signal is active-low; the vector carries the
			// raw level.
			Enabled: !v.MotorEnable,
			Lock:    v.MotorLock,
			Duty:    v.MotorDuty,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Drives:         snap.Counts.Drives,
			Stops:          snap.Counts.Stops,
			EmergencyStops: snap.Counts.EmergencyStops,
			Commands:       snap.Counts.Commands,
			Dumps:          snap.Counts.Dumps,
		},
		Config: ConfigJSON{
			PollMs:         snap.Config.PollMs,
			ControlDevice:  snap.Config.ControlDevice,
			DebugDevice:    snap.Config.DebugDevice,
			BaudRate:       snap.Config.BaudRate,
			Broker:         snap.Config.Broker,
			HTTPPort:       snap.Config.HTTPPort,
			JumperOverride: snap.Config.JumperOverride,
			PWMFrequency:   snap.Config.PWMFrequency,
			HeartbeatMs:    snap.Config.HeartbeatMs,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	return encodeNoEscape(StatusJSON{Status: inner}, "  ")
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	return encodeNoEscape(StatusJSON{Status: inner}, "")
}

// encodeNoEscape marshals v without HTML-escaping <, > and & so the state
// vector dump frame appears literally in the JSON output. A non-empty indent
// selects pretty-printing.
func encodeNoEscape(v interface{}, indent string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
