// Package status provides a thread-safe status tracker for the probe-fixture
// daemon. It is read by the HTTP handlers and serialized into MQTT system
// events; the tick loop updates it once per tick.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/probe-fixture/internal/fixture"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs         int64
	ControlDevice  string
	DebugDevice    string
	BaudRate       int
	Broker         string
	HTTPPort       string
	JumperOverride bool
	PWMFrequency   int64
	HeartbeatMs    int64
}

// Counts tracks how many times each kind of loop activity has happened
// since startup.
type Counts struct {
	Drives         int
	Stops          int
	EmergencyStops int
	Commands       int
	Dumps          int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Vector        fixture.StateVector
	Started       bool // fixture warm-up finished
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Vector:    fixture.StateVector{State: fixture.StateInit},
		},
	}
}

// Update sets the current state vector and activity counts.
// Called from the tick loop on every tick.
func (t *Tracker) Update(v fixture.StateVector, counts Counts) {
	t.mu.Lock()
	t.snap.Vector = v
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetStarted records that the fixture finished its warm-up.
func (t *Tracker) SetStarted() {
	t.mu.Lock()
	t.snap.Started = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
