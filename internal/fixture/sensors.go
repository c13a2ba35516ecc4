package fixture

import (
	"fmt"
	"time"

	"github.com/sweeney/probe-fixture/internal/hw"
)

// Sensor identifies one of the six debounced digital inputs.
type Sensor int

// Sensors, in the order they appear in the state vector.
const (
	Jumper Sensor = iota
	DebugButton
	SensorExtremeUp
	SensorUp
	SensorDown
	SensorSafety
	numSensors
)

func (s Sensor) String() string {
	switch s {
	case Jumper:
		return "jumper"
	case DebugButton:
		return "debug-button"
	case SensorExtremeUp:
		return "extreme-up"
	case SensorUp:
		return "up"
	case SensorDown:
		return "down"
	case SensorSafety:
		return "safety"
	}
	return "unknown"
}

// sensorState tracks debounce state for one input.
type sensorState struct {
	pin         hw.Pin
	activeLevel hw.Level
	activeFor   time.Duration

	// activeSince is when the raw level last transitioned to activeLevel.
	// The zero time means the raw level is not currently active.
	activeSince time.Time
}

// Sensor debounce thresholds. The debug button gets a longer window to filter
// presses mistakenly triggered by unstable factory voltage; the safety sensor
// gets a shorter one so an emergency is recognized quickly.
const (
	jumperActiveFor      = 500 * time.Millisecond
	debugButtonActiveFor = 500 * time.Millisecond
	extremeUpActiveFor   = 200 * time.Millisecond
	upActiveFor          = 200 * time.Millisecond
	downActiveFor        = 200 * time.Millisecond
	safetyActiveFor      = 100 * time.Millisecond
)

// warmupSlack is added to the longest debounce threshold during Init so that
// every input sees at least one full threshold window of stable sampling.
const warmupSlack = 100 * time.Millisecond

// Debouncer converts the raw levels of the six fixture inputs into stable
// boolean "active" flags. An input is active once its raw level has stayed at
// the input's active level for longer than the input's threshold.
type Debouncer struct {
	port    hw.Port
	sensors [numSensors]sensorState

	// forceJumper reports the jumper as active regardless of the raw level.
	// Deployed rigs set this so the debug button stays usable without
	// testers having to check the physical jumper.
	forceJumper bool

	// sleep performs the Init warm-up delay. Tests replace it to avoid
	// real sleeping; production uses time.Sleep.
	sleep func(time.Duration)
}

// NewDebouncer creates a Debouncer reading through the given port.
// forceJumper hard-wires the jumper flag to true (the factory configuration).
func NewDebouncer(port hw.Port, forceJumper bool) *Debouncer {
	d := &Debouncer{
		port:        port,
		forceJumper: forceJumper,
		sleep:       time.Sleep,
	}
	d.sensors = [numSensors]sensorState{
		Jumper:          {pin: hw.PinJumper, activeLevel: hw.High, activeFor: jumperActiveFor},
		DebugButton:     {pin: hw.PinDebugButton, activeLevel: hw.High, activeFor: debugButtonActiveFor},
		SensorExtremeUp: {pin: hw.PinSensorExtremeUp, activeLevel: hw.High, activeFor: extremeUpActiveFor},
		SensorUp:        {pin: hw.PinSensorUp, activeLevel: hw.High, activeFor: upActiveFor},
		SensorDown:      {pin: hw.PinSensorDown, activeLevel: hw.High, activeFor: downActiveFor},
		SensorSafety:    {pin: hw.PinSensorSafety, activeLevel: hw.Low, activeFor: safetyActiveFor},
	}
	return d
}

// UpdateAll samples the raw level of every input and updates its activeSince
// timestamp. Inputs whose raw level has not changed are left untouched, so
// repeated calls within a stable window are idempotent.
func (d *Debouncer) UpdateAll(now time.Time) error {
	for i := range d.sensors {
		s := &d.sensors[i]
		level, err := d.port.ReadDigital(s.pin)
		if err != nil {
			return fmt.Errorf("read %s: %w", Sensor(i), err)
		}
		if level == s.activeLevel {
			if s.activeSince.IsZero() {
				s.activeSince = now
			}
		} else {
			s.activeSince = time.Time{}
		}
	}
	return nil
}

// IsActive returns the debounced flag for the sensor: true iff the raw level
// has been continuously active for longer than the sensor's threshold.
// It has no side effects.
func (d *Debouncer) IsActive(sensor Sensor, now time.Time) bool {
	if sensor == Jumper && d.forceJumper {
		return true
	}
	s := &d.sensors[sensor]
	if s.activeSince.IsZero() {
		return false
	}
	return now.Sub(s.activeSince) > s.activeFor
}

// Init establishes the initial sensor status: sample once, wait a little
// longer than the longest debounce threshold, then sample again. After Init
// every flag reflects a full threshold window, so power-on transients cannot
// trigger spurious motion.
func (d *Debouncer) Init(now func() time.Time) error {
	if err := d.UpdateAll(now()); err != nil {
		return fmt.Errorf("initial sensor sample: %w", err)
	}
	d.sleep(d.maxActiveFor() + warmupSlack)
	if err := d.UpdateAll(now()); err != nil {
		return fmt.Errorf("post-warmup sensor sample: %w", err)
	}
	return nil
}

func (d *Debouncer) maxActiveFor() time.Duration {
	var max time.Duration
	for i := range d.sensors {
		if d.sensors[i].activeFor > max {
			max = d.sensors[i].activeFor
		}
	}
	return max
}
