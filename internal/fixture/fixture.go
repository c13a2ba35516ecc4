// Package fixture contains the control core of the probe-positioning rig:
// sensor debouncing, motor control, and the state machine tracking the
// probe's position and motion. The package touches hardware only through the
// hw.Port capability and takes time as explicit parameters, so it is fully
// testable without a rig.
package fixture

import (
	"fmt"
	"time"

	"github.com/sweeney/probe-fixture/internal/hw"
)

// State is the probe's motion/position state, encoded as the single-byte
// code used on the debug channel.
type State byte

// Fixture states.
const (
	// StateInit is only possible when the controller is powered on or
	// reset; it is not re-enterable by software.
	StateInit State = 'i'
	// StateGoingDown: motor enabled, probe moving down.
	StateGoingDown State = 'd'
	// StateGoingUp: motor enabled, probe moving up.
	StateGoingUp State = 'u'
	// StateStopDown: the probe rests at its down position.
	StateStopDown State = 'D'
	// StateStopUp: the probe rests at its initial up position.
	StateStopUp State = 'U'
	// StateEmergencyStop: motion halted because the safety sensor fired.
	StateEmergencyStop State = 'e'
	// StateGoingUpAfterEmergency: recovery motion back to the up position.
	StateGoingUpAfterEmergency State = 'b'
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateGoingDown:
		return "going-down"
	case StateGoingUp:
		return "going-up"
	case StateStopDown:
		return "stop-down"
	case StateStopUp:
		return "stop-up"
	case StateEmergencyStop:
		return "emergency-stop"
	case StateGoingUpAfterEmergency:
		return "going-up-after-emergency"
	}
	return "unknown"
}

// Transition records a state change produced by a tick.
type Transition struct {
	From State
	To   State
}

// flags caches the debounced sensor values sampled at the last tick.
type flags struct {
	jumper      bool
	debugButton bool
	extremeUp   bool
	up          bool
	down        bool
	safety      bool
}

// Fixture owns the probe's state machine, the rotation counter, and the
// cached sensor flags, and commands the Motor accordingly. All methods are
// called from a single tick loop; Fixture performs no locking of its own.
type Fixture struct {
	sensors *Debouncer
	motor   *Motor

	state State
	count uint32
	flags flags
}

// New creates a Fixture in the power-on state. forceJumper hard-wires the
// jumper flag (see Debouncer).
func New(port hw.Port, forceJumper bool) *Fixture {
	return &Fixture{
		sensors: NewDebouncer(port, forceJumper),
		motor:   NewMotor(port),
		state:   StateInit,
	}
}

// Start brings the fixture up: the motor is enabled first (so the probe can
// never free-fall while we wait), then the sensors warm up and establish
// their initial debounced status.
func (f *Fixture) Start(now func() time.Time) error {
	if err := f.motor.Enable(); err != nil {
		return err
	}
	if err := f.sensors.Init(now); err != nil {
		return err
	}
	f.refreshFlags(now())
	return nil
}

// Tick advances the fixture by one polling cycle: refresh the debounced
// sensor flags, then evaluate the state machine against them. The returned
// Transition is non-nil when motion stopped this tick.
//
// The safety sensor takes precedence over the position sensors: if it is
// active during any moving state the probe goes to EmergencyStop regardless
// of position.
func (f *Fixture) Tick(now time.Time) (*Transition, error) {
	if err := f.sensors.UpdateAll(now); err != nil {
		return nil, err
	}
	f.refreshFlags(now)

	switch f.state {
	case StateGoingDown, StateGoingUp, StateGoingUpAfterEmergency:
	default:
		return nil, nil
	}

	f.count++

	if f.flags.safety {
		return f.halt(StateEmergencyStop)
	}
	if f.state == StateGoingDown {
		if f.IsSensorDown() {
			return f.halt(StateStopDown)
		}
	} else if f.IsSensorUp() {
		return f.halt(StateStopUp)
	}
	return nil, nil
}

func (f *Fixture) refreshFlags(now time.Time) {
	f.flags = flags{
		jumper:      f.sensors.IsActive(Jumper, now),
		debugButton: f.sensors.IsActive(DebugButton, now),
		extremeUp:   f.sensors.IsActive(SensorExtremeUp, now),
		up:          f.sensors.IsActive(SensorUp, now),
		down:        f.sensors.IsActive(SensorDown, now),
		safety:      f.sensors.IsActive(SensorSafety, now),
	}
}

func (f *Fixture) halt(target State) (*Transition, error) {
	from := f.state
	if err := f.StopProbe(target); err != nil {
		return nil, err
	}
	return &Transition{From: from, To: target}, nil
}

// DriveProbe starts motion: it commands the motor speed and direction,
// unlocks the motor, then sets the state to target (GoingUp, GoingDown, or
// GoingUpAfterEmergency). The state only changes once the motor commands
// have all succeeded, so a hardware fault never leaves the fixture
// reporting motion it did not start.
//
// DriveProbe performs no sensor check; the caller decides whether the move
// is safe. Sensor-driven stopping happens in Tick.
func (f *Fixture) DriveProbe(target State, pwmFrequency uint32, dir hw.Level) error {
	if err := f.motor.SetSpeed(pwmFrequency); err != nil {
		return fmt.Errorf("drive probe: %w", err)
	}
	if err := f.motor.SetDirection(dir); err != nil {
		return fmt.Errorf("drive probe: %w", err)
	}
	if err := f.motor.Unlock(); err != nil {
		return fmt.Errorf("drive probe: %w", err)
	}
	f.state = target
	return nil
}

/// StopProbe halts motion: it sets the state to target (StopUp, StopDown, or
// EmergencyStop), resets the rotation counter, and locks the motor. This is
// the single convergence point for every halt, normal or emergency.
func (f *Fixture) StopProbe(target State) error {
	f.state = target
	f.count = 0
	if err := f.motor.Lock(); err != nil {
		return fmt.Errorf("stop probe: %w", err)
	}
	return nil
}

// IsSensorUp reports whether the probe has reached (or exceeded) the up
// position: either the up sensor or its extreme-up backup is sufficient.
func (f *Fixture) IsSensorUp() bool {
	return f.flags.up || f.flags.extremeUp
}

// IsSensorExtremeUp reports the extreme-up flag. The probe should never
// normally reach this sensor; it exists purely as a fail-safe.
func (f *Fixture) IsSensorExtremeUp() bool {
	return f.flags.extremeUp
}

// IsSensorDown reports the down flag.
func (f *Fixture) IsSensorDown() bool {
	return f.flags.down
}

// IsSensorSafety reports the safety flag, which indicates an emergency.
func (f *Fixture) IsSensorSafety() bool {
	return f.flags.safety
}

// IsDebugPressed reports the debug-button flag. Whether a press is honored
// is the caller's policy (the daemon gates on the jumper).
func (f *Fixture) IsDebugPressed() bool {
	return f.flags.debugButton
}

// IsJumperSet reports the jumper flag, which enables manual debug-button
// motion. The deployed rigs override it to always-on.
func (f *Fixture) IsJumperSet() bool {
	return f.flags.jumper
}

// IsInStopState reports whether the probe is at rest (StopUp, StopDown, or
// EmergencyStop). The tick loop only accepts new motion commands at rest.
func (f *Fixture) IsInStopState() bool {
	return f.state == StateStopUp || f.state == StateStopDown ||
		f.state == StateEmergencyStop
}

// State returns the current state code.
func (f *Fixture) State() State {
	return f.state
}

// Vector returns the complete state snapshot for reporting and diffing.
func (f *Fixture) Vector() StateVector {
	return StateVector{
		State:           f.state,
		Count:           f.count,
		PWMFrequency:    f.motor.freq,
		Jumper:          f.flags.jumper,
		DebugButton:     f.flags.debugButton,
		SensorExtremeUp: f.flags.extremeUp,
		SensorUp:        f.flags.up,
		SensorDown:      f.flags.down,
		SensorSafety:    f.flags.safety,
		MotorDir:        bool(f.motor.dir),
		MotorEnable:     bool(f.motor.enable),
		MotorLock:       bool(f.motor.lock),
		MotorDuty:       f.motor.duty,
	}
}
