package fixture

import (
	"fmt"

	"github.com/sweeney/probe-fixture/internal/hw"
)

// Motor direction levels on the direction pin.
const (
	DirUp   hw.Level = hw.Low
	DirDown hw.Level = hw.High
)

// Step-signal duty cycles. Zero holds the motor still; half lets it rotate.
const (
	dutyOff  uint8 = 0
	dutyHalf uint8 = 128
)

// Motor drives the probe motor's direction, enable, lock, and step signals.
//
// There is deliberately no Disable method: with the enable signal released
// the probe becomes a free-falling object, and the probe is heavy. Once
// Enable has been called the signal is never programmatically revoked.
type Motor struct {
	port hw.Port

	// freq is the last-commanded PWM frequency, 0 until first commanded.
	freq uint32

	dir    hw.Level
	enable hw.Level
	lock   hw.Level
	duty   bool
}

// NewMotor creates a Motor in its power-on state: direction up, locked,
// enable not yet asserted.
func NewMotor(port hw.Port) *Motor {
	return &Motor{
		port:   port,
		dir:    DirUp,
		enable: hw.Low,
		lock:   hw.Low,
	}
}

// Enable asserts the active-low motor-enable signal. Called once at startup.
func (m *Motor) Enable() error {
	if err := m.port.WriteDigital(hw.PinMotorEnable, hw.Low); err != nil {
		return fmt.Errorf("enable motor: %w", err)
	}
	m.enable = hw.Low
	return nil
}

// SetSpeed reprograms the PWM frequency. A repeated frequency is a no-op so
// the PWM clock is never reprogrammed redundantly mid-motion.
func (m *Motor) SetSpeed(freq uint32) error {
	if m.freq == freq {
		return nil
	}
	if err := m.port.SetPWMFrequency(freq); err != nil {
		return fmt.Errorf("set pwm frequency: %w", err)
	}
	m.freq = freq
	return nil
}

// SetDirection writes the direction pin.
func (m *Motor) SetDirection(dir hw.Level) error {
	if err := m.port.WriteDigital(hw.PinMotorDir, dir); err != nil {
		return fmt.Errorf("set motor direction: %w", err)
	}
	m.dir = dir
	return nil
}

// Lock stops motor rotation by zeroing the step-signal duty cycle.
func (m *Motor) Lock() error {
	if err := m.port.SetPWMDuty(dutyOff); err != nil {
		return fmt.Errorf("lock motor: %w", err)
	}
	m.duty = false
	return nil
}

// Unlock lets the motor rotate: half duty cycle on the step signal, and the
// mechanical lock-release signal asserted.
func (m *Motor) Unlock() error {
	if err := m.port.SetPWMDuty(dutyHalf); err != nil {
		return fmt.Errorf("unlock motor: %w", err)
	}
	m.duty = true
	if err := m.port.WriteDigital(hw.PinMotorLock, hw.High); err != nil {
		return fmt.Errorf("release motor lock: %w", err)
	}
	m.lock = hw.High
	return nil
}

// Speed returns the last-commanded PWM frequency.
func (m *Motor) Speed() uint32 {
	return m.freq
}

// Direction returns the last-commanded direction level.
func (m *Motor) Direction() hw.Level {
	return m.dir
}
