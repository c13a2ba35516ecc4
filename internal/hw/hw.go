// Package hw provides digital and PWM pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device and the kernel
// sysfs PWM channel. The fake implementation allows testing without hardware.
package hw

// Level is the raw electrical state of a digital pin.
type Level bool

// Raw pin levels.
const (
	Low  Level = false
	High Level = true
)

// Pin identifies a pin by its role in the fixture. The mapping from roles to
// GPIO line offsets is a wiring concern supplied when the port is opened.
type Pin int

// Pin roles.
const (
	PinJumper Pin = iota
	PinDebugButton
	PinSensorExtremeUp
	PinSensorUp
	PinSensorDown
	PinSensorSafety
	PinMotorDir
	PinMotorEnable
	PinMotorLock
	PinMotorStep
	NumPins
)

func (p Pin) String() string {
	switch p {
	case PinJumper:
		return "jumper"
	case PinDebugButton:
		return "debug-button"
	case PinSensorExtremeUp:
		return "sensor-extreme-up"
	case PinSensorUp:
		return "sensor-up"
	case PinSensorDown:
		return "sensor-down"
	case PinSensorSafety:
		return "sensor-safety"
	case PinMotorDir:
		return "motor-dir"
	case PinMotorEnable:
		return "motor-enable"
	case PinMotorLock:
		return "motor-lock"
	case PinMotorStep:
		return "motor-step"
	}
	return "unknown"
}

// Port is the hardware access capability the fixture core consumes.
// All methods are synchronous and non-blocking.
type Port interface {
	// ReadDigital returns the raw level of an input pin.
	ReadDigital(pin Pin) (Level, error)

	// WriteDigital sets the raw level of an output pin.
	WriteDigital(pin Pin, level Level) error

	// SetPWMDuty sets the duty cycle of the motor step signal (0-255).
	SetPWMDuty(duty uint8) error

	// SetPWMFrequency reprograms the PWM clock to the given frequency in Hz.
	SetPWMFrequency(freq uint32) error

	// Close releases hardware resources.
	Close() error
}

// Default GPIO line offsets, matching the deployed rig's wiring.
var DefaultLines = map[Pin]int{
	PinJumper:          2,
	PinDebugButton:     3,
	PinSensorExtremeUp: 4,
	PinSensorUp:        5,
	PinSensorDown:      6,
	PinSensorSafety:    7,
	PinMotorDir:        9,
	PinMotorEnable:     10,
	PinMotorLock:       11,
}
