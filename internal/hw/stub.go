//go:build !linux

package hw

import "errors"

// Config selects the GPIO chip, line offsets, and PWM channel for a RealPort.
type Config struct {
	Chip       string
	Lines      map[Pin]int
	PWMChip    int
	PWMChannel int
}

// RealPort is not available on non-Linux platforms.
type RealPort struct{}

// NewRealPort returns an error on non-Linux platforms.
func NewRealPort(cfg Config) (*RealPort, error) {
	return nil, errors.New("hw: not supported on this platform (requires Linux)")
}

// ReadDigital is not implemented on non-Linux platforms.
func (p *RealPort) ReadDigital(pin Pin) (Level, error) {
	return Low, errors.New("hw: not supported")
}

// WriteDigital is not implemented on non-Linux platforms.
func (p *RealPort) WriteDigital(pin Pin, level Level) error {
	return errors.New("hw: not supported")
}

// SetPWMDuty is not implemented on non-Linux platforms.
func (p *RealPort) SetPWMDuty(duty uint8) error {
	return errors.New("hw: not supported")
}

// SetPWMFrequency is not implemented on non-Linux platforms.
func (p *RealPort) SetPWMFrequency(freq uint32) error {
	return errors.New("hw: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPort) Close() error {
	return nil
}
