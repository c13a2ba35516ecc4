//go:build linux

package hw

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/warthog618/go-gpiocdev"
)

// Config selects the GPIO chip, line offsets, and PWM channel for a RealPort.
type Config struct {
	// Chip is the GPIO character device name, e.g. "gpiochip0".
	Chip string

	// Lines maps pin roles to GPIO line offsets. Nil uses DefaultLines.
	Lines map[Pin]int

	// PWMChip and PWMChannel select the sysfs PWM channel driving the
	// motor step signal, e.g. chip 0 channel 0 -> /sys/class/pwm/pwmchip0/pwm0.
	PWMChip    int
	PWMChannel int
}

// RealPort drives actual hardware: digital lines through the Linux GPIO
// character device, the motor step signal through the kernel PWM subsystem.
type RealPort struct {
	chip    *gpiocdev.Chip
	inputs  map[Pin]*gpiocdev.Line
	outputs map[Pin]*gpiocdev.Line

	pwmDir   string
	periodNs int64
	duty     uint8
}

var inputPins = []Pin{
	PinJumper, PinDebugButton,
	PinSensorExtremeUp, PinSensorUp, PinSensorDown, PinSensorSafety,
}

var outputPins = []Pin{PinMotorDir, PinMotorEnable, PinMotorLock}

// NewRealPort opens the GPIO lines and exports the PWM channel.
func NewRealPort(cfg Config) (*RealPort, error) {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	lines := cfg.Lines
	if lines == nil {
		lines = DefaultLines
	}

	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	p := &RealPort{
		chip:    chip,
		inputs:  make(map[Pin]*gpiocdev.Line),
		outputs: make(map[Pin]*gpiocdev.Line),
		pwmDir: filepath.Join(
			fmt.Sprintf("/sys/class/pwm/pwmchip%d", cfg.PWMChip),
			fmt.Sprintf("pwm%d", cfg.PWMChannel),
		),
	}

	for _, pin := range inputPins {
		line, err := chip.RequestLine(lines[pin], gpiocdev.AsInput)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request %s line %d: %w", pin, lines[pin], err)
		}
		p.inputs[pin] = line
	}

	// Outputs start low: direction up, enable asserted, lock released.
	for _, pin := range outputPins {
		line, err := chip.RequestLine(lines[pin], gpiocdev.AsOutput(0))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request %s line %d: %w", pin, lines[pin], err)
		}
		p.outputs[pin] = line
	}

	if err := p.exportPWM(cfg.PWMChip, cfg.PWMChannel); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// ReadDigital returns the raw level of an input line.
func (p *RealPort) ReadDigital(pin Pin) (Level, error) {
	line, ok := p.inputs[pin]
	if !ok {
		return Low, fmt.Errorf("%s is not an input pin", pin)
	}
	v, err := line.Value()
	if err != nil {
		return Low, fmt.Errorf("read %s: %w", pin, err)
	}
	return v != 0, nil
}

// WriteDigital sets the raw level of an output line.
func (p *RealPort) WriteDigital(pin Pin, level Level) error {
	line, ok := p.outputs[pin]
	if !ok {
		return fmt.Errorf("%s is not an output pin", pin)
	}
	v := 0
	if level == High {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("write %s: %w", pin, err)
	}
	return nil
}

// SetPWMDuty sets the step-signal duty cycle (0-255 of the current period).
func (p *RealPort) SetPWMDuty(duty uint8) error {
	p.duty = duty
	if p.periodNs == 0 {
		// No frequency commanded yet; duty takes effect on the first
		// SetPWMFrequency call.
		return nil
	}
	return p.applyDuty()
}

// SetPWMFrequency reprograms the PWM period to match the given frequency.
func (p *RealPort) SetPWMFrequency(freq uint32) error {
	if freq == 0 {
		return fmt.Errorf("pwm frequency must be non-zero")
	}
	periodNs := int64(1e9) / int64(freq)

	// The kernel rejects a period shorter than the active duty cycle, so
	// zero the duty before shrinking the period.
	if err := p.writePWM("duty_cycle", 0); err != nil {
		return err
	}
	if err := p.writePWM("period", periodNs); err != nil {
		return err
	}
	p.periodNs = periodNs
	return p.applyDuty()
}

func (p *RealPort) applyDuty() error {
	dutyNs := p.periodNs * int64(p.duty) / 255
	if err := p.writePWM("duty_cycle", dutyNs); err != nil {
		return err
	}
	enable := int64(0)
	if p.duty > 0 {
		enable = 1
	}
	return p.writePWM("enable", enable)
}

func (p *RealPort) exportPWM(chip, channel int) error {
	if _, err := os.Stat(p.pwmDir); err == nil {
		return nil // already exported
	}
	export := fmt.Sprintf("/sys/class/pwm/pwmchip%d/export", chip)
	if err := os.WriteFile(export, []byte(strconv.Itoa(channel)), 0o644); err != nil {
		return fmt.Errorf("export pwm channel %d: %w", channel, err)
	}
	return nil
}

func (p *RealPort) writePWM(attr string, value int64) error {
	path := filepath.Join(p.pwmDir, attr)
	if err := os.WriteFile(path, []byte(strconv.FormatInt(value, 10)), 0o644); err != nil {
		return fmt.Errorf("write pwm %s: %w", attr, err)
	}
	return nil
}

// Close releases GPIO lines and stops the PWM output. The motor enable line
// is left in its current state; releasing it is a hardware-level action this
// process never performs.
func (p *RealPort) Close() error {
	var errs []error

	if p.periodNs != 0 {
		if err := p.writePWM("enable", 0); err != nil {
			errs = append(errs, err)
		}
	}
	for pin, line := range p.inputs {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", pin, err))
		}
	}
	for pin, line := range p.outputs {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", pin, err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
