package hw

import "fmt"

// DigitalWrite records a single digital output operation.
type DigitalWrite struct {
	Pin   Pin
	Level Level
}

// FakePort is a test double backed by in-memory pin state.
type FakePort struct {
	// Inputs holds the raw level returned for each input pin.
	// Tests mutate it between ticks to simulate sensor changes.
	Inputs map[Pin]Level

	// Outputs holds the last level written to each output pin.
	Outputs map[Pin]Level

	// Writes records every digital write in order.
	Writes []DigitalWrite

	// DutyCalls records each SetPWMDuty argument.
	DutyCalls []uint8

	// FreqCalls records each SetPWMFrequency argument.
	// Its length is the hardware-reprogram count asserted by tests.
	FreqCalls []uint32

	// ReadError, if set, will be returned by ReadDigital.
	ReadError error

	// WriteError, if set, will be returned by the output methods.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePort creates a FakePort with all inputs at Low.
func NewFakePort() *FakePort {
	return &FakePort{
		Inputs:  make(map[Pin]Level),
		Outputs: make(map[Pin]Level),
	}
}

// SetInput sets the raw level a subsequent ReadDigital will observe.
func (f *FakePort) SetInput(pin Pin, level Level) {
	f.Inputs[pin] = level
}

// ReadDigital returns the scripted level for the pin, Low if unset.
func (f *FakePort) ReadDigital(pin Pin) (Level, error) {
	if f.ReadError != nil {
		return Low, f.ReadError
	}
	return f.Inputs[pin], nil
}

// WriteDigital records the write and updates the pin's output state.
func (f *FakePort) WriteDigital(pin Pin, level Level) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Outputs[pin] = level
	f.Writes = append(f.Writes, DigitalWrite{Pin: pin, Level: level})
	return nil
}

// SetPWMDuty records the duty cycle.
func (f *FakePort) SetPWMDuty(duty uint8) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.DutyCalls = append(f.DutyCalls, duty)
	return nil
}

// SetPWMFrequency records the frequency.
func (f *FakePort) SetPWMFrequency(freq uint32) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.FreqCalls = append(f.FreqCalls, freq)
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// LastDuty returns the most recent duty cycle, or an error if none was set.
func (f *FakePort) LastDuty() (uint8, error) {
	if len(f.DutyCalls) == 0 {
		return 0, fmt.Errorf("no duty cycle set")
	}
	return f.DutyCalls[len(f.DutyCalls)-1], nil
}

// Reset clears recorded writes and errors, keeping pin state.
func (f *FakePort) Reset() {
	f.Writes = nil
	f.DutyCalls = nil
	f.FreqCalls = nil
	f.ReadError = nil
	f.WriteError = nil
	f.Closed = false
}
