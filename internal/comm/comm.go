// Package comm provides the fixture's two byte-oriented host channels over a
// shared transport abstraction. The control channel exchanges single command
// and response bytes with the controlling host; the debug channel answers
// command bytes with a full state-vector dump. The channels share one Port
// capability so the business meaning stays in the wrapper, not the transport.
package comm

import (
	"fmt"

	"github.com/sweeney/probe-fixture/internal/fixture"
)

// Port is a non-blocking byte transport. The real implementation is a serial
// port; the fake is scripted for tests.
type Port interface {
	// TryRead polls for the next pending byte. It never waits: when no
	// byte is pending it returns ok=false with a nil error.
	TryRead() (b byte, ok bool, err error)

	// Write sends the whole buffer.
	Write(p []byte) error

	// Close releases the transport.
	Close() error
}

// Control is the primary host channel: one command byte in, one response
// byte out.
type Control struct {
	port Port
}

// NewControl wraps a transport as the control channel.
func NewControl(port Port) *Control {
	return &Control{port: port}
}

// ReadCommand polls for the next host command byte. ok is false when no
// command is pending; the caller treats that as a no-op, not an error.
func (c *Control) ReadCommand() (byte, bool, error) {
	b, ok, err := c.port.TryRead()
	if err != nil {
		return 0, false, fmt.Errorf("read control command: %w", err)
	}
	return b, ok, nil
}

// WriteResponse sends exactly one response byte to the host.
func (c *Control) WriteResponse(b byte) error {
	if err := c.port.Write([]byte{b}); err != nil {
		return fmt.Errorf("write control response: %w", err)
	}
	return nil
}

// Close releases the underlying transport.
func (c *Control) Close() error {
	return c.port.Close()
}

// Debug is the secondary console channel: any command byte is answered with
// a state-vector dump.
type Debug struct {
	port Port
}

// NewDebug wraps a transport as the debug channel.
func NewDebug(port Port) *Debug {
	return &Debug{port: port}
}

// ReadCommand polls for the next debug command byte, with the same contract
// as Control.ReadCommand.
func (d *Debug) ReadCommand() (byte, bool, error) {
	b, ok, err := d.port.TryRead()
	if err != nil {
		return 0, false, fmt.Errorf("read debug command: %w", err)
	}
	return b, ok, nil
}

// WriteStateVector sends the vector's dump frame as one message.
func (d *Debug) WriteStateVector(v fixture.StateVector) error {
	if err := d.port.Write([]byte(v.Encode())); err != nil {
		return fmt.Errorf("write state vector: %w", err)
	}
	return nil
}

// Close releases the underlying transport.
func (d *Debug) Close() error {
	return d.port.Close()
}
