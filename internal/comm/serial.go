package comm

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the rate both host ports were provisioned with.
const DefaultBaudRate = 9600

// pollTimeout bounds a single serial read so TryRead stays a poll rather
// than a wait. The tick loop must never stall on host input.
const pollTimeout = time.Millisecond

// SerialPort is a Port over a real serial device.
type SerialPort struct {
	port serial.Port
}

// OpenSerial opens the serial device in polling mode.
func OpenSerial(device string, baud int) (*SerialPort, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := port.SetReadTimeout(pollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	return &SerialPort{port: port}, nil
}

// TryRead polls for one byte. A timed-out read (n == 0) reports no data.
func (s *SerialPort) TryRead() (byte, bool, error) {
	var buf [1]byte
	n, err := s.port.Read(buf[:])
	if err != nil {
		return 0, false, fmt.Errorf("serial read: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// Write sends the whole buffer, retrying short writes.
func (s *SerialPort) Write(p []byte) error {
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// Close closes the serial device.
func (s *SerialPort) Close() error {
	return s.port.Close()
}
