package comm

// FakePort is a scripted byte transport for tests.
type FakePort struct {
	// Pending holds the bytes TryRead will return, one per call.
	// When exhausted, TryRead reports no data.
	Pending []byte

	// Written records every Write buffer in order.
	Written [][]byte

	// ReadError, if set, will be returned by TryRead.
	ReadError error

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakePort creates a FakePort with the given pending input bytes.
func NewFakePort(pending ...byte) *FakePort {
	return &FakePort{Pending: pending}
}

// TryRead returns the next scripted byte, or ok=false once the script is
// exhausted.
func (f *FakePort) TryRead() (byte, bool, error) {
	if f.ReadError != nil {
		return 0, false, f.ReadError
	}
	if f.index >= len(f.Pending) {
		return 0, false, nil
	}
	b := f.Pending[f.index]
	f.index++
	return b, true, nil
}

// Push appends bytes to the pending script.
func (f *FakePort) Push(b ...byte) {
	f.Pending = append(f.Pending, b...)
}

// Write records the buffer.
func (f *FakePort) Write(p []byte) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	f.Written = append(f.Written, buf)
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// Reset clears the script and recorded writes.
func (f *FakePort) Reset() {
	f.Pending = nil
	f.Written = nil
	f.ReadError = nil
	f.WriteError = nil
	f.Closed = false
	f.index = 0
}
