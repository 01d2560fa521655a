package seriallink

import (
	"bytes"
	"errors"
	"sync"
)

// TestableSerialPort implements SerialPorter with configurable behaviour for
// testing. Every Write is recorded as a separate chunk so tests can check
// the handshake and each frame individually.
type TestableSerialPort struct {
	mu sync.Mutex

	// Path is the device path the port was opened with.
	Path string

	// Mode is the mode the port was opened with.
	Mode *SerialPortMode

	// Writes holds a copy of every successful Write.
	Writes [][]byte

	// WriteError is returned by every Write call while set.
	WriteError error

	// ShortWrite makes Write report one byte fewer than requested.
	ShortWrite bool

	// CloseError is returned by Close if set.
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// CloseCalls records the number of Close calls.
	CloseCalls int
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{}
}

// Read never returns data; the controller is write-only.
func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	return 0, nil
}

// Write records p unless an error is configured.
func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		return 0, t.WriteError
	}
	if t.ShortWrite && len(p) > 0 {
		t.Writes = append(t.Writes, bytes.Clone(p[:len(p)-1]))
		return len(p) - 1, nil
	}
	t.Writes = append(t.Writes, bytes.Clone(p))
	return len(p), nil
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	t.CloseCalls++
	return t.CloseError
}

// SetWriteError sets or clears the error returned by Write.
func (t *TestableSerialPort) SetWriteError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.WriteError = err
}

// WrittenChunks returns a copy of every recorded write.
func (t *TestableSerialPort) WrittenChunks() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.Writes))
	copy(out, t.Writes)
	return out
}

// IsClosed reports whether Close has been called.
func (t *TestableSerialPort) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Closed
}

// MockSerialPortFactory implements SerialPortFactory for testing. Each Open
// returns a fresh TestableSerialPort unless Next is set.
type MockSerialPortFactory struct {
	mu sync.Mutex

	// Next, if set, is returned by the next Open and then cleared.
	Next *TestableSerialPort

	// Error is returned by Open if set
	Error error

	// Opened holds every port handed out, in order.
	Opened []*TestableSerialPort

	// OpenCalls records all Open calls
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path string
	Mode *SerialPortMode
}

// NewMockSerialPortFactory creates a new MockSerialPortFactory.
func NewMockSerialPortFactory() *MockSerialPortFactory {
	return &MockSerialPortFactory{}
}

// Open returns a port or the configured error.
func (f *MockSerialPortFactory) Open(path string, mode *SerialPortMode) (SerialPorter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, MockOpenCall{
		Path: path,
		Mode: mode,
	})

	if f.Error != nil {
		return nil, f.Error
	}

	port := f.Next
	f.Next = nil
	if port == nil {
		port = NewTestableSerialPort()
	}
	port.Path = path
	port.Mode = mode
	f.Opened = append(f.Opened, port)
	return port, nil
}

// Last returns the most recently opened port, or nil if none.
func (f *MockSerialPortFactory) Last() *TestableSerialPort {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.Opened) == 0 {
		return nil
	}
	return f.Opened[len(f.Opened)-1]
}

// SetError sets or clears the error returned by Open.
func (f *MockSerialPortFactory) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Error = err
}

// MockPortEnumerator implements PortEnumerator for testing.
type MockPortEnumerator struct {
	mu sync.Mutex

	// Ports is returned by ListPorts.
	Ports []PortInfo

	// Error is returned by ListPorts if set.
	Error error

	// Calls records the number of ListPorts calls.
	Calls int
}

// NewMockPortEnumerator returns an enumerator reporting ports.
func NewMockPortEnumerator(ports ...PortInfo) *MockPortEnumerator {
	return &MockPortEnumerator{Ports: ports}
}

// ListPorts returns the configured ports or error.
func (e *MockPortEnumerator) ListPorts() ([]PortInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	if e.Error != nil {
		return nil, e.Error
	}
	out := make([]PortInfo, len(e.Ports))
	copy(out, e.Ports)
	return out, nil
}

// SetPorts replaces the reported ports.
func (e *MockPortEnumerator) SetPorts(ports ...PortInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Ports = ports
}

// ArcticPort returns a PortInfo matching DefaultDevice at path.
func ArcticPort(path string) PortInfo {
	return PortInfo{
		Name:      path,
		IsUSB:     true,
		VendorID:  DefaultDevice.VendorID,
		ProductID: DefaultDevice.ProductID,
	}
}
