// Package seriallink owns the USB serial connection to the Arctic RGB
// controller: finding the device by USB id, opening and priming it with the
// handshake frame, writing color frames, and dropping the connection on any
// I/O failure so the caller can reconnect.
package seriallink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/arctic.bridge/internal/color"
	"github.com/banshee-data/arctic.bridge/internal/monitoring"
)

var (
	// ErrConnectFailed wraps open and handshake failures. The attempt is
	// discarded and the link stays disconnected.
	ErrConnectFailed = errors.New("failed to connect to serial device")
	// ErrLinkLost is returned when a frame write fails on an established
	// link. The port has been closed by the time the caller sees it.
	ErrLinkLost = errors.New("serial link lost")
	// ErrNotConnected is returned by WriteFrame when no link is established.
	ErrNotConnected = errors.New("serial link not connected")
	// ErrWriteFailed reports a short write.
	ErrWriteFailed = errors.New("failed to write to serial port")
)

// State is the link lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config is the immutable link configuration.
type Config struct {
	Device    DeviceDescriptor
	Port      PortOptions
	Positions int
}

// DefaultConfig returns the configuration for a stock Arctic controller.
func DefaultConfig() Config {
	return Config{
		Device:    DefaultDevice,
		Positions: color.DefaultPositions,
	}
}

// Status is a point-in-time view of the link, safe to hand to other
// goroutines.
type Status struct {
	State       string    `json:"state"`
	Device      string    `json:"device"`
	Path        string    `json:"path,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitzero"`
	Connects    int       `json:"connects"`
	Failures    int       `json:"failures"`
	Frames      uint64    `json:"frames"`
	LastError   string    `json:"last_error,omitempty"`
}

// Manager drives the Disconnected → Connecting → Connected state machine.
//
// All methods are safe for concurrent use, but the bridge calls them from a
// single goroutine; the mutex exists so debug handlers can read Status.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	mode    *SerialPortMode
	enum    PortEnumerator
	factory SerialPortFactory
	now     func() time.Time

	state       State
	port        SerialPorter
	path        string
	session     string
	connectedAt time.Time
	connects    int
	failures    int
	frames      uint64
	lastErr     error
}

// NewManager validates cfg and returns a disconnected Manager. Nothing is
// opened until Connect is called.
func NewManager(cfg Config, enum PortEnumerator, factory SerialPortFactory) (*Manager, error) {
	if enum == nil || factory == nil {
		return nil, errors.New("seriallink: enumerator and factory are required")
	}
	mode, err := cfg.Port.Mode()
	if err != nil {
		return nil, fmt.Errorf("invalid serial options: %w", err)
	}
	if cfg.Positions < 1 {
		cfg.Positions = color.DefaultPositions
	}
	return &Manager{
		cfg:     cfg,
		mode:    mode,
		enum:    enum,
		factory: factory,
		now:     time.Now,
	}, nil
}

// NewRealManager returns a Manager backed by the OS port enumerator and
// go.bug.st/serial.
func NewRealManager(cfg Config) (*Manager, error) {
	return NewManager(cfg, USBEnumerator{}, RealPortFactory{})
}

// Connect discovers the device and performs the handshake. It makes exactly
// one attempt; on failure the link is left Disconnected and the caller
// decides when to retry. Connect on an established link is a no-op.
func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Connected {
		return nil
	}
	m.state = Connecting

	info, err := FindPort(m.enum, m.cfg.Device)
	if err != nil {
		m.state = Disconnected
		m.lastErr = err
		return err
	}

	port, err := m.factory.Open(info.Name, m.mode)
	if err != nil {
		m.state = Disconnected
		m.failures++
		m.lastErr = fmt.Errorf("%w: open %s: %w", ErrConnectFailed, info.Name, err)
		return m.lastErr
	}

	if err := writeAll(port, EncodeHandshake()); err != nil {
		closeQuietly(port)
		m.state = Disconnected
		m.failures++
		m.lastErr = fmt.Errorf("%w: handshake on %s: %w", ErrConnectFailed, info.Name, err)
		return m.lastErr
	}

	m.port = port
	m.path = info.Name
	m.session = uuid.NewString()
	m.connectedAt = m.now()
	m.connects++
	m.lastErr = nil
	m.state = Connected
	monitoring.Logf("Serial connected: %s (%s, session %s)", info.Name, m.cfg.Device, m.session)
	return nil
}

// WriteFrame writes one color frame. c must be in wire order and clamped.
// Any failure closes the port and leaves the link Disconnected.
func (m *Manager) WriteFrame(c color.Triple) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Connected {
		return ErrNotConnected
	}

	if err := writeAll(m.port, EncodeFrame(c, m.cfg.Positions)); err != nil {
		path := m.path
		m.dropLocked()
		m.failures++
		m.lastErr = fmt.Errorf("%w: write to %s: %w", ErrLinkLost, path, err)
		return m.lastErr
	}
	m.frames++
	return nil
}

// Close force-closes the port. Close errors are swallowed; the link always
// ends Disconnected.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked()
	return nil
}

// Connected reports whether frames can be written.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Connected
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot of the link.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		State:     m.state.String(),
		Device:    m.cfg.Device.String(),
		Path:      m.path,
		SessionID: m.session,
		Connects:  m.connects,
		Failures:  m.failures,
		Frames:    m.frames,
	}
	if m.state == Connected {
		s.ConnectedAt = m.connectedAt
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

func (m *Manager) dropLocked() {
	if m.port != nil {
		closeQuietly(m.port)
		monitoring.Debugf("Serial closed: %s (session %s)", m.path, m.session)
	}
	m.port = nil
	m.path = ""
	m.session = ""
	m.state = Disconnected
}

// writeAll issues a single Write and treats a short write as a failure.
func writeAll(port SerialPorter, p []byte) error {
	n, err := port.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrWriteFailed, n, len(p))
	}
	return nil
}

func closeQuietly(port SerialPorter) {
	_ = port.Close()
}
