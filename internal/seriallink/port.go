package seriallink

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// SerialPortMode defines serial port configuration parameters.
type SerialPortMode struct {
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	ReadTimeout time.Duration
}

// Parity defines serial port parity options.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits defines serial port stop bit options.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// DefaultSerialPortMode returns the mode the Arctic controller expects:
// 250000 baud, 8N2. Reads are never used so the timeout is short.
func DefaultSerialPortMode() *SerialPortMode {
	return &SerialPortMode{
		BaudRate:    250000,
		DataBits:    8,
		Parity:      NoParity,
		StopBits:    TwoStopBits,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// SerialPortFactory defines an interface for creating serial ports.
// This abstraction enables dependency injection of serial port creation.
type SerialPortFactory interface {
	// Open opens a serial port at the specified path with the given mode.
	Open(path string, mode *SerialPortMode) (SerialPorter, error)
}
