package seriallink

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// PortOptions describes the serial connection parameters as they appear in
// the bridge configuration file. Zero values select the controller defaults.
type PortOptions struct {
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	def := DefaultSerialPortMode()

	if opts.BaudRate <= 0 {
		opts.BaudRate = def.BaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = def.DataBits
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 2
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	if parity == "" {
		parity = "N"
	}

	switch parity {
	case "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = parity

	if opts.ReadTimeout < 0 {
		return opts, fmt.Errorf("invalid read timeout %v", opts.ReadTimeout)
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = def.ReadTimeout
	}

	return opts, nil
}

// Mode converts the options into the package's port mode.
func (o PortOptions) Mode() (*SerialPortMode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &SerialPortMode{
		BaudRate:    opts.BaudRate,
		DataBits:    opts.DataBits,
		StopBits:    OneStopBit,
		ReadTimeout: opts.ReadTimeout,
	}
	if opts.StopBits == 2 {
		mode.StopBits = TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = EvenParity
	case "O":
		mode.Parity = OddParity
	default:
		mode.Parity = NoParity
	}
	return mode, nil
}

// serialMode converts a port mode into the serial.Mode structure required by
// go.bug.st/serial when opening a port.
func serialMode(m *SerialPortMode) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: m.BaudRate,
		DataBits: m.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	switch m.Parity {
	case EvenParity:
		mode.Parity = serial.EvenParity
	case OddParity:
		mode.Parity = serial.OddParity
	}
	if m.StopBits == TwoStopBits {
		mode.StopBits = serial.TwoStopBits
	}
	return mode
}
