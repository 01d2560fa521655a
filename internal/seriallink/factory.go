package seriallink

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// RealPortFactory opens hardware serial ports through go.bug.st/serial.
type RealPortFactory struct{}

// Open opens the port at path and applies the mode's read timeout.
func (RealPortFactory) Open(path string, mode *SerialPortMode) (SerialPorter, error) {
	if mode == nil {
		mode = DefaultSerialPortMode()
	}
	port, err := serial.Open(path, serialMode(mode))
	if err != nil {
		return nil, err
	}
	if mode.ReadTimeout > 0 {
		if err := port.SetReadTimeout(mode.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}
	return port, nil
}

// USBEnumerator lists serial ports with their USB identifiers using the
// platform enumerator from go.bug.st/serial.
type USBEnumerator struct{}

// ListPorts returns every serial port the OS reports. Non-USB ports are
// included with zero identifiers.
func (USBEnumerator) ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		info := PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			SerialNumber: d.SerialNumber,
		}
		if d.IsUSB {
			// Identifiers that fail to parse leave the port unmatched.
			info.VendorID, _ = parseHexID(d.VID)
			info.ProductID, _ = parseHexID(d.PID)
		}
		ports = append(ports, info)
	}
	return ports, nil
}
