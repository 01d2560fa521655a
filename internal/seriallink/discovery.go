package seriallink

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDeviceNotFound is returned when no enumerated port matches the
// configured descriptor. It is not fatal; the caller retries later.
var ErrDeviceNotFound = errors.New("serial device not found")

// DeviceDescriptor identifies the controller among enumerated USB ports.
type DeviceDescriptor struct {
	VendorID  uint16
	ProductID uint16
}

// DefaultDevice is the CH340 USB-serial bridge fitted to the Arctic RGB
// controller.
var DefaultDevice = DeviceDescriptor{VendorID: 0x1A86, ProductID: 0x7523}

func (d DeviceDescriptor) String() string {
	return fmt.Sprintf("%04X:%04X", d.VendorID, d.ProductID)
}

// ParseDeviceDescriptor parses "VID:PID" with hexadecimal ids, for example
// "1A86:7523" or "0x1a86:0x7523".
func ParseDeviceDescriptor(s string) (DeviceDescriptor, error) {
	vid, pid, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DeviceDescriptor{}, fmt.Errorf("invalid device descriptor %q: expected VID:PID", s)
	}
	v, err := parseHexID(vid)
	if err != nil {
		return DeviceDescriptor{}, fmt.Errorf("invalid vendor id in %q: %w", s, err)
	}
	p, err := parseHexID(pid)
	if err != nil {
		return DeviceDescriptor{}, fmt.Errorf("invalid product id in %q: %w", s, err)
	}
	return DeviceDescriptor{VendorID: v, ProductID: p}, nil
}

func parseHexID(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, errors.New("empty id")
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// PortInfo is one enumerated serial port.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
}

// Matches reports whether the port carries the descriptor's identifiers.
func (p PortInfo) Matches(d DeviceDescriptor) bool {
	return p.IsUSB && p.VendorID == d.VendorID && p.ProductID == d.ProductID
}

// PortEnumerator lists the serial ports currently attached.
type PortEnumerator interface {
	ListPorts() ([]PortInfo, error)
}

// FindPort returns the first enumerated port matching d.
func FindPort(e PortEnumerator, d DeviceDescriptor) (PortInfo, error) {
	ports, err := e.ListPorts()
	if err != nil {
		return PortInfo{}, err
	}
	for _, p := range ports {
		if p.Matches(d) {
			return p, nil
		}
	}
	return PortInfo{}, fmt.Errorf("%w: no port with id %s among %d ports", ErrDeviceNotFound, d, len(ports))
}
