package wled

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/arctic.bridge/internal/color"
)

// Result describes an update that was applied to the buffer.
type Result struct {
	Format Format
	// Positions counts WARLS groups applied, or for dense formats the number
	// of positions touched (a trailing partial triple counts as one).
	Positions int
	// Start is the DNRGB start index as sent. It is informational only.
	Start uint16
}

// Decode applies a realtime datagram to buf. Packets that are not a
// recognized, well-formed update leave buf untouched and return an error
// wrapping ErrInvalidPacket. The decoder keeps no reference to buf.
func Decode(packet []byte, buf *color.Buffer) (Result, error) {
	format := Detect(packet)
	if format == FormatUnknown {
		if len(packet) == 0 {
			return Result{}, fmt.Errorf("%w: empty datagram", ErrShortPacket)
		}
		return Result{}, fmt.Errorf("%w: tag 0x%02x", ErrUnknownFormat, packet[0])
	}

	hdr := format.headerLen()
	if len(packet) <= hdr {
		return Result{Format: format}, fmt.Errorf("%w: %s needs more than %d bytes, got %d", ErrShortPacket, format, hdr, len(packet))
	}

	res := Result{Format: format}
	switch format {
	case FormatWARLS:
		res.Positions = applyWARLS(packet[hdr:], buf)
	case FormatDNRGB:
		res.Start = binary.BigEndian.Uint16(packet[2:4])
		res.Positions = applyDense(packet[hdr:], buf)
	default:
		res.Positions = applyDense(packet[hdr:], buf)
	}
	return res, nil
}

// applyWARLS writes each complete (index, r, g, b) group whose index is in
// range. A trailing group shorter than four bytes is skipped.
func applyWARLS(payload []byte, buf *color.Buffer) int {
	applied := 0
	for i := 0; i+warlsGroupLen <= len(payload); i += warlsGroupLen {
		g := payload[i : i+warlsGroupLen]
		if buf.Set(int(g[0]), color.Triple{R: g[1], G: g[2], B: g[3]}) {
			applied++
		}
	}
	return applied
}

// applyDense copies packed r,g,b bytes over the start of the buffer.
func applyDense(payload []byte, buf *color.Buffer) int {
	n := buf.CopyPrefix(payload)
	return (n + 2) / 3
}
