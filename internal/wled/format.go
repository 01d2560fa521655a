// Package wled decodes the WLED realtime UDP protocols into a color buffer.
//
// Four wire formats are understood, keyed by the first byte of the datagram:
//
//	WARLS  1      [1][timeout]{[index][r][g][b]}...
//	DRGB   2      [2][timeout]{[r][g][b]}...
//	DNRGB  4      [4][timeout][start hi][start lo]{[r][g][b]}...
//	DDP    01xxxxxx  10 byte header, then {[r][g][b]}...
//
// Only a handful of positions are driven, so DNRGB's start index is parsed
// but every dense update is applied from position 0.
package wled

import (
	"errors"
	"fmt"
)

// Format identifies the wire format of a datagram.
type Format int

const (
	FormatUnknown Format = iota
	FormatWARLS
	FormatDRGB
	FormatDNRGB
	FormatDDP
)

func (f Format) String() string {
	switch f {
	case FormatWARLS:
		return "WARLS"
	case FormatDRGB:
		return "DRGB"
	case FormatDNRGB:
		return "DNRGB"
	case FormatDDP:
		return "DDP"
	default:
		return "unknown"
	}
}

// Protocol tag bytes and payload offsets.
const (
	TagWARLS = 0x01
	TagDRGB  = 0x02
	TagDNRGB = 0x04

	// DDP packets carry the protocol version in the top two bits of byte 0.
	ddpVersionMask = 0xC0
	ddpVersion1    = 0x40

	warlsHeaderLen = 2
	drgbHeaderLen  = 2
	dnrgbHeaderLen = 4
	ddpHeaderLen   = 10

	warlsGroupLen = 4
)

// DefaultPort is the UDP port WLED listens on for realtime data.
const DefaultPort = 21324

var (
	// ErrInvalidPacket is the parent of every decode failure. Invalid
	// datagrams are expected from arbitrary senders and are never fatal.
	ErrInvalidPacket = errors.New("invalid realtime packet")

	ErrUnknownFormat = fmt.Errorf("%w: unrecognized protocol tag", ErrInvalidPacket)
	ErrShortPacket   = fmt.Errorf("%w: shorter than protocol header", ErrInvalidPacket)
)

// Detect classifies a datagram by its tag byte without checking its length.
func Detect(packet []byte) Format {
	if len(packet) == 0 {
		return FormatUnknown
	}
	switch tag := packet[0]; {
	case tag == TagWARLS:
		return FormatWARLS
	case tag == TagDRGB:
		return FormatDRGB
	case tag == TagDNRGB:
		return FormatDNRGB
	case tag&ddpVersionMask == ddpVersion1:
		return FormatDDP
	default:
		return FormatUnknown
	}
}

// headerLen returns the number of bytes preceding the color payload. A valid
// packet is strictly longer than its header.
func (f Format) headerLen() int {
	switch f {
	case FormatWARLS:
		return warlsHeaderLen
	case FormatDRGB:
		return drgbHeaderLen
	case FormatDNRGB:
		return dnrgbHeaderLen
	case FormatDDP:
		return ddpHeaderLen
	default:
		return 0
	}
}
