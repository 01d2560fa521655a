package seriallink

import "github.com/banshee-data/arctic.bridge/internal/color"

// Header prefixes every frame written to the controller.
var Header = [8]byte{0x01, 0x02, 0x03, 0xFF, 0x05, 0xFF, 0x02, 0x03}

// handshakePayload primes the controller after the port is opened.
var handshakePayload = [5]byte{0x5C, 0x01, 0xFE, 0x01, 0xFE}

// frameColorCommand precedes the repeated color blocks.
const frameColorCommand = 0x00

// EncodeHandshake returns the initialization frame.
func EncodeHandshake() []byte {
	out := make([]byte, 0, len(Header)+len(handshakePayload))
	out = append(out, Header[:]...)
	return append(out, handshakePayload[:]...)
}

// EncodeFrame returns a color frame: the header, the command byte, then c
// repeated once per position. c must already be in wire order and clamped.
func EncodeFrame(c color.Triple, positions int) []byte {
	out := make([]byte, 0, FrameLen(positions))
	out = append(out, Header[:]...)
	out = append(out, frameColorCommand)
	for i := 0; i < positions; i++ {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

// FrameLen is the encoded size of a color frame.
func FrameLen(positions int) int {
	return len(Header) + 1 + 3*positions
}
