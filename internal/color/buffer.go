// Package color holds the bridge's view of the LED positions it drives: the
// color buffer written by the packet decoder, the smart mirror policy that
// picks the color actually sent, and the channel order mapping applied before
// the color reaches the wire.
package color

import "fmt"

// DefaultPositions is the number of logical LED positions the Arctic
// controller exposes.
const DefaultPositions = 4

// Triple is a single red/green/blue value.
type Triple struct {
	R, G, B uint8
}

// IsBlack reports whether every channel is zero.
func (t Triple) IsBlack() bool {
	return t.R == 0 && t.G == 0 && t.B == 0
}

func (t Triple) String() string {
	return fmt.Sprintf("(%d,%d,%d)", t.R, t.G, t.B)
}

// Buffer holds the most recently received color for each logical position.
//
// Values are kept flat (3 bytes per position) because the dense packet
// formats copy raw bytes and may stop in the middle of a triple. A Buffer is
// not safe for concurrent use.
type Buffer struct {
	data []byte
}

// NewBuffer returns an all-black buffer with n positions. n < 1 is treated
// as DefaultPositions.
func NewBuffer(n int) *Buffer {
	if n < 1 {
		n = DefaultPositions
	}
	return &Buffer{data: make([]byte, n*3)}
}

// Len returns the number of positions.
func (b *Buffer) Len() int {
	return len(b.data) / 3
}

// At returns the triple at position i. It panics if i is out of range.
func (b *Buffer) At(i int) Triple {
	o := i * 3
	return Triple{R: b.data[o], G: b.data[o+1], B: b.data[o+2]}
}

// Set overwrites position i. Out of range positions are ignored and Set
// reports false.
func (b *Buffer) Set(i int, t Triple) bool {
	if i < 0 || i >= b.Len() {
		return false
	}
	o := i * 3
	b.data[o], b.data[o+1], b.data[o+2] = t.R, t.G, t.B
	return true
}

// CopyPrefix copies raw channel bytes into the start of the buffer and
// returns how many were copied. Bytes past the buffer capacity are dropped;
// the part of the buffer not covered by p keeps its previous values.
func (b *Buffer) CopyPrefix(p []byte) int {
	return copy(b.data, p)
}

// Triples returns a copy of every position.
func (b *Buffer) Triples() []Triple {
	out := make([]Triple, b.Len())
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}

// Bytes returns a copy of the flat channel data.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}
