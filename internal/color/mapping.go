package color

import (
	"fmt"
	"strings"
)

// Order names the channel carried in each of the three wire slots.
type Order uint8

const (
	RGB Order = iota
	RBG
	GRB
	GBR
	BRG
	BGR
)

// slots[o][i] is the canonical channel index (0=R, 1=G, 2=B) carried in wire
// slot i.
var slots = [...][3]int{
	RGB: {0, 1, 2},
	RBG: {0, 2, 1},
	GRB: {1, 0, 2},
	GBR: {1, 2, 0},
	BRG: {2, 0, 1},
	BGR: {2, 1, 0},
}

var orderNames = [...]string{
	RGB: "RGB",
	RBG: "RBG",
	GRB: "GRB",
	GBR: "GBR",
	BRG: "BRG",
	BGR: "BGR",
}

func (o Order) String() string {
	if int(o) < len(orderNames) {
		return orderNames[o]
	}
	return fmt.Sprintf("Order(%d)", uint8(o))
}

// Valid reports whether o is one of the six channel permutations.
func (o Order) Valid() bool {
	return int(o) < len(slots)
}

// ParseOrder parses a case-insensitive order name such as "grb". An empty
// string yields RGB.
func ParseOrder(s string) (Order, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return RGB, nil
	}
	for o, n := range orderNames {
		if n == name {
			return Order(o), nil
		}
	}
	return RGB, fmt.Errorf("unsupported channel order %q: expected one of %s", s, strings.Join(orderNames[:], ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (o Order) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid channel order %d", uint8(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Order) UnmarshalText(text []byte) error {
	parsed, err := ParseOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// toCanonical reorders a triple received in order o into R, G, B.
func (o Order) toCanonical(t Triple) Triple {
	raw := [3]uint8{t.R, t.G, t.B}
	var c [3]uint8
	for i, ch := range slots[o] {
		c[ch] = raw[i]
	}
	return Triple{R: c[0], G: c[1], B: c[2]}
}

// fromCanonical reorders an R, G, B triple into order o.
func (o Order) fromCanonical(t Triple) Triple {
	c := [3]uint8{t.R, t.G, t.B}
	s := slots[o]
	return Triple{R: c[s[0]], G: c[s[1]], B: c[s[2]]}
}

// Mapping converts the sender's channel order into the device's wire order.
// The zero value maps RGB to RGB.
type Mapping struct {
	Input  Order
	Output Order
}

// NewMapping parses both order names.
func NewMapping(input, output string) (Mapping, error) {
	in, err := ParseOrder(input)
	if err != nil {
		return Mapping{}, fmt.Errorf("input mapping: %w", err)
	}
	out, err := ParseOrder(output)
	if err != nil {
		return Mapping{}, fmt.Errorf("output mapping: %w", err)
	}
	return Mapping{Input: in, Output: out}, nil
}

// Apply recovers canonical R, G, B from the input order and emits it in the
// output order.
func (m Mapping) Apply(t Triple) Triple {
	return m.Output.fromCanonical(m.Input.toCanonical(t))
}

// Wire is Apply followed by Clamp; the result is safe to put in a frame.
func (m Mapping) Wire(t Triple) Triple {
	return Clamp(m.Apply(t))
}

func (m Mapping) String() string {
	return m.Input.String() + "->" + m.Output.String()
}

// MaxWireLevel is the brightest value allowed inside a serial frame. 0xFF
// appears in the frame header and is reserved.
const MaxWireLevel = 254

// Clamp replaces any channel equal to 255 with MaxWireLevel.
func Clamp(t Triple) Triple {
	return Triple{R: clampLevel(t.R), G: clampLevel(t.G), B: clampLevel(t.B)}
}

func clampLevel(v uint8) uint8 {
	if v == 255 {
		return MaxWireLevel
	}
	return v
}
