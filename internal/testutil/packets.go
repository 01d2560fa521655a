package testutil

import "encoding/binary"

// Group is one WARLS (index, r, g, b) entry.
type Group struct {
	Index   uint8
	R, G, B uint8
}

// WARLS builds a WARLS datagram with a 2 second timeout byte.
func WARLS(groups ...Group) []byte {
	p := []byte{0x01, 0x02}
	for _, g := range groups {
		p = append(p, g.Index, g.R, g.G, g.B)
	}
	return p
}

// DRGB builds a DRGB datagram from packed channel bytes.
func DRGB(rgb ...byte) []byte {
	return append([]byte{0x02, 0x02}, rgb...)
}

// DNRGB builds a DNRGB datagram with the given start index.
func DNRGB(start uint16, rgb ...byte) []byte {
	p := []byte{0x04, 0x02, 0, 0}
	binary.BigEndian.PutUint16(p[2:4], start)
	return append(p, rgb...)
}

// DDP builds a version 1 DDP datagram with the push flag set, RGB 8-bit data
// type and display id 1.
func DDP(rgb ...byte) []byte {
	p := make([]byte, 10, 10+len(rgb))
	p[0] = 0x41 // version 1, push
	p[1] = 0x00 // sequence
	p[2] = 0x0B // RGB, 8 bits per channel
	p[3] = 0x01 // display id
	binary.BigEndian.PutUint32(p[4:8], 0)
	binary.BigEndian.PutUint16(p[8:10], uint16(len(rgb)))
	return append(p, rgb...)
}
