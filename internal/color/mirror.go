package color

// Effective returns the color to transmit for the primary position.
//
// Single-zone effects only write position 0. When position 0 is black the
// first lit secondary position is used instead, so a multi-zone effect still
// shows up on the controller. If every position is black the result is black.
func (b *Buffer) Effective() Triple {
	primary := b.At(0)
	if !primary.IsBlack() {
		return primary
	}
	for i := 1; i < b.Len(); i++ {
		if t := b.At(i); !t.IsBlack() {
			return t
		}
	}
	return primary
}
