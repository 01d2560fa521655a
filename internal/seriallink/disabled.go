package seriallink

import (
	"sync"

	"github.com/banshee-data/arctic.bridge/internal/color"
	"github.com/banshee-data/arctic.bridge/internal/monitoring"
)

// DisabledLink is a no-op link used when the controller is absent (for
// --disable-serial). It always reports itself connected so the bridge runs
// its full pipeline, and logs each frame at debug level instead of writing
// it anywhere.
type DisabledLink struct {
	mu        sync.Mutex
	positions int
	frames    uint64
	last      color.Triple
}

func NewDisabledLink(positions int) *DisabledLink {
	if positions < 1 {
		positions = color.DefaultPositions
	}
	return &DisabledLink{positions: positions}
}

func (d *DisabledLink) Connect() error { return nil }

func (d *DisabledLink) Connected() bool { return true }

func (d *DisabledLink) WriteFrame(c color.Triple) error {
	d.mu.Lock()
	d.frames++
	d.last = c
	d.mu.Unlock()
	monitoring.Debugf("serial disabled, frame % X", EncodeFrame(c, d.positions))
	return nil
}

func (d *DisabledLink) Close() error { return nil }

// LastColor returns the most recent color passed to WriteFrame.
func (d *DisabledLink) LastColor() color.Triple {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *DisabledLink) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		State:  "disabled",
		Device: "none",
		Frames: d.frames,
	}
}
