package network

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/arctic.bridge/internal/monitoring"
)

// PacketStats tracks packet statistics with thread-safe operations.
//
// Interval counters are reset by LogStats; totals are kept for the life of
// the process and reported by Snapshot.
type PacketStats struct {
	mu        sync.Mutex
	interval  counters
	total     counters
	lastReset time.Time
	now       func() time.Time
}

type counters struct {
	packets int64
	bytes   int64
	invalid int64
	frames  int64
	dropped int64
}

// StatsSnapshot is a copy of the cumulative counters.
type StatsSnapshot struct {
	Packets int64 `json:"packets"`
	Bytes   int64 `json:"bytes"`
	Invalid int64 `json:"invalid"`
	Frames  int64 `json:"frames"`
	Dropped int64 `json:"dropped"`
}

// NewPacketStats creates a new PacketStats instance
func NewPacketStats() *PacketStats {
	return &PacketStats{
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// AddPacket counts one received datagram of the given size.
func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.interval.packets++
	ps.interval.bytes += int64(bytes)
	ps.total.packets++
	ps.total.bytes += int64(bytes)
}

// AddInvalid counts a datagram the decoder rejected.
func (ps *PacketStats) AddInvalid() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.interval.invalid++
	ps.total.invalid++
}

// AddFrame counts a frame written to the serial device.
func (ps *PacketStats) AddFrame() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.interval.frames++
	ps.total.frames++
}

// AddDropped counts a datagram that could not be forwarded.
func (ps *PacketStats) AddDropped() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.interval.dropped++
	ps.total.dropped++
}

// Snapshot returns the cumulative counters.
func (ps *PacketStats) Snapshot() StatsSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return StatsSnapshot{
		Packets: ps.total.packets,
		Bytes:   ps.total.bytes,
		Invalid: ps.total.invalid,
		Frames:  ps.total.frames,
		Dropped: ps.total.dropped,
	}
}

func (ps *PacketStats) getAndReset() (c counters, d time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	now := ps.now()
	c, d = ps.interval, now.Sub(ps.lastReset)
	ps.interval = counters{}
	ps.lastReset = now
	return c, d
}

// LogStats logs the per-second rates since the previous call and resets the
// interval counters. Nothing is logged for an idle interval.
func (ps *PacketStats) LogStats() {
	c, d := ps.getAndReset()
	if c.packets == 0 && c.dropped == 0 {
		return
	}
	secs := d.Seconds()
	if secs <= 0 {
		secs = 1
	}
	msg := fmt.Sprintf("Realtime stats (/sec): %.1f packets, %.1f frames, %.2f KB",
		float64(c.packets)/secs, float64(c.frames)/secs, float64(c.bytes)/secs/1024)
	if c.invalid > 0 {
		msg += fmt.Sprintf(", %d invalid", c.invalid)
	}
	if c.dropped > 0 {
		msg += fmt.Sprintf(", %d dropped on forward", c.dropped)
	}
	monitoring.Logf("%s", msg)
}
