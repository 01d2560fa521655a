package network

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arctic.bridge/internal/monitoring"
)

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	original := monitoring.Logf
	t.Cleanup(func() { monitoring.Logf = original })
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestPacketStats_Snapshot(t *testing.T) {
	ps := NewPacketStats()
	ps.AddPacket(14)
	ps.AddPacket(18)
	ps.AddInvalid()
	ps.AddFrame()
	ps.AddDropped()

	assert.Equal(t, StatsSnapshot{Packets: 2, Bytes: 32, Invalid: 1, Frames: 1, Dropped: 1}, ps.Snapshot())
}

func TestPacketStats_LogStatsResetsInterval(t *testing.T) {
	lines := captureLogs(t)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	ps := NewPacketStats()
	ps.now = func() time.Time { return now }
	ps.lastReset = start

	for i := 0; i < 20; i++ {
		ps.AddPacket(512)
		ps.AddFrame()
	}
	ps.AddInvalid()

	now = start.Add(10 * time.Second)
	ps.LogStats()
	require.Len(t, *lines, 1)
	assert.Contains(t, (*lines)[0], "2.0 packets")
	assert.Contains(t, (*lines)[0], "2.0 frames")
	assert.Contains(t, (*lines)[0], "1.00 KB")
	assert.Contains(t, (*lines)[0], "1 invalid")
	assert.NotContains(t, (*lines)[0], "dropped")

	// Idle interval logs nothing, but totals survive.
	now = now.Add(10 * time.Second)
	ps.LogStats()
	assert.Len(t, *lines, 1)
	assert.Equal(t, int64(20), ps.Snapshot().Packets)
}
