package network

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dropCounter struct{ n atomic.Int64 }

func (d *dropCounter) AddDropped() { d.n.Add(1) }

func TestPacketForwarder_Forwards(t *testing.T) {
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer sink.Close()

	drops := &dropCounter{}
	f, err := NewPacketForwarder(sink.LocalAddr().String(), drops, time.Minute)
	require.NoError(t, err)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.Start(ctx)

	packet := []byte{1, 2, 0, 10, 20, 30}
	f.ForwardAsync(packet)
	packet[0] = 0xEE // the forwarder must have taken a copy

	require.NoError(t, sink.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	n, _, err := sink.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0, 10, 20, 30}, buf[:n])
	assert.Zero(t, drops.n.Load())
}

func TestPacketForwarder_DropsWhenQueueFull(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	drops := &dropCounter{}
	f := newPacketForwarder(client, "pipe", drops, time.Minute)
	defer f.Close()

	// Not started: nothing drains the queue.
	for i := 0; i < cap(f.channel)+5; i++ {
		f.ForwardAsync([]byte{byte(i)})
	}
	assert.Equal(t, int64(5), drops.n.Load())
}

func TestNewPacketForwarder_BadAddress(t *testing.T) {
	_, err := NewPacketForwarder("nowhere:port", nil, 0)
	assert.ErrorContains(t, err, "resolve forward address")
}
