package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/arctic.bridge/internal/monitoring"
)

// DropCounter counts datagrams that could not be forwarded.
type DropCounter interface {
	AddDropped()
}

// PacketForwarder copies received datagrams to another WLED device so the
// bridge can sit in front of real hardware. Forwarding never blocks the
// translation loop: when the queue is full the datagram is dropped.
type PacketForwarder struct {
	conn        net.Conn
	channel     chan []byte
	stats       DropCounter
	logInterval time.Duration
	address     string
}

// NewPacketForwarder creates a forwarder that sends datagrams to address
// ("host:port").
func NewPacketForwarder(address string, stats DropCounter, logInterval time.Duration) (*PacketForwarder, error) {
	forwardUDPAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, forwardUDPAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}

	return newPacketForwarder(conn, address, stats, logInterval), nil
}

func newPacketForwarder(conn net.Conn, address string, stats DropCounter, logInterval time.Duration) *PacketForwarder {
	if logInterval <= 0 {
		logInterval = time.Minute
	}
	return &PacketForwarder{
		conn:        conn,
		channel:     make(chan []byte, 256),
		stats:       stats,
		logInterval: logInterval,
		address:     address,
	}
}

// Start begins the forwarding goroutine. It exits when ctx is cancelled.
func (f *PacketForwarder) Start(ctx context.Context) {
	go func() {
		droppedCount := 0
		var lastError error
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case packet := <-f.channel:
				if _, err := f.conn.Write(packet); err != nil {
					droppedCount++
					lastError = err
					if f.stats != nil {
						f.stats.AddDropped()
					}
				}
			case <-ticker.C:
				if droppedCount > 0 && lastError != nil {
					monitoring.Logf("Dropped %d forwarded packets due to errors (latest: %v)", droppedCount, lastError)
					droppedCount = 0
					lastError = nil
				}
			}
		}
	}()

	monitoring.Logf("Forwarding realtime packets to %s", f.address)
}

// ForwardAsync queues a copy of packet without blocking. If the queue is
// full the packet is dropped and counted.
func (f *PacketForwarder) ForwardAsync(packet []byte) {
	packetCopy := make([]byte, len(packet))
	copy(packetCopy, packet)

	select {
	case f.channel <- packetCopy:
	default:
		if f.stats != nil {
			f.stats.AddDropped()
		}
	}
}

// Close closes the forwarding connection.
func (f *PacketForwarder) Close() error {
	return f.conn.Close()
}
