// Package network receives WLED realtime datagrams, either from a UDP socket
// or from a PCAP capture, and hands each payload to a PacketHandler.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/arctic.bridge/internal/monitoring"
	"github.com/banshee-data/arctic.bridge/internal/timeutil"
)

// ErrBind is returned by Start when the socket cannot be bound. The caller
// treats it as fatal.
var ErrBind = errors.New("failed to bind UDP listener")

// maxDatagram covers the largest DDP payload WLED sends (480 pixels) and
// every other realtime format.
const maxDatagram = 1500

// readPoll bounds each blocking read so cancellation is noticed promptly.
const readPoll = 100 * time.Millisecond

// PacketHandler consumes one datagram payload. The slice is only valid for
// the duration of the call. A non-nil error stops the listener.
type PacketHandler interface {
	HandlePacket(packet []byte) error
}

// PacketHandlerFunc adapts a function to PacketHandler.
type PacketHandlerFunc func(packet []byte) error

// HandlePacket calls f(packet).
func (f PacketHandlerFunc) HandlePacket(packet []byte) error { return f(packet) }

// PacketStatsInterface provides packet statistics management
type PacketStatsInterface interface {
	AddPacket(bytes int)
	LogStats()
}

// UDPListener receives realtime datagrams and dispatches them one at a time.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	conn        UDPSocket
	factory     UDPSocketFactory
	clock       timeutil.Clock
	stats       PacketStatsInterface
	forwarder   *PacketForwarder
	handler     PacketHandler
}

// UDPListenerConfig contains configuration options for the UDP listener
type UDPListenerConfig struct {
	Address       string
	RcvBuf        int
	LogInterval   time.Duration
	Stats         PacketStatsInterface
	Forwarder     *PacketForwarder
	Handler       PacketHandler
	SocketFactory UDPSocketFactory
	Clock         timeutil.Clock
}

// NewUDPListener creates a new UDP listener with the provided configuration
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	var stats PacketStatsInterface = noopStats{}
	if config.Stats != nil {
		stats = config.Stats
	}
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	factory := config.SocketFactory
	if factory == nil {
		factory = OSSockets{}
	}
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		factory:     factory,
		clock:       clock,
		stats:       stats,
		forwarder:   config.Forwarder,
		handler:     config.Handler,
	}
}

type noopStats struct{}

func (noopStats) AddPacket(int) {}
func (noopStats) LogStats()     {}

// Start binds the socket and processes datagrams until ctx is cancelled or
// the handler returns an error. Bind failures are wrapped in ErrBind.
func (l *UDPListener) Start(ctx context.Context) error {
	if l.handler == nil {
		return errors.New("network: UDP listener has no packet handler")
	}

	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("%w: resolve %q: %w", ErrBind, l.address, err)
	}

	conn, err := l.factory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %w", ErrBind, l.address, err)
	}
	l.conn = conn
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}

	monitoring.Logf("UDP listener started on %s with receive buffer %d bytes", conn.LocalAddr(), l.rcvBuf)

	if l.forwarder != nil {
		l.forwarder.Start(ctx)
	}

	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go l.startStatsLogging(statsCtx)

	buffer := make([]byte, maxDatagram)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP listener stopping due to context cancellation")
			return ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readPoll))

		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("UDP socket closed: %w", err)
			}
			monitoring.Logf("UDP read error: %v", err)
			continue
		}

		if err := l.handlePacket(buffer[:n]); err != nil {
			return fmt.Errorf("handle packet from %v: %w", from, err)
		}
	}
}

// startStatsLogging periodically logs packet statistics until ctx ends.
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	ticker := l.clock.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			l.stats.LogStats()
		}
	}
}

func (l *UDPListener) handlePacket(packet []byte) error {
	l.stats.AddPacket(len(packet))

	if l.forwarder != nil {
		l.forwarder.ForwardAsync(packet)
	}

	return l.handler.HandlePacket(packet)
}

// Close closes the UDP listener and releases resources
func (l *UDPListener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
