package network

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arctic.bridge/internal/testutil"
	"github.com/banshee-data/arctic.bridge/internal/timeutil"
	"github.com/banshee-data/arctic.bridge/internal/wled"
)

type recordingHandler struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
	onCall  func(n int)
}

func (h *recordingHandler) HandlePacket(packet []byte) error {
	h.mu.Lock()
	h.packets = append(h.packets, append([]byte(nil), packet...))
	n := len(h.packets)
	h.mu.Unlock()
	if h.onCall != nil {
		h.onCall(n)
	}
	return h.err
}

func (h *recordingHandler) received() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.packets...)
}

type countingStats struct {
	packets atomic.Int64
	logs    atomic.Int64
}

func (s *countingStats) AddPacket(int) { s.packets.Add(1) }
func (s *countingStats) LogStats()     { s.logs.Add(1) }

func TestNewUDPListener_Defaults(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{Address: ":21324"})

	assert.Equal(t, time.Minute, l.logInterval)
	assert.IsType(t, noopStats{}, l.stats)
	assert.IsType(t, OSSockets{}, l.factory)
	assert.IsType(t, timeutil.RealClock{}, l.clock)
}

func TestUDPListener_DispatchesEveryDatagram(t *testing.T) {
	payloads := [][]byte{
		testutil.WARLS(testutil.Group{Index: 0, R: 255}),
		testutil.DRGB(1, 2, 3),
		{0x09, 0x09, 0x09},
	}
	socket := NewMockUDPSocket(Datagrams(payloads...)...)
	factory := NewMockUDPSocketFactory(socket)
	stats := &countingStats{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{onCall: func(n int) {
		if n == len(payloads) {
			cancel()
		}
	}}

	l := NewUDPListener(UDPListenerConfig{
		Address:       ":21324",
		RcvBuf:        65536,
		Stats:         stats,
		Handler:       handler,
		SocketFactory: factory,
	})

	err := l.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, payloads, handler.received())
	assert.Equal(t, int64(3), stats.packets.Load())
	require.Len(t, factory.Binds, 1)
	assert.Equal(t, wled.DefaultPort, factory.Binds[0].Port)
	assert.Equal(t, 65536, socket.RcvBuf())
	assert.Equal(t, len(payloads), socket.Consumed())
	assert.True(t, socket.IsClosed())
}

func TestUDPListener_BindFailureIsFatal(t *testing.T) {
	factory := NewMockUDPSocketFactory(nil)
	factory.Err = errors.New("address already in use")

	l := NewUDPListener(UDPListenerConfig{
		Address:       ":21324",
		Handler:       &recordingHandler{},
		SocketFactory: factory,
	})

	err := l.Start(context.Background())
	require.ErrorIs(t, err, ErrBind)
	assert.ErrorContains(t, err, "address already in use")
}

func TestUDPListener_BindConflictOnRealSocket(t *testing.T) {
	held, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer held.Close()

	l := NewUDPListener(UDPListenerConfig{
		Address: held.LocalAddr().String(),
		Handler: &recordingHandler{},
	})
	err = l.Start(context.Background())
	assert.ErrorIs(t, err, ErrBind)
}

func TestUDPListener_BadAddress(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{
		Address:       "not-an-address:port",
		Handler:       &recordingHandler{},
		SocketFactory: NewMockUDPSocketFactory(NewMockUDPSocket()),
	})
	assert.ErrorIs(t, l.Start(context.Background()), ErrBind)
}

func TestUDPListener_RequiresHandler(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{Address: ":21324"})
	assert.ErrorContains(t, l.Start(context.Background()), "no packet handler")
}

func TestUDPListener_HandlerErrorStopsListener(t *testing.T) {
	boom := errors.New("serial device exploded")
	socket := NewMockUDPSocket(Datagrams([]byte{1, 2, 0, 0, 0, 0})...)
	l := NewUDPListener(UDPListenerConfig{
		Address:       ":21324",
		Handler:       &recordingHandler{err: boom},
		SocketFactory: NewMockUDPSocketFactory(socket),
	})

	err := l.Start(context.Background())
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "192.168.1.50")
}

func TestUDPListener_ReadErrorIsNotFatal(t *testing.T) {
	lines := captureLogs(t)

	socket := NewMockUDPSocket(Datagrams([]byte{2, 2, 9, 9, 9})...)
	socket.FailNextRead(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := &recordingHandler{onCall: func(int) { cancel() }}

	l := NewUDPListener(UDPListenerConfig{
		Address:       ":21324",
		Handler:       handler,
		SocketFactory: NewMockUDPSocketFactory(socket),
	})
	assert.ErrorIs(t, l.Start(ctx), context.Canceled)
	assert.Len(t, handler.received(), 1)
	assert.Contains(t, *lines, "UDP read error: connection refused")
}

func TestUDPListener_ClosedSocketEndsLoop(t *testing.T) {
	socket := NewMockUDPSocket()
	require.NoError(t, socket.Close())
	l := NewUDPListener(UDPListenerConfig{
		Address:       ":21324",
		Handler:       &recordingHandler{},
		SocketFactory: NewMockUDPSocketFactory(socket),
	})
	assert.ErrorIs(t, l.Start(context.Background()), net.ErrClosed)
}

func TestUDPListener_LogsStatsOnTick(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	stats := &countingStats{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewUDPListener(UDPListenerConfig{
		Address:       ":21324",
		LogInterval:   time.Minute,
		Stats:         stats,
		Handler:       &recordingHandler{},
		SocketFactory: NewMockUDPSocketFactory(NewMockUDPSocket()),
		Clock:         clock,
	})

	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return stats.logs.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
