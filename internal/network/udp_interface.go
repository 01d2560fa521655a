package network

import (
	"net"
	"sync"
	"time"

	"github.com/banshee-data/arctic.bridge/internal/wled"
)

// UDPSocket is the part of *net.UDPConn the listener reads through.
type UDPSocket interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// UDPSocketFactory binds the listener's socket.
type UDPSocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// OSSockets binds real sockets with net.ListenUDP.
type OSSockets struct{}

func (OSSockets) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// MockUDPPacket is one queued datagram.
type MockUDPPacket struct {
	Data []byte
	Addr *net.UDPAddr
}

// Datagrams queues payloads as if sent by a WLED controller at
// 192.168.1.50:50000.
func Datagrams(payloads ...[]byte) []MockUDPPacket {
	from := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 50), Port: 50000}
	out := make([]MockUDPPacket, len(payloads))
	for i, p := range payloads {
		out[i] = MockUDPPacket{Data: p, Addr: from}
	}
	return out
}

// MockUDPSocket replays queued datagrams. Once the queue is drained every
// read behaves like an expired deadline, so the listener keeps polling its
// context.
type MockUDPSocket struct {
	mu       sync.Mutex
	queue    []MockUDPPacket
	next     int
	rcvBuf   int
	readErr  error
	closed   bool
	boundDst *net.UDPAddr
}

// NewMockUDPSocket returns a socket bound to the WLED realtime port that
// yields packets in order.
func NewMockUDPSocket(packets ...MockUDPPacket) *MockUDPSocket {
	return &MockUDPSocket{
		queue:    packets,
		boundDst: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: wled.DefaultPort},
	}
}

func (m *MockUDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return 0, nil, net.ErrClosed
	case m.readErr != nil:
		err := m.readErr
		m.readErr = nil
		return 0, nil, err
	case m.next >= len(m.queue):
		m.mu.Unlock()
		time.Sleep(time.Millisecond)
		m.mu.Lock()
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: deadlineExceeded{}}
	}
	pkt := m.queue[m.next]
	m.next++
	return copy(b, pkt.Data), pkt.Addr, nil
}

func (m *MockUDPSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rcvBuf = bytes
	return nil
}

func (m *MockUDPSocket) SetReadDeadline(time.Time) error { return nil }

func (m *MockUDPSocket) LocalAddr() net.Addr { return m.boundDst }

func (m *MockUDPSocket) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FailNextRead makes the next read return err before any queued datagram.
func (m *MockUDPSocket) FailNextRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// RcvBuf is the size last passed to SetReadBuffer.
func (m *MockUDPSocket) RcvBuf() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rcvBuf
}

// Consumed returns how many queued datagrams have been read.
func (m *MockUDPSocket) Consumed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

// IsClosed reports whether Close was called.
func (m *MockUDPSocket) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockUDPSocketFactory hands out one MockUDPSocket and records where the
// listener asked to bind.
type MockUDPSocketFactory struct {
	Socket *MockUDPSocket
	Err    error
	Binds  []*net.UDPAddr
}

func NewMockUDPSocketFactory(socket *MockUDPSocket) *MockUDPSocketFactory {
	return &MockUDPSocketFactory{Socket: socket}
}

func (f *MockUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.Binds = append(f.Binds, laddr)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Socket, nil
}

type deadlineExceeded struct{}

func (deadlineExceeded) Error() string   { return "i/o timeout" }
func (deadlineExceeded) Timeout() bool   { return true }
func (deadlineExceeded) Temporary() bool { return true }
