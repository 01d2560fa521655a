// Package bridge is the translation loop: each realtime datagram is decoded
// into the color buffer, reduced to one effective color, mapped into the
// controller's wire order and written to the serial link.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/arctic.bridge/internal/color"
	"github.com/banshee-data/arctic.bridge/internal/monitoring"
	"github.com/banshee-data/arctic.bridge/internal/timeutil"
	"github.com/banshee-data/arctic.bridge/internal/wled"
)

// DefaultRetryInterval is the delay between connection attempts while the
// controller is missing.
const DefaultRetryInterval = 3 * time.Second

// Link is the serial side of the bridge. *seriallink.Manager and
// *seriallink.DisabledLink implement it. Any WriteFrame error means the link
// is lost.
type Link interface {
	Connect() error
	Connected() bool
	WriteFrame(c color.Triple) error
	Close() error
}

// Stats receives per-iteration outcomes. *network.PacketStats implements it.
type Stats interface {
	AddInvalid()
	AddFrame()
}

// Source delivers datagrams to the bridge until ctx is cancelled. The UDP
// listener and PCAP replay both qualify.
type Source interface {
	Start(ctx context.Context) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) error

// Start calls f(ctx).
func (f SourceFunc) Start(ctx context.Context) error { return f(ctx) }

// Config is the immutable loop configuration.
type Config struct {
	Positions     int
	Mapping       color.Mapping
	RetryInterval time.Duration
}

// Option customises a Bridge.
type Option func(*Bridge)

// WithClock replaces the clock used for reconnect pacing.
func WithClock(c timeutil.Clock) Option {
	return func(b *Bridge) { b.clock = c }
}

// WithStats reports invalid datagrams and written frames to s.
func WithStats(s Stats) Option {
	return func(b *Bridge) { b.stats = s }
}

// Bridge owns the color buffer. HandlePacket must only be called from one
// goroutine; Status may be called from any.
type Bridge struct {
	cfg   Config
	link  Link
	clock timeutil.Clock
	stats Stats
	buf   *color.Buffer

	lastAttempt time.Time

	mu   sync.Mutex
	last Status
}

// Status describes the most recent frame.
type Status struct {
	Mapping   string       `json:"mapping"`
	Positions int          `json:"positions"`
	Format    string       `json:"last_format,omitempty"`
	Effective color.Triple `json:"effective"`
	Wire      color.Triple `json:"wire"`
	Written   bool         `json:"written"`
	UpdatedAt time.Time    `json:"updated_at,omitzero"`
}

// New returns a Bridge with a zeroed buffer of cfg.Positions positions.
func New(cfg Config, link Link, opts ...Option) *Bridge {
	if cfg.Positions < 1 {
		cfg.Positions = color.DefaultPositions
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	b := &Bridge{
		cfg:   cfg,
		link:  link,
		clock: timeutil.RealClock{},
		stats: noopStats{},
		buf:   color.NewBuffer(cfg.Positions),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.last = Status{Mapping: cfg.Mapping.String(), Positions: cfg.Positions}
	return b
}

type noopStats struct{}

func (noopStats) AddInvalid() {}
func (noopStats) AddFrame()   {}

// WaitForDevice blocks until the link connects, retrying every retry
// interval. It returns ctx.Err() if cancelled first.
func (b *Bridge) WaitForDevice(ctx context.Context) error {
	for {
		b.lastAttempt = b.clock.Now()
		err := b.link.Connect()
		if err == nil {
			return nil
		}
		monitoring.Logf("Waiting for serial device: %v (retrying in %v)", err, b.cfg.RetryInterval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.clock.After(b.cfg.RetryInterval):
		}
	}
}

// Run waits for the device and then drives src until it stops. Cancellation
// of ctx is a clean shutdown and returns nil.
func (b *Bridge) Run(ctx context.Context, src Source) error {
	if err := b.WaitForDevice(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return b.Drive(ctx, src)
}

// Drive runs src without waiting for the device first. The link is
// connected lazily by the first datagram and then paced like any reconnect,
// so a replay runs to completion whether or not a controller is attached.
func (b *Bridge) Drive(ctx context.Context, src Source) error {
	err := src.Start(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// HandlePacket runs one iteration of the loop. Invalid datagrams and link
// failures are absorbed; only decoder faults other than an invalid datagram
// are returned.
func (b *Bridge) HandlePacket(packet []byte) error {
	res, err := wled.Decode(packet, b.buf)
	if err != nil {
		if errors.Is(err, wled.ErrInvalidPacket) {
			b.stats.AddInvalid()
			monitoring.Debugf("Ignoring datagram: %v", err)
			return nil
		}
		return err
	}

	effective := b.buf.Effective()
	wire := b.cfg.Mapping.Wire(effective)

	justConnected := false
	if !b.link.Connected() {
		if !b.reconnectIfDue() {
			b.record(res.Format, effective, wire, false)
			return nil
		}
		justConnected = true
	}

	if err := b.link.WriteFrame(wire); err != nil {
		b.record(res.Format, effective, wire, false)
		b.handleWriteError(err, justConnected)
		return nil
	}

	b.stats.AddFrame()
	b.record(res.Format, effective, wire, true)
	monitoring.Debugf("%s: %d positions, effective %s, wire %s", res.Format, res.Positions, effective, wire)
	return nil
}

// handleWriteError treats every write failure as a lost link: the port is
// closed and, unless this iteration already spent its connection attempt,
// one immediate reconnection is made.
func (b *Bridge) handleWriteError(err error, justConnected bool) {
	monitoring.Logf("Serial write failed: %v", err)
	_ = b.link.Close()
	if justConnected {
		return
	}
	b.reconnect()
}

// reconnectIfDue attempts a connection if the retry interval has elapsed
// since the previous attempt.
func (b *Bridge) reconnectIfDue() bool {
	if !b.lastAttempt.IsZero() && b.clock.Since(b.lastAttempt) < b.cfg.RetryInterval {
		return false
	}
	return b.reconnect()
}

func (b *Bridge) reconnect() bool {
	b.lastAttempt = b.clock.Now()
	if err := b.link.Connect(); err != nil {
		monitoring.Logf("Serial reconnect failed: %v", err)
		return false
	}
	return true
}

func (b *Bridge) record(f wled.Format, effective, wire color.Triple, written bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last.Format = f.String()
	b.last.Effective = effective
	b.last.Wire = wire
	b.last.Written = written
	b.last.UpdatedAt = b.clock.Now()
}

// Status returns a snapshot of the last iteration.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
