package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/arctic.bridge/internal/fsutil"
	"github.com/banshee-data/arctic.bridge/internal/monitoring"
	"github.com/banshee-data/arctic.bridge/internal/timeutil"
)

// ReplayConfig controls PCAP replay.
type ReplayConfig struct {
	// UDPPort selects datagrams by destination port. Zero accepts any port.
	UDPPort int
	Handler PacketHandler
	Stats   PacketStatsInterface
	// Realtime paces delivery using the capture timestamps.
	Realtime bool
	Clock    timeutil.Clock
	// FS is where ReadPCAPFile looks for the capture. Nil means the OS.
	FS fsutil.FileSystem
}

// ReadPCAPFile replays the realtime datagrams captured in path.
func ReadPCAPFile(ctx context.Context, path string, cfg ReplayConfig) error {
	fsys := cfg.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	f, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()
	return ReplayPCAP(ctx, f, cfg)
}

// ReplayPCAP reads a classic libpcap stream and feeds each matching UDP
// payload to cfg.Handler, exactly as the live listener would. It returns nil
// at end of file and stops early on cancellation or a handler error.
func ReplayPCAP(ctx context.Context, r io.Reader, cfg ReplayConfig) error {
	if cfg.Handler == nil {
		return errors.New("network: PCAP replay has no packet handler")
	}
	stats := cfg.Stats
	if stats == nil {
		stats = noopStats{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to read PCAP header: %w", err)
	}
	linkType := reader.LinkType()

	var (
		packetCount int
		lastCapture time.Time
		startTime   = clock.Now()
	)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("PCAP replay stopping due to context cancellation (delivered %d packets)", packetCount)
			return ctx.Err()
		default:
		}

		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			monitoring.Logf("PCAP replay complete: %d packets delivered in %v", packetCount, clock.Since(startTime))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read PCAP record %d: %w", packetCount+1, err)
		}

		payload, ok := udpPayload(data, linkType, cfg.UDPPort)
		if !ok {
			continue
		}

		if cfg.Realtime && !lastCapture.IsZero() {
			if gap := ci.Timestamp.Sub(lastCapture); gap > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-clock.After(gap):
				}
			}
		}
		lastCapture = ci.Timestamp

		packetCount++
		stats.AddPacket(len(payload))
		if err := cfg.Handler.HandlePacket(payload); err != nil {
			return fmt.Errorf("handle PCAP packet %d: %w", packetCount, err)
		}
	}
}

// udpPayload decodes one captured frame and returns its UDP payload when the
// destination port matches.
func udpPayload(data []byte, linkType layers.LinkType, port int) ([]byte, bool) {
	packet := gopacket.NewPacket(data, linkType, gopacket.NoCopy)
	udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		return nil, false
	}
	if port != 0 && int(udp.DstPort) != port {
		return nil, false
	}
	if len(udp.Payload) == 0 {
		return nil, false
	}
	return udp.Payload, true
}
