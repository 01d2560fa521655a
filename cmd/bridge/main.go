// Command bridge receives WLED realtime UDP and drives an Arctic RGB
// controller over USB serial.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/arctic.bridge/internal/api"
	"github.com/banshee-data/arctic.bridge/internal/bridge"
	"github.com/banshee-data/arctic.bridge/internal/config"
	"github.com/banshee-data/arctic.bridge/internal/monitoring"
	"github.com/banshee-data/arctic.bridge/internal/network"
	"github.com/banshee-data/arctic.bridge/internal/seriallink"
	"github.com/banshee-data/arctic.bridge/internal/version"
)

var (
	configPath    = flag.String("config", config.DefaultConfigPath, "Path to bridge configuration JSON")
	consoleMode   = flag.Bool("console", false, "Print timestamped diagnostics, including per-frame detail")
	disableSerial = flag.Bool("disable-serial", false, "Run without a controller; frames are only logged")
	pcapFile      = flag.String("pcap", "", "Replay realtime datagrams from a PCAP file instead of listening; the controller is connected on demand")
	pcapRealtime  = flag.Bool("pcap-realtime", false, "Pace PCAP replay using capture timestamps")
	udpListen     = flag.String("udp-listen", "", "Override the realtime UDP listen address")
	httpListen    = flag.String("http-listen", "", "Override the WLED JSON API listen address (\"off\" disables it)")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *consoleMode {
		setupConsole()
	}

	cfg, err := loadConfig(*configPath, flagWasSet("config"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, *udpListen, *httpListen)
	if cfg.GetDebug() {
		monitoring.SetDebug(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("bridge stopped: %v", err)
	}
	monitoring.Logf("bridge stopped")
}

// setupConsole switches diagnostics to short timestamped lines on stdout.
func setupConsole() {
	monitoring.SetLogger(func(format string, v ...interface{}) {
		fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, v...))
	})
	monitoring.SetDebug(true)
	fmt.Println("=== ARCTIC RGB BRIDGE ===")
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// loadConfig reads path. A missing file is only an error when the path was
// given explicitly; otherwise the built-in defaults apply.
func loadConfig(path string, explicit bool) (*config.BridgeConfig, error) {
	cfg, err := config.LoadBridgeConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		monitoring.Logf("No config at %s, using defaults", path)
		return config.DefaultBridgeConfig(), nil
	}
	return nil, err
}

func applyOverrides(cfg *config.BridgeConfig, udp, httpAddr string) {
	if udp != "" {
		cfg.UDPListen = &udp
	}
	if httpAddr != "" {
		cfg.HTTPListen = &httpAddr
	}
}

// statusLink is what the bridge writes to and the debug routes read.
type statusLink interface {
	bridge.Link
	seriallink.StatusProvider
}

func newLink(cfg *config.BridgeConfig, disabled bool) (statusLink, error) {
	if disabled {
		monitoring.Logf("Serial output disabled")
		return seriallink.NewDisabledLink(cfg.GetPositions()), nil
	}
	return seriallink.NewRealManager(cfg.SerialConfig())
}

func run(ctx context.Context, cfg *config.BridgeConfig) error {
	mapping, err := cfg.Mapping()
	if err != nil {
		return err
	}

	monitoring.Logf("Starting %s", version.String())
	monitoring.Logf("Device %s, %d positions, mapping %s", cfg.GetDevice(), cfg.GetPositions(), mapping)

	link, err := newLink(cfg, *disableSerial)
	if err != nil {
		return fmt.Errorf("failed to create serial link: %w", err)
	}
	defer link.Close()

	stats := network.NewPacketStats()
	b := bridge.New(bridge.Config{
		Positions:     cfg.GetPositions(),
		Mapping:       mapping,
		RetryInterval: cfg.GetRetryInterval(),
	}, link, bridge.WithStats(stats))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if addr := cfg.GetHTTPListen(); addr != "off" {
		server := api.NewServer(api.DeviceInfo{
			Name:     cfg.GetDeviceName(),
			UDPPort:  cfg.UDPPort(),
			LEDCount: cfg.GetPositions(),
		})
		mux := server.ServeMux()
		server.AttachAdminRoutes(mux, api.DebugSources{Link: link, Stats: stats, Bridge: b})

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(ctx, addr, api.LoggingMiddleware(mux))
		}()
	}

	src, closeSrc, err := newSource(cfg, b, stats)
	if err != nil {
		return err
	}
	defer closeSrc()

	if *pcapFile != "" {
		err = b.Drive(ctx, src)
	} else {
		if !*disableSerial {
			monitoring.Logf("Searching for controller %s...", cfg.GetDevice())
		}
		err = b.Run(ctx, src)
	}

	cancel()
	wg.Wait()
	return err
}

// newSource returns the PCAP replay when --pcap is set, otherwise the UDP
// listener with optional forwarding.
func newSource(cfg *config.BridgeConfig, b *bridge.Bridge, stats *network.PacketStats) (bridge.Source, func(), error) {
	if *pcapFile != "" {
		path := *pcapFile
		return bridge.SourceFunc(func(ctx context.Context) error {
			monitoring.Logf("Replaying %s (udp port %d)", path, cfg.UDPPort())
			return network.ReadPCAPFile(ctx, path, network.ReplayConfig{
				UDPPort:  cfg.UDPPort(),
				Handler:  b,
				Stats:    stats,
				Realtime: *pcapRealtime,
			})
		}), func() {}, nil
	}

	var forwarder *network.PacketForwarder
	if addr := cfg.GetForwardAddress(); addr != "" {
		var err error
		forwarder, err = network.NewPacketForwarder(addr, stats, cfg.GetStatsInterval())
		if err != nil {
			return nil, nil, err
		}
	}

	listener := network.NewUDPListener(network.UDPListenerConfig{
		Address:     cfg.GetUDPListen(),
		RcvBuf:      cfg.GetUDPRcvBuf(),
		LogInterval: cfg.GetStatsInterval(),
		Stats:       stats,
		Forwarder:   forwarder,
		Handler:     b,
	})
	closeFn := func() {
		if forwarder != nil {
			forwarder.Close()
		}
	}
	return listener, closeFn, nil
}

// serveHTTP runs the JSON API until ctx is cancelled. A failure to listen is
// logged but does not stop the bridge; lighting still works without
// discovery.
func serveHTTP(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("HTTP server listening on %s", addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Logf("HTTP server error: %v", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
	}
}
