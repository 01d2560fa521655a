package config

import (
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/banshee-data/arctic.bridge/internal/color"
	"github.com/banshee-data/arctic.bridge/internal/fsutil"
	"github.com/banshee-data/arctic.bridge/internal/seriallink"
	"github.com/banshee-data/arctic.bridge/internal/wled"
)

// DefaultConfigPath is the path to the canonical bridge defaults file.
const DefaultConfigPath = "config/bridge.defaults.json"

// maxPositions bounds the number of logical positions. The controller only
// has a handful of zones, and a WARLS index is a single byte.
const maxPositions = 64

// BridgeConfig is the on-disk bridge configuration. Every field is optional;
// the Get* accessors return the built-in default for unset fields, so a
// partial file only needs the keys it changes.
type BridgeConfig struct {
	// Network
	UDPListen      *string `json:"udp_listen,omitempty"`
	UDPRcvBuf      *int    `json:"udp_rcvbuf,omitempty"`
	HTTPListen     *string `json:"http_listen,omitempty"`
	ForwardAddress *string `json:"forward_address,omitempty"`
	StatsInterval  *string `json:"stats_interval,omitempty"` // duration string like "1m"

	// Serial device
	Device        *string `json:"device,omitempty"` // "VID:PID" in hex
	BaudRate      *int    `json:"baud_rate,omitempty"`
	StopBits      *int    `json:"stop_bits,omitempty"`
	ReadTimeout   *string `json:"read_timeout,omitempty"`
	RetryInterval *string `json:"retry_interval,omitempty"`

	// Color handling
	Positions     *int    `json:"positions,omitempty"`
	InputMapping  *string `json:"input_mapping,omitempty"`
	OutputMapping *string `json:"output_mapping,omitempty"`

	// Identity reported to WLED clients
	DeviceName *string `json:"device_name,omitempty"`

	Debug *bool `json:"debug,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// DefaultBridgeConfig returns a config with every field set to its default.
func DefaultBridgeConfig() *BridgeConfig {
	return &BridgeConfig{
		UDPListen:      ptrString(":21324"),
		UDPRcvBuf:      ptrInt(1 << 16),
		HTTPListen:     ptrString(":80"),
		ForwardAddress: ptrString(""),
		StatsInterval:  ptrString("1m"),
		Device:         ptrString("1A86:7523"),
		BaudRate:       ptrInt(250000),
		StopBits:       ptrInt(2),
		ReadTimeout:    ptrString("100ms"),
		RetryInterval:  ptrString("3s"),
		Positions:      ptrInt(color.DefaultPositions),
		InputMapping:   ptrString("RGB"),
		OutputMapping:  ptrString("RGB"),
		DeviceName:     ptrString("Arctic Bridge"),
		Debug:          ptrBool(false),
	}
}

// LoadBridgeConfig loads a BridgeConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadBridgeConfig(path string) (*BridgeConfig, error) {
	return LoadBridgeConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadBridgeConfigFS is LoadBridgeConfig reading from fsys.
func LoadBridgeConfigFS(fsys fsutil.FileSystem, path string) (*BridgeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 64 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &BridgeConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *BridgeConfig) Validate() error {
	for name, v := range map[string]*string{
		"stats_interval": c.StatsInterval,
		"read_timeout":   c.ReadTimeout,
		"retry_interval": c.RetryInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}

	if c.Device != nil && *c.Device != "" {
		if _, err := seriallink.ParseDeviceDescriptor(*c.Device); err != nil {
			return err
		}
	}

	if c.Positions != nil && (*c.Positions < 1 || *c.Positions > maxPositions) {
		return fmt.Errorf("positions must be between 1 and %d, got %d", maxPositions, *c.Positions)
	}

	if c.UDPRcvBuf != nil && *c.UDPRcvBuf < 0 {
		return fmt.Errorf("udp_rcvbuf must be non-negative, got %d", *c.UDPRcvBuf)
	}

	if _, err := c.Mapping(); err != nil {
		return err
	}

	if _, err := c.SerialPortOptions().Normalize(); err != nil {
		return err
	}

	return nil
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func durationOr(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}

// GetUDPListen returns the realtime listen address.
func (c *BridgeConfig) GetUDPListen() string { return stringOr(c.UDPListen, ":21324") }

// UDPPort returns the port of the realtime listen address, falling back to
// the WLED default when the address has no numeric port.
func (c *BridgeConfig) UDPPort() int {
	_, port, err := net.SplitHostPort(c.GetUDPListen())
	if err != nil {
		return wled.DefaultPort
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return wled.DefaultPort
	}
	return n
}

// GetUDPRcvBuf returns the requested socket receive buffer size.
func (c *BridgeConfig) GetUDPRcvBuf() int {
	if c.UDPRcvBuf == nil {
		return 1 << 16
	}
	return *c.UDPRcvBuf
}

// GetHTTPListen returns the WLED JSON API listen address.
func (c *BridgeConfig) GetHTTPListen() string { return stringOr(c.HTTPListen, ":80") }

// GetForwardAddress returns the address raw datagrams are copied to, or "".
func (c *BridgeConfig) GetForwardAddress() string { return stringOr(c.ForwardAddress, "") }

// GetStatsInterval returns how often packet statistics are logged.
func (c *BridgeConfig) GetStatsInterval() time.Duration {
	return durationOr(c.StatsInterval, time.Minute)
}

// GetDevice returns the USB descriptor of the controller.
func (c *BridgeConfig) GetDevice() seriallink.DeviceDescriptor {
	if c.Device == nil || *c.Device == "" {
		return seriallink.DefaultDevice
	}
	d, err := seriallink.ParseDeviceDescriptor(*c.Device)
	if err != nil {
		return seriallink.DefaultDevice
	}
	return d
}

// GetReadTimeout returns the serial read timeout.
func (c *BridgeConfig) GetReadTimeout() time.Duration {
	return durationOr(c.ReadTimeout, 100*time.Millisecond)
}

// GetRetryInterval returns the delay between device discovery attempts.
func (c *BridgeConfig) GetRetryInterval() time.Duration {
	return durationOr(c.RetryInterval, 3*time.Second)
}

// GetPositions returns the number of logical LED positions.
func (c *BridgeConfig) GetPositions() int {
	if c.Positions == nil || *c.Positions < 1 {
		return color.DefaultPositions
	}
	return *c.Positions
}

// GetDeviceName returns the name reported to WLED clients.
func (c *BridgeConfig) GetDeviceName() string { return stringOr(c.DeviceName, "Arctic Bridge") }

// GetDebug reports whether debug logging was requested.
func (c *BridgeConfig) GetDebug() bool {
	return c.Debug != nil && *c.Debug
}

// Mapping parses the input and output channel orders.
func (c *BridgeConfig) Mapping() (color.Mapping, error) {
	return color.NewMapping(stringOr(c.InputMapping, "RGB"), stringOr(c.OutputMapping, "RGB"))
}

// SerialPortOptions returns the port options for the serial link.
func (c *BridgeConfig) SerialPortOptions() seriallink.PortOptions {
	opts := seriallink.PortOptions{ReadTimeout: c.GetReadTimeout()}
	if c.BaudRate != nil {
		opts.BaudRate = *c.BaudRate
	}
	if c.StopBits != nil {
		opts.StopBits = *c.StopBits
	}
	return opts
}

// SerialConfig builds the immutable serial link configuration.
func (c *BridgeConfig) SerialConfig() seriallink.Config {
	return seriallink.Config{
		Device:    c.GetDevice(),
		Port:      c.SerialPortOptions(),
		Positions: c.GetPositions(),
	}
}
