package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arctic.bridge/internal/config"
	"github.com/banshee-data/arctic.bridge/internal/seriallink"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, config.DefaultConfigPath, *configPath)
	assert.False(t, *consoleMode)
	assert.False(t, *disableSerial)
	assert.Empty(t, *pcapFile)
	assert.False(t, *pcapRealtime)
	assert.Empty(t, *udpListen)
	assert.Empty(t, *httpListen)
}

func TestLoadConfig_MissingDefaultPathFallsBack(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "bridge.json")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBridgeConfig(), cfg)

	_, err = loadConfig(missing, true)
	assert.Error(t, err, "an explicit --config must exist")
}

func TestLoadConfig_InvalidFileIsAlwaysAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"positions": 0}`), 0o644))

	_, err := loadConfig(path, false)
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.DefaultBridgeConfig()
	applyOverrides(cfg, "127.0.0.1:4048", "")
	assert.Equal(t, "127.0.0.1:4048", cfg.GetUDPListen())
	assert.Equal(t, ":80", cfg.GetHTTPListen())
	assert.Equal(t, 4048, cfg.UDPPort())

	applyOverrides(cfg, "", "off")
	assert.Equal(t, "off", cfg.GetHTTPListen())
}

func TestNewLink(t *testing.T) {
	cfg := config.DefaultBridgeConfig()

	link, err := newLink(cfg, true)
	require.NoError(t, err)
	assert.IsType(t, &seriallink.DisabledLink{}, link)
	assert.True(t, link.Connected())

	link, err = newLink(cfg, false)
	require.NoError(t, err)
	assert.IsType(t, &seriallink.Manager{}, link)
	assert.False(t, link.Connected(), "nothing is opened until Connect")
}
