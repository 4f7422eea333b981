package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rack.yaml")
	data := []byte(`
engine:
  sample_rate: 48000
  block_size: 256
  sample_path: ./loop.wav
device:
  kind: "null"
bus:
  embedded: false
  servers: ["nats://bus:4222"]
telemetry:
  log_level: debug
  prometheus_bind: ""
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 48000, cfg.Engine.SampleRate)
	require.Equal(t, 256, cfg.Engine.BlockSize)
	require.Equal(t, 2048, cfg.Engine.TapSize)
	require.Equal(t, "./loop.wav", cfg.Engine.SamplePath)
	require.Equal(t, "null", cfg.Device.Kind)
	require.False(t, cfg.Bus.Embedded)
	require.Equal(t, []string{"nats://bus:4222"}, cfg.Bus.Servers)
	require.Empty(t, cfg.Telemetry.PrometheusBind)

	lvl, err := ParseLogLevel(cfg.Telemetry.LogLevel)
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  rate: 1\n"), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "failed to parse config file")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RACK_ENGINE_SAMPLE_RATE", "96000")
	t.Setenv("RACK_ENGINE_BLOCK_SIZE", "128")
	t.Setenv("RACK_ENGINE_TAP_SIZE", "4096")
	t.Setenv("RACK_ENGINE_DESCRIPTOR", "units/crunch.yaml")
	t.Setenv("RACK_DEVICE_KIND", "null")
	t.Setenv("RACK_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("RACK_BUS_EMBEDDED", "false")
	t.Setenv("RACK_BUS_SUBJECT_PREFIX", "studio")
	t.Setenv("RACK_TELEMETRY_LOG_LEVEL", "warn")
	t.Setenv("RACK_TELEMETRY_PROMETHEUS_BIND", "")
	t.Setenv("RACK_BUS_PORT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 96000, cfg.Engine.SampleRate)
	require.Equal(t, 128, cfg.Engine.BlockSize)
	require.Equal(t, 4096, cfg.Engine.TapSize)
	require.Equal(t, "units/crunch.yaml", cfg.Engine.Descriptor)
	require.Equal(t, "null", cfg.Device.Kind)
	require.Equal(t, []string{"nats://one:4222", "nats://two:4222"}, cfg.Bus.Servers)
	require.False(t, cfg.Bus.Embedded)
	require.Equal(t, "studio", cfg.Bus.SubjectPrefix)
	require.Equal(t, 4222, cfg.Bus.Port)
	require.Equal(t, "warn", cfg.Telemetry.LogLevel)
	require.Empty(t, cfg.Telemetry.PrometheusBind)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"sample rate", func(c *Config) { c.Engine.SampleRate = 1000 }, "engine.sample_rate"},
		{"block size", func(c *Config) { c.Engine.BlockSize = 0 }, "engine.block_size"},
		{"tap size", func(c *Config) { c.Engine.TapSize = 3000 }, "engine.tap_size"},
		{"device kind", func(c *Config) { c.Device.Kind = "alsa" }, "device.kind"},
		{"channels", func(c *Config) { c.Device.Channels = 6 }, "device.channels"},
		{"bus port", func(c *Config) { c.Bus.Port = 0 }, "bus.port"},
		{"bus servers", func(c *Config) { c.Bus.Embedded = false; c.Bus.Servers = nil }, "bus.servers"},
		{"subject prefix", func(c *Config) { c.Bus.SubjectPrefix = "a.*" }, "bus.subject_prefix"},
		{"log level", func(c *Config) { c.Telemetry.LogLevel = "loud" }, "telemetry.log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorContains(t, validate(cfg), tt.want)
		})
	}

	cfg := Default()
	cfg.Bus.Enabled = false
	cfg.Bus.Port = 0
	require.NoError(t, validate(cfg))
}
