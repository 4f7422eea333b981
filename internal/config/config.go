// Package config loads rackd settings from YAML with RACK_* environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	BlockSize  int    `yaml:"block_size"`
	TapSize    int    `yaml:"tap_size"`
	SamplePath string `yaml:"sample_path"`
	// Descriptor is a unit descriptor file connected at startup.
	Descriptor string `yaml:"descriptor"`
}

type DeviceConfig struct {
	Kind     string `yaml:"kind"` // oto, null
	Channels int    `yaml:"channels"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Token          string   `yaml:"token"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type TelemetryConfig struct {
	LogLevel string `yaml:"log_level"`
	// PrometheusBind is the metrics listen address; empty disables it.
	PrometheusBind string `yaml:"prometheus_bind"`
}

type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Device    DeviceConfig    `yaml:"device"`
	Bus       BusConfig       `yaml:"bus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		Engine: EngineConfig{
			SampleRate: 44100,
			BlockSize:  512,
			TapSize:    2048,
		},
		Device: DeviceConfig{
			Kind:     "oto",
			Channels: 2,
		},
		Bus: BusConfig{
			Enabled:        true,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			SubjectPrefix:  "rack",
			ConnectTimeout: 2000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			PrometheusBind: ":9464",
		},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideInt(&cfg.Engine.SampleRate, "RACK_ENGINE_SAMPLE_RATE")
	overrideInt(&cfg.Engine.BlockSize, "RACK_ENGINE_BLOCK_SIZE")
	overrideInt(&cfg.Engine.TapSize, "RACK_ENGINE_TAP_SIZE")
	overrideString(&cfg.Engine.SamplePath, "RACK_ENGINE_SAMPLE_PATH")
	overrideString(&cfg.Engine.Descriptor, "RACK_ENGINE_DESCRIPTOR")
	overrideString(&cfg.Device.Kind, "RACK_DEVICE_KIND")
	overrideInt(&cfg.Device.Channels, "RACK_DEVICE_CHANNELS")
	overrideBool(&cfg.Bus.Enabled, "RACK_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "RACK_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "RACK_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "RACK_BUS_SERVERS")
	overrideString(&cfg.Bus.Token, "RACK_BUS_TOKEN")
	overrideString(&cfg.Bus.SubjectPrefix, "RACK_BUS_SUBJECT_PREFIX")
	overrideInt(&cfg.Bus.ConnectTimeout, "RACK_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Telemetry.LogLevel, "RACK_TELEMETRY_LOG_LEVEL")
	overrideStringAllowEmpty(&cfg.Telemetry.PrometheusBind, "RACK_TELEMETRY_PROMETHEUS_BIND")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideStringAllowEmpty(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Engine.SampleRate < 8000 || cfg.Engine.SampleRate > 192000 {
		return errors.New("engine.sample_rate must be between 8000 and 192000")
	}
	if cfg.Engine.BlockSize <= 0 || cfg.Engine.BlockSize > 4096 {
		return errors.New("engine.block_size must be between 1 and 4096")
	}
	if n := cfg.Engine.TapSize; n < 256 || n > 16384 || n&(n-1) != 0 {
		return errors.New("engine.tap_size must be a power of two between 256 and 16384")
	}
	switch cfg.Device.Kind {
	case "oto", "null":
	default:
		return errors.New("device.kind must be one of oto|null")
	}
	if cfg.Device.Channels != 1 && cfg.Device.Channels != 2 {
		return errors.New("device.channels must be 1 or 2")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
		if strings.TrimSpace(cfg.Bus.SubjectPrefix) == "" || strings.ContainsAny(cfg.Bus.SubjectPrefix, " *>") {
			return errors.New("bus.subject_prefix must be a literal subject token")
		}
		if cfg.Bus.ConnectTimeout <= 0 {
			return errors.New("bus.connect_timeout_ms must be positive")
		}
	}
	if _, err := ParseLogLevel(cfg.Telemetry.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("telemetry.log_level: %w", err)
	}
	return lvl, nil
}
