// Package config handles configuration loading, validation, and management for swipebraille.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"swipebraille/internal/gesture"
	"swipebraille/internal/keyboard"
	"swipebraille/internal/logging"
	"swipebraille/internal/tracing"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete keyboard and service configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Layout describes the chord surface geometry.
	Layout LayoutConfig `toml:"layout" json:"layout" yaml:"layout"`

	// Repeat holds the delete auto-repeat timings.
	Repeat RepeatConfig `toml:"repeat" json:"repeat" yaml:"repeat"`

	// Mapping selects the pattern table.
	Mapping MappingConfig `toml:"mapping" json:"mapping" yaml:"mapping"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Server configuration for the decode service.
	Server ServerConfig `toml:"server" json:"server" yaml:"server"`

	// Tracing configures request spans for the decode service.
	Tracing TracingConfig `toml:"tracing" json:"tracing" yaml:"tracing"`
}

// LayoutConfig holds the zone grid geometry in points.
type LayoutConfig struct {
	OriginX float64 `toml:"origin_x" json:"origin_x" yaml:"origin_x"`
	OriginY float64 `toml:"origin_y" json:"origin_y" yaml:"origin_y"`

	// DotSize is the side length of one zone.
	DotSize float64 `toml:"dot_size" json:"dot_size" yaml:"dot_size"`

	// Spacing is the gap between zones.
	Spacing float64 `toml:"spacing" json:"spacing" yaml:"spacing"`
}

// RepeatConfig holds the delete auto-repeat timings.
type RepeatConfig struct {
	// InitialDelayMs is the hold time before the second delete.
	InitialDelayMs int `toml:"initial_delay_ms" json:"initial_delay_ms" yaml:"initial_delay_ms"`

	// IntervalMs is the time between deletes once repeating.
	IntervalMs int `toml:"interval_ms" json:"interval_ms" yaml:"interval_ms"`
}

// MappingConfig selects the pattern table.
type MappingConfig struct {
	// Path is a CSV mapping table. Empty selects the built-in table.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Watch reloads the table when the file changes.
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`

	// DebounceMs is how long the file must be quiet before a reload.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file" or "both").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of rotated log files in days.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress gzips rotated log files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// TracingConfig holds span tracing configuration.
type TracingConfig struct {
	// Enabled turns span recording on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Output is where spans go: "stdout", "stderr", or "file".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the span file when Output is "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// SampleRatio is the fraction of new traces recorded, 0 to 1.
	SampleRatio float64 `toml:"sample_ratio" json:"sample_ratio" yaml:"sample_ratio"`
}

// ServerConfig holds decode service configuration.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr" json:"addr" yaml:"addr"`

	// ReadTimeoutSec bounds reading a request.
	ReadTimeoutSec int `toml:"read_timeout_sec" json:"read_timeout_sec" yaml:"read_timeout_sec"`

	// WriteTimeoutSec bounds writing a response.
	WriteTimeoutSec int `toml:"write_timeout_sec" json:"write_timeout_sec" yaml:"write_timeout_sec"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Layout: LayoutConfig{
			DotSize: 45,
			Spacing: 15,
		},
		Repeat: RepeatConfig{
			InitialDelayMs: 500,
			IntervalMs:     100,
		},
		Mapping: MappingConfig{
			DebounceMs: 200,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8780",
			ReadTimeoutSec:  10,
			WriteTimeoutSec: 10,
			MaxBodyBytes:    1 << 20,
		},
		Tracing: TracingConfig{
			Output:      "stderr",
			SampleRatio: 1,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ConfigDir returns the configuration directory, honouring
// SWIPEBRAILLE_CONFIG_DIR.
func ConfigDir() string {
	if envDir := os.Getenv("SWIPEBRAILLE_CONFIG_DIR"); envDir != "" {
		return envDir
	}
	return PlatformConfigDir()
}

// Load reads configuration from path, applies environment overrides, and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with SWIPEBRAILLE_ and use underscores.
// Malformed numeric values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SWIPEBRAILLE_MAPPING_PATH"); v != "" {
		c.Mapping.Path = v
	}

	if v := os.Getenv("SWIPEBRAILLE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SWIPEBRAILLE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SWIPEBRAILLE_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}

	if v := os.Getenv("SWIPEBRAILLE_LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv("SWIPEBRAILLE_TRACING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Tracing.Enabled = b
		}
	}

	if n, ok := envInt("SWIPEBRAILLE_REPEAT_DELAY_MS"); ok {
		c.Repeat.InitialDelayMs = n
	}
	if n, ok := envInt("SWIPEBRAILLE_REPEAT_INTERVAL_MS"); ok {
		c.Repeat.IntervalMs = n
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// GestureLayout converts the layout section for gesture.NewLayout.
func (c *Config) GestureLayout() gesture.LayoutConfig {
	return gesture.LayoutConfig{
		OriginX: c.Layout.OriginX,
		OriginY: c.Layout.OriginY,
		DotSize: c.Layout.DotSize,
		Spacing: c.Layout.Spacing,
	}
}

// RepeatTimings converts the repeat section for the keyboard.
func (c *Config) RepeatTimings() keyboard.RepeatConfig {
	return keyboard.RepeatConfig{
		InitialDelay: time.Duration(c.Repeat.InitialDelayMs) * time.Millisecond,
		Interval:     time.Duration(c.Repeat.IntervalMs) * time.Millisecond,
	}
}

// MappingDebounce returns the table reload debounce.
func (c *Config) MappingDebounce() time.Duration {
	return time.Duration(c.Mapping.DebounceMs) * time.Millisecond
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	lc.Output = c.Logging.Output
	lc.FilePath = expandPath(c.Logging.FilePath)
	lc.MaxSize = int64(c.Logging.MaxSizeMB)
	lc.MaxBackups = c.Logging.MaxBackups
	lc.MaxAge = c.Logging.MaxAgeDays
	lc.Compress = c.Logging.Compress
	return lc, nil
}

// Tracer builds the tracer described by the tracing section. A disabled
// section gives a tracer that records nothing.
func (c *Config) Tracer(service string) (*tracing.Tracer, error) {
	if !c.Tracing.Enabled {
		return tracing.NewTracer(nil), nil
	}

	var exporter tracing.Exporter
	switch c.Tracing.Output {
	case "stdout":
		exporter = tracing.NewWriterExporter(os.Stdout)
	case "file":
		fe, err := tracing.NewFileExporter(expandPath(c.Tracing.FilePath))
		if err != nil {
			return nil, err
		}
		exporter = fe
	default:
		exporter = tracing.NewWriterExporter(os.Stderr)
	}

	return tracing.NewTracer(&tracing.Config{
		ServiceName: service,
		Exporter:    exporter,
		Sampler:     tracing.NewRatioSampler(c.Tracing.SampleRatio),
		Enabled:     true,
	}), nil
}

// ReadTimeout returns the server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSec) * time.Second
}

// MappingPath returns the mapping table path with ~ expanded, or "" for the
// built-in table.
func (c *Config) MappingPath() string {
	return expandPath(c.Mapping.Path)
}
