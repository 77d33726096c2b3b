// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/seqgap/internal/core"
	"firestige.xyz/seqgap/internal/payload"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `seqgap:` root key in YAML.
type GlobalConfig struct {
	Capture CaptureConfig `mapstructure:"capture"`
	Report  ReportConfig  `mapstructure:"report"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// ─── Capture ───

// CaptureConfig describes the stream to capture and how.
type CaptureConfig struct {
	Device        string `mapstructure:"device"`
	Backend       string `mapstructure:"backend"` // pcap | afpacket
	Port          int    `mapstructure:"port"`    // UDP destination port
	Filter        string `mapstructure:"filter"`  // overrides the port filter when set
	TargetPackets int    `mapstructure:"target_packets"`
	BufferSize    int    `mapstructure:"buffer_size"` // kernel capture buffer, bytes
	SnapLen       int    `mapstructure:"snap_len"`
	Promisc       bool   `mapstructure:"promisc"`
	PollTimeout   string `mapstructure:"poll_timeout"` // e.g. "1ms"
	HeaderSize    int    `mapstructure:"header_size"`  // bytes before the payload
	DecodeSamples bool   `mapstructure:"decode_samples"`
	SpectrumEvery int    `mapstructure:"spectrum_every"`
	ProgressEvery int    `mapstructure:"progress_every"`

	pollTimeout time.Duration
}

// PollTimeoutDuration returns the parsed poll timeout.
func (c CaptureConfig) PollTimeoutDuration() time.Duration {
	return c.pollTimeout
}

// ─── Report ───

// ReportConfig controls how results are emitted.
type ReportConfig struct {
	Format string            `mapstructure:"format"` // text | json | yaml
	Chart  string            `mapstructure:"chart"`  // HTML chart path, empty = off
	Kafka  ReportKafkaConfig `mapstructure:"kafka"`
}

// ReportKafkaConfig publishes each report to a Kafka topic.
type ReportKafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	Compression string   `mapstructure:"compression"`
	Timeout     string   `mapstructure:"timeout"`

	timeout time.Duration
}

// TimeoutDuration returns the parsed publish timeout.
func (c ReportKafkaConfig) TimeoutDuration() time.Duration {
	return c.timeout
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains additional log destinations; stdout is always on.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `seqgap: ...`.
type configRoot struct {
	Seqgap GlobalConfig `mapstructure:"seqgap"`
}

// Load loads configuration from path. An empty path yields the built-in
// defaults plus environment overrides (SEQGAP_CAPTURE_DEVICE, SEQGAP_LOG_LEVEL, ...).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `seqgap.` key prefix maps to `SEQGAP_` through the replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Seqgap

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults fills in the stock spectrometer link settings.
func setDefaults(v *viper.Viper) {
	// Capture defaults
	v.SetDefault("seqgap.capture.device", "enp129s0f0")
	v.SetDefault("seqgap.capture.backend", "pcap")
	v.SetDefault("seqgap.capture.port", 60000)
	v.SetDefault("seqgap.capture.filter", "")
	v.SetDefault("seqgap.capture.target_packets", 1_000_000)
	v.SetDefault("seqgap.capture.buffer_size", 33_554_432) // ~20 ms of stream
	v.SetDefault("seqgap.capture.snap_len", 9216)
	v.SetDefault("seqgap.capture.promisc", false)
	v.SetDefault("seqgap.capture.poll_timeout", "1ms")
	v.SetDefault("seqgap.capture.header_size", payload.HeaderSize)
	v.SetDefault("seqgap.capture.decode_samples", false)
	v.SetDefault("seqgap.capture.spectrum_every", 10000)
	v.SetDefault("seqgap.capture.progress_every", 100_000)

	// Report defaults
	v.SetDefault("seqgap.report.format", "text")
	v.SetDefault("seqgap.report.chart", "")
	v.SetDefault("seqgap.report.kafka.enabled", false)
	v.SetDefault("seqgap.report.kafka.brokers", []string{})
	v.SetDefault("seqgap.report.kafka.topic", "seqgap-reports")
	v.SetDefault("seqgap.report.kafka.compression", "snappy")
	v.SetDefault("seqgap.report.kafka.timeout", "10s")

	// Metrics defaults
	v.SetDefault("seqgap.metrics.enabled", false)
	v.SetDefault("seqgap.metrics.listen", ":9091")
	v.SetDefault("seqgap.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("seqgap.log.level", "info")
	v.SetDefault("seqgap.log.format", "text")
	v.SetDefault("seqgap.log.outputs.file.enabled", false)
	v.SetDefault("seqgap.log.outputs.file.path", "/var/log/seqgap/seqgap.log")
	v.SetDefault("seqgap.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("seqgap.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("seqgap.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("seqgap.log.outputs.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and parses durations.
// It is called again after command-line flags override loaded values.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}

	// ── Capture ──
	c := &cfg.Capture
	if c.Device == "" {
		return fmt.Errorf("%w: capture.device is required", core.ErrConfigInvalid)
	}
	if c.Backend != "pcap" && c.Backend != "afpacket" {
		return fmt.Errorf("%w: invalid capture.backend: %s (must be pcap/afpacket)", core.ErrConfigInvalid, c.Backend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: capture.port out of range: %d", core.ErrConfigInvalid, c.Port)
	}
	if c.TargetPackets <= 0 {
		return fmt.Errorf("%w: capture.target_packets must be positive, got %d", core.ErrConfigInvalid, c.TargetPackets)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("%w: capture.buffer_size must not be negative", core.ErrConfigInvalid)
	}
	if c.HeaderSize < 0 {
		return fmt.Errorf("%w: capture.header_size must not be negative", core.ErrConfigInvalid)
	}
	if want := c.HeaderSize + payload.PayloadSize; c.SnapLen < want {
		return fmt.Errorf("%w: capture.snap_len %d truncates %d-byte packets", core.ErrConfigInvalid, c.SnapLen, want)
	}
	d, err := time.ParseDuration(c.PollTimeout)
	if err != nil || d <= 0 {
		return fmt.Errorf("%w: invalid capture.poll_timeout: %q", core.ErrConfigInvalid, c.PollTimeout)
	}
	c.pollTimeout = d

	// ── Report ──
	switch cfg.Report.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: invalid report.format: %s (must be text/json/yaml)", core.ErrConfigInvalid, cfg.Report.Format)
	}
	if k := &cfg.Report.Kafka; k.Enabled {
		if len(k.Brokers) == 0 {
			return fmt.Errorf("%w: report.kafka.brokers is required when report.kafka.enabled=true", core.ErrConfigInvalid)
		}
		if k.Topic == "" {
			return fmt.Errorf("%w: report.kafka.topic is required when report.kafka.enabled=true", core.ErrConfigInvalid)
		}
		d, err := time.ParseDuration(k.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: invalid report.kafka.timeout: %q", core.ErrConfigInvalid, k.Timeout)
		}
		k.timeout = d
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}

	return nil
}
