package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"firestige.xyz/seqgap/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seqgap.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Capture.Device != "enp129s0f0" {
		t.Errorf("Expected device enp129s0f0, got %s", cfg.Capture.Device)
	}
	if cfg.Capture.Port != 60000 {
		t.Errorf("Expected port 60000, got %d", cfg.Capture.Port)
	}
	if cfg.Capture.TargetPackets != 1_000_000 {
		t.Errorf("Expected target 1000000, got %d", cfg.Capture.TargetPackets)
	}
	if cfg.Capture.BufferSize != 33_554_432 {
		t.Errorf("Expected buffer size 33554432, got %d", cfg.Capture.BufferSize)
	}
	if cfg.Capture.HeaderSize != 42 {
		t.Errorf("Expected header size 42, got %d", cfg.Capture.HeaderSize)
	}
	if cfg.Capture.PollTimeoutDuration() != time.Millisecond {
		t.Errorf("Expected poll timeout 1ms, got %v", cfg.Capture.PollTimeoutDuration())
	}
	if cfg.Report.Format != "text" {
		t.Errorf("Expected report format text, got %s", cfg.Report.Format)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
seqgap:
  capture:
    device: "eth1"
    backend: "afpacket"
    port: 4660
    target_packets: 5000
    poll_timeout: "2ms"
    decode_samples: true
  report:
    format: "json"
    chart: "/tmp/gaps.html"
    kafka:
      enabled: true
      brokers:
        - "kafka-1:9092"
        - "kafka-2:9092"
      topic: "spectrometer-gaps"
      timeout: "3s"
  metrics:
    enabled: true
    listen: "127.0.0.1:9100"
  log:
    level: "debug"
    format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Capture.Device != "eth1" || cfg.Capture.Backend != "afpacket" {
		t.Errorf("Unexpected capture device/backend: %s/%s", cfg.Capture.Device, cfg.Capture.Backend)
	}
	if cfg.Capture.Port != 4660 || cfg.Capture.TargetPackets != 5000 {
		t.Errorf("Unexpected port/target: %d/%d", cfg.Capture.Port, cfg.Capture.TargetPackets)
	}
	if !cfg.Capture.DecodeSamples {
		t.Error("Expected decode_samples true")
	}
	if cfg.Capture.PollTimeoutDuration() != 2*time.Millisecond {
		t.Errorf("Expected poll timeout 2ms, got %v", cfg.Capture.PollTimeoutDuration())
	}
	// Unset keys keep their defaults.
	if cfg.Capture.BufferSize != 33_554_432 {
		t.Errorf("Expected default buffer size, got %d", cfg.Capture.BufferSize)
	}
	if len(cfg.Report.Kafka.Brokers) != 2 || cfg.Report.Kafka.Topic != "spectrometer-gaps" {
		t.Errorf("Unexpected kafka config: %+v", cfg.Report.Kafka)
	}
	if cfg.Report.Kafka.TimeoutDuration() != 3*time.Second {
		t.Errorf("Expected kafka timeout 3s, got %v", cfg.Report.Kafka.TimeoutDuration())
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("Expected error for missing config file, got nil")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SEQGAP_CAPTURE_DEVICE", "ens5f1")
	t.Setenv("SEQGAP_CAPTURE_TARGET_PACKETS", "42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Capture.Device != "ens5f1" {
		t.Errorf("Expected env device ens5f1, got %s", cfg.Capture.Device)
	}
	if cfg.Capture.TargetPackets != 42 {
		t.Errorf("Expected env target 42, got %d", cfg.Capture.TargetPackets)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GlobalConfig)
	}{
		{"bad log level", func(c *GlobalConfig) { c.Log.Level = "trace" }},
		{"bad log format", func(c *GlobalConfig) { c.Log.Format = "xml" }},
		{"empty device", func(c *GlobalConfig) { c.Capture.Device = "" }},
		{"bad backend", func(c *GlobalConfig) { c.Capture.Backend = "dpdk" }},
		{"port zero", func(c *GlobalConfig) { c.Capture.Port = 0 }},
		{"port too big", func(c *GlobalConfig) { c.Capture.Port = 70000 }},
		{"zero target", func(c *GlobalConfig) { c.Capture.TargetPackets = 0 }},
		{"negative buffer", func(c *GlobalConfig) { c.Capture.BufferSize = -1 }},
		{"negative header", func(c *GlobalConfig) { c.Capture.HeaderSize = -2 }},
		{"short snaplen", func(c *GlobalConfig) { c.Capture.SnapLen = 1518 }},
		{"bad poll timeout", func(c *GlobalConfig) { c.Capture.PollTimeout = "soon" }},
		{"zero poll timeout", func(c *GlobalConfig) { c.Capture.PollTimeout = "0s" }},
		{"bad report format", func(c *GlobalConfig) { c.Report.Format = "csv" }},
		{"kafka without brokers", func(c *GlobalConfig) { c.Report.Kafka.Enabled = true }},
		{"kafka without topic", func(c *GlobalConfig) {
			c.Report.Kafka.Enabled = true
			c.Report.Kafka.Brokers = []string{"k:9092"}
			c.Report.Kafka.Topic = ""
		}},
		{"metrics without listen", func(c *GlobalConfig) {
			c.Metrics.Enabled = true
			c.Metrics.Listen = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.ValidateAndApplyDefaults()
			if !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("Expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}
