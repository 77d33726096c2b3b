package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firestige.xyz/seqgap/internal/config"
)

// captureConsole redirects console output for the duration of a test.
func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevWriter, prevLogger := console, slog.Default()
	console = &buf
	t.Cleanup(func() {
		console = prevWriter
		slog.SetDefault(prevLogger)
	})
	return &buf
}

func TestParseLevelValid(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if err != nil {
				t.Errorf("parseLevel(%q) returned error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "trace", "fatal", ""} {
		t.Run(input, func(t *testing.T) {
			if _, err := parseLevel(input); err == nil {
				t.Errorf("parseLevel(%q) should return error, got nil", input)
			}
		})
	}
}

func TestInitConsoleJSON(t *testing.T) {
	buf := captureConsole(t)

	closeFn, err := Init(config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer closeFn()

	slog.Debug("hidden")
	slog.Info("capture started", "interface", "eth0")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug record should be filtered at info level: %s", out)
	}
	if !strings.Contains(out, `"msg":"capture started"`) || !strings.Contains(out, `"interface":"eth0"`) {
		t.Errorf("Expected JSON record, got: %s", out)
	}
}

func TestInitWithFileOutput(t *testing.T) {
	captureConsole(t)
	logPath := filepath.Join(t.TempDir(), "seqgap.log")

	closeFn, err := Init(config.LogConfig{
		Level:  "debug",
		Format: "text",
		Outputs: config.LogOutputsConfig{
			File: config.FileOutputConfig{
				Enabled: true,
				Path:    logPath,
				Rotation: config.RotationConfig{
					MaxSizeMB:  1,
					MaxBackups: 1,
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Debug("file record", "seq", 42)
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "file record") || !strings.Contains(string(data), "seq=42") {
		t.Errorf("Expected record in log file, got: %s", data)
	}
}

func TestInitErrors(t *testing.T) {
	captureConsole(t)
	tests := []struct {
		name string
		cfg  config.LogConfig
	}{
		{"bad level", config.LogConfig{Level: "loud", Format: "text"}},
		{"bad format", config.LogConfig{Level: "info", Format: "xml"}},
		{"file without path", config.LogConfig{
			Level:   "info",
			Format:  "text",
			Outputs: config.LogOutputsConfig{File: config.FileOutputConfig{Enabled: true}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Init(tt.cfg); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}
