package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		result := tt.level.String()
		if result != tt.expected {
			t.Errorf("LogLevel(%d).String() = '%s', expected '%s'", tt.level, result, tt.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"Warning", LogLevelWarn},
		{"error", LogLevelError},
		{"unknown", LogLevelInfo}, // Default
		{"", LogLevelInfo},        // Default
	}

	for _, tt := range tests {
		result := ParseLogLevel(tt.input)
		if result != tt.expected {
			t.Errorf("ParseLogLevel('%s') = %d, expected %d", tt.input, result, tt.expected)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelWarn, Output: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("messages below warn were written: %s", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("expected warn and error messages, got: %s", output)
	}
}

func TestLogger_FormatArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelInfo, Output: &buf})

	logger.Info("undo=%d redo=%d", 3, 1)

	if !strings.Contains(buf.String(), "undo=3 redo=1") {
		t.Errorf("formatted message missing: %s", buf.String())
	}
}

func TestLogger_FieldsAndPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelInfo, Output: &buf, Prefix: "test", JSON: true})

	logger.WithComponent("history").WithFields(map[string]any{"depth": 2}).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["app"] != "test" || rec["component"] != "history" {
		t.Errorf("record = %v", rec)
	}
	if rec["depth"] != float64(2) {
		t.Errorf("depth = %v, want 2", rec["depth"])
	}
}

func TestLogger_SetLevelAffectsDerived(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(LoggerConfig{Level: LogLevelInfo, Output: &buf})
	child := root.WithComponent("config")

	child.Debug("hidden")
	root.SetLevel(LogLevelDebug)
	child.Debug("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message written before SetLevel")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Error("derived logger did not pick up new level")
	}
	if !child.Enabled(LogLevelDebug) {
		t.Error("Enabled(debug) = false after SetLevel")
	}
}

func TestNullLogger(t *testing.T) {
	NullLogger.Error("discarded")
	NullLogger.WithComponent("x").Info("discarded")
	if NullLogger.Enabled(LogLevelError) {
		t.Error("NullLogger should not be enabled")
	}
}
