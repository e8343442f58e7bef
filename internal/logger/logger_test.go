package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_DefaultsToInfoLevel(t *testing.T) {
	log := New()

	if log == nil {
		t.Fatal("expected logger to be created")
	}
	if log.GetLevel() != slog.LevelInfo {
		t.Errorf("expected default level Info, got %v", log.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNextLevel_Cycles(t *testing.T) {
	level := slog.LevelDebug
	want := []slog.Level{slog.LevelInfo, slog.LevelWarn, slog.LevelError, slog.LevelDebug}
	for _, w := range want {
		level = NextLevel(level)
		if level != w {
			t.Fatalf("expected %v, got %v", w, level)
		}
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelWarn)

	log.Debug("debug message")
	log.Info("info message")
	if buf.Len() > 0 {
		t.Errorf("expected debug/info to be filtered at WARN level, got: %s", buf.String())
	}

	log.Warn("timer start failed", "team", "rockets")
	out := buf.String()
	if !strings.Contains(out, "timer start failed") || !strings.Contains(out, "team=rockets") {
		t.Errorf("expected warn record with attrs, got: %s", out)
	}

	// Raising verbosity at runtime takes effect immediately
	buf.Reset()
	log.SetLevel(slog.LevelDebug)
	log.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("expected debug message after SetLevel(Debug)")
	}
}

func TestSlogLogger_RequestTracing(t *testing.T) {
	log := New()

	if log.IsRequestTracingEnabled() {
		t.Error("expected request tracing to be disabled by default")
	}

	log.EnableRequestTracing()
	if !log.IsRequestTracingEnabled() {
		t.Error("expected request tracing to be enabled")
	}

	log.DisableRequestTracing()
	if log.IsRequestTracingEnabled() {
		t.Error("expected request tracing to be disabled")
	}
}
