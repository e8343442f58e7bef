package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger defines the logging interface used throughout the application
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level slog.Level)
	GetLevel() slog.Level
	EnableRequestTracing()
	DisableRequestTracing()
	IsRequestTracingEnabled() bool
}

// SlogLogger wraps slog.Logger to implement our Logger interface
type SlogLogger struct {
	logger  *slog.Logger
	level   *slog.LevelVar
	tracing atomic.Bool
}

// New creates a new SlogLogger with default settings (info level)
func New() *SlogLogger {
	return NewWithLevel(slog.LevelInfo)
}

// NewWithLevel creates a new SlogLogger writing to stderr with a specific level.
// Command output goes to stdout, so logs must stay off it.
func NewWithLevel(level slog.Level) *SlogLogger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a SlogLogger writing text records to w
func NewWithWriter(w io.Writer, level slog.Level) *SlogLogger {
	levelVar := &slog.LevelVar{}
	levelVar.Set(level)

	return &SlogLogger{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: levelVar,
		})),
		level: levelVar,
	}
}

// ParseLevel converts a string log level to slog.Level.
// Accepts: debug, info, warn, error (case-insensitive).
// Returns slog.LevelInfo if the level is not recognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NextLevel returns the level after current in the debug -> info -> warn -> error cycle
func NextLevel(current slog.Level) slog.Level {
	switch current {
	case slog.LevelDebug:
		return slog.LevelInfo
	case slog.LevelInfo:
		return slog.LevelWarn
	case slog.LevelWarn:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// SetLevel changes the logging level dynamically
func (l *SlogLogger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// GetLevel returns the current logging level
func (l *SlogLogger) GetLevel() slog.Level {
	return l.level.Level()
}

// EnableRequestTracing turns on request/response body logging in the portal client
func (l *SlogLogger) EnableRequestTracing() {
	l.tracing.Store(true)
}

// DisableRequestTracing turns off request/response body logging
func (l *SlogLogger) DisableRequestTracing() {
	l.tracing.Store(false)
}

// IsRequestTracingEnabled returns whether request tracing is enabled
func (l *SlogLogger) IsRequestTracingEnabled() bool {
	return l.tracing.Load()
}

// Nop is a Logger that discards everything. Useful in tests.
type Nop struct{}

func (Nop) Debug(msg string, args ...any)  {}
func (Nop) Info(msg string, args ...any)   {}
func (Nop) Warn(msg string, args ...any)   {}
func (Nop) Error(msg string, args ...any)  {}
func (Nop) SetLevel(level slog.Level)      {}
func (Nop) GetLevel() slog.Level           { return slog.LevelInfo }
func (Nop) EnableRequestTracing()          {}
func (Nop) DisableRequestTracing()         {}
func (Nop) IsRequestTracingEnabled() bool  { return false }

var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = Nop{}
)
