// Package logger configures the process wide logger used by pushd.
//
// Call sites log through log/slog. The default slog handler is backed by a
// zap core, so level changes and encoding are controlled here.
package logger

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  atomic.Pointer[zap.Logger]
)

func init() {
	base.Store(zap.NewNop())
}

// ParseLevel converts a textual level ("debug", "info", "warn", "error") to a zap level.
// An empty string maps to info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Initialize configures the global logger. JSON output goes to stderr so that
// commands printing data on stdout stay machine readable.
func Initialize(lvl zapcore.Level, jsonOutput bool) error {
	level.SetLevel(lvl)

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !jsonOutput {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Set(l)
	return nil
}

// Set replaces the global logger and points the default slog logger at it.
// Mostly useful in tests.
func Set(l *zap.Logger) {
	old := base.Swap(l)
	if old != nil {
		_ = old.Sync()
	}
	slog.SetDefault(slog.New(zapslog.NewHandler(l.Core())))
}

// SetLevel changes the level of the logger built by Initialize.
func SetLevel(lvl zapcore.Level) {
	level.SetLevel(lvl)
}

// Get returns the underlying zap logger.
func Get() *zap.Logger {
	return base.Load()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = base.Load().Sync()
}
