// Package main is the entry point for pushd.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap/zapcore"

	"github.com/mailpush/pushd/cmd/pushd/app"
	"github.com/mailpush/pushd/internal/logger"
)

// getLogLevel reads PUSHD_LOG_LEVEL, falling back to LOG_LEVEL. Defaults to info.
func getLogLevel(v *viper.Viper) (zapcore.Level, error) {
	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	return logger.ParseLevel(levelStr)
}

func main() {
	v := viper.New()
	v.SetEnvPrefix(app.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	lvl, levelErr := getLogLevel(v)
	jsonOutput := strings.EqualFold(v.GetString("LOG_FORMAT"), "json")
	if err := logger.Initialize(lvl, jsonOutput); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	if levelErr != nil {
		slog.Warn("Invalid log level, using INFO", "error", levelErr)
	}

	// Route OpenTelemetry SDK diagnostics through the same logger.
	otel.SetLogger(zapr.NewLogger(logger.Get().Named("otel")))

	err := app.NewRootCmd(v).Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
