package notification

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/mailpush/pushd/internal/versions"
)

// Sink consumes state changes.
type Sink interface {
	Handle(ctx context.Context, s State) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, s State) error

// Handle calls f.
func (f SinkFunc) Handle(ctx context.Context, s State) error { return f(ctx, s) }

// Run feeds every state change to sink until ctx is done. Sink errors are logged.
func (p *Publisher) Run(ctx context.Context, name string, sink Sink) {
	updates, cancel := p.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			if err := sink.Handle(ctx, s); err != nil {
				slog.Warn("Notification sink failed", "sink", name, "state", string(s), "error", err)
			}
		}
	}
}

// LogSink logs every change.
func LogSink() Sink {
	return SinkFunc(func(_ context.Context, s State) error {
		slog.Info("Push notification state changed", "state", string(s), "message", s.Message())
		return nil
	})
}

// FileSink persists every change through p. running, when set, supplies the
// accounts listed in the file.
func FileSink(p StatusPersistence, running func() []string) Sink {
	pid := os.Getpid()
	version := versions.GetVersionInfo().Version
	return SinkFunc(func(ctx context.Context, s State) error {
		var accounts []string
		if running != nil {
			accounts = running()
		}
		return p.SaveStatus(ctx, &Status{
			State:     s,
			Message:   s.Message(),
			PID:       pid,
			Version:   version,
			Accounts:  accounts,
			UpdatedAt: time.Now().UTC(),
		})
	})
}
