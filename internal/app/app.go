// Package app assembles and runs the pushd daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mailpush/pushd/internal/config"
	"github.com/mailpush/pushd/internal/notification"
)

// PushApp owns the daemon components and their lifecycle
type PushApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	ctx        context.Context
	cancelFunc context.CancelFunc

	mu        sync.Mutex
	started   bool
	stopped   bool
	stopWatch func()
	sinksDone sync.WaitGroup
}

// Start brings the daemon up and blocks until Stop is called or the HTTP
// server fails.
func (app *PushApp) Start() error {
	return app.start(nil)
}

// StartWithListener is Start on an already bound listener
func (app *PushApp) StartWithListener(l net.Listener) error {
	return app.start(l)
}

func (app *PushApp) start(l net.Listener) error {
	app.mu.Lock()
	if app.started || app.stopped {
		app.mu.Unlock()
		return fmt.Errorf("app already started")
	}
	app.started = true
	ctx := app.ctx
	c := app.components

	if err := c.Policy.Start(ctx); err != nil {
		app.mu.Unlock()
		return fmt.Errorf("failed to start system policy watcher: %w", err)
	}
	app.stopWatch = c.Backends.Watch(ctx, c.Accounts)

	app.runSink(ctx, "log", notification.LogSink())
	app.runSink(ctx, "status-file", notification.FileSink(
		notification.NewFileStatusPersistence(app.config.GetStatusPath()),
		c.Controller.RunningAccounts,
	))
	if c.Desktop != nil {
		app.runSink(ctx, "desktop", c.Desktop)
		app.sinksDone.Add(1)
		go func() {
			defer app.sinksDone.Done()
			c.Desktop.Run(ctx)
		}()
	}

	c.Controller.Initialize(ctx)
	server := app.httpServer
	app.mu.Unlock()

	slog.Info("pushd started")

	if server == nil {
		<-ctx.Done()
		return nil
	}

	slog.Info("Server listening", "address", server.Addr)
	var err error
	if l != nil {
		err = server.Serve(l)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

func (app *PushApp) runSink(ctx context.Context, name string, sink notification.Sink) {
	app.sinksDone.Add(1)
	go func() {
		defer app.sinksDone.Done()
		app.components.Publisher.Run(ctx, name, sink)
	}()
}

// Stop shuts the daemon down. Workers get the configured grace period each;
// timeout bounds the whole shutdown.
func (app *PushApp) Stop(timeout time.Duration) error {
	app.mu.Lock()
	if app.stopped {
		app.mu.Unlock()
		return nil
	}
	app.stopped = true
	started := app.started
	app.mu.Unlock()

	slog.Info("Shutting down pushd...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c := app.components
	var errs []error

	if started {
		if err := c.Controller.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop push workers: %w", err))
		}
	}

	if app.httpServer != nil && started {
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
	}

	if app.stopWatch != nil {
		app.stopWatch()
	}
	if app.cancelFunc != nil {
		app.cancelFunc()
	}
	app.sinksDone.Wait()

	if c.Desktop != nil {
		if err := c.Desktop.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close desktop notifications: %w", err))
		}
	}
	if err := c.Policy.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close system policy watcher: %w", err))
	}
	if err := c.Telemetry.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down telemetry: %w", err))
	}
	if err := c.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("pushd shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *PushApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server, or nil when the API is disabled
func (app *PushApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components exposes the wired components
func (app *PushApp) Components() *AppComponents {
	return app.components
}
