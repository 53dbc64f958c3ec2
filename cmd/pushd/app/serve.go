package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pushapp "github.com/mailpush/pushd/internal/app"
	"github.com/mailpush/pushd/internal/presence"
	"github.com/mailpush/pushd/internal/versions"
)

// defaultGracefulTimeout bounds the whole shutdown; each worker gets its own stop grace period.
const defaultGracefulTimeout = 30 * time.Second

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the push daemon",
		Long: `Run the push daemon in the foreground.

The configuration file (--config or PUSHD_CONFIG, default $XDG_CONFIG_HOME/pushd/config.yaml)
is optional; every setting has a default. Accounts declared in it are written to the
database on start.`,
		RunE: c.runServe,
	}

	cmd.Flags().String("address", "", "Address of the status API (overrides api.address)")
	cmd.Flags().Bool("no-api", false, "Do not serve the status API")
	if err := c.v.BindPFlag("address", cmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}

	return cmd
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	// The lock is only held while push is active, so this catches a daemon
	// that is listening but not an idle one.
	if locked, err := presence.IsLocked(cfg.GetLockPath()); err == nil && locked {
		return fmt.Errorf("%w (%s)", presence.ErrAlreadyActive, cfg.GetLockPath())
	}

	info := versions.GetVersionInfo()
	slog.Info("Starting pushd",
		"version", info.Version,
		"commit", info.Commit,
		"data_dir", cfg.GetDataDir(),
	)

	if cfg.Telemetry != nil && cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = info.Version
	}

	opts := []pushapp.PushAppOptions{pushapp.WithConfig(cfg)}
	if noAPI, _ := cmd.Flags().GetBool("no-api"); noAPI {
		opts = append(opts, pushapp.WithAddress(""))
	} else if address := c.v.GetString("address"); address != "" {
		opts = append(opts, pushapp.WithAddress(address))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := pushapp.NewPushApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create push app: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-errCh:
		if runErr != nil {
			slog.Error("pushd failed", "error", runErr)
		}
	}

	if err := app.Stop(defaultGracefulTimeout); err != nil {
		slog.Error("Shutdown was not clean", "error", err)
		runErr = errors.Join(runErr, err)
	}

	return runErr
}
