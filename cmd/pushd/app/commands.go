// Package app provides the pushd command line.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/config"
	"github.com/mailpush/pushd/internal/httpclient"
	"github.com/mailpush/pushd/internal/logger"
	"github.com/mailpush/pushd/internal/settings"
	"github.com/mailpush/pushd/internal/store"
	"github.com/mailpush/pushd/internal/versions"
)

// EnvPrefix prefixes every environment variable read by pushd
const EnvPrefix = "PUSHD"

// cli carries state shared by the subcommands of one root command
type cli struct {
	v *viper.Viper
}

// NewRootCmd creates the pushd root command. v supplies flag values bound to
// PUSHD_* environment variables.
func NewRootCmd(v *viper.Viper) *cobra.Command {
	if v == nil {
		v = viper.New()
		v.SetEnvPrefix(EnvPrefix)
		v.AutomaticEnv()
	}
	c := &cli{v: v}

	rootCmd := &cobra.Command{
		Use:               "pushd",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Mail push notification daemon",
		Long: `pushd keeps IMAP IDLE connections open for the mail accounts configured for push
and reports why push is or is not active.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if c.v.GetBool("debug") {
				logger.SetLevel(zapcore.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	for _, name := range []string{"config", "debug"} {
		if err := v.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	rootCmd.AddCommand(
		c.newServeCmd(),
		c.newAccountsCmd(),
		c.newSettingsCmd(),
		c.newDisablePushCmd(),
		c.newStatusCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// defaultConfigPath is used when neither --config nor PUSHD_CONFIG is set
func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, config.AppName, "config.yaml")
}

func (c *cli) loadConfig() (*config.Config, error) {
	path := c.v.GetString("config")
	if path == "" {
		if _, err := os.Stat(defaultConfigPath()); err == nil {
			path = defaultConfigPath()
		}
	}

	var opts []config.Option
	if path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if path != "" {
		slog.Debug("Loaded configuration", "path", path)
	}
	return cfg, nil
}

// localState is the database view used by the editing commands
type localState struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	accounts account.Registry
	settings *settings.Manager
}

func (c *cli) openLocalState() (*localState, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.GetDataDir(), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}
	return &localState{
		cfg:      cfg,
		store:    s,
		accounts: account.NewRegistry(s),
		settings: settings.NewManager(s),
	}, nil
}

func (l *localState) Close() {
	if err := l.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// notifyDaemon asks a running daemon to reread the database. A daemon that is
// not running reads it on start anyway.
func (l *localState) notifyDaemon(ctx context.Context) {
	address := l.cfg.GetAPIAddress()
	if address == "" {
		return
	}
	client := httpclient.NewDefaultClient(0)
	if _, err := client.Post(ctx, httpclient.BaseURL(address)+"/api/v1/push/refresh"); err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			slog.Warn("Running daemon rejected refresh", "error", err)
			return
		}
		slog.Debug("No running daemon to notify", "error", err)
	}
}
