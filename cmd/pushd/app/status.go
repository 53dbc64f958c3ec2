package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	v1 "github.com/mailpush/pushd/internal/api/v1"
	"github.com/mailpush/pushd/internal/config"
	"github.com/mailpush/pushd/internal/httpclient"
	"github.com/mailpush/pushd/internal/notification"
	"github.com/mailpush/pushd/internal/presence"
	"github.com/mailpush/pushd/internal/versions"
)

// statusReport is what `pushd status` prints
type statusReport struct {
	State    notification.State `json:"state"`
	Message  string             `json:"message"`
	Accounts []string           `json:"accounts"`
	// Running is true while a daemon holds the foreground lock.
	Running bool `json:"running"`
	// Source is "api" or "file".
	Source string `json:"source"`
	// Version of the daemon that wrote the status file, when read from it.
	Version string `json:"version,omitempty"`
}

func (c *cli) newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the push status",
		Long: `Show the push status. The running daemon is asked first; when it cannot be
reached the last status written to the status file is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			report, err := collectStatus(cmd, cfg)
			if err != nil {
				return err
			}
			if report.Source == "file" && versions.WrittenByNewer(report.Version) {
				slog.Warn("Status file was written by a newer pushd", "version", report.Version)
			}

			if format == "json" {
				output, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format status as JSON: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			printStatus(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func collectStatus(cmd *cobra.Command, cfg *config.Config) (*statusReport, error) {
	running, err := presence.IsLocked(cfg.GetLockPath())
	if err != nil {
		slog.Debug("Failed to check daemon lock", "error", err)
	}

	if address := cfg.GetAPIAddress(); address != "" && running {
		client := httpclient.NewDefaultClient(0)
		body, err := client.Get(cmd.Context(), httpclient.BaseURL(address)+"/api/v1/push/status")
		if err == nil {
			var resp v1.StatusResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("failed to decode status response: %w", err)
			}
			return &statusReport{
				State:    resp.State,
				Message:  resp.Message,
				Accounts: resp.Accounts,
				Running:  true,
				Source:   "api",
			}, nil
		}
		slog.Debug("Daemon API unavailable, reading status file", "error", err)
	}

	status, err := notification.NewFileStatusPersistence(cfg.GetStatusPath()).LoadStatus(cmd.Context())
	if err != nil {
		return nil, err
	}
	report := &statusReport{
		State:    status.State,
		Message:  status.Message,
		Accounts: status.Accounts,
		Running:  running,
		Source:   "file",
		Version:  status.Version,
	}
	// A file left behind by a daemon that exited describes the past
	if !running && status.State != notification.StateDisabled {
		report.State = notification.StateDisabled
		report.Message = "pushd is not running"
	}
	if report.Accounts == nil {
		report.Accounts = []string{}
	}
	return report, nil
}

func printStatus(w io.Writer, r *statusReport) {
	_, _ = fmt.Fprintf(w, "State:    %s\n", r.State)
	_, _ = fmt.Fprintf(w, "Message:  %s\n", r.Message)
	if r.Running {
		_, _ = fmt.Fprintln(w, "Daemon:   running")
	} else {
		_, _ = fmt.Fprintln(w, "Daemon:   not running")
	}
	if len(r.Accounts) > 0 {
		_, _ = fmt.Fprintf(w, "Accounts: %s\n", strings.Join(r.Accounts, ", "))
	}
}
