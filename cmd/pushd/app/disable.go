package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailpush/pushd/internal/httpclient"
)

func (c *cli) newDisablePushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable-push",
		Short: "Turn push off for every account of the running daemon",
		Long: `Sets the push mode of every account to NONE through the running daemon's API,
the same action offered by the "disable" entry of the status notification.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			address := cfg.GetAPIAddress()
			if address == "" {
				return fmt.Errorf("the daemon API is disabled in the configuration")
			}

			client := httpclient.NewDefaultClient(0)
			if _, err := client.Post(cmd.Context(), httpclient.BaseURL(address)+"/api/v1/push/disable"); err != nil {
				return fmt.Errorf("failed to reach pushd at %s: %w", address, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Disabling push for all accounts")
			return nil
		},
	}
}
