package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailpush/pushd/internal/settings"
)

func (c *cli) newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change general settings",
	}
	cmd.AddCommand(c.newBackgroundSyncCmd())
	return cmd
}

func (c *cli) newBackgroundSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "background-sync [always|never|follow-system]",
		Short:     "Show or set the background sync policy",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"always", "never", "follow-system"},
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.openLocalState()
			if err != nil {
				return err
			}
			defer state.Close()

			if len(args) == 0 {
				value, err := state.settings.BackgroundSync(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}

			value, err := settings.ParseBackgroundSync(args[0])
			if err != nil {
				return err
			}
			if err := state.settings.SetBackgroundSync(cmd.Context(), value); err != nil {
				return err
			}
			state.notifyDaemon(cmd.Context())
			return nil
		},
	}
}
