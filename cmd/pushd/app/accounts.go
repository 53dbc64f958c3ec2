package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/credential"
)

func (c *cli) newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage mail accounts",
	}
	cmd.AddCommand(
		c.newAccountsListCmd(),
		c.newAccountsAddCmd(),
		c.newAccountsRemoveCmd(),
		c.newAccountsSetPushModeCmd(),
		c.newAccountsSetPasswordCmd(),
	)
	return cmd
}

func (c *cli) newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := c.openLocalState()
			if err != nil {
				return err
			}
			defer state.Close()

			accounts, err := state.accounts.GetAccounts(cmd.Context())
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No accounts configured")
				return nil
			}
			return renderAccounts(cmd.OutOrStdout(), accounts)
		},
	}
}

func renderAccounts(w io.Writer, accounts []account.Account) error {
	table := tablewriter.NewWriter(w)
	table.Header("UUID", "Name", "Server", "Push mode", "Push folder")
	for _, acc := range accounts {
		server := fmt.Sprintf("%s://%s:%d", acc.Incoming.Type, acc.Incoming.Host, acc.Incoming.Port)
		if err := table.Append([]string{
			acc.UUID,
			acc.Name,
			server,
			string(acc.FolderPushMode),
			acc.Incoming.PushFolder(),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func (c *cli) newAccountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			id, _ := flags.GetString("uuid")
			if id == "" {
				id = account.NewUUID()
			}
			mode, _ := flags.GetString("push-mode")
			folderMode, err := account.ParseFolderMode(mode)
			if err != nil {
				return err
			}

			acc := account.Account{UUID: id, FolderPushMode: folderMode}
			acc.Name, _ = flags.GetString("name")
			acc.Email, _ = flags.GetString("email")
			acc.Incoming.Type, _ = flags.GetString("type")
			acc.Incoming.Host, _ = flags.GetString("host")
			acc.Incoming.Port, _ = flags.GetInt("port")
			acc.Incoming.Security, _ = flags.GetString("security")
			acc.Incoming.Username, _ = flags.GetString("username")
			acc.Incoming.Folders, _ = flags.GetStringSlice("folder")

			state, err := c.openLocalState()
			if err != nil {
				return err
			}
			defer state.Close()

			if err := state.accounts.SaveAccount(cmd.Context(), acc); err != nil {
				return err
			}
			state.notifyDaemon(cmd.Context())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), acc.UUID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("uuid", "", "Account UUID (generated when empty)")
	flags.String("name", "", "Display name")
	flags.String("email", "", "Email address")
	flags.String("type", account.ServerTypeIMAP, "Incoming server type (imap, pop3)")
	flags.String("host", "", "Incoming server host")
	flags.Int("port", 993, "Incoming server port")
	flags.String("security", account.SecuritySSL, "Connection security (ssl, starttls, none)")
	flags.String("username", "", "Login name")
	flags.StringSlice("folder", nil, "Folders; the first one is watched for push")
	flags.String("push-mode", string(account.FolderModeNone), "Folder push mode")
	for _, required := range []string{"host", "username"} {
		if err := cmd.MarkFlagRequired(required); err != nil {
			slog.Error("Failed to mark flag as required", "flag", required, "error", err)
		}
	}
	return cmd
}

func (c *cli) newAccountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <uuid>",
		Short: "Remove an account and its stored password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.openLocalState()
			if err != nil {
				return err
			}
			defer state.Close()

			if err := state.accounts.DeleteAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := credential.NewKeyring(credential.DefaultService).DeletePassword(args[0]); err != nil {
				slog.Warn("Account removed but its password could not be deleted", "error", err)
			}
			state.notifyDaemon(cmd.Context())
			return nil
		},
	}
}

func (c *cli) newAccountsSetPushModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-push-mode <uuid> <mode>",
		Short: "Set which folders of an account are pushed (NONE, ALL, FIRST_CLASS, ...)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := account.ParseFolderMode(args[1])
			if err != nil {
				return err
			}

			state, err := c.openLocalState()
			if err != nil {
				return err
			}
			defer state.Close()

			acc, err := state.accounts.GetAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			acc.FolderPushMode = mode
			if err := state.accounts.SaveAccount(cmd.Context(), *acc); err != nil {
				return err
			}
			state.notifyDaemon(cmd.Context())
			return nil
		},
	}
}

func (c *cli) newAccountsSetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password <uuid>",
		Short: "Store an account password in the keyring",
		Long: `Store an account password in the keyring. The password is read from the terminal
without echo, or from the first line of standard input when it is not a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := c.openLocalState()
			if err != nil {
				return err
			}
			defer state.Close()

			if _, err := state.accounts.GetAccount(cmd.Context(), args[0]); err != nil {
				return err
			}

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if err := credential.NewKeyring(credential.DefaultService).SetPassword(args[0], password); err != nil {
				return err
			}
			// A new password restarts the account's worker through a backend change.
			state.notifyDaemon(cmd.Context())
			return nil
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		passwordBytes, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if len(passwordBytes) == 0 {
			return "", fmt.Errorf("password cannot be empty")
		}
		return string(passwordBytes), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}
