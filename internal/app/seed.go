package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/config"
	"github.com/mailpush/pushd/internal/settings"
)

// InitializeConfiguredAccounts writes every account declared in the
// configuration to the registry. The file wins over earlier CLI edits of the
// same account; accounts added through the CLI are left alone.
func InitializeConfiguredAccounts(ctx context.Context, cfg *config.Config, registry account.Registry) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if registry == nil {
		return fmt.Errorf("account registry is required")
	}

	if len(cfg.Accounts) == 0 {
		slog.Debug("No accounts declared in config")
		return nil
	}

	for i := range cfg.Accounts {
		acc, err := cfg.Accounts[i].ToAccount()
		if err != nil {
			return fmt.Errorf("accounts[%d] (%s): %w", i, cfg.Accounts[i].UUID, err)
		}
		if err := registry.SaveAccount(ctx, acc); err != nil {
			return fmt.Errorf("failed to save account '%s': %w", acc.UUID, err)
		}
		slog.Info("Initialized configured account",
			"uuid", acc.UUID, "name", acc.Name, "push_mode", string(acc.FolderPushMode))
	}

	slog.Info("Initialized configured accounts", "count", len(cfg.Accounts))
	return nil
}

// InitializeBackgroundSync stores the configured background sync value when
// nothing has been stored yet. A stored value always wins.
func InitializeBackgroundSync(ctx context.Context, cfg *config.Config, store settings.Store, mgr *settings.Manager) error {
	value, ok := cfg.GetBackgroundSync()
	if !ok {
		return nil
	}

	_, err := store.GetSetting(ctx, settings.KeyBackgroundSync)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, settings.ErrSettingNotFound):
		return err
	}

	if err := mgr.SetBackgroundSync(ctx, value); err != nil {
		return err
	}
	slog.Info("Seeded background sync setting", "value", string(value))
	return nil
}
