package app

import (
	"context"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/backend"
	"github.com/mailpush/pushd/internal/connectivity"
	"github.com/mailpush/pushd/internal/desktop"
	"github.com/mailpush/pushd/internal/notification"
	"github.com/mailpush/pushd/internal/push"
	"github.com/mailpush/pushd/internal/settings"
	"github.com/mailpush/pushd/internal/syspolicy"
	"github.com/mailpush/pushd/internal/telemetry"
)

// Storage is the persistence behind the account registry and the settings
type Storage interface {
	account.Store
	settings.Store
	Close() error
}

// AppComponents groups the long lived parts of the daemon
//
//nolint:revive // This name is fine
type AppComponents struct {
	Storage      Storage
	Accounts     account.Registry
	Settings     *settings.Manager
	Backends     *backend.Manager
	Policy       *syspolicy.Watcher
	Connectivity *connectivity.Monitor
	Publisher    *notification.Publisher
	Controller   push.Controller
	Telemetry    *telemetry.Telemetry
	// Desktop is nil unless desktop notifications are enabled and a session bus was found
	Desktop *desktop.Notifier
}

// pushService adapts the daemon components to the API
type pushService struct {
	*notification.Publisher
	push.Controller

	accounts account.Registry
	settings *settings.Manager
}

// Refresh picks up accounts and settings written by CLI commands
func (s pushService) Refresh(ctx context.Context) error {
	if err := s.settings.Reload(ctx); err != nil {
		return err
	}
	s.accounts.Reload()
	return nil
}
