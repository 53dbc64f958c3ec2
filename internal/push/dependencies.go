package push

import (
	"context"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/backend"
	"github.com/mailpush/pushd/internal/notification"
	"github.com/mailpush/pushd/internal/presence"
	"github.com/mailpush/pushd/internal/settings"
)

//go:generate mockgen -destination=mocks/mock_dependencies.go -package=mocks github.com/mailpush/pushd/internal/push Worker,WorkerFactory

// AccountRegistry is the account source read on every pass.
type AccountRegistry interface {
	GetAccounts(ctx context.Context) ([]account.Account, error)
	GetAccount(ctx context.Context, uuid string) (*account.Account, error)
	SaveAccount(ctx context.Context, acc account.Account) error
	AddListener(listener func()) (remove func())
}

// BackendResolver answers whether an account's backend can push and reports
// when an account's backend instance is replaced.
type BackendResolver interface {
	GetBackend(acc account.Account) (backend.Backend, error)
	AddListener(listener func(accountUUID string)) (remove func())
}

// BackgroundSyncSettings is the in-app background sync policy.
type BackgroundSyncSettings interface {
	BackgroundSync(ctx context.Context) (settings.BackgroundSync, error)
	AddListener(listener func(settings.BackgroundSync)) (remove func())
}

// AutoSyncSource reports whether the system wide auto-sync switch blocks background sync.
type AutoSyncSource interface {
	IsAutoSyncDisabled() bool
}

// AlarmPermissionSource reports whether exact alarms may be scheduled.
type AlarmPermissionSource interface {
	CanScheduleExactAlarms() bool
}

// ConnectivitySource reports network availability.
type ConnectivitySource interface {
	IsNetworkAvailable() bool
}

// Worker is a per-account push worker.
type Worker interface {
	AccountUUID() string
	Start() error
	Stop(ctx context.Context) error
	Reconnect()
}

// WorkerFactory builds a fresh worker bound to the account's current backend.
type WorkerFactory interface {
	Create(acc account.Account) (Worker, error)
}

// StatePublisher receives the derived notification state once per pass.
type StatePublisher interface {
	Publish(s notification.State)
}

// PresenceController keeps the process visible and alive while push is wanted.
type PresenceController interface {
	Bind(listeners presence.Listeners)
	Activate()
	Deactivate()
}

// Dependencies groups the collaborators of the controller.
type Dependencies struct {
	Accounts     AccountRegistry
	Backends     BackendResolver
	Settings     BackgroundSyncSettings
	AutoSync     AutoSyncSource
	Alarms       AlarmPermissionSource
	Connectivity ConnectivitySource
	Workers      WorkerFactory
	Publisher    StatePublisher
	Presence     PresenceController
}
