package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/backend"
	"github.com/mailpush/pushd/internal/push/worker"
	"github.com/mailpush/pushd/internal/telemetry"
)

// BackendSource resolves the backend a new worker connects through.
type BackendSource interface {
	GetBackend(acc account.Account) (backend.Backend, error)
}

type workerFactory struct {
	backends BackendSource
	opts     []worker.Option
}

// NewWorkerFactory returns a factory creating workers on the account's current
// push connector. opts are applied to every worker.
func NewWorkerFactory(backends BackendSource, opts ...worker.Option) WorkerFactory {
	return &workerFactory{backends: backends, opts: opts}
}

func (f *workerFactory) Create(acc account.Account) (Worker, error) {
	b, err := f.backends.GetBackend(acc)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backend for %s: %w", acc.UUID, err)
	}
	if !b.IsPushCapable() {
		return nil, fmt.Errorf("backend %s of account %s cannot push", b.Type(), acc.UUID)
	}
	connector := b.PushConnector()
	if connector == nil {
		return nil, fmt.Errorf("backend %s of account %s has no push connector", b.Type(), acc.UUID)
	}
	return worker.New(acc.UUID, connector, f.opts...), nil
}

// MailLogReceiver logs new mail events and counts them. Syncing the folder is
// left to the mail client that consumes pushd's events.
func MailLogReceiver(metrics *telemetry.PushMetrics) worker.Receiver {
	return worker.ReceiverFunc(func(ctx context.Context, accountUUID, folder string, messages uint32) {
		metrics.RecordNewMail(ctx, folder)
		slog.Info("New mail",
			"account", accountUUID,
			"folder", folder,
			"messages", messages)
	})
}

// TransitionRecorder reports worker state changes as metrics.
func TransitionRecorder(metrics *telemetry.PushMetrics) worker.StateObserver {
	return func(accountUUID string, from, to worker.State) {
		metrics.RecordWorkerTransition(context.Background(), from.String(), to.String())
		slog.Debug("Push worker state changed",
			"account", accountUUID,
			"from", from.String(),
			"to", to.String())
	}
}
