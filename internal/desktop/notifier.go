package desktop

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mailpush/pushd/internal/notification"
)

// ActionDisable is the action key of the "Disable push" button.
const ActionDisable = "disable"

const summary = "Mail push"

// Notifier keeps one status notification in sync with the published state.
// It is a notification.Sink.
type Notifier struct {
	server    Server
	onDisable func()

	mu sync.Mutex
	id uint32
}

// NewNotifier creates a notifier. onDisable runs when the user picks the
// disable action of the current notification.
func NewNotifier(server Server, onDisable func()) *Notifier {
	return &Notifier{server: server, onDisable: onDisable}
}

// Handle shows, updates or removes the notification. Disabled removes it.
func (n *Notifier) Handle(_ context.Context, s notification.State) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if s == notification.StateDisabled {
		if n.id == 0 {
			return nil
		}
		id := n.id
		n.id = 0
		return n.server.CloseNotification(id)
	}

	id, err := n.server.Notify(n.id, summary, s.Message(), []string{ActionDisable, "Disable push"})
	if err != nil {
		return err
	}
	n.id = id
	return nil
}

// Run dispatches invoked actions until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	actions, err := n.server.Actions(ctx)
	if err != nil {
		slog.Warn("Notification actions unavailable", "error", err)
		return
	}
	for action := range actions {
		n.mu.Lock()
		current := n.id
		n.mu.Unlock()

		if action.ID == 0 || action.ID != current || action.Key != ActionDisable {
			continue
		}
		slog.Info("Disable push requested from the status notification")
		if n.onDisable != nil {
			n.onDisable()
		}
	}
}

// Close removes the notification and closes the bus connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	id := n.id
	n.id = 0
	n.mu.Unlock()

	if id != 0 {
		if err := n.server.CloseNotification(id); err != nil {
			slog.Debug("Failed to close status notification", "error", err)
		}
	}
	return n.server.Close()
}
