package syspolicy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mailpush/pushd/internal/settings"
)

// BackgroundSyncReader reads the in-app background sync setting.
type BackgroundSyncReader interface {
	BackgroundSync(ctx context.Context) (settings.BackgroundSync, error)
}

// AutoSync answers whether the system auto-sync switch blocks background work.
// The switch only matters when the user asked to follow it.
type AutoSync struct {
	watcher  *Watcher
	settings BackgroundSyncReader

	mu     sync.Mutex
	remove func()
}

// NewAutoSync creates an AutoSync reading w and the background sync setting.
func NewAutoSync(w *Watcher, s BackgroundSyncReader) *AutoSync {
	return &AutoSync{watcher: w, settings: s}
}

// RespectSystemAutoSync reports whether background sync follows the system switch.
func (a *AutoSync) RespectSystemAutoSync() bool {
	bg, err := a.settings.BackgroundSync(context.Background())
	if err != nil {
		slog.Warn("Failed to read background sync setting", "error", err)
		return false
	}
	return bg == settings.BackgroundSyncFollowSystem
}

// IsAutoSyncDisabled is true when the setting follows the system and the
// system switch is off.
func (a *AutoSync) IsAutoSyncDisabled() bool {
	return a.RespectSystemAutoSync() && !a.watcher.Policy().AutoSyncEnabled()
}

// RegisterListener sets the function called when the system switch flips.
// It replaces any previous listener.
func (a *AutoSync) RegisterListener(listener func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.remove != nil {
		a.remove()
	}
	a.remove = a.watcher.subscribe(func(old, updated Policy) {
		if old.AutoSyncEnabled() != updated.AutoSyncEnabled() {
			listener()
		}
	})
}

// UnregisterListener removes the listener, if any.
func (a *AutoSync) UnregisterListener() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.remove != nil {
		a.remove()
		a.remove = nil
	}
}

// HasListener reports whether a listener is registered.
func (a *AutoSync) HasListener() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remove != nil
}
