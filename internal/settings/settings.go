// Package settings holds the general application settings that influence push,
// currently the background synchronization policy.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// BackgroundSync is the user's background synchronization policy.
type BackgroundSync string

const (
	// BackgroundSyncAlways syncs in the background regardless of the system setting.
	BackgroundSyncAlways BackgroundSync = "ALWAYS"
	// BackgroundSyncNever disables background sync, and with it push.
	BackgroundSyncNever BackgroundSync = "NEVER"
	// BackgroundSyncFollowSystem defers to the system wide auto-sync switch.
	BackgroundSyncFollowSystem BackgroundSync = "FOLLOW_SYSTEM"
)

// DefaultBackgroundSync is used when nothing has been stored yet.
const DefaultBackgroundSync = BackgroundSyncFollowSystem

// KeyBackgroundSync is the settings key holding the background sync policy.
const KeyBackgroundSync = "background_sync"

// ErrSettingNotFound is returned by a Store when a key has never been written.
var ErrSettingNotFound = errors.New("setting not found")

// ParseBackgroundSync accepts "always", "never", "follow-system" and the stored spellings.
func ParseBackgroundSync(s string) (BackgroundSync, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "ALWAYS":
		return BackgroundSyncAlways, nil
	case "NEVER":
		return BackgroundSyncNever, nil
	case "FOLLOW_SYSTEM", "FOLLOWSYSTEM":
		return BackgroundSyncFollowSystem, nil
	default:
		return "", fmt.Errorf("unknown background sync value %q", s)
	}
}

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/mailpush/pushd/internal/settings Store

// Store persists settings as string key/value pairs.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Manager exposes typed access to the settings and notifies listeners when the
// background sync value actually changes.
type Manager struct {
	store Store

	mu        sync.Mutex
	current   BackgroundSync
	loaded    bool
	listeners map[int]func(BackgroundSync)
	nextID    int
}

// NewManager creates a settings manager on top of a store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:     store,
		listeners: make(map[int]func(BackgroundSync)),
	}
}

// BackgroundSync returns the current policy. The value is cached after the first read.
func (m *Manager) BackgroundSync(ctx context.Context) (BackgroundSync, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.current, nil
	}

	value, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	m.current = value
	m.loaded = true
	return value, nil
}

func (m *Manager) load(ctx context.Context) (BackgroundSync, error) {
	raw, err := m.store.GetSetting(ctx, KeyBackgroundSync)
	if errors.Is(err, ErrSettingNotFound) {
		return DefaultBackgroundSync, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read background sync setting: %w", err)
	}
	value, err := ParseBackgroundSync(raw)
	if err != nil {
		return "", fmt.Errorf("stored background sync setting is invalid: %w", err)
	}
	return value, nil
}

// SetBackgroundSync stores a new policy and notifies listeners if it differs
// from the previous one.
func (m *Manager) SetBackgroundSync(ctx context.Context, value BackgroundSync) error {
	if _, err := ParseBackgroundSync(string(value)); err != nil {
		return err
	}

	m.mu.Lock()
	previous := m.current
	wasLoaded := m.loaded
	if !wasLoaded {
		loaded, err := m.load(ctx)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		previous = loaded
	}
	if err := m.store.PutSetting(ctx, KeyBackgroundSync, string(value)); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to save background sync setting: %w", err)
	}
	m.current = value
	m.loaded = true
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if previous == value {
		return nil
	}
	for _, l := range listeners {
		l(value)
	}
	return nil
}

// Reload rereads the stored value, which another process may have written,
// and notifies listeners when it differs from the cached one.
func (m *Manager) Reload(ctx context.Context) error {
	value, err := m.load(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	changed := !m.loaded || m.current != value
	m.current = value
	m.loaded = true
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if !changed {
		return nil
	}
	for _, l := range listeners {
		l(value)
	}
	return nil
}

// AddListener registers a callback invoked with the new value on every change.
func (m *Manager) AddListener(listener func(BackgroundSync)) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) snapshotListeners() []func(BackgroundSync) {
	out := make([]func(BackgroundSync), 0, len(m.listeners))
	for _, l := range m.listeners {
		out = append(out, l)
	}
	return out
}
