package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mailpush/pushd/internal/account"
)

type cachedBackend struct {
	key     string
	backend Backend
}

// Manager caches one backend per account and reports when a cached backend is
// replaced because the account's server settings changed or the account was removed.
type Manager struct {
	factories map[string]Factory

	mu        sync.Mutex
	backends  map[string]cachedBackend
	listeners map[int]func(accountUUID string)
	nextID    int
}

// NewManager creates a manager with one factory per server type.
func NewManager(factories map[string]Factory) *Manager {
	return &Manager{
		factories: factories,
		backends:  make(map[string]cachedBackend),
		listeners: make(map[int]func(string)),
	}
}

// GetBackend returns the backend for the account, creating it when the cached
// one is missing or bound to different server settings.
func (m *Manager) GetBackend(acc account.Account) (Backend, error) {
	key := acc.Incoming.Key()

	m.mu.Lock()
	if cached, ok := m.backends[acc.UUID]; ok && cached.key == key {
		m.mu.Unlock()
		return cached.backend, nil
	}
	m.mu.Unlock()

	factory, ok := m.factories[acc.Incoming.Type]
	if !ok {
		return nil, fmt.Errorf("no backend for server type %q", acc.Incoming.Type)
	}
	b, err := factory(acc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend for account %s: %w", acc.Incoming.Type, acc.UUID, err)
	}

	m.mu.Lock()
	previous, replaced := m.backends[acc.UUID]
	m.backends[acc.UUID] = cachedBackend{key: key, backend: b}
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if replaced && previous.key != key {
		m.notify(listeners, acc.UUID)
	}
	return b, nil
}

// Refresh drops cached backends whose account disappeared or whose server
// settings changed, and notifies listeners for each of them.
func (m *Manager) Refresh(accounts []account.Account) {
	current := make(map[string]string, len(accounts))
	for _, acc := range accounts {
		current[acc.UUID] = acc.Incoming.Key()
	}

	m.mu.Lock()
	var changed []string
	for uuid, cached := range m.backends {
		if key, ok := current[uuid]; !ok || key != cached.key {
			delete(m.backends, uuid)
			changed = append(changed, uuid)
		}
	}
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	for _, uuid := range changed {
		m.notify(listeners, uuid)
	}
}

// Watch keeps the cache in sync with the registry until the returned function is called.
func (m *Manager) Watch(ctx context.Context, registry account.Registry) (stop func()) {
	return registry.AddListener(func() {
		accounts, err := registry.GetAccounts(ctx)
		if err != nil {
			slog.Warn("Failed to refresh backends after account change", "error", err)
			return
		}
		m.Refresh(accounts)
	})
}

// AddListener registers a callback invoked with the account UUID whose backend changed.
func (m *Manager) AddListener(listener func(accountUUID string)) (remove func()) {
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

func (m *Manager) snapshotListeners() []func(string) {
	out := make([]func(string), 0, len(m.listeners))
	for _, l := range m.listeners {
		out = append(out, l)
	}
	return out
}

func (*Manager) notify(listeners []func(string), uuid string) {
	slog.Debug("Backend changed", "account", uuid)
	for _, l := range listeners {
		l(uuid)
	}
}
