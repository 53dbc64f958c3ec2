package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/mailpush/pushd/internal/account Store

// Store is the persistence used by the registry.
type Store interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, uuid string) (*Account, error)
	UpsertAccount(ctx context.Context, acc Account) error
	DeleteAccount(ctx context.Context, uuid string) error
}

// Registry is the authoritative list of configured accounts.
// Listeners run synchronously after every committed change and must not block.
type Registry interface {
	GetAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, uuid string) (*Account, error)
	SaveAccount(ctx context.Context, acc Account) error
	DeleteAccount(ctx context.Context, uuid string) error
	AddListener(listener func()) (remove func())
	// Reload notifies listeners of changes written by another process.
	Reload()
}

type registry struct {
	store Store

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(store Store) Registry {
	return &registry{
		store:     store,
		listeners: make(map[int]func()),
	}
}

// GetAccounts returns every account ordered by name, then UUID.
func (r *registry) GetAccounts(ctx context.Context) ([]Account, error) {
	accounts, err := r.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Name != accounts[j].Name {
			return accounts[i].Name < accounts[j].Name
		}
		return accounts[i].UUID < accounts[j].UUID
	})
	return accounts, nil
}

func (r *registry) GetAccount(ctx context.Context, uuid string) (*Account, error) {
	acc, err := r.store.GetAccount(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", uuid, err)
	}
	return acc, nil
}

func (r *registry) SaveAccount(ctx context.Context, acc Account) error {
	if acc.FolderPushMode == "" {
		acc.FolderPushMode = FolderModeNone
	}
	if err := acc.Validate(); err != nil {
		return fmt.Errorf("invalid account %s: %w", acc.UUID, err)
	}
	if err := r.store.UpsertAccount(ctx, acc); err != nil {
		return fmt.Errorf("failed to save account %s: %w", acc.UUID, err)
	}
	r.notify()
	return nil
}

func (r *registry) DeleteAccount(ctx context.Context, uuid string) error {
	if err := r.store.DeleteAccount(ctx, uuid); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", uuid, err)
	}
	r.notify()
	return nil
}

func (r *registry) AddListener(listener func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = listener

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *registry) Reload() {
	r.notify()
}

func (r *registry) notify() {
	r.mu.Lock()
	listeners := make([]func(), 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}
