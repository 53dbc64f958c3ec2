package presence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrAlreadyActive is returned when another pushd process holds the lock.
var ErrAlreadyActive = errors.New("another pushd instance holds the push lock")

// LockService holds an exclusive lock file while push is active.
type LockService struct {
	path string

	mu   sync.Mutex
	lock *flock.Flock
}

// NewLockService creates a lock service for path.
func NewLockService(path string) *LockService {
	return &LockService{path: filepath.Clean(path)}
}

// Path returns the lock file location.
func (l *LockService) Path() string {
	return l.path
}

// Start acquires the lock. It is a no-op while the lock is held.
func (l *LockService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lock != nil && l.lock.Locked() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0750); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}
	if !locked {
		return ErrAlreadyActive
	}
	l.lock = fl
	return nil
}

// Stop releases the lock if held.
func (l *LockService) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	l.lock = nil
	if err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	return nil
}

// Held reports whether this service holds the lock.
func (l *LockService) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lock != nil && l.lock.Locked()
}

// IsLocked reports whether any process holds the lock at path.
func IsLocked(path string) (bool, error) {
	fl := flock.New(filepath.Clean(path))
	locked, err := fl.TryLock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if locked {
		_ = fl.Unlock()
		return false, nil
	}
	return true, nil
}
