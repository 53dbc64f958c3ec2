// Package syspolicy reads the host level switches that gate background work:
// the system wide auto-sync toggle and the exact alarm permission. Both live
// in a small YAML file that is watched for changes.
package syspolicy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Policy is the content of the policy file. Missing keys mean allowed.
type Policy struct {
	AutoSync    *bool `yaml:"autoSync,omitempty"`
	ExactAlarms *bool `yaml:"exactAlarms,omitempty"`
}

// AutoSyncEnabled reports the system auto-sync switch.
func (p Policy) AutoSyncEnabled() bool {
	return p.AutoSync == nil || *p.AutoSync
}

// ExactAlarmsAllowed reports the exact alarm permission.
func (p Policy) ExactAlarmsAllowed() bool {
	return p.ExactAlarms == nil || *p.ExactAlarms
}

// LoadPolicy reads the policy file. A missing file yields the zero Policy.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return Policy{}, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	return p, nil
}

// SavePolicy writes the policy file.
func SavePolicy(path string, p Policy) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create policy directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace policy file: %w", err)
	}
	return nil
}

// Watcher keeps the latest policy in memory and reloads it when the file changes.
type Watcher struct {
	path string

	mu          sync.Mutex
	policy      Policy
	subscribers map[int]func(old, updated Policy)
	nextID      int

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher creates a watcher for path. Call Start to load and watch it.
func NewWatcher(path string) *Watcher {
	return &Watcher{
		path:        filepath.Clean(path),
		subscribers: make(map[int]func(old, updated Policy)),
	}
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Policy returns the last loaded policy.
func (w *Watcher) Policy() Policy {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.policy
}

// Start loads the policy and watches the file's directory until ctx is done
// or Close is called. The directory is watched so that atomic replacements
// and later creation of the file are seen.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.Reload(); err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create policy directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.watch(ctx, fsw)
	slog.Debug("Watching system policy", "path", w.path)
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fsw, done := w.fsw, w.done
	w.fsw = nil
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}
	err := fsw.Close()
	<-done
	return err
}

// Reload rereads the file and notifies subscribers when the policy changed.
func (w *Watcher) Reload() error {
	p, err := LoadPolicy(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	old := w.policy
	w.policy = p
	subs := make([]func(old, updated Policy), 0, len(w.subscribers))
	for _, s := range w.subscribers {
		subs = append(subs, s)
	}
	w.mu.Unlock()

	for _, s := range subs {
		s(old, p)
	}
	return nil
}

func (w *Watcher) subscribe(fn func(old, updated Policy)) (remove func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.subscribers[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subscribers, id)
	}
}

func (w *Watcher) watch(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			_ = fsw.Close()
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := w.Reload(); err != nil {
				slog.Warn("Failed to reload system policy", "path", w.path, "error", err)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("System policy watcher error", "error", err)
		}
	}
}
