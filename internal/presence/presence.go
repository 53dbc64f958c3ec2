// Package presence keeps pushd visible and alive while push is wanted: it holds
// the daemon lock, installs the login autostart entry and owns the listeners
// for the signals that only matter while push is active.
package presence

import (
	"log/slog"
	"sync"

	"github.com/mailpush/pushd/internal/connectivity"
)

//go:generate mockgen -destination=mocks/mock_presence.go -package=mocks github.com/mailpush/pushd/internal/presence Service,ConnectivityMonitor,AutoSyncSource,AlarmSource

// Listeners are the orchestrator callbacks wired to the signal sources.
type Listeners struct {
	OnConnectivityChanged    func()
	OnConnectivityLost       func()
	OnAutoSyncChanged        func()
	OnAlarmPermissionGranted func()
}

// Service is a start/stop side effect of being active.
type Service interface {
	Start() error
	Stop() error
}

// ConnectivityMonitor is the part of the connectivity monitor presence drives.
type ConnectivityMonitor interface {
	Start() error
	Stop()
	AddListener(l *connectivity.Listener)
	RemoveListener(l *connectivity.Listener)
}

// AutoSyncSource is the system auto-sync switch.
type AutoSyncSource interface {
	RespectSystemAutoSync() bool
	RegisterListener(listener func())
	UnregisterListener()
}

// AlarmSource is the exact alarm permission.
type AlarmSource interface {
	CanScheduleExactAlarms() bool
	RegisterListener(onGranted func())
	UnregisterListener()
}

// Config lists what the controller fans out to. Nil services are skipped.
type Config struct {
	KeepAlive    Service
	BootHook     Service
	Connectivity ConnectivityMonitor
	AutoSync     AutoSyncSource
	Alarms       AlarmSource
}

// Controller switches the presence services on and off. Activate and
// Deactivate are called on every reconciliation pass and are idempotent.
type Controller struct {
	cfg Config

	mu        sync.Mutex
	listeners Listeners
	connL     *connectivity.Listener
	active    bool
}

// New creates an inactive controller.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Bind sets the callbacks used by later activations.
func (c *Controller) Bind(l Listeners) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = l
	c.connL = &connectivity.Listener{
		OnChanged: l.OnConnectivityChanged,
		OnLost:    l.OnConnectivityLost,
	}
}

// Active reports whether the last call was Activate.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Activate starts the presence services and registers the listeners that are
// currently relevant. Failures are logged and do not stop the other steps.
func (c *Controller) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		slog.Info("Activating push presence")
	}
	c.active = true

	if c.cfg.KeepAlive != nil {
		if err := c.cfg.KeepAlive.Start(); err != nil {
			slog.Error("Failed to acquire daemon lock", "error", err)
		}
	}
	if c.cfg.BootHook != nil {
		if err := c.cfg.BootHook.Start(); err != nil {
			slog.Warn("Failed to install autostart entry", "error", err)
		}
	}

	if c.cfg.AutoSync != nil {
		if c.cfg.AutoSync.RespectSystemAutoSync() && c.listeners.OnAutoSyncChanged != nil {
			c.cfg.AutoSync.RegisterListener(c.listeners.OnAutoSyncChanged)
		} else {
			c.cfg.AutoSync.UnregisterListener()
		}
	}

	if c.cfg.Connectivity != nil {
		if c.connL != nil {
			c.cfg.Connectivity.AddListener(c.connL)
		}
		if err := c.cfg.Connectivity.Start(); err != nil {
			slog.Warn("Failed to start connectivity monitor", "error", err)
		}
	}

	if c.cfg.Alarms != nil {
		if !c.cfg.Alarms.CanScheduleExactAlarms() && c.listeners.OnAlarmPermissionGranted != nil {
			c.cfg.Alarms.RegisterListener(c.listeners.OnAlarmPermissionGranted)
		} else {
			c.cfg.Alarms.UnregisterListener()
		}
	}
}

// Deactivate stops every presence service and removes all listeners.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		slog.Info("Deactivating push presence")
	}
	c.active = false

	if c.cfg.KeepAlive != nil {
		if err := c.cfg.KeepAlive.Stop(); err != nil {
			slog.Warn("Failed to release daemon lock", "error", err)
		}
	}
	if c.cfg.BootHook != nil {
		if err := c.cfg.BootHook.Stop(); err != nil {
			slog.Warn("Failed to remove autostart entry", "error", err)
		}
	}
	if c.cfg.AutoSync != nil {
		c.cfg.AutoSync.UnregisterListener()
	}
	if c.cfg.Connectivity != nil {
		if c.connL != nil {
			c.cfg.Connectivity.RemoveListener(c.connL)
		}
		c.cfg.Connectivity.Stop()
	}
	if c.cfg.Alarms != nil {
		c.cfg.Alarms.UnregisterListener()
	}
}
