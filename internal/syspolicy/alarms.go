package syspolicy

import "sync"

// Alarms reports whether exact wakeups may be scheduled. Hosts that do not
// require the permission always allow them.
type Alarms struct {
	watcher  *Watcher
	required bool

	mu     sync.Mutex
	remove func()
}

// NewAlarms creates an Alarms source. When required is false the permission
// is never missing.
func NewAlarms(w *Watcher, required bool) *Alarms {
	return &Alarms{watcher: w, required: required}
}

func (a *Alarms) allowed(p Policy) bool {
	return !a.required || p.ExactAlarmsAllowed()
}

// CanScheduleExactAlarms reports the current permission.
func (a *Alarms) CanScheduleExactAlarms() bool {
	return a.allowed(a.watcher.Policy())
}

// RegisterListener sets the function called when the permission is granted.
// It replaces any previous listener.
func (a *Alarms) RegisterListener(onGranted func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.remove != nil {
		a.remove()
	}
	a.remove = a.watcher.subscribe(func(old, updated Policy) {
		if !a.allowed(old) && a.allowed(updated) {
			onGranted()
		}
	})
}

// UnregisterListener removes the listener, if any.
func (a *Alarms) UnregisterListener() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.remove != nil {
		a.remove()
		a.remove = nil
	}
}

// HasListener reports whether a listener is registered.
func (a *Alarms) HasListener() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remove != nil
}
