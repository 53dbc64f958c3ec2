// Package connectivity watches whether the host has a usable network and
// tells listeners when it appears, changes identity or disappears.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultInterval is how often the probe runs while the monitor is started.
	DefaultInterval = 10 * time.Second
	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 3 * time.Second
)

// ErrNoNetwork is returned by probes that found nothing usable.
var ErrNoNetwork = errors.New("no network available")

// Probe checks the network once. It returns an identity string that changes
// when the host moves to a different network, or an error when none is usable.
type Probe func(ctx context.Context) (identity string, err error)

// Listener receives connectivity events. Nil fields are skipped.
type Listener struct {
	OnChanged func()
	OnLost    func()
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithProbe replaces the default interface probe.
func WithProbe(p Probe) Option {
	return func(m *Monitor) {
		m.probe = p
	}
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithTimeout sets the per-probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// Monitor polls a Probe while started.
type Monitor struct {
	probe    Probe
	interval time.Duration
	timeout  time.Duration

	mu        sync.Mutex
	listeners []*Listener
	started   bool
	known     bool
	available bool
	identity  string
	// last answer handed out by IsNetworkAvailable while no baseline existed
	reported          bool
	reportedAvailable bool
	cancel            context.CancelFunc
	done              chan struct{}
}

// NewMonitor creates a stopped monitor.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		probe:    InterfaceProbe(),
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsNetworkAvailable returns the last observed availability. Before the first
// observation, or while stopped, it probes synchronously.
func (m *Monitor) IsNetworkAvailable() bool {
	m.mu.Lock()
	if m.started && m.known {
		available := m.available
		m.mu.Unlock()
		return available
	}
	m.mu.Unlock()

	_, err := m.runProbe(context.Background())
	available := err == nil

	m.mu.Lock()
	m.reported, m.reportedAvailable = true, available
	m.mu.Unlock()
	return available
}

// Start records the current network as the baseline and begins polling.
// When the baseline disagrees with what IsNetworkAvailable last returned,
// listeners are notified right away. Starting a running monitor does nothing.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.started = true
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.check(ctx)
	go m.loop(ctx)

	slog.Debug("Connectivity monitor started", "interval", m.interval.String())
	return nil
}

// Stop ends polling and forgets the baseline.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.started = false
	m.known = false
	m.reported = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	<-done
	slog.Debug("Connectivity monitor stopped")
}

// AddListener registers l. Adding the same listener twice has no effect.
func (m *Monitor) AddListener(l *Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.listeners {
		if existing == l {
			return
		}
	}
	m.listeners = append(m.listeners, l)
}

// RemoveListener unregisters l.
func (m *Monitor) RemoveListener(l *Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) runProbe(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.probe(ctx)
}

// check probes once and notifies listeners about the difference to the last result.
func (m *Monitor) check(ctx context.Context) {
	identity, err := m.runProbe(ctx)
	if ctx.Err() != nil {
		return
	}
	available := err == nil

	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	wasKnown, wasAvailable, prevIdentity := m.known, m.available, m.identity
	if !wasKnown {
		if !m.reported {
			m.known, m.available, m.identity = true, available, identity
			m.mu.Unlock()
			return
		}
		// compare the baseline with the stopped-state answer callers acted on
		wasAvailable, prevIdentity = m.reportedAvailable, identity
		m.reported = false
	}
	m.known, m.available, m.identity = true, available, identity
	listeners := append([]*Listener(nil), m.listeners...)
	m.mu.Unlock()

	switch {
	case available && (!wasAvailable || identity != prevIdentity):
		slog.Info("Network connectivity changed", "network", identity)
		for _, l := range listeners {
			if l.OnChanged != nil {
				l.OnChanged()
			}
		}
	case !available && wasAvailable:
		slog.Info("Network connectivity lost", "error", err)
		for _, l := range listeners {
			if l.OnLost != nil {
				l.OnLost()
			}
		}
	}
}

// InterfaceProbe reports the network as available when an up, non-loopback
// interface has a global unicast address. The identity lists those addresses.
func InterfaceProbe() Probe {
	return func(context.Context) (string, error) {
		ifaces, err := net.Interfaces()
		if err != nil {
			return "", fmt.Errorf("failed to list interfaces: %w", err)
		}

		var found []string
		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, addr := range addrs {
				ipNet, ok := addr.(*net.IPNet)
				if !ok || !ipNet.IP.IsGlobalUnicast() {
					continue
				}
				found = append(found, iface.Name+"="+ipNet.IP.String())
			}
		}
		if len(found) == 0 {
			return "", ErrNoNetwork
		}
		sort.Strings(found)
		return strings.Join(found, ","), nil
	}
}

// TCPProbe reports the network as available when any of addresses accepts a
// TCP connection. The identity is the local address used for the connection.
func TCPProbe(addresses []string) Probe {
	return func(ctx context.Context) (string, error) {
		var dialer net.Dialer
		var errs []error
		for _, address := range addresses {
			conn, err := dialer.DialContext(ctx, "tcp", address)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			local := conn.LocalAddr()
			_ = conn.Close()
			if tcpAddr, ok := local.(*net.TCPAddr); ok {
				return tcpAddr.IP.String(), nil
			}
			return local.String(), nil
		}
		if len(errs) == 0 {
			return "", ErrNoNetwork
		}
		return "", errors.Join(append([]error{ErrNoNetwork}, errs...)...)
	}
}
