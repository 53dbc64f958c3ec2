package push_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/backend"
	"github.com/mailpush/pushd/internal/notification"
	"github.com/mailpush/pushd/internal/presence"
	"github.com/mailpush/pushd/internal/push"
	"github.com/mailpush/pushd/internal/settings"
	"github.com/mailpush/pushd/internal/transport"
)

type listenerSet struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func()
}

func (l *listenerSet) add(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = map[int]func(){}
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listenerSet) fire() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// fakeRegistry is an in-memory account registry. GetAccounts can be gated
// to hold the orchestrator inside a pass.
type fakeRegistry struct {
	mu        sync.Mutex
	accounts  map[string]account.Account
	missing   map[string]bool
	panicNext bool
	gate      chan struct{}
	entered   chan struct{}
	listeners listenerSet
}

func newFakeRegistry(accounts ...account.Account) *fakeRegistry {
	r := &fakeRegistry{accounts: map[string]account.Account{}, missing: map[string]bool{}}
	for _, acc := range accounts {
		r.accounts[acc.UUID] = acc
	}
	return r
}

// block makes the next GetAccounts calls wait for release. entered receives
// once per blocked call.
func (r *fakeRegistry) block() (entered <-chan struct{}, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	r.entered = make(chan struct{}, 64)
	gate := r.gate
	return r.entered, func() {
		r.mu.Lock()
		r.gate = nil
		r.mu.Unlock()
		close(gate)
	}
}

func (r *fakeRegistry) GetAccounts(context.Context) ([]account.Account, error) {
	r.mu.Lock()
	gate, entered := r.gate, r.entered
	if r.panicNext {
		r.panicNext = false
		r.mu.Unlock()
		panic("account storage corrupted")
	}
	r.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]account.Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out, nil
}

func (r *fakeRegistry) GetAccount(_ context.Context, uuid string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[uuid]
	if !ok || r.missing[uuid] {
		return nil, account.ErrAccountNotFound
	}
	return &acc, nil
}

func (r *fakeRegistry) SaveAccount(_ context.Context, acc account.Account) error {
	r.mu.Lock()
	r.accounts[acc.UUID] = acc
	r.mu.Unlock()
	r.listeners.fire()
	return nil
}

func (r *fakeRegistry) AddListener(fn func()) func() {
	return r.listeners.add(fn)
}

func (r *fakeRegistry) pushMode(uuid string) account.FolderMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[uuid].FolderPushMode
}

type fakeBackend struct {
	pushCapable bool
}

func (b fakeBackend) Type() string {
	if b.pushCapable {
		return account.ServerTypeIMAP
	}
	return account.ServerTypePOP3
}
func (b fakeBackend) IsPushCapable() bool              { return b.pushCapable }
func (fakeBackend) PushConnector() transport.Connector { return nil }

type fakeBackends struct {
	mu        sync.Mutex
	listeners []func(string)
}

func (*fakeBackends) GetBackend(acc account.Account) (backend.Backend, error) {
	switch acc.Incoming.Type {
	case account.ServerTypeIMAP:
		return fakeBackend{pushCapable: true}, nil
	case account.ServerTypePOP3:
		return fakeBackend{}, nil
	default:
		return nil, errors.New("unknown server type")
	}
}

func (b *fakeBackends) AddListener(fn func(string)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
	return func() {}
}

func (b *fakeBackends) changed(uuid string) {
	b.mu.Lock()
	listeners := append([]func(string){}, b.listeners...)
	b.mu.Unlock()
	for _, fn := range listeners {
		fn(uuid)
	}
}

type fakeSettings struct {
	mu        sync.Mutex
	value     settings.BackgroundSync
	listeners []func(settings.BackgroundSync)
}

func (s *fakeSettings) BackgroundSync(context.Context) (settings.BackgroundSync, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == "" {
		return settings.DefaultBackgroundSync, nil
	}
	return s.value, nil
}

func (s *fakeSettings) AddListener(fn func(settings.BackgroundSync)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	return func() {}
}

func (s *fakeSettings) set(v settings.BackgroundSync) {
	s.mu.Lock()
	s.value = v
	listeners := append([]func(settings.BackgroundSync){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

// fakeFlags holds the gating inputs. The zero value allows push.
type fakeFlags struct {
	autoSyncDisabled atomic.Bool
	networkDown      atomic.Bool
	alarmsMissing    atomic.Bool
}

func (f *fakeFlags) IsAutoSyncDisabled() bool     { return f.autoSyncDisabled.Load() }
func (f *fakeFlags) IsNetworkAvailable() bool     { return !f.networkDown.Load() }
func (f *fakeFlags) CanScheduleExactAlarms() bool { return !f.alarmsMissing.Load() }

type fakePublisher struct {
	mu     sync.Mutex
	states []notification.State
}

func (p *fakePublisher) Publish(s notification.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
}

func (p *fakePublisher) last() notification.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return ""
	}
	return p.states[len(p.states)-1]
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

type fakePresence struct {
	mu          sync.Mutex
	listeners   presence.Listeners
	active      bool
	activations int
}

func (p *fakePresence) Bind(l presence.Listeners) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = l
}

func (p *fakePresence) Activate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
	p.activations++
}

func (p *fakePresence) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

func (p *fakePresence) isActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *fakePresence) bound() presence.Listeners {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listeners
}

// fakeWorker counts lifecycle calls.
type fakeWorker struct {
	uuid       string
	startErr   error
	stopBlocks bool
	starts     atomic.Int32
	stops      atomic.Int32
	reconnects atomic.Int32
}

func (w *fakeWorker) AccountUUID() string { return w.uuid }

func (w *fakeWorker) Start() error {
	w.starts.Add(1)
	return w.startErr
}

func (w *fakeWorker) Stop(ctx context.Context) error {
	w.stops.Add(1)
	if w.stopBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (w *fakeWorker) Reconnect() { w.reconnects.Add(1) }

// fakeFactory records every worker it built.
type fakeFactory struct {
	mu       sync.Mutex
	workers  []*fakeWorker
	startErr map[string]error
	blocking map[string]bool
}

func (f *fakeFactory) Create(acc account.Account) (push.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWorker{uuid: acc.UUID, startErr: f.startErr[acc.UUID], stopBlocks: f.blocking[acc.UUID]}
	f.workers = append(f.workers, w)
	return w, nil
}

func (f *fakeFactory) built(uuid string) []*fakeWorker {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeWorker
	for _, w := range f.workers {
		if w.uuid == uuid {
			out = append(out, w)
		}
	}
	return out
}

func (f *fakeFactory) totals() (starts, stops int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.workers {
		starts += w.starts.Load()
		stops += w.stops.Load()
	}
	return starts, stops
}
