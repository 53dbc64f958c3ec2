package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/notification"
	pushotel "github.com/mailpush/pushd/internal/otel"
	"github.com/mailpush/pushd/internal/presence"
	"github.com/mailpush/pushd/internal/settings"
	"github.com/mailpush/pushd/internal/telemetry"
)

const (
	// DefaultStopGracePeriod bounds how long a single worker may take to stop.
	DefaultStopGracePeriod = 5 * time.Second
	// DefaultStopConcurrency is the number of workers stopped in parallel.
	DefaultStopConcurrency = 8
)

// Controller keeps the set of running push workers in line with the accounts
// that want push and the conditions that allow it.
type Controller interface {
	// Initialize registers signal listeners and runs the first reconciliation.
	// Only the first call has an effect.
	Initialize(ctx context.Context)

	// DisablePushForAllAccounts sets every account's push mode to NONE. Workers
	// are stopped by the reconciliation the resulting account change triggers.
	DisablePushForAllAccounts()

	// RunningAccounts returns the UUIDs that currently have a running worker.
	RunningAccounts() []string

	// Shutdown stops the reconciliation loop and every worker.
	Shutdown(ctx context.Context) error
}

// Option configures the controller.
type Option func(*controller)

// WithMetrics sets the push metrics.
func WithMetrics(m *telemetry.PushMetrics) Option {
	return func(c *controller) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for reconciliation spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *controller) {
		c.tracer = t
	}
}

// WithStopGracePeriod sets how long each worker stop may take.
func WithStopGracePeriod(d time.Duration) Option {
	return func(c *controller) {
		if d > 0 {
			c.stopGrace = d
		}
	}
}

// WithStopConcurrency sets how many workers are stopped in parallel.
func WithStopConcurrency(n int) Option {
	return func(c *controller) {
		if n > 0 {
			c.stopConcurrency = n
		}
	}
}

// pending is the coalesced set of requests waiting for the loop.
type pending struct {
	reconcile      bool
	reconnectAll   bool
	disable        bool
	backendChanged map[string]struct{}
	barriers       []chan struct{}
}

func (p *pending) hasWork() bool {
	return p.reconcile || p.reconnectAll || p.disable || len(p.backendChanged) > 0
}

type controller struct {
	deps Dependencies

	stopGrace       time.Duration
	stopConcurrency int
	metrics         *telemetry.PushMetrics
	tracer          trace.Tracer

	initialized atomic.Bool
	closing     atomic.Bool
	shutdown    sync.Once
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe []func()

	pendingMu sync.Mutex
	pending   pending
	wake      chan struct{}

	// mu guards workers and orders presence changes against Shutdown.
	// Only the loop goroutine and Shutdown mutate workers.
	mu      sync.Mutex
	workers map[string]Worker
}

// New creates a controller. Nothing happens until Initialize is called.
func New(deps Dependencies, opts ...Option) Controller {
	c := &controller{
		deps:            deps,
		stopGrace:       DefaultStopGracePeriod,
		stopConcurrency: DefaultStopConcurrency,
		done:            make(chan struct{}),
		wake:            make(chan struct{}, 1),
		workers:         make(map[string]Worker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *controller) Initialize(ctx context.Context) {
	if !c.initialized.CompareAndSwap(false, true) {
		return
	}

	slog.Info("Initializing push controller")

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	go c.loop(loopCtx)

	c.unsubscribe = append(c.unsubscribe,
		c.deps.Accounts.AddListener(c.requestReconcile),
		c.deps.Backends.AddListener(c.onBackendChanged),
		c.deps.Settings.AddListener(func(settings.BackgroundSync) { c.requestReconcile() }),
	)
	c.deps.Presence.Bind(presence.Listeners{
		OnConnectivityChanged:    c.onConnectivityChanged,
		OnConnectivityLost:       c.requestReconcile,
		OnAutoSyncChanged:        c.requestReconcile,
		OnAlarmPermissionGranted: c.requestReconcile,
	})

	c.requestReconcile()
}

func (c *controller) DisablePushForAllAccounts() {
	slog.Info("Disabling push for all accounts")
	c.enqueue(func(p *pending) { p.disable = true })
}

func (c *controller) RunningAccounts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.workers))
	for uuid := range c.workers {
		out = append(out, uuid)
	}
	sort.Strings(out)
	return out
}

func (c *controller) Shutdown(ctx context.Context) error {
	if !c.initialized.Load() {
		return nil
	}

	var err error
	c.shutdown.Do(func() {
		slog.Info("Shutting down push controller")

		// A pass still in flight may not start workers or touch presence from here on.
		c.closing.Store(true)
		for _, unsubscribe := range c.unsubscribe {
			unsubscribe()
		}
		c.cancel()

		var loopErr error
		select {
		case <-c.done:
		case <-ctx.Done():
			loopErr = fmt.Errorf("push reconciliation loop did not finish: %w", ctx.Err())
			slog.Warn("Push reconciliation loop did not finish before shutdown deadline")
		}

		c.mu.Lock()
		workers := make([]Worker, 0, len(c.workers))
		for uuid, w := range c.workers {
			workers = append(workers, w)
			delete(c.workers, uuid)
		}
		c.mu.Unlock()

		err = errors.Join(loopErr, c.stopWorkers(ctx, workers))
		c.metrics.RecordWorkersRunning(ctx, 0)

		c.mu.Lock()
		c.deps.Presence.Deactivate()
		c.mu.Unlock()
	})
	return err
}

// Signal handlers. They only record the request; the loop does the work.

func (c *controller) requestReconcile() {
	c.enqueue(func(p *pending) { p.reconcile = true })
}

func (c *controller) onConnectivityChanged() {
	c.enqueue(func(p *pending) {
		p.reconnectAll = true
		p.reconcile = true
	})
}

func (c *controller) onBackendChanged(accountUUID string) {
	c.enqueue(func(p *pending) {
		if p.backendChanged == nil {
			p.backendChanged = make(map[string]struct{})
		}
		p.backendChanged[accountUUID] = struct{}{}
		p.reconcile = true
	})
}

func (c *controller) enqueue(update func(*pending)) {
	c.pendingMu.Lock()
	update(&c.pending)
	c.pendingMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// flush returns once every request enqueued before the call has been processed.
func (c *controller) flush(ctx context.Context) error {
	barrier := make(chan struct{})
	c.enqueue(func(p *pending) { p.barriers = append(p.barriers, barrier) })

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *controller) take() pending {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	p := c.pending
	c.pending = pending{}
	return p
}

func (c *controller) loop(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
		case <-c.wake:
		}
		// Both cases may be ready at once; cancellation wins.
		if ctx.Err() != nil {
			// Unblock anyone waiting on a barrier.
			for _, b := range c.take().barriers {
				close(b)
			}
			return
		}

		work := c.take()
		if work.hasWork() {
			c.process(ctx, work)
		}
		for _, b := range work.barriers {
			close(b)
		}
	}
}

// process handles one coalesced batch. A panic aborts the batch but never the loop.
func (c *controller) process(ctx context.Context, work pending) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Push reconciliation aborted by panic",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	if work.disable {
		c.disableAll(ctx)
	}
	for uuid := range work.backendChanged {
		c.stopForBackendChange(ctx, uuid)
	}
	if work.reconnectAll {
		c.reconnectAll()
	}
	c.reconcile(ctx)
}

func (c *controller) disableAll(ctx context.Context) {
	accounts, err := c.deps.Accounts.GetAccounts(ctx)
	if err != nil {
		slog.Error("Failed to list accounts while disabling push", "error", err)
		return
	}
	for _, acc := range accounts {
		if acc.FolderPushMode == account.FolderModeNone {
			continue
		}
		acc.FolderPushMode = account.FolderModeNone
		if err := c.deps.Accounts.SaveAccount(ctx, acc); err != nil {
			slog.Error("Failed to disable push for account", "account", acc.UUID, "error", err)
		}
	}
}

func (c *controller) stopForBackendChange(ctx context.Context, uuid string) {
	c.mu.Lock()
	w, ok := c.workers[uuid]
	if ok {
		delete(c.workers, uuid)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	slog.Info("Backend changed, restarting push worker", "account", uuid)
	c.stopWorker(ctx, w)
}

func (c *controller) reconnectAll() {
	c.mu.Lock()
	workers := make([]Worker, 0, len(c.workers))
	for _, w := range c.workers {
		workers = append(workers, w)
	}
	c.mu.Unlock()

	for _, w := range workers {
		w.Reconnect()
	}
}

type gatingFlags struct {
	backgroundSyncDisabledBySystem bool
	backgroundSyncDisabledInApp    bool
	networkUnavailable             bool
	alarmPermissionMissing         bool
}

func (f gatingFlags) any() bool {
	return f.backgroundSyncDisabledBySystem ||
		f.backgroundSyncDisabledInApp ||
		f.networkUnavailable ||
		f.alarmPermissionMissing
}

func (c *controller) readGatingFlags(ctx context.Context) (gatingFlags, error) {
	bg, err := c.deps.Settings.BackgroundSync(ctx)
	if err != nil {
		return gatingFlags{}, fmt.Errorf("failed to read background sync setting: %w", err)
	}
	return gatingFlags{
		backgroundSyncDisabledBySystem: c.deps.AutoSync.IsAutoSyncDisabled(),
		backgroundSyncDisabledInApp:    bg == settings.BackgroundSyncNever,
		networkUnavailable:             !c.deps.Connectivity.IsNetworkAvailable(),
		alarmPermissionMissing:         !c.deps.Alarms.CanScheduleExactAlarms(),
	}, nil
}

// desiredAccounts returns the accounts that want push and whose backend can push.
func (c *controller) desiredAccounts(ctx context.Context) (map[string]struct{}, error) {
	accounts, err := c.deps.Accounts.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	desired := make(map[string]struct{}, len(accounts))
	for _, acc := range accounts {
		if !acc.IsPushEnabled() {
			continue
		}
		b, err := c.deps.Backends.GetBackend(acc)
		if err != nil {
			slog.Warn("Failed to resolve backend", "account", acc.UUID, "error", err)
			continue
		}
		if b.IsPushCapable() {
			desired[acc.UUID] = struct{}{}
		}
	}
	return desired, nil
}

func (c *controller) reconcile(ctx context.Context) {
	start := time.Now()
	ctx, span := pushotel.StartSpan(ctx, c.tracer, "push.reconcile")
	defer span.End()

	err := c.reconcileOnce(ctx, span)
	pushotel.RecordError(span, err)
	c.metrics.RecordReconcile(ctx, time.Since(start), err == nil)
	if err != nil {
		slog.Error("Push reconciliation failed", "error", err)
	}
}

func (c *controller) reconcileOnce(ctx context.Context, span trace.Span) error {
	realDesired, err := c.desiredAccounts(ctx)
	if err != nil {
		return err
	}
	flags, err := c.readGatingFlags(ctx)
	if err != nil {
		return err
	}

	effective := realDesired
	if flags.any() {
		effective = map[string]struct{}{}
	}

	running := c.applyDiff(ctx, effective)

	state := notification.Derive(notification.Inputs{
		PushAccountsConfigured:         len(realDesired) > 0,
		BackgroundSyncDisabledBySystem: flags.backgroundSyncDisabledBySystem,
		NetworkUnavailable:             flags.networkUnavailable,
		AlarmPermissionMissing:         flags.alarmPermissionMissing,
		WorkersRunning:                 running > 0,
	})
	if !c.applyState(state) {
		slog.Debug("Push controller is shutting down, skipping state update")
		return nil
	}
	c.metrics.RecordNotificationState(ctx, string(state))

	span.SetAttributes(
		pushotel.AttrDesiredAccounts.Int(len(realDesired)),
		pushotel.AttrRunningWorkers.Int(running),
		pushotel.AttrNotificationState.String(string(state)),
		attribute.Bool("push.suppressed", flags.any()),
	)
	slog.Debug("Push reconciliation finished",
		"desired", len(realDesired),
		"running", running,
		"suppressed", flags.any(),
		"state", string(state))
	return nil
}

// applyState publishes state and switches presence to match it. It reports
// false once shutdown has begun, leaving both untouched.
func (c *controller) applyState(state notification.State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing.Load() {
		return false
	}
	c.deps.Publisher.Publish(state)
	if state != notification.StateDisabled {
		c.deps.Presence.Activate()
	} else {
		c.deps.Presence.Deactivate()
	}
	return true
}

// applyDiff stops workers outside the effective set and starts the missing
// ones. It returns the size of the running table afterwards.
func (c *controller) applyDiff(ctx context.Context, effective map[string]struct{}) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toStop []Worker
	for uuid, w := range c.workers {
		if _, ok := effective[uuid]; !ok {
			// Removal is visible before Stop is issued.
			delete(c.workers, uuid)
			toStop = append(toStop, w)
		}
	}
	if len(toStop) > 0 {
		_ = c.stopWorkers(ctx, toStop)
	}

	toStart := make([]string, 0, len(effective))
	for uuid := range effective {
		if _, ok := c.workers[uuid]; !ok {
			toStart = append(toStart, uuid)
		}
	}
	sort.Strings(toStart)
	for _, uuid := range toStart {
		c.startWorkerLocked(ctx, uuid)
	}

	c.metrics.RecordWorkersRunning(ctx, int64(len(c.workers)))
	return len(c.workers)
}

func (c *controller) startWorkerLocked(ctx context.Context, uuid string) {
	defer func() {
		if r := recover(); r != nil {
			delete(c.workers, uuid)
			c.metrics.RecordWorkerStart(ctx, false)
			slog.Error("Push worker start panicked", "account", uuid, "panic", fmt.Sprint(r))
		}
	}()

	if c.closing.Load() {
		slog.Debug("Push controller is shutting down, not starting worker", "account", uuid)
		return
	}

	acc, err := c.deps.Accounts.GetAccount(ctx, uuid)
	if errors.Is(err, account.ErrAccountNotFound) {
		slog.Error("Desired account is missing from the registry, skipping", "account", uuid)
		return
	}
	if err != nil {
		slog.Warn("Failed to load account for push worker", "account", uuid, "error", err)
		return
	}

	w, err := c.deps.Workers.Create(*acc)
	if err != nil {
		c.metrics.RecordWorkerStart(ctx, false)
		slog.Warn("Failed to create push worker", "account", uuid, "error", err)
		return
	}

	c.workers[uuid] = w
	if err := w.Start(); err != nil {
		delete(c.workers, uuid)
		c.metrics.RecordWorkerStart(ctx, false)
		slog.Warn("Failed to start push worker", "account", uuid, "error", err)
		return
	}
	c.metrics.RecordWorkerStart(ctx, true)
	slog.Info("Push worker started", "account", uuid)
}

// stopWorkers stops workers in parallel, each bounded by the grace period.
func (c *controller) stopWorkers(ctx context.Context, workers []Worker) error {
	g := new(errgroup.Group)
	g.SetLimit(c.stopConcurrency)
	for _, w := range workers {
		g.Go(func() error {
			return c.stopWorker(ctx, w)
		})
	}
	return g.Wait()
}

func (c *controller) stopWorker(ctx context.Context, w Worker) (err error) {
	uuid := w.AccountUUID()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("push worker stop panicked: %v", r)
		}
		c.metrics.RecordWorkerStop(ctx, err == nil)
		if err != nil {
			slog.Warn("Failed to stop push worker", "account", uuid, "error", err)
			return
		}
		slog.Info("Push worker stopped", "account", uuid)
	}()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.stopGrace)
	defer cancel()
	return w.Stop(stopCtx)
}
