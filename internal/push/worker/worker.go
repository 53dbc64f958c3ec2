// Package worker implements the per-account push worker: one goroutine that
// connects, idles for new mail and reconnects with capped exponential backoff
// until it is stopped.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hako/durafmt"

	"github.com/mailpush/pushd/internal/transport"
)

// ErrWorkerStopped is returned when starting a worker that was already stopped.
// Workers are never reused; build a new one instead.
var ErrWorkerStopped = errors.New("worker stopped")

const (
	// DefaultInitialBackoff is the first retry delay.
	DefaultInitialBackoff = 5 * time.Second
	// DefaultMaxBackoff caps the retry delay.
	DefaultMaxBackoff = 5 * time.Minute
)

// Receiver is told about new mail found by a worker.
type Receiver interface {
	NewMail(ctx context.Context, accountUUID, folder string, messages uint32)
}

// ReceiverFunc adapts a function to a Receiver.
type ReceiverFunc func(ctx context.Context, accountUUID, folder string, messages uint32)

// NewMail calls f.
func (f ReceiverFunc) NewMail(ctx context.Context, accountUUID, folder string, messages uint32) {
	f(ctx, accountUUID, folder, messages)
}

// StateObserver is called after every state change, outside the worker's lock.
type StateObserver func(accountUUID string, from, to State)

// Option configures a Worker.
type Option func(*Worker)

// WithBackOff sets the retry policy factory. Each run gets its own policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(w *Worker) {
		w.newBackOff = newBackOff
	}
}

// WithReceiver sets where new mail events go.
func WithReceiver(r Receiver) Option {
	return func(w *Worker) {
		w.receiver = r
	}
}

// WithStateObserver registers a state change hook.
func WithStateObserver(o StateObserver) Option {
	return func(w *Worker) {
		w.observer = o
	}
}

// ExponentialBackOff returns a policy factory growing from initial to max.
func ExponentialBackOff(initial, maxInterval time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
		b.Multiplier = 2
		b.RandomizationFactor = 0.2
		b.Reset()
		return b
	}
}

// Worker owns the push connection of one account.
type Worker struct {
	accountUUID string
	connector   transport.Connector
	receiver    Receiver
	newBackOff  func() backoff.BackOff
	observer    StateObserver

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	reconnect chan struct{}
}

// New creates a worker in StateIdle.
func New(accountUUID string, connector transport.Connector, opts ...Option) *Worker {
	w := &Worker{
		accountUUID: accountUUID,
		connector:   connector,
		newBackOff:  ExponentialBackOff(DefaultInitialBackoff, DefaultMaxBackoff),
		state:       StateIdle,
		reconnect:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AccountUUID returns the account this worker serves.
func (w *Worker) AccountUUID() string {
	return w.accountUUID
}

// State returns the current state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start spawns the connection loop. Calling it on a running worker does nothing.
func (w *Worker) Start() error {
	w.mu.Lock()
	if w.state == StateStopped {
		w.mu.Unlock()
		return ErrWorkerStopped
	}
	if w.started {
		w.mu.Unlock()
		return nil
	}

	from := w.state
	to, err := Transition(from, EventStart)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.state = to

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true
	w.mu.Unlock()

	w.notify(from, to)
	slog.Debug("Push worker started", "account", w.accountUUID)

	go w.run(ctx)
	return nil
}

// Stop cancels the loop, including an in-flight dial, and waits until the
// session is released or ctx expires. Expiry abandons the goroutine; the
// transport's own timeouts then release the socket.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	from := w.state
	to := from
	if from != StateStopped {
		var err error
		if to, err = Transition(from, EventStop); err != nil {
			w.mu.Unlock()
			return err
		}
		w.state = to
	}
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	w.notify(from, to)
	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("push worker for account %s did not release its connection: %w", w.accountUUID, ctx.Err())
	}
}

// Reconnect tears down the current attempt and reconnects immediately,
// skipping any pending backoff delay. Requests coalesce.
func (w *Worker) Reconnect() {
	select {
	case w.reconnect <- struct{}{}:
	default:
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	policy := w.newBackOff()
	for {
		requested, err := w.attempt(ctx, policy)
		if ctx.Err() != nil {
			return
		}

		if requested {
			slog.Debug("Push worker reconnecting on request", "account", w.accountUUID)
			policy.Reset()
			w.fire(EventReconnect)
			continue
		}

		slog.Warn("Push connection failed", "account", w.accountUUID, "error", err)
		w.fire(EventFailure)

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			delay = DefaultMaxBackoff
		}
		slog.Info("Push worker backing off",
			"account", w.accountUUID,
			"retry_in", durafmt.Parse(delay).LimitFirstN(2).String())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.reconnect:
			timer.Stop()
			policy.Reset()
			w.fire(EventReconnect)
		case <-timer.C:
			w.fire(EventBackoffElapsed)
		}
	}
}

// attempt runs one connect-and-listen cycle. It reports whether it ended
// because Reconnect was called.
func (w *Worker) attempt(ctx context.Context, policy backoff.BackOff) (bool, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	var requested atomic.Bool
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-w.reconnect:
			requested.Store(true)
			cancel()
		case <-attemptCtx.Done():
		}
	}()

	err := w.connectAndListen(attemptCtx, policy)
	cancel()
	<-watcherDone
	return requested.Load(), err
}

func (w *Worker) connectAndListen(ctx context.Context, policy backoff.BackOff) error {
	sess, err := w.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Debug("Failed to close push session", "account", w.accountUUID, "error", err)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}

	w.fire(EventConnected)
	policy.Reset()
	slog.Info("Push connection established", "account", w.accountUUID)

	for {
		ev, err := sess.Idle(ctx)
		if err != nil {
			return err
		}
		if ev.Type == transport.EventNewMail && w.receiver != nil {
			w.receiver.NewMail(ctx, w.accountUUID, ev.Folder, ev.Messages)
		}
	}
}

// fire applies ev unless the worker has been stopped meanwhile.
func (w *Worker) fire(ev Event) {
	w.mu.Lock()
	from := w.state
	if from == StateStopped {
		w.mu.Unlock()
		return
	}
	to, err := Transition(from, ev)
	if err != nil {
		w.mu.Unlock()
		slog.Error("Push worker state machine violated", "account", w.accountUUID, "error", err)
		return
	}
	w.state = to
	w.mu.Unlock()

	w.notify(from, to)
}

func (w *Worker) notify(from, to State) {
	if w.observer != nil && from != to {
		w.observer(w.accountUUID, from, to)
	}
}
