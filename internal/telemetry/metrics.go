// Package telemetry provides OpenTelemetry instrumentation for pushd.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// PushMetricsMeterName is the name used for the push lifecycle meter
	PushMetricsMeterName = "github.com/mailpush/pushd/push"
)

// PushMetrics holds the OpenTelemetry instruments for the push lifecycle.
// A nil *PushMetrics is valid and records nothing.
type PushMetrics struct {
	reconcileDuration metric.Float64Histogram
	workersRunning    metric.Int64Gauge
	workerStarts      metric.Int64Counter
	workerStops       metric.Int64Counter
	workerTransitions metric.Int64Counter
	newMail           metric.Int64Counter
	notificationState metric.Int64Counter
}

// NewPushMetrics creates a new PushMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewPushMetrics(provider metric.MeterProvider) (*PushMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(PushMetricsMeterName)

	reconcileDuration, err := meter.Float64Histogram(
		"pushd_reconcile_duration_seconds",
		metric.WithDescription("Duration of push reconciliation passes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	workersRunning, err := meter.Int64Gauge(
		"pushd_workers_running",
		metric.WithDescription("Number of running push workers"),
		metric.WithUnit("{worker}"),
	)
	if err != nil {
		return nil, err
	}

	workerStarts, err := meter.Int64Counter(
		"pushd_worker_starts_total",
		metric.WithDescription("Push worker start attempts"),
		metric.WithUnit("{start}"),
	)
	if err != nil {
		return nil, err
	}

	workerStops, err := meter.Int64Counter(
		"pushd_worker_stops_total",
		metric.WithDescription("Push worker stops"),
		metric.WithUnit("{stop}"),
	)
	if err != nil {
		return nil, err
	}

	workerTransitions, err := meter.Int64Counter(
		"pushd_worker_transitions_total",
		metric.WithDescription("Push worker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	newMail, err := meter.Int64Counter(
		"pushd_new_mail_events_total",
		metric.WithDescription("New mail events delivered by push workers"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	notificationState, err := meter.Int64Counter(
		"pushd_notification_state_published_total",
		metric.WithDescription("Notification states published by reconciliation"),
		metric.WithUnit("{publish}"),
	)
	if err != nil {
		return nil, err
	}

	return &PushMetrics{
		reconcileDuration: reconcileDuration,
		workersRunning:    workersRunning,
		workerStarts:      workerStarts,
		workerStops:       workerStops,
		workerTransitions: workerTransitions,
		newMail:           newMail,
		notificationState: notificationState,
	}, nil
}

// RecordReconcile records the duration of one reconciliation pass
func (m *PushMetrics) RecordReconcile(ctx context.Context, duration time.Duration, success bool) {
	if m == nil || m.reconcileDuration == nil {
		return
	}
	m.reconcileDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordWorkersRunning records the size of the running worker table
func (m *PushMetrics) RecordWorkersRunning(ctx context.Context, count int64) {
	if m == nil || m.workersRunning == nil {
		return
	}
	m.workersRunning.Record(ctx, count)
}

// RecordWorkerStart counts a worker start attempt
func (m *PushMetrics) RecordWorkerStart(ctx context.Context, success bool) {
	if m == nil || m.workerStarts == nil {
		return
	}
	m.workerStarts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordWorkerStop counts a worker stop
func (m *PushMetrics) RecordWorkerStop(ctx context.Context, success bool) {
	if m == nil || m.workerStops == nil {
		return
	}
	m.workerStops.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordWorkerTransition counts a worker state change
func (m *PushMetrics) RecordWorkerTransition(ctx context.Context, from, to string) {
	if m == nil || m.workerTransitions == nil {
		return
	}
	m.workerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordNewMail counts a new mail event for a folder
func (m *PushMetrics) RecordNewMail(ctx context.Context, folder string) {
	if m == nil || m.newMail == nil {
		return
	}
	m.newMail.Add(ctx, 1, metric.WithAttributes(attribute.String("folder", folder)))
}

// RecordNotificationState counts a published notification state
func (m *PushMetrics) RecordNotificationState(ctx context.Context, state string) {
	if m == nil || m.notificationState == nil {
		return
	}
	m.notificationState.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
