package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for pushd spans
const TracerName = "github.com/mailpush/pushd"

// Telemetry owns the OpenTelemetry providers and their lifecycle.
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	promRegistry   *prometheus.Registry
}

// Option configures New
type Option func(*providerSet)

// WithTelemetryConfig sets the telemetry configuration
func WithTelemetryConfig(cfg *Config) Option {
	return func(p *providerSet) {
		p.cfg = cfg
	}
}

// WithSpanExporter sends spans to exp instead of the OTLP endpoint.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(p *providerSet) {
		p.spans = exp
	}
}

// New builds the providers. A nil or disabled configuration yields no-op
// providers. Callers must call Shutdown.
func New(ctx context.Context, opts ...Option) (*Telemetry, error) {
	var p providerSet
	for _, opt := range opts {
		opt(&p)
	}

	if p.cfg == nil || !p.cfg.Enabled {
		slog.Debug("Telemetry disabled")
		p.cfg = nil
	} else if err := p.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	t := &Telemetry{}
	if p.metricsEnabled() && p.cfg.Metrics.HasExporter(ExporterPrometheus) {
		t.promRegistry = prometheus.NewRegistry()
		t.promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		p.registerer = t.promRegistry
	}

	var err error
	if t.tracerProvider, err = p.tracerProvider(ctx); err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	if t.meterProvider, err = p.meterProvider(ctx); err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	if p.cfg != nil {
		slog.Info("Telemetry initialized",
			"service_name", p.cfg.GetServiceName(),
			"service_version", p.cfg.GetServiceVersion(),
		)
	}
	return t, nil
}

// TracerProvider returns the configured tracer provider
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Tracer returns the pushd tracer
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracerProvider.Tracer(TracerName)
}

// MetricsHandler returns the Prometheus scrape handler, or nil when the
// prometheus exporter is not enabled.
func (t *Telemetry) MetricsHandler() http.Handler {
	if t.promRegistry == nil {
		return nil
	}
	return promhttp.HandlerFor(t.promRegistry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the SDK providers. No-op providers are skipped.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if tp, ok := t.tracerProvider.(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
