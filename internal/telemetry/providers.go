package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DefaultMetricsInterval is the OTLP metric export interval
const DefaultMetricsInterval = 60 * time.Second

// providerSet describes what a pair of providers is built from.
// A nil cfg yields no-op providers.
type providerSet struct {
	cfg *Config
	// spans overrides the OTLP span exporter and is flushed synchronously
	spans sdktrace.SpanExporter
	// registerer receives the Prometheus collector when that exporter is on
	registerer prometheus.Registerer
}

func (p providerSet) resource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(p.cfg.GetServiceName()),
			semconv.ServiceVersion(p.cfg.GetServiceVersion()),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func (p providerSet) tracingEnabled() bool {
	return p.cfg != nil && p.cfg.Tracing != nil && p.cfg.Tracing.Enabled
}

func (p providerSet) metricsEnabled() bool {
	return p.cfg != nil && p.cfg.Metrics != nil && p.cfg.Metrics.Enabled
}

// tracerProvider builds the SDK tracer provider and installs it globally
// together with the W3C trace context propagator.
func (p providerSet) tracerProvider(ctx context.Context) (trace.TracerProvider, error) {
	if !p.tracingEnabled() {
		slog.Debug("Tracing disabled")
		return tracenoop.NewTracerProvider(), nil
	}

	res, err := p.resource(ctx)
	if err != nil {
		return nil, err
	}

	processor := sdktrace.WithSyncer(p.spans)
	if p.spans == nil {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(p.cfg.GetEndpoint())}
		if p.cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		processor = sdktrace.WithBatcher(exporter)
	}

	sampling := p.cfg.Tracing.GetSampling()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		processor,
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampling))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("Tracing initialized", "endpoint", p.cfg.GetEndpoint(), "sampling", sampling)
	return tp, nil
}

// meterProvider builds an SDK meter provider with one reader per configured exporter.
func (p providerSet) meterProvider(ctx context.Context) (metric.MeterProvider, error) {
	if !p.metricsEnabled() {
		slog.Debug("Metrics disabled")
		return metricnoop.NewMeterProvider(), nil
	}

	res, err := p.resource(ctx)
	if err != nil {
		return nil, err
	}
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	metrics := p.cfg.Metrics
	if metrics.HasExporter(ExporterOTLP) {
		exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.cfg.GetEndpoint())}
		if p.cfg.Insecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metrics.GetInterval())),
		))
	}
	if metrics.HasExporter(ExporterPrometheus) {
		if p.registerer == nil {
			return nil, fmt.Errorf("prometheus exporter enabled without a registerer")
		}
		exporter, err := otelprom.New(otelprom.WithRegisterer(p.registerer))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "exporters", metrics.GetExporters(), "endpoint", p.cfg.GetEndpoint())
	return mp, nil
}
