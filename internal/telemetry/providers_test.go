package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestProviderSetTracer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *Config
		noop bool
	}{
		{name: "nil config", noop: true},
		{name: "tracing section missing", cfg: &Config{Enabled: true}, noop: true},
		{name: "tracing off", cfg: &Config{Enabled: true, Tracing: &TracingConfig{}}, noop: true},
		{
			name: "tracing on",
			cfg: &Config{
				Enabled:     true,
				ServiceName: "pushd-test",
				Tracing:     &TracingConfig{Enabled: true, Sampling: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			exporter := tracetest.NewInMemoryExporter()

			tp, err := providerSet{cfg: tt.cfg, spans: exporter}.tracerProvider(ctx)
			require.NoError(t, err)
			if tt.noop {
				_, ok := tp.(tracenoop.TracerProvider)
				assert.True(t, ok, "expected no-op tracer provider")
				return
			}

			sdkTP, ok := tp.(*sdktrace.TracerProvider)
			require.True(t, ok)
			defer func() { _ = sdkTP.Shutdown(ctx) }()

			_, span := tp.Tracer(TracerName).Start(ctx, "push.reconcile")
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, "push.reconcile", spans[0].Name)

			var service string
			for _, attr := range spans[0].Resource.Attributes() {
				if attr.Key == "service.name" {
					service = attr.Value.AsString()
				}
			}
			assert.Equal(t, "pushd-test", service)
		})
	}
}

func TestProviderSetMeter(t *testing.T) {
	t.Parallel()

	prom := &MetricsConfig{Enabled: true, Exporters: []string{ExporterPrometheus}}
	tests := []struct {
		name       string
		set        providerSet
		expectNoOp bool
		wantErr    bool
	}{
		{name: "nil config", expectNoOp: true},
		{
			name:       "metrics off",
			set:        providerSet{cfg: &Config{Enabled: true, Metrics: &MetricsConfig{}}},
			expectNoOp: true,
		},
		{
			name: "otlp exporter",
			set:  providerSet{cfg: &Config{Enabled: true, Insecure: true, Metrics: &MetricsConfig{Enabled: true}}},
		},
		{
			name: "prometheus exporter",
			set: providerSet{
				cfg:        &Config{Enabled: true, Metrics: prom},
				registerer: prometheus.NewRegistry(),
			},
		},
		{
			name:    "prometheus exporter without registerer",
			set:     providerSet{cfg: &Config{Enabled: true, Metrics: prom}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			mp, err := tt.set.meterProvider(ctx)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			if tt.expectNoOp {
				_, ok := mp.(metricnoop.MeterProvider)
				assert.True(t, ok, "expected no-op meter provider")
				return
			}
			sdkMP, ok := mp.(*sdkmetric.MeterProvider)
			require.True(t, ok, "expected SDK meter provider")
			// No collector is running, so the final OTLP flush may fail.
			_ = sdkMP.Shutdown(ctx)
		})
	}
}
