package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, "unknown", cfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())

	cfg = &Config{ServiceName: "pushd-dev", ServiceVersion: "1.2.3", Endpoint: "otel:4318"}
	assert.Equal(t, "pushd-dev", cfg.GetServiceName())
	assert.Equal(t, "1.2.3", cfg.GetServiceVersion())
	assert.Equal(t, "otel:4318", cfg.GetEndpoint())
}

func TestTracingConfig_GetSampling(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, DefaultSampling, (&TracingConfig{}).GetSampling(), 0.0001)
	assert.InDelta(t, 0.5, (&TracingConfig{Sampling: 0.5}).GetSampling(), 0.0001)
}

func TestMetricsConfig_Exporters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		config     *MetricsConfig
		otlp       bool
		prometheus bool
	}{
		{name: "nil config", config: nil},
		{name: "disabled", config: &MetricsConfig{Exporters: []string{ExporterPrometheus}}},
		{name: "default is otlp", config: &MetricsConfig{Enabled: true}, otlp: true},
		{
			name:       "prometheus only",
			config:     &MetricsConfig{Enabled: true, Exporters: []string{ExporterPrometheus}},
			prometheus: true,
		},
		{
			name:       "both",
			config:     &MetricsConfig{Enabled: true, Exporters: []string{ExporterOTLP, ExporterPrometheus}},
			otlp:       true,
			prometheus: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.otlp, tt.config.HasExporter(ExporterOTLP))
			assert.Equal(t, tt.prometheus, tt.config.HasExporter(ExporterPrometheus))
		})
	}
}

func TestMetricsConfig_GetInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultMetricsInterval, (&MetricsConfig{}).GetInterval())
	assert.Equal(t, 10*time.Second, (&MetricsConfig{Interval: 10 * time.Second}).GetInterval())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{name: "nil config", config: nil},
		{name: "disabled skips validation", config: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: 5}}},
		{
			name: "valid",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1},
				Metrics: &MetricsConfig{Enabled: true, Exporters: []string{ExporterPrometheus}},
			},
		},
		{
			name:    "sampling out of range",
			config:  &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}},
			wantErr: "tracing: sampling must be between",
		},
		{
			name:    "unknown exporter",
			config:  &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Exporters: []string{"statsd"}}},
			wantErr: `metrics: unknown exporter "statsd"`,
		},
		{
			name:    "negative interval",
			config:  &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Interval: -time.Second}},
			wantErr: "interval must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
