package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mailpush/pushd/internal/api"
	"github.com/mailpush/pushd/internal/api/v1/mocks"
	"github.com/mailpush/pushd/internal/notification"
	"github.com/mailpush/pushd/internal/versions"
)

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	server := api.NewServer(mocks.NewMockPushService(ctrl))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response api.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	server := api.NewServer(mocks.NewMockPushService(ctrl))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var info versions.VersionInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, versions.GetVersionInfo().Version, info.Version)
}

func TestPushRoutesMounted(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	svc := mocks.NewMockPushService(ctrl)
	svc.EXPECT().Current().Return(notification.StateWaitingForNetwork)
	svc.EXPECT().RunningAccounts().Return(nil)

	server := api.NewServer(svc, api.WithMiddlewares(middleware.RequestID, api.LoggingMiddleware))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/push/status", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), string(notification.StateWaitingForNetwork))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    bool
		wantStatus int
	}{
		{name: "mounted", handler: true, wantStatus: http.StatusOK},
		{name: "not configured", handler: false, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			var opts []api.ServerOption
			if tt.handler {
				reg := prometheus.NewRegistry()
				counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "pushd_test_total", Help: "test"})
				reg.MustRegister(counter)
				counter.Inc()
				opts = append(opts, api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
			}

			server := api.NewServer(mocks.NewMockPushService(ctrl), opts...)
			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.handler {
				assert.Contains(t, rr.Body.String(), "pushd_test_total 1")
			}
		})
	}
}
