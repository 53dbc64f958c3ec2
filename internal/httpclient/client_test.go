package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		handler    http.HandlerFunc
		wantBody   string
		wantStatus int
		wantErr    string
	}{
		{
			name:   "get ok",
			method: http.MethodGet,
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
				_, _ = w.Write([]byte(`{"state":"Listening"}`))
			},
			wantBody: `{"state":"Listening"}`,
		},
		{
			name:   "get rejects accepted",
			method: http.MethodGet,
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:   "post accepts any 2xx",
			method: http.MethodPost,
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte(`{"status":"disabling"}`))
			},
			wantBody: `{"status":"disabling"}`,
		},
		{
			name:   "post server error",
			method: http.MethodPost,
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "oversized body",
			method: http.MethodGet,
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat("x", MaxResponseSize+1)))
			},
			wantErr: "exceeds maximum allowed size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			t.Cleanup(srv.Close)

			client := NewDefaultClient(0)
			var (
				body []byte
				err  error
			)
			if tt.method == http.MethodPost {
				body, err = client.Post(context.Background(), srv.URL)
			} else {
				body, err = client.Get(context.Background(), srv.URL)
			}

			switch {
			case tt.wantStatus != 0:
				var httpErr *HTTPError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			case tt.wantErr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestDefaultClientTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := NewDefaultClient(50*time.Millisecond).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute request")
}

func TestBaseURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://127.0.0.1:8089", BaseURL(":8089"))
	assert.Equal(t, "http://localhost:9000", BaseURL("localhost:9000"))
}

func TestHTTPError(t *testing.T) {
	t.Parallel()

	err := NewHTTPError(http.StatusNotFound, "http://x/y", "404 Not Found")
	assert.Equal(t, "HTTP 404 for URL http://x/y: 404 Not Found", err.Error())
}
