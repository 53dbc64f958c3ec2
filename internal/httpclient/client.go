// Package httpclient talks to the local API of a running pushd.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 5 * time.Second

	// MaxResponseSize caps response bodies
	MaxResponseSize = 1024 * 1024

	// UserAgent is sent with every request
	UserAgent = "pushd-cli/1.0"
)

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)
	// Post performs a bodiless HTTP POST request and returns the response body
	Post(ctx context.Context, url string) ([]byte, error)
}

// DefaultClient is the default Client implementation
type DefaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a client with the given timeout; zero means DefaultTimeout
func NewDefaultClient(timeout time.Duration) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{client: &http.Client{Timeout: timeout}}
}

// BaseURL turns a listen address such as ":8089" into a URL the CLI can dial
func BaseURL(address string) string {
	if strings.HasPrefix(address, ":") {
		address = "127.0.0.1" + address
	}
	return "http://" + address
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, http.StatusOK)
}

// Post performs an HTTP POST request. Any 2xx status is accepted.
func (c *DefaultClient) Post(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, 0)
}

func (c *DefaultClient) do(ctx context.Context, method, url string, want int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	ok := resp.StatusCode == want
	if want == 0 {
		ok = resp.StatusCode >= 200 && resp.StatusCode < 300
	}
	if !ok {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	return body, nil
}
