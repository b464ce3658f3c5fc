// Package backend provides the HTTP client for the upstream domain backend.
// It classifies every call outcome as success, domain error (upstream-reported
// status passed through verbatim), or transport error (generic 502).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/observability"
)

// DefaultTimeout bounds every upstream call, connect and response included.
const DefaultTimeout = 10 * time.Second

// requestIDHeader is the correlation header forwarded to the backend.
const requestIDHeader = "X-Request-ID"

// Response is the outcome of exactly one upstream call. It is never cached
// and lives only for the request/response cycle that produced it.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Client issues requests to the upstream backend. The request's correlation
// id is read from the context and forwarded; extra headers (notably
// Authorization) are forwarded verbatim.
type Client interface {
	Get(ctx context.Context, path string, headers map[string]string) (*Response, error)
	Post(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error)
	Put(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error)
	Delete(ctx context.Context, path string, headers map[string]string) (*Response, error)
}

// HTTPClient is the default Client implementation.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  observability.Logger
	metrics *observability.Metrics
}

// ClientOption is a functional option for the client.
type ClientOption func(*HTTPClient)

// WithClientLogger sets the client logger.
func WithClientLogger(logger observability.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithClientMetrics sets the client metrics.
func WithClientMetrics(metrics *observability.Metrics) ClientOption {
	return func(c *HTTPClient) {
		c.metrics = metrics
	}
}

// WithTimeout overrides the default call timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = timeout
	}
}

// WithTransport overrides the HTTP transport, for tests.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *HTTPClient) {
		c.client.Transport = transport
	}
}

// NewHTTPClient creates a client for the given base URL.
func NewHTTPClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get implements Client.
func (c *HTTPClient) Get(ctx context.Context, path string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, headers)
}

// Post implements Client.
func (c *HTTPClient) Post(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, headers)
}

// Put implements Client.
func (c *HTTPClient) Put(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body, headers)
}

// Delete implements Client.
func (c *HTTPClient) Delete(ctx context.Context, path string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, headers)
}

func (c *HTTPClient) do(
	ctx context.Context,
	method, path string,
	body []byte,
	headers map[string]string,
) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, gwerror.BackendUnavailable().WithCause(err)
	}

	req.Header.Set("Content-Type", "application/json")
	if requestID := observability.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		// Connection refused, timeout, DNS failure: the only conditions
		// that earn the generic unavailable classification.
		c.logger.WithContext(ctx).Error("backend request failed",
			observability.String("method", method),
			observability.String("path", path),
			observability.Error(err),
		)
		return nil, gwerror.BackendUnavailable().WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gwerror.BackendUnavailable().WithCause(err)
	}

	if c.metrics != nil {
		c.metrics.RecordBackendRequest(method, resp.StatusCode, time.Since(start))
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Headers:    resp.Header,
	}

	// Upstream-reported failures keep their own status and message; they
	// are domain errors, not connectivity problems.
	if resp.StatusCode >= 400 {
		c.logger.WithContext(ctx).Warn("backend returned error status",
			observability.String("method", method),
			observability.String("path", path),
			observability.Int("status", resp.StatusCode),
		)
		return out, gwerror.Upstream(resp.StatusCode, extractErrorMessage(data))
	}

	return out, nil
}

// extractErrorMessage pulls a human-readable message out of an upstream error
// body, trying the envelope shapes the backend is known to emit.
func extractErrorMessage(body []byte) string {
	var probe struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}

	if len(probe.Error) > 0 {
		var s string
		if err := json.Unmarshal(probe.Error, &s); err == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(probe.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	if probe.Message != "" {
		return probe.Message
	}
	return probe.Detail
}
