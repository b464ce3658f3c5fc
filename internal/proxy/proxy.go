// Package proxy forwards /api/* traffic to the backend while keeping the
// gateway's own correlation metadata authoritative on every response.
package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relgov/gateway/internal/backend"
	"github.com/relgov/gateway/internal/envelope"
	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/middleware"
	"github.com/relgov/gateway/internal/observability"
)

// maxBodyBytes caps the request body the proxy will buffer.
const maxBodyBytes = 4 << 20

// Proxy is the catch-all handler for backend passthrough routes.
type Proxy struct {
	client backend.Client
	logger observability.Logger
}

// New creates a proxy over the given backend client.
func New(client backend.Client, logger observability.Logger) *Proxy {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Proxy{client: client, logger: logger}
}

// ServeHTTP strips the /api prefix, forwards the request, and republishes
// the backend response under the gateway's request id and timestamp.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	headers := forwardHeaders(r)

	var (
		resp *backend.Response
		err  error
	)
	switch r.Method {
	case http.MethodGet:
		resp, err = p.client.Get(r.Context(), path, headers)
	case http.MethodDelete:
		resp, err = p.client.Delete(r.Context(), path, headers)
	case http.MethodPost, http.MethodPut:
		var body []byte
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			envelope.WriteError(w, r, gwerror.Validation("Failed to read request body"))
			return
		}
		if r.Method == http.MethodPost {
			resp, err = p.client.Post(r.Context(), path, body, headers)
		} else {
			resp, err = p.client.Put(r.Context(), path, body, headers)
		}
	default:
		envelope.WriteError(w, r, gwerror.New(
			gwerror.CodeValidationError, http.StatusMethodNotAllowed, "Method not allowed"))
		return
	}

	if err != nil {
		envelope.WriteError(w, r, gwerror.FromError(err))
		return
	}

	p.writeProxied(w, r, resp)
}

// writeProxied republishes a backend success. JSON object bodies get the
// gateway's request id and a fresh timestamp stamped over whatever the
// backend put there; anything else passes through untouched.
func (p *Proxy) writeProxied(w http.ResponseWriter, r *http.Request, resp *backend.Response) {
	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body, &body); err != nil || body == nil {
		if ct := resp.Headers.Get("Content-Type"); ct != "" {
			w.Header().Set(middleware.HeaderContentType, ct)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(resp.Body)
		return
	}

	body["requestId"] = observability.RequestIDFromContext(r.Context())
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	w.Header().Set(middleware.HeaderContentType, middleware.ContentTypeJSON)
	w.WriteHeader(resp.StatusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// forwardHeaders picks the inbound headers worth carrying upstream. The
// correlation header is added by the client from the request context.
func forwardHeaders(r *http.Request) map[string]string {
	headers := map[string]string{}
	if auth := r.Header.Get(middleware.HeaderAuthorization); auth != "" {
		headers[middleware.HeaderAuthorization] = auth
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		headers["Accept"] = accept
	}
	return headers
}
