package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relgov/gateway/internal/backend"
	"github.com/relgov/gateway/internal/envelope"
	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/observability"
)

func newProxyAgainst(t *testing.T, upstream http.HandlerFunc) (*Proxy, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client, err := backend.NewHTTPClient(srv.URL)
	require.NoError(t, err)
	return New(client, observability.NopLogger()), srv
}

func stampedRequest(method, target string, body io.Reader) *http.Request {
	r := httptest.NewRequest(method, target, body)
	return r.WithContext(observability.ContextWithRequestID(r.Context(), "gw-id"))
}

func TestProxyStripsPrefixAndForwardsQuery(t *testing.T) {
	t.Parallel()

	var gotURI string
	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	w := httptest.NewRecorder()
	p.ServeHTTP(w, stampedRequest(http.MethodGet, "/api/releases?status=PENDING&page=2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/releases?status=PENDING&page=2", gotURI)
}

func TestProxyRestampsCorrelationMetadata(t *testing.T) {
	t.Parallel()

	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		// The backend answers with its own correlation metadata.
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"rel-1"},"requestId":"backend-id","timestamp":"2020-01-01T00:00:00Z"}`))
	})

	w := httptest.NewRecorder()
	p.ServeHTTP(w, stampedRequest(http.MethodGet, "/api/releases/rel-1", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "gw-id", body["requestId"])
	assert.NotEqual(t, "2020-01-01T00:00:00Z", body["timestamp"])

	ts, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)

	// The payload itself is untouched.
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "rel-1", data["id"])
}

func TestProxyForwardsPostBody(t *testing.T) {
	t.Parallel()

	var gotBody string
	var gotMethod string
	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotMethod = r.Method
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"new"}`))
	})

	w := httptest.NewRecorder()
	p.ServeHTTP(w, stampedRequest(http.MethodPost, "/api/releases", strings.NewReader(`{"name":"v3"}`)))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.JSONEq(t, `{"name":"v3"}`, gotBody)
}

func TestProxyForwardsAuthorization(t *testing.T) {
	t.Parallel()

	var gotAuth string
	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	r := stampedRequest(http.MethodGet, "/api/releases", nil)
	r.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	p.ServeHTTP(w, r)

	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestProxyUpstreamErrorBecomesEnvelope(t *testing.T) {
	t.Parallel()

	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"Release not found"}}`))
	})

	w := httptest.NewRecorder()
	p.ServeHTTP(w, stampedRequest(http.MethodGet, "/api/releases/missing", nil))

	require.Equal(t, http.StatusNotFound, w.Code)

	var env envelope.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, gwerror.CodeNotFound, env.Error.Code)
	assert.Equal(t, "Release not found", env.Error.Message)
	assert.Equal(t, "gw-id", env.RequestID)
}

func TestProxyBackendDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := backend.NewHTTPClient(srv.URL)
	require.NoError(t, err)
	p := New(client, observability.NopLogger())

	w := httptest.NewRecorder()
	p.ServeHTTP(w, stampedRequest(http.MethodGet, "/api/releases", nil))

	require.Equal(t, http.StatusBadGateway, w.Code)

	var env envelope.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, gwerror.CodeBackendUnavailable, env.Error.Code)
	assert.Equal(t, "Backend service unavailable", env.Error.Message)
}

func TestProxyNonJSONBodyPassesThrough(t *testing.T) {
	t.Parallel()

	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("plain text payload"))
	})

	w := httptest.NewRecorder()
	p.ServeHTTP(w, stampedRequest(http.MethodGet, "/api/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "plain text payload", w.Body.String())
}

func TestProxyMethodNotAllowed(t *testing.T) {
	t.Parallel()

	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	})

	w := httptest.NewRecorder()
	p.ServeHTTP(w, stampedRequest(http.MethodPatch, "/api/releases/rel-1", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestLoginValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "oops"},
		{"missing email", `{"password":"pw"}`},
		{"missing password", `{"email":"dev@example.com"}`},
		{"blank email", `{"email":"  ","password":"pw"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("backend must not be called for invalid login bodies")
			})

			w := httptest.NewRecorder()
			p.Login(w, stampedRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body)))

			require.Equal(t, http.StatusBadRequest, w.Code)

			var env envelope.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			require.NotNil(t, env.Error)
			assert.Equal(t, gwerror.CodeValidationError, env.Error.Code)
		})
	}
}

func TestLoginForwardsCredentials(t *testing.T) {
	t.Parallel()

	var gotPath, gotBody string
	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = w.Write([]byte(`{"token":"jwt"}`))
	})

	w := httptest.NewRecorder()
	p.Login(w, stampedRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"dev@example.com","password":"pw"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/auth/login", gotPath)
	assert.JSONEq(t, `{"email":"dev@example.com","password":"pw"}`, gotBody)
}

func TestMeForwardsToken(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	p, _ := newProxyAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":"u1"}`))
	})

	r := stampedRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	p.Me(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/auth/me", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
}
