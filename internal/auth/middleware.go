package auth

import (
	"errors"
	"net/http"

	"github.com/relgov/gateway/internal/envelope"
	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/observability"
)

// DefaultPublicPaths are bypassed by authentication. The "who am I" endpoint
// is public so the backend can resolve a forwarded token itself.
var DefaultPublicPaths = []string{
	"/health",
	"/api/health",
	"/api/auth/login",
	"/api/auth/me",
	"/api/docs",
}

// Middleware authenticates bearer tokens and injects the identity into the
// request context.
type Middleware struct {
	validator   *Validator
	publicPaths map[string]struct{}
	logger      observability.Logger
	metrics     *observability.Metrics
}

// MiddlewareOption is a functional option for the middleware.
type MiddlewareOption func(*Middleware)

// WithLogger sets the middleware logger.
func WithLogger(logger observability.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// WithMetrics sets the middleware metrics.
func WithMetrics(metrics *observability.Metrics) MiddlewareOption {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

// WithPublicPaths overrides the public path allow-list.
func WithPublicPaths(paths []string) MiddlewareOption {
	return func(m *Middleware) {
		m.publicPaths = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			m.publicPaths[p] = struct{}{}
		}
	}
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(validator *Validator, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		validator: validator,
		logger:    observability.NopLogger(),
	}
	WithPublicPaths(DefaultPublicPaths)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsPublic reports whether the path bypasses authentication.
func (m *Middleware) IsPublic(path string) bool {
	_, ok := m.publicPaths[path]
	return ok
}

// Handler wraps next with bearer-token authentication. Public paths pass
// through untouched; everything else requires a verifiable token.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := ExtractBearer(r)
		if err != nil {
			m.logger.WithContext(r.Context()).Warn("missing authorization header",
				observability.String("path", r.URL.Path),
			)
			m.recordFailure("missing_token")
			envelope.WriteError(w, r, gwerror.MissingToken())
			return
		}

		identity, err := m.validator.Validate(r.Context(), raw)
		if err != nil {
			m.logger.WithContext(r.Context()).Warn("token verification failed",
				observability.String("path", r.URL.Path),
				observability.Error(err),
			)
			reason := "invalid_token"
			if errors.Is(err, ErrNoToken) {
				reason = "missing_token"
			}
			m.recordFailure(reason)
			envelope.WriteError(w, r, gwerror.InvalidToken())
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

func (m *Middleware) recordFailure(reason string) {
	if m.metrics != nil {
		m.metrics.RecordAuthFailure(reason)
	}
}
