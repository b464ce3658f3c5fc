// Package server assembles the gateway's HTTP surface and owns its lifecycle.
package server

import (
	"net/http"

	"github.com/relgov/gateway/internal/auth"
	"github.com/relgov/gateway/internal/envelope"
	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/middleware"
	"github.com/relgov/gateway/internal/observability"
	"github.com/relgov/gateway/internal/promotion"
	"github.com/relgov/gateway/internal/proxy"
	"github.com/relgov/gateway/internal/ratelimit"
)

// RouterDeps carries everything the router wires together. Logger is the
// only required field; nil optional pieces are simply left out of the chain.
type RouterDeps struct {
	Logger        observability.Logger
	Metrics       *observability.Metrics
	Tracer        *observability.Tracer
	AuthMW        *auth.Middleware
	AnonLimiter   ratelimit.Limiter
	IdentLimiter  ratelimit.Limiter
	Proxy         *proxy.Proxy
	PromotionH    *promotion.Handler
}

// NewRouter builds the complete handler chain.
//
// Authentication runs before rate limiting so the anonymous tier can be
// skipped for requests that carry a verified identity, and so the identity
// tier can key on the user id.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/api/auth/login", methodOnly(http.MethodPost, deps.Proxy.Login))
	mux.HandleFunc("/api/auth/me", methodOnly(http.MethodGet, deps.Proxy.Me))
	mux.HandleFunc("/internal/promotions/validate-production",
		methodOnly(http.MethodPost, deps.PromotionH.ValidateProduction))
	mux.Handle("/api/", deps.Proxy)
	mux.HandleFunc("/", notFoundHandler)

	var handler http.Handler = mux

	identTier := middleware.NewIdentityTier(deps.IdentLimiter,
		middleware.WithTierLogger(deps.Logger),
		middleware.WithTierMetrics(deps.Metrics),
	)
	anonTier := middleware.NewAnonymousTier(deps.AnonLimiter,
		middleware.WithTierLogger(deps.Logger),
		middleware.WithTierMetrics(deps.Metrics),
	)

	handler = identTier.Handler(handler)
	handler = anonTier.Handler(handler)
	handler = deps.AuthMW.Handler(handler)

	if deps.Tracer != nil {
		handler = observability.TracingMiddleware(deps.Tracer)(handler)
	}
	if deps.Metrics != nil {
		handler = middleware.Metrics(deps.Metrics)(handler)
	}
	handler = middleware.AccessLog(deps.Logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.Recovery(deps.Logger, deps.Metrics)(handler)

	return handler
}

func methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			envelope.WriteError(w, r, gwerror.New(
				gwerror.CodeValidationError, http.StatusMethodNotAllowed, "Method not allowed"))
			return
		}
		next(w, r)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	envelope.WriteSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	envelope.WriteError(w, r, gwerror.NotFound("Route not found"))
}
