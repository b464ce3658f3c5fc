package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/relgov/gateway/internal/observability"
)

// RequestID returns a middleware that stamps every request with a fresh
// correlation id. The id is always gateway-issued, never taken from the
// inbound request, so the envelope a client sees carries metadata this
// process generated.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(func() string {
		return uuid.New().String()
	})
}

// RequestIDWithGenerator returns a request-id middleware using a custom
// generator, for tests that need deterministic ids.
func RequestIDWithGenerator(generator func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := generator()

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			w.Header().Set(HeaderXRequestID, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
