package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/relgov/gateway/internal/envelope"
	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/observability"
)

// Recovery returns the terminal middleware that converts panics into the
// uniform error envelope. This is the only place stack traces are logged.
func Recovery(logger observability.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.WithContext(r.Context()).Error("panic recovered",
						observability.String("method", r.Method),
						observability.String("path", r.URL.Path),
						observability.Any("error", err),
						observability.String("stack", string(debug.Stack())),
					)

					if metrics != nil {
						metrics.RecordPanicRecovered()
					}

					envelope.WriteError(w, r, gwerror.Internal())
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
