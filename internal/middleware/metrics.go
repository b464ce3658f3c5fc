package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/relgov/gateway/internal/observability"
)

// knownMetricPaths are the gateway's fixed routes, kept verbatim as labels.
var knownMetricPaths = map[string]struct{}{
	"/health":                                  {},
	"/api/health":                              {},
	"/api/auth/login":                          {},
	"/api/auth/me":                             {},
	"/api/docs":                                {},
	"/internal/promotions/validate-production": {},
}

// metricPath collapses free-form request paths into a bounded label set.
// Proxied paths carry backend resource ids, so recording them verbatim
// would grow the label space without limit.
func metricPath(path string) string {
	if _, ok := knownMetricPaths[path]; ok {
		return path
	}
	if strings.HasPrefix(path, "/api/") {
		return "/api/*"
	}
	return "other"
}

// Metrics returns a middleware recording request counts and latencies.
func Metrics(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.IncInFlight()
			defer m.DecInFlight()

			rw := &responseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			m.RecordRequest(r.Method, metricPath(r.URL.Path), rw.status, time.Since(start))
		})
	}
}
