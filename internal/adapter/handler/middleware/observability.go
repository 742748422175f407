package middleware

import (
	"net/http"
	"time"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/observability"
)

// Observability records HTTP metrics for requests. Paths outside routes are
// reported as "other" to bound label cardinality.
func Observability(metrics *observability.Metrics, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, route := range routes {
		known[route] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			metrics.HTTPRequestsActive.Add(r.Context(), 1)
			defer metrics.HTTPRequestsActive.Add(r.Context(), -1)

			rw := wrap(w)
			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if !known[route] {
				route = "other"
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
