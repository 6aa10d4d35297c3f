package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"
)

type contextKey string

const skipAccessLogKey contextKey = "skip_access_log"

var defaultHealthEndpoints = []string{
	"/health",
	"/liveness",
	"/readiness",
	"/metrics",
}

// HealthCheckFilter marks probe requests so the access logger skips them.
type HealthCheckFilter struct {
	healthEndpoints []string
	logHealthChecks bool
}

func NewHealthCheckFilter(logHealthChecks bool) *HealthCheckFilter {
	return &HealthCheckFilter{
		healthEndpoints: defaultHealthEndpoints,
		logHealthChecks: logHealthChecks,
	}
}

func (h *HealthCheckFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.logHealthChecks || !h.isHealthEndpoint(r.URL.Path) {
			next.ServeHTTP(w, r)

			return
		}

		ctx := context.WithValue(r.Context(), skipAccessLogKey, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *HealthCheckFilter) isHealthEndpoint(path string) bool {
	return slices.Contains(h.healthEndpoints, strings.TrimSuffix(path, "/"))
}

// IsHealthCheckPath reports whether path is one of the probe or scrape endpoints.
func IsHealthCheckPath(path string) bool {
	return slices.Contains(defaultHealthEndpoints, strings.TrimSuffix(path, "/"))
}

func ShouldSkipAccessLog(ctx context.Context) bool {
	skip, ok := ctx.Value(skipAccessLogKey).(bool)

	return ok && skip
}
