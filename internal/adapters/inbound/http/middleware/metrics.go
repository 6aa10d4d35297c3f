package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/architeacher/devicely/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

const (
	httpMethodKey     = "http.method"
	httpRouteKey      = "http.route"
	httpStatusCodeKey = "http.status_code"

	httpRequests        = "http.requests"
	httpRequestDuration = "http.request" + metrics.DurationSuffix
	httpResponseBytes   = "http.response.bytes"

	unmatchedRoute = "unmatched"
)

// HTTPMetrics records request counts, latencies and response sizes labelled
// by the matched chi route pattern.
func HTTPMetrics(metricsClient metrics.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := NewResponseRecorder(w)

			next.ServeHTTP(recorder, r)

			attrs := []attribute.KeyValue{
				attribute.String(httpMethodKey, r.Method),
				attribute.String(httpRouteKey, routePattern(r)),
				attribute.String(httpStatusCodeKey, strconv.Itoa(recorder.Status())),
			}

			metricsClient.Inc(r.Context(), httpRequests, 1, attrs...)
			metricsClient.Inc(r.Context(), httpRequestDuration, time.Since(start), attrs...)
			metricsClient.Inc(r.Context(), httpResponseBytes, recorder.Size(), attrs...)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}

	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}

	return unmatchedRoute
}
