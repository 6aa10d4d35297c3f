package middleware

import (
	"net/http"
	"time"

	"github.com/architeacher/devicely/pkg/logger"
)

// AccessLogger writes one line per request. Server errors log at error
// level and client errors at warn.
func AccessLogger(log logger.Logger, includeQueryParams bool) func(http.Handler) http.Handler {
	accessLog := log.Component("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ShouldSkipAccessLog(r.Context()) {
				next.ServeHTTP(w, r)

				return
			}

			start := time.Now()
			recorder := NewResponseRecorder(w)

			next.ServeHTTP(recorder, r)

			reqLogger := accessLog.WithContext(r.Context())

			event := reqLogger.Info()

			switch status := recorder.Status(); {
			case status >= http.StatusInternalServerError:
				event = reqLogger.Error()
			case status >= http.StatusBadRequest:
				event = reqLogger.Warn()
			}

			event = event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Int("status", recorder.Status()).
				Uint64("bytes", recorder.Size()).
				Dur("duration", time.Since(start))

			if includeQueryParams && r.URL.RawQuery != "" {
				event = event.Str("query", r.URL.RawQuery)
			}

			event.Msg("request completed")
		})
	}
}
