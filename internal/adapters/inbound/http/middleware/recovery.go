package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/devicely/pkg/logger"
)

// Recovery returns a middleware that recovers from panics.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}

				if rvr == http.ErrAbortHandler {
					// the client connection is gone, let net/http abort it silently
					panic(rvr)
				}

				var errMsg string
				switch v := rvr.(type) {
				case string:
					errMsg = v
				case error:
					errMsg = v.Error()
				default:
					errMsg = fmt.Sprintf("%v", v)
				}

				reqLogger := log.WithContext(r.Context())
				reqLogger.Error().
					Str("error", errMsg).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("panic recovered")

				shared.WriteError(w, http.StatusInternalServerError, shared.CodeInternalError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
