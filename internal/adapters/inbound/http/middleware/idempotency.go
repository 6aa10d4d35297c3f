package middleware

import (
	"bytes"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/internal/ports"
	"github.com/architeacher/devicely/pkg/idempotency"
	"github.com/architeacher/devicely/pkg/logger"
)

// volatileHeaders are set by the transport or by middleware running outside
// the recorder. They describe the original exchange, not the stored response,
// and are recomputed on replay.
var volatileHeaders = map[string]struct{}{
	http.CanonicalHeaderKey("Content-Encoding"):       {},
	http.CanonicalHeaderKey("Content-Length"):         {},
	http.CanonicalHeaderKey("Transfer-Encoding"):      {},
	http.CanonicalHeaderKey("Vary"):                   {},
	http.CanonicalHeaderKey(RequestIDHeader):          {},
	http.CanonicalHeaderKey(RateLimitLimitHeader):     {},
	http.CanonicalHeaderKey(RateLimitRemainingHeader): {},
	http.CanonicalHeaderKey(RateLimitResetHeader):     {},
}

// Idempotency replays the stored response when a request is retried with the
// same key and body. Only 2xx responses are stored.
func Idempotency(store ports.IdempotencyStore, cfg config.Idempotency, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(cfg.HeaderName)
			if raw == "" || !slices.Contains(cfg.Methods, r.Method) {
				next.ServeHTTP(w, r)

				return
			}

			key, err := idempotency.Parse(raw)
			if err != nil {
				shared.WriteError(w, http.StatusBadRequest, shared.CodeInvalidIdempotencyKey, err.Error())

				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				shared.WriteError(w, http.StatusBadRequest, shared.CodeInvalidJSON, "failed to read request body")

				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := idempotency.WithKey(r.Context(), key)
			r = r.WithContext(ctx)
			reqLogger := log.WithContext(ctx)

			storageKey := key.StorageKey(cfg.KeyPrefix, r.Method, r.URL.Path)
			fingerprint := idempotency.Fingerprint(body)

			cached, err := store.Get(ctx, storageKey)
			if err != nil {
				reqLogger.Warn().Err(err).Msg("idempotency store lookup failed")
				degrade(w, r, next, cfg)

				return
			}

			if cached != nil {
				if cached.Fingerprint != fingerprint {
					shared.WriteError(w, http.StatusUnprocessableEntity, shared.CodeIdempotencyKeyReused,
						"idempotency key was already used with a different request body")

					return
				}

				replay(w, cfg, cached)

				return
			}

			acquired, err := store.SetLock(ctx, storageKey, cfg.LockTTL)
			if err != nil {
				reqLogger.Warn().Err(err).Msg("idempotency lock failed")
				degrade(w, r, next, cfg)

				return
			}

			if !acquired {
				shared.WriteError(w, http.StatusConflict, shared.CodeRequestInProgress,
					"a request with this idempotency key is already being processed")

				return
			}

			defer func() {
				if err := store.ReleaseLock(ctx, storageKey); err != nil {
					reqLogger.Warn().Err(err).Msg("failed to release idempotency lock")
				}
			}()

			recorder := NewCapturingResponseRecorder(w)
			next.ServeHTTP(recorder, r)

			if recorder.Status() < http.StatusOK || recorder.Status() >= http.StatusMultipleChoices {
				return
			}

			response := &ports.CachedResponse{
				StatusCode:  recorder.Status(),
				Headers:     storableHeaders(recorder.FirstHeaderValues()),
				Body:        recorder.Body(),
				Fingerprint: fingerprint,
				CreatedAt:   time.Now().UTC(),
			}

			if err := store.Set(ctx, storageKey, response, cfg.CacheTTL); err != nil {
				reqLogger.Warn().Err(err).Msg("failed to store idempotent response")
			}
		})
	}
}

func degrade(w http.ResponseWriter, r *http.Request, next http.Handler, cfg config.Idempotency) {
	if cfg.GracefulDegraded {
		next.ServeHTTP(w, r)

		return
	}

	shared.WriteError(w, http.StatusServiceUnavailable, shared.CodeServiceUnavailable,
		"idempotency service temporarily unavailable")
}

func storableHeaders(headers map[string]string) map[string]string {
	for name := range headers {
		if _, ok := volatileHeaders[http.CanonicalHeaderKey(name)]; ok {
			delete(headers, name)
		}
	}

	return headers
}

func replay(w http.ResponseWriter, cfg config.Idempotency, cached *ports.CachedResponse) {
	for name, value := range storableHeaders(cached.Headers) {
		w.Header().Set(name, value)
	}

	w.Header().Set(cfg.ReplayedHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
