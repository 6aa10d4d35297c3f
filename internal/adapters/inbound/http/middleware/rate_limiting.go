package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/throttled/throttled/v2"
)

const (
	RateLimitLimitHeader     = "RateLimit-Limit"
	RateLimitRemainingHeader = "RateLimit-Remaining"
	RateLimitResetHeader     = "RateLimit-Reset"
)

// RateLimiting applies a per client IP GCRA quota. Store errors let the
// request through so a KeyDB outage does not take the API down.
func RateLimiting(cfg config.RateLimiting, store throttled.GCRAStoreCtx, log logger.Logger) (func(http.Handler) http.Handler, error) {
	rateLimiter, err := throttled.NewGCRARateLimiterCtx(store, throttled.RateQuota{
		MaxRate:  throttled.PerMin(int(cfg.RequestsPerMinute)),
		MaxBurst: int(cfg.BurstSize),
	})
	if err != nil {
		return nil, fmt.Errorf("creating rate limiter: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkipRateLimit(r.URL.Path, cfg.SkipPaths) {
				next.ServeHTTP(w, r)

				return
			}

			limited, result, err := rateLimiter.RateLimitCtx(r.Context(), clientIP(r.RemoteAddr), 1)
			if err != nil {
				reqLogger := log.WithContext(r.Context())
				reqLogger.Warn().Err(err).Msg("rate limiter store error")

				next.ServeHTTP(w, r)

				return
			}

			setRateLimitHeaders(w, result)

			if limited {
				w.Header().Set(shared.HeaderRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())+1))
				shared.WriteError(w, http.StatusTooManyRequests, shared.CodeRateLimitExceeded, "too many requests, please try again later")

				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func shouldSkipRateLimit(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
			return true
		}
	}

	return false
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}

func setRateLimitHeaders(w http.ResponseWriter, result throttled.RateLimitResult) {
	w.Header().Set(RateLimitLimitHeader, strconv.Itoa(result.Limit))
	w.Header().Set(RateLimitRemainingHeader, strconv.Itoa(result.Remaining))
	w.Header().Set(RateLimitResetHeader, strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))
}
