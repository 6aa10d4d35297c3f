package ports

import (
	"context"
	"time"
)

// CachedResponse is a successful response kept for replay.
type CachedResponse struct {
	StatusCode  int               `json:"status_code"`
	Headers     map[string]string `json:"headers"`
	Body        []byte            `json:"body"`
	Fingerprint string            `json:"fingerprint"`
	CreatedAt   time.Time         `json:"created_at"`
}

// IdempotencyStore keeps responses of requests carrying an idempotency key.
type IdempotencyStore interface {
	// Get returns nil, nil when nothing is stored under key.
	Get(ctx context.Context, key string) (*CachedResponse, error)

	Set(ctx context.Context, key string, response *CachedResponse, ttl time.Duration) error

	// SetLock reports false when another request holds the key.
	SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	ReleaseLock(ctx context.Context, key string) error
}
