package repos

import (
	"context"
	"errors"
	"time"

	"github.com/architeacher/devicely/internal/infrastructure"
	"github.com/architeacher/devicely/pkg/circuitbreaker"
	"github.com/throttled/throttled/v2"
)

// RateLimitStore implements throttled.GCRAStoreCtx on top of KeyDB so every
// replica shares the same request budget per client.
type RateLimitStore struct {
	client  *infrastructure.KeydbClient
	prefix  string
	breaker *circuitbreaker.CircuitBreaker[gcraResult]
}

type gcraResult struct {
	value   int64
	at      time.Time
	updated bool
}

var _ throttled.GCRAStoreCtx = (*RateLimitStore)(nil)

// NewRateLimitStore builds the store. A disabled breaker config calls KeyDB
// directly.
func NewRateLimitStore(client *infrastructure.KeydbClient, prefix string, breaker circuitbreaker.Config) *RateLimitStore {
	if breaker.IsSuccessful == nil {
		breaker.IsSuccessful = callerGaveUp
	}

	return &RateLimitStore{
		client:  client,
		prefix:  prefix,
		breaker: circuitbreaker.New[gcraResult](breaker),
	}
}

func (s *RateLimitStore) GetWithTime(ctx context.Context, key string) (int64, time.Time, error) {
	result, err := circuitbreaker.Execute(s.breaker, func() (gcraResult, error) {
		value, at, err := s.client.GetInt64(ctx, s.prefix+key)

		return gcraResult{value: value, at: at}, err
	})

	return result.value, result.at, err
}

func (s *RateLimitStore) SetIfNotExistsWithTTL(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	result, err := circuitbreaker.Execute(s.breaker, func() (gcraResult, error) {
		updated, err := s.client.SetInt64NX(ctx, s.prefix+key, value, ttl)

		return gcraResult{updated: updated}, err
	})

	return result.updated, err
}

func (s *RateLimitStore) CompareAndSwapWithTTL(ctx context.Context, key string, old, new int64, ttl time.Duration) (bool, error) {
	result, err := circuitbreaker.Execute(s.breaker, func() (gcraResult, error) {
		updated, err := s.client.CompareAndSwapInt64(ctx, s.prefix+key, old, new, ttl)

		return gcraResult{updated: updated}, err
	})

	return result.updated, err
}

// callerGaveUp keeps request cancellations from counting against KeyDB.
func callerGaveUp(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
