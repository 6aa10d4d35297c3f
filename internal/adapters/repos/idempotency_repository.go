package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/devicely/internal/infrastructure"
	"github.com/architeacher/devicely/internal/ports"
	"github.com/architeacher/devicely/pkg/circuitbreaker"
	"github.com/redis/go-redis/v9"
)

const (
	lockSuffix = ":lock"
	lockValue  = "processing"
)

// IdempotencyRepository stores replayable responses in KeyDB.
type IdempotencyRepository struct {
	client  *infrastructure.KeydbClient
	breaker *circuitbreaker.CircuitBreaker[idempotencyResult]
}

type idempotencyResult struct {
	response *ports.CachedResponse
	acquired bool
}

var _ ports.IdempotencyStore = (*IdempotencyRepository)(nil)

func NewIdempotencyRepository(client *infrastructure.KeydbClient, breaker circuitbreaker.Config) *IdempotencyRepository {
	if breaker.IsSuccessful == nil {
		breaker.IsSuccessful = callerGaveUp
	}

	return &IdempotencyRepository{
		client:  client,
		breaker: circuitbreaker.New[idempotencyResult](breaker),
	}
}

// Get returns nil, nil for unknown keys.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*ports.CachedResponse, error) {
	result, err := circuitbreaker.Execute(r.breaker, func() (idempotencyResult, error) {
		data, err := r.client.Get(ctx, key)
		if errors.Is(err, redis.Nil) {
			return idempotencyResult{}, nil
		}

		if err != nil {
			return idempotencyResult{}, fmt.Errorf("getting cached response: %w", err)
		}

		var response ports.CachedResponse
		if err := json.Unmarshal(data, &response); err != nil {
			return idempotencyResult{}, fmt.Errorf("unmarshalling cached response: %w", err)
		}

		return idempotencyResult{response: &response}, nil
	})

	return result.response, err
}

func (r *IdempotencyRepository) Set(ctx context.Context, key string, response *ports.CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshalling response: %w", err)
	}

	_, err = circuitbreaker.Execute(r.breaker, func() (idempotencyResult, error) {
		return idempotencyResult{}, r.client.Set(ctx, key, data, ttl)
	})
	if err != nil {
		return fmt.Errorf("setting cached response: %w", err)
	}

	return nil
}

func (r *IdempotencyRepository) SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := circuitbreaker.Execute(r.breaker, func() (idempotencyResult, error) {
		acquired, err := r.client.Lock(ctx, key+lockSuffix, lockValue, ttl)

		return idempotencyResult{acquired: acquired}, err
	})
	if err != nil {
		return false, fmt.Errorf("acquiring lock: %w", err)
	}

	return result.acquired, nil
}

func (r *IdempotencyRepository) ReleaseLock(ctx context.Context, key string) error {
	_, err := circuitbreaker.Execute(r.breaker, func() (idempotencyResult, error) {
		return idempotencyResult{}, r.client.Delete(ctx, key+lockSuffix)
	})
	if err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}

	return nil
}
