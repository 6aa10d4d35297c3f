package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// KeydbClient wraps the redis client used for state shared between replicas.
type KeydbClient struct {
	client *redis.Client
	logger logger.Logger
}

func NewKeyDBClient(cfg config.Cache, log logger.Logger) *KeydbClient {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	return &KeydbClient{
		client: client,
		logger: log.Component("keydb"),
	}
}

func (c *KeydbClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// IsHealthy checks if the store is available.
func (c *KeydbClient) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("keydb ping failed")

		return false
	}

	return true
}

func (c *KeydbClient) Close() error {
	return c.client.Close()
}

// GetInt64 returns the value stored at key together with the server time, or
// -1 when the key does not exist.
func (c *KeydbClient) GetInt64(ctx context.Context, key string) (int64, time.Time, error) {
	now, err := c.client.Time(ctx).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("reading server time: %w", err)
	}

	val, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, now, nil
		}

		return 0, now, fmt.Errorf("reading %s: %w", key, err)
	}

	return val, now, nil
}

// SetInt64NX sets an int64 value if the key doesn't exist.
func (c *KeydbClient) SetInt64NX(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

var compareAndSwapScript = redis.NewScript(`
	local current = redis.call("GET", KEYS[1])
	if current == false or tonumber(current) ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
`)

// CompareAndSwapInt64 atomically replaces the value at key when it still equals old.
func (c *KeydbClient) CompareAndSwapInt64(ctx context.Context, key string, old, new int64, ttl time.Duration) (bool, error) {
	result, err := compareAndSwapScript.Run(ctx, c.client, []string{key}, old, new, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("swapping %s: %w", key, err)
	}

	return result == 1, nil
}

// Get returns the raw value at key, or redis.Nil when it does not exist.
func (c *KeydbClient) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, key).Bytes()
}

func (c *KeydbClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Lock sets key to value unless it is already held.
func (c *KeydbClient) Lock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

func (c *KeydbClient) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}
