package postgres

import (
	"context"
	"fmt"

	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens the connection pool and waits until the database answers a
// ping, retrying with exponential backoff up to cfg.ConnectRetries times.
func NewPool(ctx context.Context, cfg config.Database, log logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++

		if err := pool.Ping(ctx); err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("host", cfg.Host).
				Msg("database not reachable yet")

			return struct{}{}, err
		}

		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(cfg.ConnectRetries+1),
	)
	if err != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

func ParseConfig(cfg config.Database) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MinConns = cfg.MinConnections
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	return poolConfig, nil
}
