package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// Connect opens a pool and pings it, retrying with exponential backoff while
// the database is still coming up.
func Connect(ctx context.Context, url string, maxConns int32, retries uint64, logger *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	var pool *pgxpool.Pool
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		p, err := pgxpool.ConnectConfig(ctx, cfg)
		if err != nil {
			logger.Warn("postgres connect failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			logger.Warn("postgres ping failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		pool = p
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}
