// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	defaultMaxConns        = 20
	defaultMinConns        = 2
	defaultConnectAttempts = 5
	retryDelay             = 2 * time.Second
)

type poolOptions struct {
	maxConns        int32
	minConns        int32
	connectAttempts int
	logger          *zap.Logger
}

// Option configures NewPool.
type Option func(*poolOptions)

// WithMaxConns caps the number of pooled connections.
func WithMaxConns(n int) Option {
	return func(o *poolOptions) {
		if n > 0 {
			o.maxConns = int32(n)
		}
	}
}

// WithMinConns sets the number of idle connections kept warm.
func WithMinConns(n int) Option {
	return func(o *poolOptions) {
		if n >= 0 {
			o.minConns = int32(n)
		}
	}
}

// WithConnectAttempts sets how many times NewPool tries to reach the server.
func WithConnectAttempts(n int) Option {
	return func(o *poolOptions) {
		if n > 0 {
			o.connectAttempts = n
		}
	}
}

// WithLogger reports connection retries.
func WithLogger(l *zap.Logger) Option {
	return func(o *poolOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewPool creates and validates a pgxpool connection pool.
// It retries to accommodate containers starting up.
func NewPool(ctx context.Context, dsn string, opts ...Option) (*pgxpool.Pool, error) {
	o := poolOptions{
		maxConns:        defaultMaxConns,
		minConns:        defaultMinConns,
		connectAttempts: defaultConnectAttempts,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = o.maxConns
	poolCfg.MinConns = o.minConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= o.connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		o.logger.Warn("db connect attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.connectAttempts),
			zap.Error(err),
		)
		if attempt == o.connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to postgres: %w", ctx.Err())
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}
