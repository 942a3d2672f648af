package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection pool parameters.
type Config struct {
	// Health check frequency to detect connection issues early.
	HealthCheckPeriod time.Duration

	// Force connection refresh to prevent stale connections behind
	// connection poolers.
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration

	// Retry configuration for transient network issues during startup.
	RetryAttempts int
	RetryInterval time.Duration

	MaxOpenConns int32
	MinConns     int32
}

// DefaultConfig returns pool settings suitable for typical web workloads.
func DefaultConfig() Config {
	return Config{
		HealthCheckPeriod: time.Minute,
		MaxConnIdleTime:   10 * time.Minute,
		MaxConnLifetime:   30 * time.Minute,
		RetryAttempts:     3,
		RetryInterval:     5 * time.Second,
		MaxOpenConns:      10,
		MinConns:          2,
	}
}

// Connect establishes a PostgreSQL connection pool with retry logic.
// Backoff grows linearly per attempt to avoid thundering herd on restarts.
func Connect(ctx context.Context, connString string, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns
	connConfig.MinConns = cfg.MinConns
	connConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	connConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	connConfig.MaxConnLifetime = cfg.MaxConnLifetime

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			// Verify with an actual ping to catch auth and permission issues.
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, ErrFailedToOpenDBConnection
}

// pool cache keyed by connection string. Containers are built per request;
// only the underlying pool survives across requests.
var (
	poolsMu sync.Mutex
	pools   = make(map[string]*pgxpool.Pool)
)

// Shared returns the process-wide pool for connString, creating it on first
// use. Every per-request container with the same connection string shares
// one pool; the pool itself is safe for arbitrary interleaving of queries
// from different requests.
func Shared(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	poolsMu.Lock()
	defer poolsMu.Unlock()

	if pool, ok := pools[connString]; ok {
		return pool, nil
	}

	pool, err := Connect(ctx, connString, DefaultConfig())
	if err != nil {
		return nil, err
	}
	pools[connString] = pool
	return pool, nil
}

// CloseShared closes and forgets every cached pool. Called from server
// shutdown hooks and tests.
func CloseShared() {
	poolsMu.Lock()
	defer poolsMu.Unlock()

	for key, pool := range pools {
		pool.Close()
		delete(pools, key)
	}
}
