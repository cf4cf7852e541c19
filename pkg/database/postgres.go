// Package database manages the engine's own Postgres store, which holds the
// connection catalog, schema snapshots, and query history. Registered
// datasources are never reached through this package; they live behind
// pkg/adapters/datasource.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool defaults for the engine store. The store serves short catalog reads
// and single-row writes, so the pool stays small.
const (
	defaultMaxConns        = 25
	defaultConnLifetime    = time.Hour
	defaultConnIdleTime    = 30 * time.Minute
	defaultConnectDeadline = 10 * time.Second
)

// DB wraps the engine store's pgxpool connection pool.
type DB struct {
	*pgxpool.Pool
}

// Config holds engine store connection configuration. Zero fields fall back
// to the pool defaults above.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewConnection creates the engine store pool and verifies it with a ping
// bounded by the connect deadline.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse engine store URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = defaultMaxConns
	}
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = defaultConnLifetime
	}
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime == 0 {
		poolConfig.MaxConnIdleTime = defaultConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine store pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectDeadline)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping engine store: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
