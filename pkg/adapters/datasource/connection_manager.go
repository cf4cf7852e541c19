package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tabular-ai/tabular-engine/pkg/logging"
	"github.com/tabular-ai/tabular-engine/pkg/retry"
)

// managedPool wraps a pgx pool with usage tracking for TTL eviction.
type managedPool struct {
	pool      *pgxpool.Pool
	createdAt time.Time
	lastUsed  time.Time
	mu        sync.RWMutex
}

func (mp *managedPool) touch() {
	mp.mu.Lock()
	mp.lastUsed = time.Now()
	mp.mu.Unlock()
}

func (mp *managedPool) idleSince() time.Time {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.lastUsed
}

// ConnectionManager maintains a cache of database connection pools keyed
// by tenant and connection. Pools are evicted after sitting idle for the
// configured TTL so that credentials are not held open indefinitely.
type ConnectionManager struct {
	pools       map[string]*managedPool
	mu          sync.RWMutex
	ttl         time.Duration
	maxPoolSize int32
	logger      *zap.Logger
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// ConnectionManagerConfig controls pool lifetime and sizing.
type ConnectionManagerConfig struct {
	TTL         time.Duration
	MaxPoolSize int32
}

// NewConnectionManager creates a manager and starts its idle-eviction loop.
func NewConnectionManager(cfg ConnectionManagerConfig, logger *zap.Logger) *ConnectionManager {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 5
	}

	cm := &ConnectionManager{
		pools:       make(map[string]*managedPool),
		ttl:         cfg.TTL,
		maxPoolSize: cfg.MaxPoolSize,
		logger:      logger.Named("connection_manager"),
		stopChan:    make(chan struct{}),
	}

	go cm.cleanupLoop()

	return cm
}

func poolKey(tenantID, connectionID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", tenantID, connectionID)
}

// GetOrCreatePool returns a healthy pool for the connection, creating one
// if none is cached. A cached pool that fails its health check is discarded
// and replaced.
func (cm *ConnectionManager) GetOrCreatePool(ctx context.Context, tenantID, connectionID uuid.UUID, connString string) (*pgxpool.Pool, error) {
	key := poolKey(tenantID, connectionID)

	cm.mu.RLock()
	mp, ok := cm.pools[key]
	cm.mu.RUnlock()

	if ok {
		if err := cm.healthCheck(ctx, mp.pool); err == nil {
			mp.touch()
			return mp.pool, nil
		}
		cm.logger.Warn("cached pool failed health check, recreating",
			zap.String("tenant_id", tenantID.String()),
			zap.String("connection_id", connectionID.String()))
		cm.evict(key)
	}

	return cm.createPool(ctx, key, connString)
}

func (cm *ConnectionManager) createPool(ctx context.Context, key, connString string) (*pgxpool.Pool, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Another goroutine may have created the pool while we waited.
	if mp, ok := cm.pools[key]; ok {
		mp.touch()
		return mp.pool, nil
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %s", logging.SanitizeError(err))
	}
	cfg.MaxConns = cm.maxPoolSize
	cfg.MaxConnIdleTime = cm.ttl

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create pool: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("ping: %w", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to datasource: %s", logging.SanitizeError(err))
	}

	now := time.Now()
	cm.pools[key] = &managedPool{pool: pool, createdAt: now, lastUsed: now}
	cm.logger.Debug("created datasource pool", zap.String("key", key))

	return pool, nil
}

func (cm *ConnectionManager) healthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pool.Ping(pingCtx)
}

// Evict removes and closes the cached pool for a connection, if any.
// Call this after credentials change or a connection is deleted.
func (cm *ConnectionManager) Evict(tenantID, connectionID uuid.UUID) {
	cm.evict(poolKey(tenantID, connectionID))
}

func (cm *ConnectionManager) evict(key string) {
	cm.mu.Lock()
	mp, ok := cm.pools[key]
	if ok {
		delete(cm.pools, key)
	}
	cm.mu.Unlock()

	if ok {
		mp.pool.Close()
	}
}

func (cm *ConnectionManager) cleanupLoop() {
	interval := cm.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.evictIdle()
		case <-cm.stopChan:
			return
		}
	}
}

func (cm *ConnectionManager) evictIdle() {
	cutoff := time.Now().Add(-cm.ttl)

	cm.mu.Lock()
	var expired []*managedPool
	for key, mp := range cm.pools {
		if mp.idleSince().Before(cutoff) {
			expired = append(expired, mp)
			delete(cm.pools, key)
			cm.logger.Debug("evicting idle datasource pool", zap.String("key", key))
		}
	}
	cm.mu.Unlock()

	for _, mp := range expired {
		mp.pool.Close()
	}
}

// Close stops the eviction loop and closes all cached pools.
func (cm *ConnectionManager) Close() {
	cm.stopOnce.Do(func() { close(cm.stopChan) })

	cm.mu.Lock()
	pools := make([]*managedPool, 0, len(cm.pools))
	for _, mp := range cm.pools {
		pools = append(pools, mp)
	}
	cm.pools = make(map[string]*managedPool)
	cm.mu.Unlock()

	for _, mp := range pools {
		mp.pool.Close()
	}
}
