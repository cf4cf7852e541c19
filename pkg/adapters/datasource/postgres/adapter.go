package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
)

// Adapter provides PostgreSQL connectivity.
type Adapter struct {
	config       *Config
	pool         *pgxpool.Pool
	connMgr      *datasource.ConnectionManager
	tenantID     uuid.UUID
	connectionID uuid.UUID
	ownedPool    bool // true if we created the pool (for TestConnection case)
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields must be URL-escaped to handle special characters
// in passwords (e.g., @, /, #, ?) that would otherwise break URL parsing.
func buildConnectionString(cfg *Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		url.QueryEscape(cfg.Database),
		sslMode,
	)
}

// NewAdapter creates a PostgreSQL adapter using the connection manager.
// If connMgr is nil, creates an unmanaged pool (for tests or TestConnection).
func NewAdapter(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, tenantID, connectionID uuid.UUID) (*Adapter, error) {
	connStr := buildConnectionString(cfg)

	if connMgr == nil {
		pool, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return &Adapter{
			config:    cfg,
			pool:      pool,
			ownedPool: true,
		}, nil
	}

	pool, err := connMgr.GetOrCreatePool(ctx, tenantID, connectionID, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}

	return &Adapter{
		config:       cfg,
		pool:         pool,
		connMgr:      connMgr,
		tenantID:     tenantID,
		connectionID: connectionID,
		ownedPool:    false,
	}, nil
}

// TestConnection verifies the database is reachable with valid credentials.
// It checks:
// 1. Server connectivity (ping)
// 2. Database access (simple query)
// 3. Correct database name (to prevent connecting to wrong/default database)
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	// Skip the database-name check for DSN configs; the DSN is authoritative.
	if a.config.DSN != "" {
		return nil
	}

	var currentDB string
	if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}

	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}

	return nil
}

// Close releases the adapter (but NOT the pool if managed).
func (a *Adapter) Close() error {
	if a.ownedPool && a.pool != nil {
		a.pool.Close()
	}
	// If using connection manager, don't close the pool - it's managed by TTL
	return nil
}

// Ensure Adapter implements ConnectionTester at compile time.
var _ datasource.ConnectionTester = (*Adapter)(nil)
