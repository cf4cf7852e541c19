package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
)

// Adapter provides SQL Server connectivity.
//
// SQL Server connections are not pgx pools, so the shared connection
// manager does not apply here; each adapter owns its *sql.DB and the
// driver's internal pooling handles reuse within one adapter lifetime.
type Adapter struct {
	config *Config
	db     *sql.DB
}

// buildConnectionString builds a sqlserver:// URL with proper escaping.
func buildConnectionString(cfg *Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	query := url.Values{}
	query.Add("database", cfg.Database)
	query.Add("encrypt", strconv.FormatBool(cfg.Encrypt))
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(cfg.ConnectionTimeout))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func openDB(cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// NewAdapter creates a SQL Server adapter and verifies connectivity.
func NewAdapter(ctx context.Context, cfg *Config, _ *datasource.ConnectionManager, _, _ uuid.UUID) (*Adapter, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return &Adapter{config: cfg, db: db}, nil
}

// TestConnection verifies the database is reachable with valid credentials
// and that we landed in the expected database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	if a.config.DSN != "" {
		return nil
	}

	var currentDB string
	if err := a.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}

	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}

	return nil
}

// Close releases the database connection.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ensure Adapter implements ConnectionTester at compile time.
var _ datasource.ConnectionTester = (*Adapter)(nil)
