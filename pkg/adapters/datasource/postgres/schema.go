package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
)

// Introspector provides PostgreSQL schema discovery.
type Introspector struct {
	pool         *pgxpool.Pool
	connMgr      *datasource.ConnectionManager
	tenantID     uuid.UUID
	connectionID uuid.UUID
	ownedPool    bool
}

// NewIntrospector creates a PostgreSQL schema introspector using the
// connection manager. If connMgr is nil, creates an unmanaged pool.
func NewIntrospector(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, tenantID, connectionID uuid.UUID) (*Introspector, error) {
	connStr := buildConnectionString(cfg)

	if connMgr == nil {
		pool, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return &Introspector{pool: pool, ownedPool: true}, nil
	}

	pool, err := connMgr.GetOrCreatePool(ctx, tenantID, connectionID, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}

	return &Introspector{
		pool:         pool,
		connMgr:      connMgr,
		tenantID:     tenantID,
		connectionID: connectionID,
		ownedPool:    false,
	}, nil
}

// Close releases the adapter (but NOT the pool if managed).
func (d *Introspector) Close() error {
	if d.ownedPool && d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// SupportsForeignKeys returns true since PostgreSQL supports FK discovery.
func (d *Introspector) SupportsForeignKeys() bool {
	return true
}

// GetTables returns all user tables (excludes system schemas).
func (d *Introspector) GetTables(ctx context.Context) ([]datasource.Table, error) {
	const query = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_schema, table_name
	`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.Table
	for rows.Next() {
		var t datasource.Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// GetColumns returns columns for a specific table in ordinal order.
// Uses pg_index for primary key detection, which correctly identifies
// primary keys even when created as unique indexes (common with ORMs).
func (d *Introspector) GetColumns(ctx context.Context, schemaName, tableName string) ([]datasource.Column, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' as is_nullable,
			COALESCE(pk.is_pk, false) as is_primary_key
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true
			  AND n.nspname = $1
			  AND t.relname = $2
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := d.pool.Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.Column
	for rows.Next() {
		var c datasource.Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// GetForeignKeys returns foreign key relationships for one table.
func (d *Introspector) GetForeignKeys(ctx context.Context, schemaName, tableName string) ([]datasource.ForeignKey, error) {
	const query = `
		SELECT
			kcu.column_name,
			ccu.table_name as referenced_table,
			ccu.column_name as referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = $2
	`

	rows, err := d.pool.Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKey
	for rows.Next() {
		var fk datasource.ForeignKey
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return fks, nil
}

// Ensure Introspector implements datasource.SchemaIntrospector at compile time.
var _ datasource.SchemaIntrospector = (*Introspector)(nil)
