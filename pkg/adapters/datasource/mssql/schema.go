package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
)

// Introspector provides SQL Server schema discovery.
type Introspector struct {
	config *Config
	db     *sql.DB
}

// NewIntrospector creates a SQL Server schema introspector.
func NewIntrospector(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, tenantID, connectionID uuid.UUID) (*Introspector, error) {
	adapter, err := NewAdapter(ctx, cfg, connMgr, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	return &Introspector{config: cfg, db: adapter.db}, nil
}

// Close releases the database connection.
func (s *Introspector) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SupportsForeignKeys returns true since SQL Server supports FK discovery.
func (s *Introspector) SupportsForeignKeys() bool {
	return true
}

// GetTables returns all user tables (excludes system tables).
func (s *Introspector) GetTables(ctx context.Context) ([]datasource.Table, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	ORDER BY table_schema, table_name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.Table
	for rows.Next() {
		var t datasource.Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	return tables, nil
}

// GetColumns returns columns for a specific table in ordinal order.
func (s *Introspector) GetColumns(ctx context.Context, schemaName, tableName string) ([]datasource.Column, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id
	`

	rows, err := s.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.Column
	for rows.Next() {
		var col datasource.Column
		var isNullable, isPrimary int

		if err := rows.Scan(&col.Name, &col.DataType, &isNullable, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}

		col.IsNullable = isNullable == 1
		col.IsPrimary = isPrimary == 1
		col.DataType = mapSQLServerType(col.DataType)

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	return columns, nil
}

// GetForeignKeys returns foreign key relationships for one table.
func (s *Introspector) GetForeignKeys(ctx context.Context, schemaName, tableName string) ([]datasource.ForeignKey, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS source_column,
	    OBJECT_NAME(fk.referenced_object_id) AS target_table,
	    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS target_column
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	WHERE fk.is_ms_shipped = 0
	  AND fk.parent_object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY fk.name, fkc.constraint_column_id
	`

	rows, err := s.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKey
	for rows.Next() {
		var fk datasource.ForeignKey
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign key rows: %w", err)
	}

	return fks, nil
}

// Ensure Introspector implements datasource.SchemaIntrospector at compile time.
var _ datasource.SchemaIntrospector = (*Introspector)(nil)
