// Package datasource defines the adapter contracts for registered external
// databases. Each dialect (postgres, sqlserver) implements these behind the
// registry; callers obtain adapters through the factory for exactly one
// operation and must Close them on every exit path.
package datasource

import "context"

// ConnectionTester probes database connectivity.
// Each instance owns its connection and must be closed when done.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid
	// credentials. Returns nil if healthy.
	TestConnection(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

// SchemaIntrospector reads catalog metadata for schema discovery.
// Each instance owns its connection and must be closed when done.
type SchemaIntrospector interface {
	// GetTables returns all user tables (system schemas excluded) in
	// catalog order.
	GetTables(ctx context.Context) ([]Table, error)

	// GetColumns returns the columns of one table in ordinal order.
	GetColumns(ctx context.Context, schemaName, tableName string) ([]Column, error)

	// GetForeignKeys returns foreign key relationships for a table.
	// Dialects without FK introspection return an empty slice.
	GetForeignKeys(ctx context.Context, schemaName, tableName string) ([]ForeignKey, error)

	// SupportsForeignKeys reports whether FK introspection is available.
	SupportsForeignKeys() bool

	// Close releases the database connection.
	Close() error
}

// MaxQueryLimit is the hard cap on rows returned by one execution.
// Protects the engine against unbounded result sets.
const MaxQueryLimit = 1000

// QueryExecutor runs read-only SQL against a datasource.
//
// Query is ALWAYS wrapped with a dialect-specific limit before it is issued:
//   - PostgreSQL: SELECT * FROM (query) AS _limited LIMIT n
//   - SQL Server: SELECT TOP (n) * FROM (query) AS _limited
//
// so the cap is enforced by the database, not by post-hoc truncation of an
// unbounded fetch. limit <= 0 or > MaxQueryLimit uses MaxQueryLimit.
// Each instance owns its connection and must be closed when done.
type QueryExecutor interface {
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)

	// QuoteIdentifier safely quotes a SQL identifier with dialect rules.
	QuoteIdentifier(name string) string

	// Close releases any resources held by the executor.
	Close() error
}

// Table identifies a database table.
type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// Column describes a table column.
type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"is_nullable"`
	IsPrimary  bool   `json:"is_primary"`
}

// ForeignKey describes a foreign key relationship.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// ResultColumn describes a result column with the driver's type name.
type ResultColumn struct {
	Name string `json:"name"`
	Type string `json:"type"` // e.g. "TEXT", "INT4", "NVARCHAR"
}

// QueryResult holds raw rows from one bounded execution. Values are the
// driver's native Go types; the execution sandbox converts them into the
// engine's closed value set at its boundary.
type QueryResult struct {
	Columns  []ResultColumn   `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}
