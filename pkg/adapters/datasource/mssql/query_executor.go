package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
)

// QueryExecutor provides SQL Server query execution.
type QueryExecutor struct {
	config *Config
	db     *sql.DB
}

// NewQueryExecutor creates a SQL Server query executor.
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, tenantID, connectionID uuid.UUID) (*QueryExecutor, error) {
	adapter, err := NewAdapter(ctx, cfg, connMgr, tenantID, connectionID)
	if err != nil {
		return nil, err
	}
	return &QueryExecutor{config: cfg, db: adapter.db}, nil
}

// Query runs a SQL query with the limit enforced by the database using
// SQL Server's TOP clause.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	if limit <= 0 || limit > datasource.MaxQueryLimit {
		limit = datasource.MaxQueryLimit
	}
	queryToRun := fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", limit, sqlQuery)

	rows, err := e.db.QueryContext(ctx, queryToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]datasource.ResultColumn, len(columnNames))
	for i, colName := range columnNames {
		columns[i] = datasource.ResultColumn{
			Name: colName,
			Type: mapSQLServerType(columnTypes[i].DatabaseTypeName()),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any)
		for i, col := range columnNames {
			val := values[i]

			// Text columns come back as []byte from the driver.
			if b, ok := val.([]byte); ok && isStringType(columnTypes[i].DatabaseTypeName()) {
				val = string(b)
			}

			rowMap[col] = val
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// QuoteIdentifier safely quotes a SQL identifier using SQL Server's
// bracket quoting.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return quoteName(name)
}

// Close releases the database connection.
func (e *QueryExecutor) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Ensure QueryExecutor implements datasource.QueryExecutor at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
