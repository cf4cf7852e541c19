package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
)

// QueryExecutor provides PostgreSQL query execution.
type QueryExecutor struct {
	pool         *pgxpool.Pool
	connMgr      *datasource.ConnectionManager
	tenantID     uuid.UUID
	connectionID uuid.UUID
	ownedPool    bool
}

// NewQueryExecutor creates a PostgreSQL query executor using the connection
// manager. If connMgr is nil, creates an unmanaged pool.
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, tenantID, connectionID uuid.UUID) (*QueryExecutor, error) {
	connStr := buildConnectionString(cfg)

	if connMgr == nil {
		pool, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return &QueryExecutor{pool: pool, ownedPool: true}, nil
	}

	pool, err := connMgr.GetOrCreatePool(ctx, tenantID, connectionID, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}

	return &QueryExecutor{
		pool:         pool,
		connMgr:      connMgr,
		tenantID:     tenantID,
		connectionID: connectionID,
		ownedPool:    false,
	}, nil
}

// Query runs a SQL query with the limit enforced by the database.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	if limit <= 0 || limit > datasource.MaxQueryLimit {
		limit = datasource.MaxQueryLimit
	}
	queryToRun := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", sqlQuery, limit)

	rows, err := e.pool.Query(ctx, queryToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ResultColumn, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ResultColumn{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any)
		for i, col := range columns {
			rowMap[col.Name] = values[i]
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

// Close releases the adapter (but NOT the pool if managed).
func (e *QueryExecutor) Close() error {
	if e.ownedPool && e.pool != nil {
		e.pool.Close()
	}
	return nil
}

// QuoteIdentifier safely quotes a SQL identifier using PostgreSQL's
// standard double-quote quoting.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// pgTypeNameFromOID maps PostgreSQL type OIDs to human-readable type names.
// This covers the most common types; unknown types return "UNKNOWN".
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 18:
		return "CHAR"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 114:
		return "JSON"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 790:
		return "MONEY"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1186:
		return "INTERVAL"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	case 1000:
		return "BOOL[]"
	case 1005:
		return "INT2[]"
	case 1007:
		return "INT4[]"
	case 1016:
		return "INT8[]"
	case 1009:
		return "TEXT[]"
	case 1015:
		return "VARCHAR[]"
	case 1021:
		return "FLOAT4[]"
	case 1022:
		return "FLOAT8[]"
	case 2951:
		return "UUID[]"
	case 3807:
		return "JSONB[]"
	default:
		return "UNKNOWN"
	}
}

// Ensure QueryExecutor implements datasource.QueryExecutor at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
