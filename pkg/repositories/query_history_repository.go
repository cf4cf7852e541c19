package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tabular-ai/tabular-engine/pkg/database"
	"github.com/tabular-ai/tabular-engine/pkg/models"
)

// QueryHistoryRepository records every answered question for audit and for
// conversation context in follow-up questions.
type QueryHistoryRepository interface {
	// Record inserts a history entry.
	Record(ctx context.Context, entry *models.QueryHistoryEntry) error

	// ListRecent returns the newest entries for a connection, most recent
	// first, capped at limit.
	ListRecent(ctx context.Context, tenantID, connectionID uuid.UUID, limit int) ([]*models.QueryHistoryEntry, error)
}

type queryHistoryRepository struct {
	db *database.DB
}

// NewQueryHistoryRepository creates a new query history repository.
func NewQueryHistoryRepository(db *database.DB) QueryHistoryRepository {
	return &queryHistoryRepository{db: db}
}

func (r *queryHistoryRepository) Record(ctx context.Context, entry *models.QueryHistoryEntry) error {
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO engine_query_history
			(tenant_id, connection_id, question, generated_sql, success, row_count, execution_ms, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query,
		entry.TenantID,
		entry.ConnectionID,
		entry.Question,
		entry.GeneratedSQL,
		entry.Success,
		entry.RowCount,
		entry.ExecutionMs,
		entry.Error,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to record query history: %w", err)
	}

	return nil
}

func (r *queryHistoryRepository) ListRecent(ctx context.Context, tenantID, connectionID uuid.UUID, limit int) ([]*models.QueryHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, tenant_id, connection_id, question, generated_sql, success, row_count, execution_ms, error, created_at
		FROM engine_query_history
		WHERE tenant_id = $1 AND connection_id = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Pool.Query(ctx, query, tenantID, connectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueryHistoryEntry
	for rows.Next() {
		var e models.QueryHistoryEntry
		err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.ConnectionID,
			&e.Question,
			&e.GeneratedSQL,
			&e.Success,
			&e.RowCount,
			&e.ExecutionMs,
			&e.Error,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query history entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query history: %w", err)
	}

	return entries, nil
}
