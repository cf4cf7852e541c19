package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryHistoryEntry records one question-answering attempt for observability.
// Both successful and failed attempts are recorded; retention is decided
// elsewhere.
type QueryHistoryEntry struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	ConnectionID uuid.UUID `json:"connection_id"`

	Question     string  `json:"question"`
	GeneratedSQL *string `json:"generated_sql,omitempty"`

	Success     bool    `json:"success"`
	RowCount    *int    `json:"row_count,omitempty"`
	ExecutionMs *int64  `json:"execution_ms,omitempty"`
	Error       *string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
