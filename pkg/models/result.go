package models

// ExecutionResult is the sandbox's output for one execution attempt.
// Invariants: Rows is non-nil only when Success is true; Limited=true means
// RowCount equals the configured cap, not the true result size.
type ExecutionResult struct {
	Success   bool         `json:"success"`
	Columns   []ColumnInfo `json:"columns,omitempty"`
	Rows      []Row        `json:"rows,omitempty"`
	RowCount  int          `json:"row_count"`
	ElapsedMs int64        `json:"elapsed_ms"`
	Limited   bool         `json:"limited"`
	// Error carries a sanitized message when Success is false. Raw driver
	// errors never reach this field.
	Error string `json:"error,omitempty"`
}
