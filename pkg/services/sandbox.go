package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tabular-ai/tabular-engine/pkg/adapters/datasource"
	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
	"github.com/tabular-ai/tabular-engine/pkg/logging"
	"github.com/tabular-ai/tabular-engine/pkg/models"
)

// ExecutionService runs validated SQL against a datasource under a statement
// timeout and a hard row cap. Driver values are converted to the engine's
// closed value set before they leave this layer, and raw driver errors never
// escape it.
type ExecutionService interface {
	// Execute runs one read-only statement. The returned result is always
	// non-nil; on failure Success is false, Error carries a sanitized
	// message, and the returned error wraps apperrors.ErrQueryExecution.
	Execute(ctx context.Context, conn *models.Connection, sqlQuery string) (*models.ExecutionResult, error)
}

type executionService struct {
	adapterFactory datasource.AdapterFactory
	timeout        time.Duration
	maxRows        int
	logger         *zap.Logger
}

// NewExecutionService creates an execution service. maxRows above the adapter
// hard cap is clamped by the executors themselves.
func NewExecutionService(adapterFactory datasource.AdapterFactory, timeout time.Duration, maxRows int, logger *zap.Logger) ExecutionService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRows <= 0 || maxRows > datasource.MaxQueryLimit {
		maxRows = datasource.MaxQueryLimit
	}
	return &executionService{
		adapterFactory: adapterFactory,
		timeout:        timeout,
		maxRows:        maxRows,
		logger:         logger.Named("sandbox"),
	}
}

func (s *executionService) Execute(ctx context.Context, conn *models.Connection, sqlQuery string) (*models.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()

	raw, err := s.run(ctx, conn, sqlQuery)
	elapsed := time.Since(started)

	if err != nil {
		sanitized := logging.SanitizeError(err)
		if ctx.Err() == context.DeadlineExceeded {
			sanitized = fmt.Sprintf("query exceeded the %s statement timeout", s.timeout)
		}
		s.logger.Warn("Query execution failed",
			zap.String("connection_id", conn.ID.String()),
			zap.String("error", sanitized),
			zap.Duration("elapsed", elapsed),
		)
		return &models.ExecutionResult{
			Success:   false,
			ElapsedMs: elapsed.Milliseconds(),
			Error:     sanitized,
		}, fmt.Errorf("%w: %s", apperrors.ErrQueryExecution, sanitized)
	}

	result := &models.ExecutionResult{
		Success:   true,
		Columns:   make([]models.ColumnInfo, 0, len(raw.Columns)),
		Rows:      make([]models.Row, 0, len(raw.Rows)),
		RowCount:  raw.RowCount,
		ElapsedMs: elapsed.Milliseconds(),
		Limited:   raw.RowCount >= s.maxRows,
	}
	for _, col := range raw.Columns {
		result.Columns = append(result.Columns, models.ColumnInfo{Name: col.Name, Type: col.Type})
	}
	for _, rawRow := range raw.Rows {
		row := make(models.Row, len(rawRow))
		for name, value := range rawRow {
			row[name] = models.ValueOf(value)
		}
		result.Rows = append(result.Rows, row)
	}

	s.logger.Debug("Query executed",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("rows", result.RowCount),
		zap.Bool("limited", result.Limited),
		zap.Duration("elapsed", elapsed),
	)

	return result, nil
}

func (s *executionService) run(ctx context.Context, conn *models.Connection, sqlQuery string) (*datasource.QueryResult, error) {
	executor, err := s.adapterFactory.NewQueryExecutor(ctx, conn.Type, conn.Config, conn.TenantID, conn.ID)
	if err != nil {
		return nil, err
	}
	defer executor.Close()

	return executor.Query(ctx, sqlQuery, s.maxRows)
}

var _ ExecutionService = (*executionService)(nil)
