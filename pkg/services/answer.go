package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
	"github.com/tabular-ai/tabular-engine/pkg/models"
	"github.com/tabular-ai/tabular-engine/pkg/repositories"
)

// Answer is the pipeline's output for one question.
// Exactly one of ClarificationQuestion or Result is populated.
type Answer struct {
	Question              string                  `json:"question"`
	NeedsClarification    bool                    `json:"needs_clarification"`
	ClarificationQuestion string                  `json:"clarification_question,omitempty"`
	GeneratedSQL          string                  `json:"generated_sql,omitempty"`
	Explanation           string                  `json:"explanation,omitempty"`
	Warnings              []string                `json:"warnings,omitempty"`
	Result                *models.ExecutionResult `json:"result,omitempty"`
	ConnectionUsed        string                  `json:"connection_used"`
}

// QueryPipeline answers natural-language questions end to end: resolve the
// connection, load or discover the schema, synthesize SQL, execute it in the
// sandbox, and record the exchange.
type QueryPipeline interface {
	Answer(ctx context.Context, req *models.QueryRequest) (*Answer, error)
}

type queryPipeline struct {
	connections   ConnectionService
	schema        SchemaService
	synthesis     SynthesisService
	execution     ExecutionService
	history       repositories.QueryHistoryRepository
	historyWindow int
	logger        *zap.Logger
}

// NewQueryPipeline creates the pipeline with dependencies. historyWindow is
// the number of prior exchanges embedded in the synthesis prompt when the
// request does not carry its own history.
func NewQueryPipeline(
	connections ConnectionService,
	schema SchemaService,
	synthesis SynthesisService,
	execution ExecutionService,
	history repositories.QueryHistoryRepository,
	historyWindow int,
	logger *zap.Logger,
) QueryPipeline {
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &queryPipeline{
		connections:   connections,
		schema:        schema,
		synthesis:     synthesis,
		execution:     execution,
		history:       history,
		historyWindow: historyWindow,
		logger:        logger.Named("pipeline"),
	}
}

func (p *queryPipeline) Answer(ctx context.Context, req *models.QueryRequest) (*Answer, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	conn, err := p.connections.Get(ctx, req.TenantID, req.ConnectionID)
	if err != nil {
		return nil, err
	}

	// Fail fast on a known-bad connection rather than burning a synthesis
	// call on a query that cannot execute.
	if conn.Status == models.ConnectionStatusFailed {
		reason := "last validation failed"
		if conn.LastError != nil {
			reason = *conn.LastError
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConnectionUnreachable, reason)
	}

	snapshot, err := p.loadSchema(ctx, req)
	if err != nil {
		return nil, err
	}

	history := req.History
	if history == nil {
		history = p.loadHistory(ctx, req)
	}

	generated, err := p.synthesis.Synthesize(ctx, &SynthesisRequest{
		Snapshot: snapshot,
		History:  history,
		Question: req.Question,
		Dialect:  conn.Type,
	})
	if err != nil {
		p.record(ctx, req, nil, fmt.Sprintf("synthesis failed: %v", err))
		return nil, err
	}

	answer := &Answer{
		Question:       req.Question,
		Explanation:    generated.Explanation,
		Warnings:       generated.Warnings,
		ConnectionUsed: conn.Name,
	}

	if generated.NeedsClarification {
		answer.NeedsClarification = true
		answer.ClarificationQuestion = generated.ClarificationQuestion
		return answer, nil
	}

	answer.GeneratedSQL = generated.SQL

	result, execErr := p.execution.Execute(ctx, conn, generated.SQL)
	answer.Result = result

	if execErr != nil {
		p.record(ctx, req, generated, result.Error)
		return answer, execErr
	}

	p.recordSuccess(ctx, req, generated, result)
	return answer, nil
}

// loadSchema fetches the cached snapshot, running discovery once when none
// exists yet. Any other error passes through unchanged.
func (p *queryPipeline) loadSchema(ctx context.Context, req *models.QueryRequest) (*models.SchemaSnapshot, error) {
	snapshot, err := p.schema.GetCached(ctx, req.TenantID, req.ConnectionID)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, apperrors.ErrSchemaUnavailable) {
		return nil, err
	}

	p.logger.Info("No schema snapshot, running discovery",
		zap.String("connection_id", req.ConnectionID.String()),
	)
	return p.schema.Discover(ctx, req.TenantID, req.ConnectionID)
}

// loadHistory builds the prompt's conversation window from recorded
// exchanges, oldest first. Only successful executions carry SQL worth
// anchoring a follow-up to.
func (p *queryPipeline) loadHistory(ctx context.Context, req *models.QueryRequest) []models.Exchange {
	entries, err := p.history.ListRecent(ctx, req.TenantID, req.ConnectionID, p.historyWindow)
	if err != nil {
		p.logger.Warn("Failed to load query history",
			zap.String("connection_id", req.ConnectionID.String()),
			zap.Error(err),
		)
		return nil
	}

	exchanges := make([]models.Exchange, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if !entry.Success || entry.GeneratedSQL == nil {
			continue
		}
		exchanges = append(exchanges, models.Exchange{
			Question: entry.Question,
			SQL:      *entry.GeneratedSQL,
		})
	}
	return exchanges
}

func (p *queryPipeline) recordSuccess(ctx context.Context, req *models.QueryRequest, generated *models.GeneratedQuery, result *models.ExecutionResult) {
	entry := &models.QueryHistoryEntry{
		TenantID:     req.TenantID,
		ConnectionID: req.ConnectionID,
		Question:     req.Question,
		GeneratedSQL: &generated.SQL,
		Success:      true,
		RowCount:     &result.RowCount,
		ExecutionMs:  &result.ElapsedMs,
	}
	if err := p.history.Record(ctx, entry); err != nil {
		p.logger.Warn("Failed to record query history", zap.Error(err))
	}
}

func (p *queryPipeline) record(ctx context.Context, req *models.QueryRequest, generated *models.GeneratedQuery, errMsg string) {
	entry := &models.QueryHistoryEntry{
		TenantID:     req.TenantID,
		ConnectionID: req.ConnectionID,
		Question:     req.Question,
		Success:      false,
		Error:        &errMsg,
	}
	if generated != nil && generated.SQL != "" {
		entry.GeneratedSQL = &generated.SQL
	}
	if err := p.history.Record(ctx, entry); err != nil {
		p.logger.Warn("Failed to record query history", zap.Error(err))
	}
}

var _ QueryPipeline = (*queryPipeline)(nil)
