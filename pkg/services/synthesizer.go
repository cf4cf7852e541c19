package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
	"github.com/tabular-ai/tabular-engine/pkg/llm"
	"github.com/tabular-ai/tabular-engine/pkg/models"
	"github.com/tabular-ai/tabular-engine/pkg/prompts"
	sqlguard "github.com/tabular-ai/tabular-engine/pkg/sql"
)

// synthesisTemperature keeps generation near-deterministic. SQL synthesis
// wants the model's most likely reading of the schema, not creative variety.
const synthesisTemperature = 0.1

// SynthesisService turns a natural-language question into a validated
// read-only SQL candidate, or a clarifying question when the model is not
// confident enough to commit to one.
type SynthesisService interface {
	Synthesize(ctx context.Context, req *SynthesisRequest) (*models.GeneratedQuery, error)
}

// SynthesisRequest carries everything the prompt needs for one question.
type SynthesisRequest struct {
	Snapshot *models.SchemaSnapshot
	History  []models.Exchange
	Question string
	Dialect  string // "postgres", "sqlserver"
}

type synthesisService struct {
	client              llm.LLMClient
	confidenceThreshold int
	logger              *zap.Logger
}

// NewSynthesisService creates a synthesis service. Confidence scores below
// threshold (0-100) are downgraded to clarification requests.
func NewSynthesisService(client llm.LLMClient, confidenceThreshold int, logger *zap.Logger) SynthesisService {
	return &synthesisService{
		client:              client,
		confidenceThreshold: confidenceThreshold,
		logger:              logger.Named("synthesis"),
	}
}

func (s *synthesisService) Synthesize(ctx context.Context, req *SynthesisRequest) (*models.GeneratedQuery, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	if req.Snapshot == nil {
		return nil, fmt.Errorf("%w: no schema snapshot provided", apperrors.ErrSchemaUnavailable)
	}

	prompt := prompts.BuildSynthesisPrompt(req.Snapshot, req.History, req.Question, req.Dialect)

	response, err := s.client.GenerateResponse(ctx, prompt, prompts.SynthesisSystemMessage, synthesisTemperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQueryGeneration, err)
	}

	generated, err := s.parseResponse(response)
	if err != nil {
		s.logger.Warn("Unparseable synthesis response",
			zap.String("model", s.client.GetModel()),
			zap.Int("response_len", len(response)),
		)
		return nil, err
	}

	if generated.NeedsClarification {
		generated.SQL = ""
		if generated.ClarificationQuestion == "" {
			generated.ClarificationQuestion = "Could you rephrase the question with more detail?"
		}
		return generated, nil
	}

	// The safety gate runs before the confidence gate: an unsafe candidate
	// is a violation and must surface as one, never softened into a
	// clarification request.
	if generated.SQL != "" {
		normalized, err := sqlguard.ValidateReadOnly(generated.SQL)
		if err != nil {
			s.logger.Warn("Generated SQL rejected by safety gate",
				zap.String("error", err.Error()),
			)
			return nil, err
		}
		generated.SQL = normalized
		generated.Warnings = append(generated.Warnings, sqlguard.CheckStringLiterals(generated.SQL)...)
	}

	if generated.Confidence < s.confidenceThreshold {
		s.logger.Info("Low-confidence synthesis downgraded to clarification",
			zap.Int("confidence", generated.Confidence),
			zap.Int("threshold", s.confidenceThreshold),
		)
		generated.NeedsClarification = true
		generated.ClarificationQuestion = clarificationFor(generated)
		generated.SQL = ""
		return generated, nil
	}

	if generated.SQL == "" {
		return nil, fmt.Errorf("%w: model returned no SQL and no clarification", apperrors.ErrQueryGeneration)
	}

	return generated, nil
}

// parseResponse decodes the model output. The structured JSON contract is
// tried first; a bare fenced SQL block is accepted as a degraded fallback
// since some models ignore format instructions under long schema prompts.
func (s *synthesisService) parseResponse(response string) (*models.GeneratedQuery, error) {
	generated, err := llm.ParseJSONResponse[models.GeneratedQuery](response)
	if err == nil {
		return &generated, nil
	}

	if sql := llm.ExtractSQLCodeBlock(response); sql != "" {
		return &models.GeneratedQuery{
			SQL:         sql,
			Explanation: "Generated from an unstructured model response.",
			Confidence:  s.confidenceThreshold,
		}, nil
	}

	return nil, fmt.Errorf("%w: response is neither valid JSON nor a SQL block", apperrors.ErrQueryGeneration)
}

// clarificationFor builds a clarifying question when the model produced SQL
// but scored itself below the execution threshold.
func clarificationFor(generated *models.GeneratedQuery) string {
	if generated.ClarificationQuestion != "" {
		return generated.ClarificationQuestion
	}
	if len(generated.TablesUsed) > 0 {
		return fmt.Sprintf(
			"I'm not confident I understood the question. Did you mean data from %s?",
			strings.Join(generated.TablesUsed, ", "),
		)
	}
	return "I'm not confident I understood the question. Could you rephrase it with more detail?"
}

var _ SynthesisService = (*synthesisService)(nil)
