// Package services contains the business logic for the assistant
// conversation, job management, and record generation.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/llm"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/prompts"
)

// intentTemperature keeps extraction deterministic-ish; creativity is
// for record generation, not parsing.
const intentTemperature = 0.1

// IntentParser extracts structured generation parameters from a free
// text user message, read against the conversation so far.
type IntentParser interface {
	Parse(ctx context.Context, message string, transcript []models.TranscriptEntry, columns []models.Column, selectedCount int) (*models.GenerationIntent, error)
}

type intentParser struct {
	llmClient llm.Client
	logger    *zap.Logger
}

var _ IntentParser = (*intentParser)(nil)

// NewIntentParser creates a new intent parser.
func NewIntentParser(llmClient llm.Client, logger *zap.Logger) IntentParser {
	return &intentParser{
		llmClient: llmClient,
		logger:    logger.Named("intent-parser"),
	}
}

// Parse sends the message to the model and demands the intent schema
// back. A response that does not parse as the schema is an error; the
// parser never guesses parameters from the raw text itself.
func (p *intentParser) Parse(ctx context.Context, message string, transcript []models.TranscriptEntry, columns []models.Column, selectedCount int) (*models.GenerationIntent, error) {
	prompt := prompts.BuildIntentPrompt(message, transcript, columns, selectedCount)

	response, err := p.llmClient.GenerateResponse(ctx, prompt, prompts.IntentSystemPrompt, intentTemperature)
	if err != nil {
		return nil, fmt.Errorf("intent extraction failed: %w", err)
	}

	intent, err := llm.ParseJSONResponse[models.GenerationIntent](response)
	if err != nil {
		p.logger.Warn("Unparseable intent response",
			zap.Int("response_len", len(response)),
			zap.Error(err))
		return nil, fmt.Errorf("intent extraction failed: %w", err)
	}

	// Keep only target columns that exist in the schema; anything the
	// model routed wrong gets dropped rather than silently created.
	intent.TargetColumns = filterKnownColumns(intent.TargetColumns, columns)

	p.logger.Debug("Parsed intent",
		zap.Bool("is_generation", intent.IsGenerationRequest),
		zap.Int("row_count", intent.RowCount),
		zap.Int("target_columns", len(intent.TargetColumns)),
		zap.Int("new_columns", len(intent.NewColumns)),
		zap.Bool("target_selected", intent.TargetSelectedRows))

	return &intent, nil
}

func filterKnownColumns(requested []string, columns []models.Column) []string {
	if len(requested) == 0 {
		return nil
	}

	known := make(map[string]string, len(columns))
	for _, c := range columns {
		known[strings.ToLower(c.Name)] = c.Name
	}

	var kept []string
	for _, name := range requested {
		if canonical, ok := known[strings.ToLower(name)]; ok {
			kept = append(kept, canonical)
		}
	}
	return kept
}
