package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/llm"
	"github.com/tably-inc/tably-engine/pkg/logging"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/prompts"
	"github.com/tably-inc/tably-engine/pkg/retry"
)

// slotRetryConfig allows one repeat attempt per record slot. Malformed
// model output counts as transient: a fresh sample usually parses.
var slotRetryConfig = retry.Config{
	MaxRetries:   1,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     time.Second,
	Multiplier:   2.0,
	JitterFactor: 0.2,
}

// recordPayload is the JSON shape the model must return per record.
type recordPayload struct {
	Fields  map[string]any `json:"fields"`
	Sources map[string]any `json:"sources"`
}

// GenerationWorker processes one job's record slots sequentially,
// reporting every outcome to the job store. It never touches the record
// store: generation results stay in memory until the user confirms, and
// enrichment context is snapshotted into the launch params up front.
type GenerationWorker struct {
	llmClient   llm.Client
	store       JobStore
	temperature float64
	logger      *zap.Logger
}

// NewGenerationWorker creates a worker bound to a model client and the
// job store.
func NewGenerationWorker(llmClient llm.Client, store JobStore, temperature float64, logger *zap.Logger) *GenerationWorker {
	return &GenerationWorker{
		llmClient:   llmClient,
		store:       store,
		temperature: temperature,
		logger:      logger.Named("generation-worker"),
	}
}

// Run executes the job until all slots are processed, the context ends,
// or the endpoint proves unreachable before any progress. Slots are
// strictly sequential so result order matches slot order.
func (w *GenerationWorker) Run(ctx context.Context, jobID uuid.UUID, params models.LaunchParams) {
	w.store.MarkRunning(jobID)

	columns := targetColumnDefs(params)
	total := len(params.TargetRecords)
	if params.Kind == models.JobKindGeneration {
		total = params.RowCount
	}

	w.logger.Info("Job started",
		zap.String("job_id", jobID.String()),
		zap.String("kind", string(params.Kind)),
		zap.Int("total", total))

	var priorNames []string

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			w.store.Fail(jobID, "job canceled: "+ctx.Err().Error())
			return
		}

		w.store.UpdateProgress(jobID, "generating", i+1)

		var (
			recordID uuid.UUID
			prompt   string
		)
		if params.Kind == models.JobKindGeneration {
			prompt = prompts.BuildGenerationRecordPrompt(params.DataDescription, columns, i+1, total, priorNames)
		} else {
			target := params.TargetRecords[i]
			recordID = target.RecordID
			prompt = prompts.BuildEnrichmentRecordPrompt(params.DataDescription, columns, target.KnownValues)
		}

		payload, err := w.generateSlot(ctx, prompt)
		if err != nil {
			// An unreachable endpoint on the very first slot means the
			// whole job cannot make progress; anything later is a
			// per-record failure.
			if i == 0 && llm.GetErrorType(err) == llm.ErrorTypeEndpoint {
				w.logger.Error("Job failed before first record",
					zap.String("job_id", jobID.String()),
					zap.String("error", logging.SanitizeError(err)))
				w.store.Fail(jobID, fmt.Sprintf("model endpoint unavailable: %v", err))
				return
			}

			w.logger.Warn("Record slot failed",
				zap.String("job_id", jobID.String()),
				zap.Int("slot", i),
				zap.String("error", logging.SanitizeError(err)))
			w.store.AppendResult(jobID, models.NewFailedResult(recordID, i, err.Error()))
			continue
		}

		// A generated record with no usable value in any target column
		// is a failure, not an empty success.
		if params.Kind == models.JobKindGeneration && !hasUsableField(payload.Fields, params.TargetColumns) {
			w.store.AppendResult(jobID, models.NewFailedResult(recordID, i, "model returned no usable field values"))
			continue
		}

		fields := orderedFields(payload.Fields, params.TargetColumns)
		sources := orderedSources(payload.Sources, params.TargetColumns)
		w.store.AppendResult(jobID, models.NewSuccessResult(recordID, i, fields, sources))

		if name, ok := payload.Fields["name"].(string); ok && name != "" {
			priorNames = append(priorNames, name)
		}
	}

	w.store.Complete(jobID)
	w.logger.Info("Job finished", zap.String("job_id", jobID.String()))
}

// generateSlot calls the model for one record slot, retrying transient
// failures per slotRetryConfig.
func (w *GenerationWorker) generateSlot(ctx context.Context, prompt string) (*recordPayload, error) {
	return retry.DoWithResult(ctx, slotRetryConfig, func() (*recordPayload, error) {
		response, err := w.llmClient.GenerateResponse(ctx, prompt, prompts.RecordSystemPrompt, w.temperature)
		if err != nil {
			return nil, err
		}

		payload, err := llm.ParseJSONResponse[recordPayload](response)
		if err != nil {
			return nil, err
		}
		return &payload, nil
	})
}

// hasUsableField reports whether at least one target column received a
// non-empty value.
func hasUsableField(produced map[string]any, targetColumns []string) bool {
	for _, name := range targetColumns {
		switch v := produced[name].(type) {
		case nil:
		case string:
			if strings.TrimSpace(v) != "" {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// targetColumnDefs resolves the target column names to their
// definitions, including any new columns the conversation introduced.
func targetColumnDefs(params models.LaunchParams) []models.Column {
	byName := make(map[string]models.Column, len(params.Columns)+len(params.NewColumns))
	for _, c := range params.Columns {
		byName[c.Name] = c
	}
	for _, c := range params.NewColumns {
		byName[c.Name] = c
	}

	defs := make([]models.Column, 0, len(params.TargetColumns))
	for _, name := range params.TargetColumns {
		if c, ok := byName[name]; ok {
			defs = append(defs, c)
			continue
		}
		defs = append(defs, models.Column{Name: name, Label: name, Type: "text"})
	}
	return defs
}

// orderedFields maps the model's field document onto the target column
// order. Columns the model omitted come back as nil values.
func orderedFields(produced map[string]any, targetColumns []string) []models.FieldValue {
	fields := make([]models.FieldValue, 0, len(targetColumns))
	for _, name := range targetColumns {
		fields = append(fields, models.FieldValue{Name: name, Value: produced[name]})
	}
	return fields
}

// orderedSources turns the model's source document into a provenance
// list following the target column order. Columns without a source are
// skipped.
func orderedSources(produced map[string]any, targetColumns []string) []models.Source {
	var sources []models.Source
	for _, name := range targetColumns {
		v, ok := produced[name]
		if !ok || v == nil {
			continue
		}

		ref, ok := v.(string)
		if !ok {
			ref = fmt.Sprintf("%v", v)
		}
		if ref == "" {
			continue
		}
		sources = append(sources, models.Source{Field: name, Reference: ref})
	}
	return sources
}
