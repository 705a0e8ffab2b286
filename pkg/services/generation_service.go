package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/llm"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/repositories"
)

// GenerationService turns a finished conversation or an explicit
// enrichment request into a background job.
type GenerationService interface {
	StartGenerationJob(ctx context.Context, orgID, tableID uuid.UUID, ownerID string, state *models.ConversationState) (*models.GenerationJob, error)
	StartEnrichmentJob(ctx context.Context, orgID, tableID uuid.UUID, ownerID string, recordIDs []uuid.UUID, targetColumns []string, description string) (*models.GenerationJob, error)
}

// GenerationConfig carries the launch-time limits for jobs.
type GenerationConfig struct {
	MaxRowCount int
	Temperature float64
	JobTimeout  time.Duration
}

type generationService struct {
	tables    repositories.TableRepository
	records   repositories.RecordRepository
	store     JobStore
	llmClient llm.Client
	cfg       GenerationConfig
	logger    *zap.Logger
}

var _ GenerationService = (*generationService)(nil)

// NewGenerationService creates a new generation service.
func NewGenerationService(
	tables repositories.TableRepository,
	records repositories.RecordRepository,
	store JobStore,
	llmClient llm.Client,
	cfg GenerationConfig,
	logger *zap.Logger,
) GenerationService {
	return &generationService{
		tables:    tables,
		records:   records,
		store:     store,
		llmClient: llmClient,
		cfg:       cfg,
		logger:    logger.Named("generation-service"),
	}
}

// StartGenerationJob launches a net-new row generation job from a
// confirmed conversation state.
func (s *generationService) StartGenerationJob(ctx context.Context, orgID, tableID uuid.UUID, ownerID string, state *models.ConversationState) (*models.GenerationJob, error) {
	var violations []string
	if state == nil || !state.Confirmed || state.Phase != models.PhaseReady {
		violations = append(violations, "conversation has not reached a confirmed ready state")
	}
	if state != nil && state.DataDescription == "" {
		violations = append(violations, "dataDescription is required")
	}
	if state != nil && state.RowCount <= 0 {
		violations = append(violations, "rowCount must be positive")
	}
	if len(violations) > 0 {
		return nil, apperrors.NewValidationError(violations...)
	}

	table, err := s.tables.Get(ctx, orgID, tableID)
	if err != nil {
		return nil, err
	}

	rowCount := state.RowCount
	if rowCount > s.cfg.MaxRowCount {
		rowCount = s.cfg.MaxRowCount
	}

	targetColumns := state.TargetColumns
	if len(targetColumns) == 0 {
		targetColumns = table.ColumnNames()
	}

	params := models.LaunchParams{
		Kind:            models.JobKindGeneration,
		TableID:         tableID,
		OrganizationID:  orgID,
		OwnerID:         ownerID,
		DataDescription: state.DataDescription,
		RowCount:        rowCount,
		TargetColumns:   targetColumns,
		NewColumns:      state.NewColumns,
		Columns:         table.Columns,
	}

	return s.launch(orgID, ownerID, params, rowCount), nil
}

// StartEnrichmentJob launches an enrichment job over existing records.
// Each target's current values are snapshotted here so the worker never
// reads the record store while running.
func (s *generationService) StartEnrichmentJob(ctx context.Context, orgID, tableID uuid.UUID, ownerID string, recordIDs []uuid.UUID, targetColumns []string, description string) (*models.GenerationJob, error) {
	if len(recordIDs) == 0 {
		return nil, apperrors.NewValidationError("recordIds must not be empty")
	}

	table, err := s.tables.Get(ctx, orgID, tableID)
	if err != nil {
		return nil, err
	}

	if len(targetColumns) == 0 {
		targetColumns = table.ColumnNames()
	}
	for _, name := range targetColumns {
		if !table.HasColumn(name) {
			return nil, apperrors.NewValidationError("unknown column: " + name)
		}
	}

	records, err := s.records.GetByIDs(ctx, orgID, recordIDs)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewValidationError("no matching records found")
	}

	allColumns := table.ColumnNames()
	targets := make([]models.TargetRecord, len(records))
	for i, rec := range records {
		targets[i] = models.TargetRecord{
			RecordID:    rec.ID,
			KnownValues: rec.KnownValues(allColumns),
		}
	}

	params := models.LaunchParams{
		Kind:            models.JobKindEnrichment,
		TableID:         tableID,
		OrganizationID:  orgID,
		OwnerID:         ownerID,
		DataDescription: description,
		TargetColumns:   targetColumns,
		Columns:         table.Columns,
		TargetRecords:   targets,
	}

	return s.launch(orgID, ownerID, params, len(targets)), nil
}

// launch registers the job and starts its worker in the background.
// The worker gets a fresh context so it outlives the HTTP request, but
// never the configured job timeout.
func (s *generationService) launch(orgID uuid.UUID, ownerID string, params models.LaunchParams, total int) *models.GenerationJob {
	job := s.store.Create(&models.GenerationJob{
		OrganizationID: orgID,
		OwnerID:        ownerID,
		Params:         params,
		Total:          total,
	})

	worker := NewGenerationWorker(s.llmClient, s.store, s.cfg.Temperature, s.logger)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()
		worker.Run(ctx, job.ID, params)
	}()

	s.logger.Info("Job launched",
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(params.Kind)),
		zap.Int("total", total))

	return job
}
