package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/repositories"
)

// PreviewRow is one successful record slot as shown in the preview.
type PreviewRow struct {
	RecordIndex int                 `json:"recordIndex"`
	RecordID    uuid.UUID           `json:"recordId,omitempty"`
	Fields      []models.FieldValue `json:"fields"`
	Sources     []models.Source     `json:"sources,omitempty"`
}

// JobPreview is the user-facing view of a job's output. Failed slots
// are counted but never shown as rows.
type JobPreview struct {
	JobID            uuid.UUID        `json:"jobId"`
	Kind             models.JobKind   `json:"kind"`
	Status           models.JobStatus `json:"status"`
	Progress         int              `json:"progress"`
	CompletedRecords int              `json:"completedRecords"`
	Total            int              `json:"total"`
	FailedRecords    int              `json:"failedRecords"`
	Rows             []PreviewRow     `json:"rows"`
}

// ConfirmOutcome reports how many rows a confirmation actually touched.
type ConfirmOutcome struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// PreviewService exposes job output for review and applies confirmed
// rows to the record store. Nothing reaches the store until the user
// confirms.
type PreviewService interface {
	GetPreview(orgID, jobID uuid.UUID, ownerID string) (*JobPreview, error)

	// ConfirmGeneration selects drafts by record index (generated rows
	// have no ID yet); ConfirmEnrichment selects by the record IDs the
	// job enriched.
	ConfirmGeneration(ctx context.Context, orgID, jobID uuid.UUID, ownerID string, selected []int) (*ConfirmOutcome, error)
	ConfirmEnrichment(ctx context.Context, orgID, jobID uuid.UUID, ownerID string, selectedRecordIDs []uuid.UUID) (*ConfirmOutcome, error)
}

type previewService struct {
	store   JobStore
	records repositories.RecordRepository
	logger  *zap.Logger
}

var _ PreviewService = (*previewService)(nil)

// NewPreviewService creates a new preview service.
func NewPreviewService(store JobStore, records repositories.RecordRepository, logger *zap.Logger) PreviewService {
	return &previewService{
		store:   store,
		records: records,
		logger:  logger.Named("preview"),
	}
}

// GetPreview returns the successful rows of a job in production order.
func (s *previewService) GetPreview(orgID, jobID uuid.UUID, ownerID string) (*JobPreview, error) {
	job, err := s.getOwnedJob(orgID, jobID, ownerID)
	if err != nil {
		return nil, err
	}

	preview := &JobPreview{
		JobID:            job.ID,
		Kind:             job.Params.Kind,
		Status:           job.Status,
		Progress:         job.Progress,
		CompletedRecords: job.CompletedRecords,
		Total:            job.Total,
		FailedRecords:    job.FailedRecords,
		Rows:             make([]PreviewRow, 0, len(job.Results)),
	}

	for _, res := range job.Results {
		if !res.Success {
			continue
		}
		preview.Rows = append(preview.Rows, PreviewRow{
			RecordIndex: res.RecordIndex,
			RecordID:    res.RecordID,
			Fields:      res.Fields,
			Sources:     res.Sources,
		})
	}

	return preview, nil
}

// ConfirmGeneration inserts the selected generated rows as new records.
// An empty selection means every successful row. Indices that do not
// name a successful row are ignored.
func (s *previewService) ConfirmGeneration(ctx context.Context, orgID, jobID uuid.UUID, ownerID string, selected []int) (*ConfirmOutcome, error) {
	job, err := s.getOwnedJob(orgID, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Params.Kind != models.JobKindGeneration {
		return nil, apperrors.NewValidationError("job is not a generation job")
	}
	if !job.Terminal() {
		return nil, apperrors.NewValidationError("job is still running")
	}

	results := selectResults(job.Results, selected)
	if len(results) == 0 {
		return &ConfirmOutcome{}, nil
	}

	now := time.Now()
	records := make([]*models.Record, 0, len(results))
	for _, res := range results {
		rec := &models.Record{
			OrganizationID: orgID,
			TableID:        job.Params.TableID,
			Attributes:     make(map[string]any),
			Metadata: map[string]any{
				"aiGenerated": map[string]any{
					"jobId":       job.ID.String(),
					"generatedAt": now.UTC().Format(time.RFC3339),
					"sources":     res.Sources,
				},
			},
		}
		for _, f := range res.Fields {
			if f.Value == nil {
				continue
			}
			rec.SetField(f.Name, f.Value)
		}
		records = append(records, rec)
	}

	if err := s.records.InsertRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to insert generated records: %w", err)
	}

	s.logger.Info("Generation confirmed",
		zap.String("job_id", job.ID.String()),
		zap.Int("inserted", len(records)))

	return &ConfirmOutcome{Applied: len(records)}, nil
}

// ConfirmEnrichment merges the selected enrichment rows into their
// records. Produced values overwrite the field they name; nil values
// and untouched fields are left alone. Records that fail to load or
// save are counted, not fatal.
func (s *previewService) ConfirmEnrichment(ctx context.Context, orgID, jobID uuid.UUID, ownerID string, selectedRecordIDs []uuid.UUID) (*ConfirmOutcome, error) {
	job, err := s.getOwnedJob(orgID, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Params.Kind != models.JobKindEnrichment {
		return nil, apperrors.NewValidationError("job is not an enrichment job")
	}
	if !job.Terminal() {
		return nil, apperrors.NewValidationError("job is still running")
	}

	results := selectResultsByRecordID(job.Results, selectedRecordIDs)
	outcome := &ConfirmOutcome{}
	now := time.Now()

	for _, res := range results {
		if err := s.applyEnrichment(ctx, orgID, job.ID, res, now); err != nil {
			s.logger.Warn("Failed to apply enrichment",
				zap.String("job_id", job.ID.String()),
				zap.String("record_id", res.RecordID.String()),
				zap.Error(err))
			outcome.Failed++
			continue
		}
		outcome.Applied++
	}

	s.logger.Info("Enrichment confirmed",
		zap.String("job_id", job.ID.String()),
		zap.Int("applied", outcome.Applied),
		zap.Int("failed", outcome.Failed))

	return outcome, nil
}

func (s *previewService) applyEnrichment(ctx context.Context, orgID, jobID uuid.UUID, res models.EnrichmentResult, now time.Time) error {
	rec, err := s.records.Get(ctx, orgID, res.RecordID)
	if err != nil {
		return err
	}

	var applied []string
	for _, f := range res.Fields {
		if f.Value == nil {
			continue
		}
		rec.SetField(f.Name, f.Value)
		applied = append(applied, f.Name)
	}

	if rec.Metadata == nil {
		rec.Metadata = make(map[string]any)
	}
	rec.Metadata["enrichment_metadata"] = map[string]any{
		"jobId":      jobID.String(),
		"enrichedAt": now.UTC().Format(time.RFC3339),
		"fields":     applied,
		"sources":    res.Sources,
	}

	return s.records.Update(ctx, rec)
}

// getOwnedJob fetches the job scoped to org and owner. A job owned by
// someone else looks exactly like a missing one.
func (s *previewService) getOwnedJob(orgID, jobID uuid.UUID, ownerID string) (*models.GenerationJob, error) {
	job, err := s.store.Get(orgID, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}
	return job, nil
}

// selectResults picks the successful results named by the selection, in
// result order. A nil or empty selection means all successes; indices
// that are out of range or name a failed slot are dropped.
func selectResults(results []models.EnrichmentResult, selected []int) []models.EnrichmentResult {
	if len(selected) == 0 {
		return successfulResults(results)
	}

	wanted := make(map[int]struct{}, len(selected))
	for _, idx := range selected {
		wanted[idx] = struct{}{}
	}

	var picked []models.EnrichmentResult
	for _, res := range results {
		if !res.Success {
			continue
		}
		if _, ok := wanted[res.RecordIndex]; ok {
			picked = append(picked, res)
		}
	}
	return picked
}

// selectResultsByRecordID is selectResults keyed by the enriched record
// IDs. IDs the job never processed, or whose slot failed, are dropped.
func selectResultsByRecordID(results []models.EnrichmentResult, selected []uuid.UUID) []models.EnrichmentResult {
	if len(selected) == 0 {
		return successfulResults(results)
	}

	wanted := make(map[uuid.UUID]struct{}, len(selected))
	for _, id := range selected {
		wanted[id] = struct{}{}
	}

	var picked []models.EnrichmentResult
	for _, res := range results {
		if !res.Success {
			continue
		}
		if _, ok := wanted[res.RecordID]; ok {
			picked = append(picked, res)
		}
	}
	return picked
}

func successfulResults(results []models.EnrichmentResult) []models.EnrichmentResult {
	var all []models.EnrichmentResult
	for _, res := range results {
		if res.Success {
			all = append(all, res)
		}
	}
	return all
}
