package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/models"
)

// JobStore tracks in-flight and finished generation jobs in memory.
// Jobs do not survive a restart; results only matter until the user
// confirms or abandons the preview.
//
// All reads return deep copies. Only the store mutates job state, so
// progress counters never go backwards and the results list is
// append-only: a result's position is its record index.
type JobStore interface {
	Create(job *models.GenerationJob) *models.GenerationJob
	Get(orgID, jobID uuid.UUID) (*models.GenerationJob, error)

	MarkRunning(jobID uuid.UUID)

	// UpdateProgress sets the advisory display fields. currentRecord is
	// 1-based and never moves backwards.
	UpdateProgress(jobID uuid.UUID, stage string, currentRecord int)

	AppendResult(jobID uuid.UUID, result models.EnrichmentResult)
	Complete(jobID uuid.UUID)
	Fail(jobID uuid.UUID, errMsg string)

	// StartSweeper fails running jobs with no progress for longer than
	// timeout. Returns when ctx is done.
	StartSweeper(ctx context.Context, interval, timeout time.Duration)
}

type jobStore struct {
	mu     sync.RWMutex
	jobs   map[uuid.UUID]*models.GenerationJob
	logger *zap.Logger
}

var _ JobStore = (*jobStore)(nil)

// NewJobStore creates a new in-memory job store.
func NewJobStore(logger *zap.Logger) JobStore {
	return &jobStore{
		jobs:   make(map[uuid.UUID]*models.GenerationJob),
		logger: logger.Named("job-store"),
	}
}

// Create registers a new pending job and returns a snapshot of it.
func (s *jobStore) Create(job *models.GenerationJob) *models.GenerationJob {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	now := time.Now()
	job.Status = models.JobStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job.Clone()
}

// Get returns a snapshot of a job, scoped to the organization. A job
// belonging to another organization is indistinguishable from a missing
// one.
func (s *jobStore) Get(orgID, jobID uuid.UUID) (*models.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok || job.OrganizationID != orgID {
		return nil, apperrors.ErrNotFound
	}
	return job.Clone(), nil
}

// MarkRunning moves a pending job to running. No-op on terminal jobs.
func (s *jobStore) MarkRunning(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Terminal() {
		return
	}
	job.Status = models.JobStatusRunning
	job.UpdatedAt = time.Now()
}

// UpdateProgress sets the stage label and the record slot being worked
// on. Decreases of currentRecord are ignored, like the counters. No-op
// on terminal jobs.
func (s *jobStore) UpdateProgress(jobID uuid.UUID, stage string, currentRecord int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Terminal() {
		return
	}

	if stage != "" {
		job.Stage = stage
	}
	if currentRecord > job.CurrentRecord {
		job.CurrentRecord = currentRecord
	}
	job.UpdatedAt = time.Now()
}

// AppendResult appends one record outcome and advances the progress
// counter. The result's RecordIndex is assigned here, from its position
// in the list. No-op on terminal jobs.
func (s *jobStore) AppendResult(jobID uuid.UUID, result models.EnrichmentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Terminal() {
		return
	}

	result.RecordIndex = len(job.Results)
	job.Results = append(job.Results, result)
	job.Progress++
	if result.Success {
		job.CompletedRecords++
	} else {
		job.FailedRecords++
	}
	job.UpdatedAt = time.Now()
}

// Complete marks a job completed. Idempotent: once a job is terminal,
// later transitions are ignored.
func (s *jobStore) Complete(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Terminal() {
		return
	}

	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.Stage = "completed"
	job.UpdatedAt = now
	job.CompletedAt = &now
}

// Fail marks a job failed. Idempotent: once a job is terminal, later
// transitions are ignored.
func (s *jobStore) Fail(jobID uuid.UUID, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Terminal() {
		return
	}

	now := time.Now()
	job.Status = models.JobStatusFailed
	job.Stage = "failed"
	job.Error = errMsg
	job.UpdatedAt = now
	job.CompletedAt = &now
}

// StartSweeper periodically fails running jobs whose last progress is
// older than timeout. Covers workers that died without reaching their
// terminal transition.
func (s *jobStore) StartSweeper(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(timeout)
		}
	}
}

func (s *jobStore) sweep(timeout time.Duration) {
	cutoff := time.Now().Add(-timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, job := range s.jobs {
		if job.Terminal() || job.UpdatedAt.After(cutoff) {
			continue
		}

		now := time.Now()
		job.Status = models.JobStatusFailed
		job.Stage = "failed"
		job.Error = "job timed out"
		job.UpdatedAt = now
		job.CompletedAt = &now

		s.logger.Warn("Swept stale job",
			zap.String("job_id", id.String()),
			zap.Int("progress", job.Progress),
			zap.Int("total", job.Total))
	}
}
