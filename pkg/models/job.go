package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobKind distinguishes net-new row generation from enrichment of
// existing rows.
type JobKind string

const (
	JobKindGeneration JobKind = "generation"
	JobKindEnrichment JobKind = "enrichment"
)

// FieldValue is a single produced field. A nil Value means the model
// found no data for the field.
type FieldValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Source is one provenance reference for a produced field. Sources keep
// the order of the columns they were produced for.
type Source struct {
	Field     string `json:"field"`
	Reference string `json:"reference"`
}

// EnrichmentResult is the outcome for one processed record slot.
// RecordIndex is the slot's position in the job's append-only results
// list and is what preview selections refer to.
type EnrichmentResult struct {
	RecordID    uuid.UUID    `json:"recordId,omitempty"` // Zero for generated (not yet persisted) rows
	RecordIndex int          `json:"recordIndex"`
	Success     bool         `json:"success"`
	Fields      []FieldValue `json:"fields,omitempty"`
	Sources     []Source     `json:"sources,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// NewSuccessResult builds a successful result for a record slot.
func NewSuccessResult(recordID uuid.UUID, index int, fields []FieldValue, sources []Source) EnrichmentResult {
	return EnrichmentResult{
		RecordID:    recordID,
		RecordIndex: index,
		Success:     true,
		Fields:      fields,
		Sources:     sources,
	}
}

// NewFailedResult builds a failed result for a record slot.
func NewFailedResult(recordID uuid.UUID, index int, errMsg string) EnrichmentResult {
	return EnrichmentResult{
		RecordID:    recordID,
		RecordIndex: index,
		Success:     false,
		Error:       errMsg,
	}
}

// TargetRecord snapshots an existing record at job creation time so the
// worker never reads the record store while running.
type TargetRecord struct {
	RecordID    uuid.UUID      `json:"recordId"`
	KnownValues map[string]any `json:"knownValues"`
}

// LaunchParams is everything a worker needs to run a job. It is fixed at
// job creation; the worker treats it as read-only.
type LaunchParams struct {
	Kind            JobKind        `json:"kind"`
	TableID         uuid.UUID      `json:"tableId"`
	OrganizationID  uuid.UUID      `json:"organizationId"`
	OwnerID         string         `json:"ownerId"`
	DataDescription string         `json:"dataDescription"`
	RowCount        int            `json:"rowCount"`
	TargetColumns   []string       `json:"targetColumns"`
	NewColumns      []Column       `json:"newColumns,omitempty"`
	Columns         []Column       `json:"columns"`
	TargetRecords   []TargetRecord `json:"targetRecords,omitempty"`
}

// GenerationJob is the in-memory state of one background job. Progress
// counters only ever increase, and Results is append-only: a result's
// position in the slice is its RecordIndex.
type GenerationJob struct {
	ID               uuid.UUID          `json:"id"`
	OrganizationID   uuid.UUID          `json:"organizationId"`
	OwnerID          string             `json:"ownerId"`
	Params           LaunchParams       `json:"params"`
	Status           JobStatus          `json:"status"`
	Progress         int                `json:"progress"` // Slots processed, success or failure
	CompletedRecords int                `json:"completedRecords"`
	Total            int                `json:"total"`
	FailedRecords    int                `json:"failedRecords"`
	Stage            string             `json:"stage,omitempty"`         // Advisory display label
	CurrentRecord    int                `json:"currentRecord,omitempty"` // 1-based slot being worked on
	Results          []EnrichmentResult `json:"results"`
	Error            string             `json:"error,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	CompletedAt      *time.Time         `json:"completedAt,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *GenerationJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Clone returns a deep copy safe to hand to readers while the worker
// keeps mutating the original.
func (j *GenerationJob) Clone() *GenerationJob {
	cp := *j

	cp.Results = make([]EnrichmentResult, len(j.Results))
	copy(cp.Results, j.Results)

	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}

	return &cp
}
