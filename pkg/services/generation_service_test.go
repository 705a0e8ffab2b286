package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/llm"
	"github.com/tably-inc/tably-engine/pkg/models"
)

func testGenerationService(t *testing.T, table *models.Table, repo *mockRecordRepo, client llm.Client) (GenerationService, JobStore) {
	t.Helper()

	tables := &mockTableRepo{
		GetFunc: func(ctx context.Context, orgID, tableID uuid.UUID) (*models.Table, error) {
			if table != nil && tableID == table.ID && orgID == table.OrganizationID {
				return table, nil
			}
			return nil, apperrors.ErrNotFound
		},
	}

	store := NewJobStore(zap.NewNop())
	svc := NewGenerationService(tables, repo, store, client, GenerationConfig{
		MaxRowCount: 100,
		Temperature: 0.7,
		JobTimeout:  time.Minute,
	}, zap.NewNop())

	return svc, store
}

func confirmedState(rowCount int) *models.ConversationState {
	return &models.ConversationState{
		SessionID:       "s1",
		Phase:           models.PhaseReady,
		Confirmed:       true,
		DataDescription: "IT companies",
		RowCount:        rowCount,
		TargetColumns:   []string{"name"},
	}
}

func waitForTerminal(t *testing.T, store JobStore, orgID, jobID uuid.UUID) *models.GenerationJob {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(orgID, jobID)
		require.NoError(t, err)
		if job.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestStartGenerationJobRunsToCompletion(t *testing.T) {
	table := testTable()
	client := &llm.MockClient{
		GenerateResponseFunc: func(ctx context.Context, prompt, system string, temp float64) (string, error) {
			return `{"fields": {"name": "Acme"}, "sources": {}}`, nil
		},
	}
	svc, store := testGenerationService(t, table, newMockRecordRepo(), client)

	job, err := svc.StartGenerationJob(context.Background(), table.OrganizationID, table.ID, "user-1", confirmedState(3))
	require.NoError(t, err)
	assert.Equal(t, 3, job.Total)
	assert.Equal(t, models.JobKindGeneration, job.Params.Kind)

	done := waitForTerminal(t, store, table.OrganizationID, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.Len(t, done.Results, 3)
}

func TestStartGenerationJobRejectsUnconfirmedState(t *testing.T) {
	table := testTable()
	svc, _ := testGenerationService(t, table, newMockRecordRepo(), &llm.MockClient{})

	state := confirmedState(5)
	state.Confirmed = false
	state.Phase = models.PhaseAwaitingConfirmation

	_, err := svc.StartGenerationJob(context.Background(), table.OrganizationID, table.ID, "user-1", state)
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestStartGenerationJobClampsRowCount(t *testing.T) {
	table := testTable()
	client := &llm.MockClient{
		GenerateResponseFunc: func(ctx context.Context, prompt, system string, temp float64) (string, error) {
			return `{"fields": {"name": "Acme"}, "sources": {}}`, nil
		},
	}
	svc, _ := testGenerationService(t, table, newMockRecordRepo(), client)

	job, err := svc.StartGenerationJob(context.Background(), table.OrganizationID, table.ID, "user-1", confirmedState(5000))
	require.NoError(t, err)
	assert.Equal(t, 100, job.Total)
	assert.Equal(t, 100, job.Params.RowCount)
}

func TestStartGenerationJobUnknownTable(t *testing.T) {
	table := testTable()
	svc, _ := testGenerationService(t, table, newMockRecordRepo(), &llm.MockClient{})

	_, err := svc.StartGenerationJob(context.Background(), table.OrganizationID, uuid.New(), "user-1", confirmedState(5))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStartEnrichmentJobSnapshotsRecords(t *testing.T) {
	table := testTable()
	repo := newMockRecordRepo()

	recordID := uuid.New()
	repo.records[recordID] = &models.Record{
		ID:             recordID,
		OrganizationID: table.OrganizationID,
		Name:           "Acme Systems",
		Attributes:     map[string]any{"industry": "software"},
	}

	client := &llm.MockClient{
		GenerateResponseFunc: func(ctx context.Context, prompt, system string, temp float64) (string, error) {
			return `{"fields": {"email": "info@acme.example"}, "sources": {}}`, nil
		},
	}
	svc, store := testGenerationService(t, table, repo, client)

	job, err := svc.StartEnrichmentJob(context.Background(), table.OrganizationID, table.ID, "user-1",
		[]uuid.UUID{recordID}, []string{"email"}, "fill contact info")
	require.NoError(t, err)

	require.Len(t, job.Params.TargetRecords, 1)
	assert.Equal(t, recordID, job.Params.TargetRecords[0].RecordID)
	assert.Equal(t, "Acme Systems", job.Params.TargetRecords[0].KnownValues["name"])
	assert.Equal(t, "software", job.Params.TargetRecords[0].KnownValues["industry"])

	done := waitForTerminal(t, store, table.OrganizationID, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
}

func TestStartEnrichmentJobValidation(t *testing.T) {
	table := testTable()
	repo := newMockRecordRepo()
	svc, _ := testGenerationService(t, table, repo, &llm.MockClient{})

	var vErr *apperrors.ValidationError

	// No records.
	_, err := svc.StartEnrichmentJob(context.Background(), table.OrganizationID, table.ID, "user-1", nil, nil, "")
	require.ErrorAs(t, err, &vErr)

	// Unknown column.
	_, err = svc.StartEnrichmentJob(context.Background(), table.OrganizationID, table.ID, "user-1",
		[]uuid.UUID{uuid.New()}, []string{"revenue"}, "")
	require.ErrorAs(t, err, &vErr)

	// No matching records in this organization.
	_, err = svc.StartEnrichmentJob(context.Background(), table.OrganizationID, table.ID, "user-1",
		[]uuid.UUID{uuid.New()}, []string{"email"}, "")
	require.ErrorAs(t, err, &vErr)
}
