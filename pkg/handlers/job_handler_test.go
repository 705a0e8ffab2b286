package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/services"
)

func TestStartGenerationJob(t *testing.T) {
	orgID := uuid.New()
	tableID := uuid.New()
	jobID := uuid.New()

	generation := &mockGenerationService{
		StartGenerationJobFunc: func(ctx context.Context, gotOrg, gotTable uuid.UUID, ownerID string, state *models.ConversationState) (*models.GenerationJob, error) {
			assert.Equal(t, orgID, gotOrg)
			assert.Equal(t, tableID, gotTable)
			assert.Equal(t, "user-1", ownerID)
			require.NotNil(t, state)
			assert.Equal(t, 50, state.RowCount)
			return &models.GenerationJob{ID: jobID, OrganizationID: orgID, Status: models.JobStatusPending, Total: 50}, nil
		},
	}

	h := NewJobHandler(generation, &mockPreviewService{}, services.NewJobStore(zap.NewNop()), zap.NewNop())

	body := StartGenerationRequest{State: &models.ConversationState{
		Phase: models.PhaseReady, Confirmed: true, RowCount: 50, DataDescription: "IT companies",
	}}
	r := authedRequest(http.MethodPost, "/x", orgID, "user-1",
		map[string]string{"oid": orgID.String(), "tid": tableID.String()}, body)
	w := httptest.NewRecorder()

	h.StartGeneration(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var job models.GenerationJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, 50, job.Total)
}

func TestStartGenerationJobValidationFailure(t *testing.T) {
	orgID := uuid.New()
	tableID := uuid.New()

	generation := &mockGenerationService{
		StartGenerationJobFunc: func(ctx context.Context, gotOrg, gotTable uuid.UUID, ownerID string, state *models.ConversationState) (*models.GenerationJob, error) {
			return nil, apperrors.NewValidationError("conversation has not reached a confirmed ready state")
		},
	}
	h := NewJobHandler(generation, &mockPreviewService{}, services.NewJobStore(zap.NewNop()), zap.NewNop())

	r := authedRequest(http.MethodPost, "/x", orgID, "user-1",
		map[string]string{"oid": orgID.String(), "tid": tableID.String()},
		StartGenerationRequest{State: &models.ConversationState{}})
	w := httptest.NewRecorder()

	h.StartGeneration(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartEnrichmentJob(t *testing.T) {
	orgID := uuid.New()
	tableID := uuid.New()
	recordID := uuid.New()

	generation := &mockGenerationService{
		StartEnrichmentJobFunc: func(ctx context.Context, gotOrg, gotTable uuid.UUID, ownerID string, recordIDs []uuid.UUID, targetColumns []string, description string) (*models.GenerationJob, error) {
			assert.Equal(t, []uuid.UUID{recordID}, recordIDs)
			assert.Equal(t, []string{"email"}, targetColumns)
			assert.Equal(t, "fill contact info", description)
			return &models.GenerationJob{ID: uuid.New(), OrganizationID: orgID, Status: models.JobStatusPending, Total: 1}, nil
		},
	}
	h := NewJobHandler(generation, &mockPreviewService{}, services.NewJobStore(zap.NewNop()), zap.NewNop())

	body := StartEnrichmentRequest{
		RecordIDs:     []uuid.UUID{recordID},
		TargetColumns: []string{"email"},
		Description:   "fill contact info",
	}
	r := authedRequest(http.MethodPost, "/x", orgID, "user-1",
		map[string]string{"oid": orgID.String(), "tid": tableID.String()}, body)
	w := httptest.NewRecorder()

	h.StartEnrichment(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGetJobStatus(t *testing.T) {
	orgID := uuid.New()
	store := services.NewJobStore(zap.NewNop())

	job := store.Create(&models.GenerationJob{
		OrganizationID: orgID,
		OwnerID:        "user-1",
		Total:          5,
		Params:         models.LaunchParams{Kind: models.JobKindGeneration},
	})
	store.MarkRunning(job.ID)
	store.AppendResult(job.ID, models.NewSuccessResult(uuid.Nil, 0, nil, nil))

	h := NewJobHandler(&mockGenerationService{}, &mockPreviewService{}, store, zap.NewNop())

	r := authedRequest(http.MethodGet, "/x", orgID, "user-1",
		map[string]string{"oid": orgID.String(), "jid": job.ID.String()}, nil)
	w := httptest.NewRecorder()

	h.GetJob(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var got models.GenerationJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.JobStatusRunning, got.Status)
	assert.Equal(t, 1, got.Progress)
	assert.Equal(t, 5, got.Total)
}

func TestGetJobFromOtherOrgIsNotFound(t *testing.T) {
	store := services.NewJobStore(zap.NewNop())
	job := store.Create(&models.GenerationJob{
		OrganizationID: uuid.New(),
		OwnerID:        "user-1",
		Total:          5,
		Params:         models.LaunchParams{Kind: models.JobKindGeneration},
	})

	otherOrg := uuid.New()
	h := NewJobHandler(&mockGenerationService{}, &mockPreviewService{}, store, zap.NewNop())

	r := authedRequest(http.MethodGet, "/x", otherOrg, "user-1",
		map[string]string{"oid": otherOrg.String(), "jid": job.ID.String()}, nil)
	w := httptest.NewRecorder()

	h.GetJob(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJobFromOtherUserIsNotFound(t *testing.T) {
	orgID := uuid.New()
	store := services.NewJobStore(zap.NewNop())
	job := store.Create(&models.GenerationJob{
		OrganizationID: orgID,
		OwnerID:        "user-1",
		Total:          5,
		Params:         models.LaunchParams{Kind: models.JobKindGeneration},
	})

	h := NewJobHandler(&mockGenerationService{}, &mockPreviewService{}, store, zap.NewNop())

	// Same org, different user: the job must look missing.
	r := authedRequest(http.MethodGet, "/x", orgID, "user-2",
		map[string]string{"oid": orgID.String(), "jid": job.ID.String()}, nil)
	w := httptest.NewRecorder()

	h.GetJob(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPreview(t *testing.T) {
	orgID := uuid.New()
	jobID := uuid.New()

	preview := &mockPreviewService{
		GetPreviewFunc: func(gotOrg, gotJob uuid.UUID, ownerID string) (*services.JobPreview, error) {
			assert.Equal(t, "user-1", ownerID)
			return &services.JobPreview{
				JobID:  jobID,
				Status: models.JobStatusCompleted,
				Rows:   []services.PreviewRow{{RecordIndex: 0}},
			}, nil
		},
	}
	h := NewJobHandler(&mockGenerationService{}, preview, services.NewJobStore(zap.NewNop()), zap.NewNop())

	r := authedRequest(http.MethodGet, "/x", orgID, "user-1",
		map[string]string{"oid": orgID.String(), "jid": jobID.String()}, nil)
	w := httptest.NewRecorder()

	h.GetPreview(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var got services.JobPreview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Rows, 1)
}

func TestConfirmGenerationPassesSelection(t *testing.T) {
	orgID := uuid.New()
	jobID := uuid.New()

	preview := &mockPreviewService{
		ConfirmGenerationFunc: func(ctx context.Context, gotOrg, gotJob uuid.UUID, ownerID string, selected []int) (*services.ConfirmOutcome, error) {
			assert.Equal(t, []int{0, 2}, selected)
			return &services.ConfirmOutcome{Applied: 2}, nil
		},
	}
	h := NewJobHandler(&mockGenerationService{}, preview, services.NewJobStore(zap.NewNop()), zap.NewNop())

	r := authedRequest(http.MethodPost, "/x", orgID, "user-1",
		map[string]string{"oid": orgID.String(), "jid": jobID.String()},
		ConfirmRequest{SelectedIndices: []int{0, 2}})
	w := httptest.NewRecorder()

	h.ConfirmGeneration(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerationConfirmResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.InsertedCount)
}

func TestConfirmEnrichmentPassesRecordIDs(t *testing.T) {
	orgID := uuid.New()
	jobID := uuid.New()
	keep := uuid.New()

	preview := &mockPreviewService{
		ConfirmEnrichmentFunc: func(ctx context.Context, gotOrg, gotJob uuid.UUID, ownerID string, selectedRecordIDs []uuid.UUID) (*services.ConfirmOutcome, error) {
			assert.Equal(t, []uuid.UUID{keep}, selectedRecordIDs)
			return &services.ConfirmOutcome{Applied: 1}, nil
		},
	}
	h := NewJobHandler(&mockGenerationService{}, preview, services.NewJobStore(zap.NewNop()), zap.NewNop())

	r := authedRequest(http.MethodPost, "/x", orgID, "user-1",
		map[string]string{"oid": orgID.String(), "jid": jobID.String()},
		EnrichmentConfirmRequest{SelectedRecordIDs: []uuid.UUID{keep}})
	w := httptest.NewRecorder()

	h.ConfirmEnrichment(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp EnrichmentConfirmResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.SuccessCount)
}

func TestConfirmEnrichmentEmptyBody(t *testing.T) {
	orgID := uuid.New()
	jobID := uuid.New()

	preview := &mockPreviewService{
		ConfirmEnrichmentFunc: func(ctx context.Context, gotOrg, gotJob uuid.UUID, ownerID string, selectedRecordIDs []uuid.UUID) (*services.ConfirmOutcome, error) {
			assert.Nil(t, selectedRecordIDs)
			return &services.ConfirmOutcome{Applied: 3, Failed: 1}, nil
		},
	}
	h := NewJobHandler(&mockGenerationService{}, preview, services.NewJobStore(zap.NewNop()), zap.NewNop())

	r := authedRequest(http.MethodPost, "/x", orgID, "user-1",
		map[string]string{"oid": orgID.String(), "jid": jobID.String()}, nil)
	w := httptest.NewRecorder()

	h.ConfirmEnrichment(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp EnrichmentConfirmResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.SuccessCount)
	assert.Equal(t, 1, resp.FailureCount)
	assert.Equal(t, 4, resp.TotalProcessed)
}
