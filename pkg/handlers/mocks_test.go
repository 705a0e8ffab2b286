package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/auth"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/repositories"
	"github.com/tably-inc/tably-engine/pkg/services"
)

// authedRequest builds a request with claims in context and the given
// path values set, bypassing the HTTP middleware.
func authedRequest(method, target string, orgID uuid.UUID, userID string, pathValues map[string]string, reqBody interface{}) *http.Request {
	var body io.Reader
	if reqBody != nil {
		encoded, _ := json.Marshal(reqBody)
		body = bytes.NewReader(encoded)
	}

	r := httptest.NewRequest(method, target, body)
	claims := &auth.Claims{OrganizationID: orgID.String()}
	claims.Subject = userID
	r = r.WithContext(auth.WithClaims(r.Context(), claims))
	for k, v := range pathValues {
		r.SetPathValue(k, v)
	}
	return r
}

type mockTableRepo struct {
	GetFunc func(ctx context.Context, orgID, tableID uuid.UUID) (*models.Table, error)
}

var _ repositories.TableRepository = (*mockTableRepo)(nil)

func (m *mockTableRepo) Create(ctx context.Context, table *models.Table) error { return nil }

func (m *mockTableRepo) Get(ctx context.Context, orgID, tableID uuid.UUID) (*models.Table, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, orgID, tableID)
	}
	return nil, apperrors.ErrNotFound
}

type mockConversationEngine struct {
	StartFunc         func(table *models.Table) (*models.ConversationState, string)
	HandleMessageFunc func(ctx context.Context, state *models.ConversationState, message string, selectedCount int) (*models.ConversationState, string, error)
}

var _ services.ConversationEngine = (*mockConversationEngine)(nil)

func (m *mockConversationEngine) Start(table *models.Table) (*models.ConversationState, string) {
	if m.StartFunc != nil {
		return m.StartFunc(table)
	}
	return &models.ConversationState{}, ""
}

func (m *mockConversationEngine) HandleMessage(ctx context.Context, state *models.ConversationState, message string, selectedCount int) (*models.ConversationState, string, error) {
	if m.HandleMessageFunc != nil {
		return m.HandleMessageFunc(ctx, state, message, selectedCount)
	}
	return state, "", nil
}

type mockGenerationService struct {
	StartGenerationJobFunc func(ctx context.Context, orgID, tableID uuid.UUID, ownerID string, state *models.ConversationState) (*models.GenerationJob, error)
	StartEnrichmentJobFunc func(ctx context.Context, orgID, tableID uuid.UUID, ownerID string, recordIDs []uuid.UUID, targetColumns []string, description string) (*models.GenerationJob, error)
}

var _ services.GenerationService = (*mockGenerationService)(nil)

func (m *mockGenerationService) StartGenerationJob(ctx context.Context, orgID, tableID uuid.UUID, ownerID string, state *models.ConversationState) (*models.GenerationJob, error) {
	if m.StartGenerationJobFunc != nil {
		return m.StartGenerationJobFunc(ctx, orgID, tableID, ownerID, state)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockGenerationService) StartEnrichmentJob(ctx context.Context, orgID, tableID uuid.UUID, ownerID string, recordIDs []uuid.UUID, targetColumns []string, description string) (*models.GenerationJob, error) {
	if m.StartEnrichmentJobFunc != nil {
		return m.StartEnrichmentJobFunc(ctx, orgID, tableID, ownerID, recordIDs, targetColumns, description)
	}
	return nil, apperrors.ErrNotFound
}

type mockPreviewService struct {
	GetPreviewFunc        func(orgID, jobID uuid.UUID, ownerID string) (*services.JobPreview, error)
	ConfirmGenerationFunc func(ctx context.Context, orgID, jobID uuid.UUID, ownerID string, selected []int) (*services.ConfirmOutcome, error)
	ConfirmEnrichmentFunc func(ctx context.Context, orgID, jobID uuid.UUID, ownerID string, selectedRecordIDs []uuid.UUID) (*services.ConfirmOutcome, error)
}

var _ services.PreviewService = (*mockPreviewService)(nil)

func (m *mockPreviewService) GetPreview(orgID, jobID uuid.UUID, ownerID string) (*services.JobPreview, error) {
	if m.GetPreviewFunc != nil {
		return m.GetPreviewFunc(orgID, jobID, ownerID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockPreviewService) ConfirmGeneration(ctx context.Context, orgID, jobID uuid.UUID, ownerID string, selected []int) (*services.ConfirmOutcome, error) {
	if m.ConfirmGenerationFunc != nil {
		return m.ConfirmGenerationFunc(ctx, orgID, jobID, ownerID, selected)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockPreviewService) ConfirmEnrichment(ctx context.Context, orgID, jobID uuid.UUID, ownerID string, selectedRecordIDs []uuid.UUID) (*services.ConfirmOutcome, error) {
	if m.ConfirmEnrichmentFunc != nil {
		return m.ConfirmEnrichmentFunc(ctx, orgID, jobID, ownerID, selectedRecordIDs)
	}
	return nil, apperrors.ErrNotFound
}
