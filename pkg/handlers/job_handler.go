package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
	"github.com/tably-inc/tably-engine/pkg/auth"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/services"
)

// JobHandler exposes generation job launch, status, preview, and
// confirmation endpoints.
type JobHandler struct {
	generation services.GenerationService
	preview    services.PreviewService
	store      services.JobStore
	logger     *zap.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(generation services.GenerationService, preview services.PreviewService, store services.JobStore, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		generation: generation,
		preview:    preview,
		store:      store,
		logger:     logger.Named("job-handler"),
	}
}

// RegisterRoutes registers the job routes on the given mux.
func (h *JobHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	requireOrg := authMiddleware.RequireAuthWithOrgPath("oid")

	mux.HandleFunc("POST /api/orgs/{oid}/tables/{tid}/generation-jobs", requireOrg(h.StartGeneration))
	mux.HandleFunc("POST /api/orgs/{oid}/tables/{tid}/enrichment-jobs", requireOrg(h.StartEnrichment))
	mux.HandleFunc("GET /api/orgs/{oid}/generation-jobs/{jid}", requireOrg(h.GetJob))
	mux.HandleFunc("GET /api/orgs/{oid}/generation-jobs/{jid}/preview", requireOrg(h.GetPreview))
	mux.HandleFunc("POST /api/orgs/{oid}/generation-jobs/{jid}/confirm-generation", requireOrg(h.ConfirmGeneration))
	mux.HandleFunc("POST /api/orgs/{oid}/generation-jobs/{jid}/confirm-enrichment", requireOrg(h.ConfirmEnrichment))
}

// StartGenerationRequest is the body for launching a generation job.
type StartGenerationRequest struct {
	State *models.ConversationState `json:"state"`
}

// StartGeneration handles POST /api/orgs/{oid}/tables/{tid}/generation-jobs.
func (h *JobHandler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	orgID, tableID, ok := ParseOrgAndTableIDs(w, r, h.logger)
	if !ok {
		return
	}

	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var req StartGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	job, err := h.generation.StartGenerationJob(r.Context(), orgID, tableID, userID, req.State)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, job); err != nil {
		h.logger.Error("Failed to encode job response", zap.Error(err))
	}
}

// StartEnrichmentRequest is the body for launching an enrichment job.
type StartEnrichmentRequest struct {
	RecordIDs     []uuid.UUID `json:"recordIds"`
	TargetColumns []string    `json:"targetColumns"`
	Description   string      `json:"description"`
}

// StartEnrichment handles POST /api/orgs/{oid}/tables/{tid}/enrichment-jobs.
func (h *JobHandler) StartEnrichment(w http.ResponseWriter, r *http.Request) {
	orgID, tableID, ok := ParseOrgAndTableIDs(w, r, h.logger)
	if !ok {
		return
	}

	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	var req StartEnrichmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	job, err := h.generation.StartEnrichmentJob(r.Context(), orgID, tableID, userID, req.RecordIDs, req.TargetColumns, req.Description)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, job); err != nil {
		h.logger.Error("Failed to encode job response", zap.Error(err))
	}
}

// GetJob handles GET /api/orgs/{oid}/generation-jobs/{jid}.
// Polled by the client for progress; returns a snapshot of the job.
// Like the preview, a job owned by someone else looks missing.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}
	jobID, ok := ParseJobID(w, r, h.logger)
	if !ok {
		return
	}

	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	job, err := h.store.Get(orgID, jobID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if job.OwnerID != userID {
		writeServiceError(w, apperrors.ErrNotFound, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, job); err != nil {
		h.logger.Error("Failed to encode job response", zap.Error(err))
	}
}

// GetPreview handles GET /api/orgs/{oid}/generation-jobs/{jid}/preview.
func (h *JobHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrgID(w, r, h.logger)
	if !ok {
		return
	}
	jobID, ok := ParseJobID(w, r, h.logger)
	if !ok {
		return
	}

	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	preview, err := h.preview.GetPreview(orgID, jobID, userID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, preview); err != nil {
		h.logger.Error("Failed to encode preview response", zap.Error(err))
	}
}

// ConfirmRequest is the body for generation confirmation: drafts are
// addressed by their preview index. A missing or empty selection
// applies every successful row.
type ConfirmRequest struct {
	SelectedIndices []int `json:"selectedIndices"`
}

// EnrichmentConfirmRequest is the body for enrichment confirmation:
// enriched rows already exist, so they are addressed by record ID. A
// missing or empty selection applies every successful row.
type EnrichmentConfirmRequest struct {
	SelectedRecordIDs []uuid.UUID `json:"selectedRecordIds"`
}

// GenerationConfirmResponse reports how many draft rows were inserted.
type GenerationConfirmResponse struct {
	InsertedCount int `json:"insertedCount"`
}

// EnrichmentConfirmResponse reports the per-record merge outcome.
type EnrichmentConfirmResponse struct {
	SuccessCount   int `json:"successCount"`
	FailureCount   int `json:"failureCount"`
	TotalProcessed int `json:"totalProcessed"`
}

// ConfirmGeneration handles POST /api/orgs/{oid}/generation-jobs/{jid}/confirm-generation.
func (h *JobHandler) ConfirmGeneration(w http.ResponseWriter, r *http.Request) {
	orgID, jobID, userID, ok := h.confirmTarget(w, r)
	if !ok {
		return
	}

	var req ConfirmRequest
	if !h.decodeConfirmBody(w, r, &req) {
		return
	}

	outcome, err := h.preview.ConfirmGeneration(r.Context(), orgID, jobID, userID, req.SelectedIndices)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, GenerationConfirmResponse{InsertedCount: outcome.Applied}); err != nil {
		h.logger.Error("Failed to encode confirm response", zap.Error(err))
	}
}

// ConfirmEnrichment handles POST /api/orgs/{oid}/generation-jobs/{jid}/confirm-enrichment.
func (h *JobHandler) ConfirmEnrichment(w http.ResponseWriter, r *http.Request) {
	orgID, jobID, userID, ok := h.confirmTarget(w, r)
	if !ok {
		return
	}

	var req EnrichmentConfirmRequest
	if !h.decodeConfirmBody(w, r, &req) {
		return
	}

	outcome, err := h.preview.ConfirmEnrichment(r.Context(), orgID, jobID, userID, req.SelectedRecordIDs)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, EnrichmentConfirmResponse{
		SuccessCount:   outcome.Applied,
		FailureCount:   outcome.Failed,
		TotalProcessed: outcome.Applied + outcome.Failed,
	}); err != nil {
		h.logger.Error("Failed to encode confirm response", zap.Error(err))
	}
}

// confirmTarget resolves the path and identity shared by both
// confirmation endpoints.
func (h *JobHandler) confirmTarget(w http.ResponseWriter, r *http.Request) (orgID, jobID uuid.UUID, userID string, ok bool) {
	orgID, ok = ParseOrgID(w, r, h.logger)
	if !ok {
		return orgID, jobID, "", false
	}
	jobID, ok = ParseJobID(w, r, h.logger)
	if !ok {
		return orgID, jobID, "", false
	}

	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return orgID, jobID, "", false
	}
	return orgID, jobID, userID, true
}

// decodeConfirmBody decodes an optional confirmation body. An empty
// body means "apply everything".
func (h *JobHandler) decodeConfirmBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
