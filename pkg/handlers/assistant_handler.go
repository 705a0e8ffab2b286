package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/auth"
	"github.com/tably-inc/tably-engine/pkg/models"
	"github.com/tably-inc/tably-engine/pkg/repositories"
	"github.com/tably-inc/tably-engine/pkg/services"
)

// AssistantHandler exposes the data assistant conversation. The server
// keeps no session state: every response returns the full conversation
// state and the client echoes it back with the next message.
type AssistantHandler struct {
	engine services.ConversationEngine
	tables repositories.TableRepository
	logger *zap.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(engine services.ConversationEngine, tables repositories.TableRepository, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		engine: engine,
		tables: tables,
		logger: logger.Named("assistant-handler"),
	}
}

// RegisterRoutes registers the assistant routes on the given mux.
func (h *AssistantHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	requireOrg := authMiddleware.RequireAuthWithOrgPath("oid")

	mux.HandleFunc("POST /api/orgs/{oid}/tables/{tid}/assistant/start", requireOrg(h.Start))
	mux.HandleFunc("POST /api/orgs/{oid}/tables/{tid}/assistant/message", requireOrg(h.Message))
}

// ConversationResponse carries the assistant reply plus the state the
// client must echo back. Once the conversation is confirmed and ready,
// it also carries the parameters a launch would use.
type ConversationResponse struct {
	SessionID       string                    `json:"sessionId"`
	Reply           string                    `json:"reply"`
	State           *models.ConversationState `json:"state"`
	IsReadyToLaunch bool                      `json:"isReadyToLaunch"`
	LaunchParams    *models.LaunchParams      `json:"launchParams,omitempty"`
}

func conversationResponse(state *models.ConversationState, reply string) ConversationResponse {
	resp := ConversationResponse{
		SessionID: state.SessionID,
		Reply:     reply,
		State:     state,
	}

	if state.Phase == models.PhaseReady && state.Confirmed {
		resp.IsReadyToLaunch = true
		resp.LaunchParams = launchParamsFromState(state)
	}
	return resp
}

// launchParamsFromState mirrors what the generation service derives at
// launch, so clients can show the final parameters before committing.
func launchParamsFromState(state *models.ConversationState) *models.LaunchParams {
	tableID, _ := uuid.Parse(state.TableID)

	kind := models.JobKindGeneration
	if state.TargetSelectedRows {
		kind = models.JobKindEnrichment
	}

	return &models.LaunchParams{
		Kind:            kind,
		TableID:         tableID,
		DataDescription: state.DataDescription,
		RowCount:        state.RowCount,
		TargetColumns:   state.TargetColumns,
		NewColumns:      state.NewColumns,
		Columns:         state.Columns,
	}
}

// Start handles POST /api/orgs/{oid}/tables/{tid}/assistant/start.
func (h *AssistantHandler) Start(w http.ResponseWriter, r *http.Request) {
	orgID, tableID, ok := ParseOrgAndTableIDs(w, r, h.logger)
	if !ok {
		return
	}

	table, err := h.tables.Get(r.Context(), orgID, tableID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	state, reply := h.engine.Start(table)

	if err := WriteJSON(w, http.StatusOK, conversationResponse(state, reply)); err != nil {
		h.logger.Error("Failed to encode conversation response", zap.Error(err))
	}
}

// MessageRequest is the body for assistant messages.
type MessageRequest struct {
	Message       string                    `json:"message"`
	State         *models.ConversationState `json:"state"`
	SelectedCount int                       `json:"selectedCount"`
}

// Message handles POST /api/orgs/{oid}/tables/{tid}/assistant/message.
func (h *AssistantHandler) Message(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := ParseOrgAndTableIDs(w, r, h.logger); !ok {
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.Message == "" || req.State == nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "message and state are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	state, reply, err := h.engine.HandleMessage(r.Context(), req.State, req.Message, req.SelectedCount)
	if err != nil {
		h.logger.Error("Assistant message failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadGateway, "assistant_unavailable", "The assistant could not process the message"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, conversationResponse(state, reply)); err != nil {
		h.logger.Error("Failed to encode conversation response", zap.Error(err))
	}
}
