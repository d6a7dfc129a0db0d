package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"lazaro-backend/internal/models"
	"lazaro-backend/pkg/httputil"
)

// ConversationService defines the interface expected from the conversation service.
type ConversationService interface {
	CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationResponse, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.ConversationResponse, error)
	ListConversations(ctx context.Context) ([]models.ConversationSummary, error)
	RenameConversation(ctx context.Context, id uuid.UUID, req models.UpdateConversationRequest) (*models.ConversationResponse, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	AppendMessage(ctx context.Context, conversationID uuid.UUID, req models.AppendMessageRequest) (*models.MessageResponse, error)
}

type ConversationHandlers struct {
	conversationService ConversationService
}

func NewConversationHandlers(svc ConversationService) *ConversationHandlers {
	return &ConversationHandlers{conversationService: svc}
}

// HandleCreateConversation handles POST /v1/conversations
func (h *ConversationHandlers) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConversationRequest
	// An empty body is fine; every field is optional.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.conversationService.CreateConversation(r.Context(), req)
	if err != nil {
		respondServiceError(w, "ConversationHandlers", err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListConversations handles GET /v1/conversations
func (h *ConversationHandlers) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.conversationService.ListConversations(r.Context())
	if err != nil {
		respondServiceError(w, "ConversationHandlers", err)
		return
	}
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	httputil.RespondJSON(w, http.StatusOK, summaries)
}

// HandleGetConversation handles GET /v1/conversations/{conversationID}
func (h *ConversationHandlers) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "conversationID")
	if !ok {
		return
	}
	resp, err := h.conversationService.GetConversation(r.Context(), id)
	if err != nil {
		respondServiceError(w, "ConversationHandlers", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleUpdateConversation handles PUT /v1/conversations/{conversationID}
func (h *ConversationHandlers) HandleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "conversationID")
	if !ok {
		return
	}
	var req models.UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.conversationService.RenameConversation(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, "ConversationHandlers", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeleteConversation handles DELETE /v1/conversations/{conversationID}
func (h *ConversationHandlers) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "conversationID")
	if !ok {
		return
	}
	if err := h.conversationService.DeleteConversation(r.Context(), id); err != nil {
		respondServiceError(w, "ConversationHandlers", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAppendMessage handles POST /v1/conversations/{conversationID}/messages
func (h *ConversationHandlers) HandleAppendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "conversationID")
	if !ok {
		return
	}
	var req models.AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.conversationService.AppendMessage(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, "ConversationHandlers", err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}
