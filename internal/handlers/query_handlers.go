package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"lazaro-backend/internal/llm"
	"lazaro-backend/internal/models"
	"lazaro-backend/pkg/httputil"
)

// QueryService defines the interface expected from the query service.
type QueryService interface {
	Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error)
}

type QueryHandlers struct {
	queryService QueryService
	llm          llm.Client
}

func NewQueryHandlers(svc QueryService, client llm.Client) *QueryHandlers {
	return &QueryHandlers{queryService: svc, llm: client}
}

// HandleAsk handles POST /v1/ask
func (h *QueryHandlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.queryService.Ask(r.Context(), req)
	if err != nil {
		respondServiceError(w, "QueryHandlers", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /health, reporting liveness and the inference
// model's state so clients can poll while a model pull is in flight.
func (h *QueryHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	state := h.llm.ModelStatus(r.Context())
	httputil.RespondJSON(w, http.StatusOK, models.HealthResponse{
		Status:     "ok",
		Model:      h.llm.ModelName(),
		ModelState: string(state),
	})
}
