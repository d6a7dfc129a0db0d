package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lazaro-backend/internal/models"
	"lazaro-backend/internal/services"
	"lazaro-backend/pkg/httputil"
)

// parseIDParam reads a UUID path parameter, responding 400 on garbage.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid "+name+" format (must be UUID)")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps a service error onto its HTTP status.
//
// Not-found errors become 404, rejected input 422, failing embedding or
// vector backends 502, a missing or still-pulling inference model 503 with
// the retryable flag set, and everything else 500.
func respondServiceError(w http.ResponseWriter, component string, err error) {
	var extractErr *models.ExtractionError
	var embedErr *models.EmbeddingServiceError
	var vectorErr *models.VectorStoreError
	var unavailableErr *models.InferenceUnavailableError
	var assemblyErr *models.ContextAssemblyError

	switch {
	case errors.Is(err, models.ErrConversationNotFound),
		errors.Is(err, models.ErrDocumentNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &extractErr):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &embedErr), errors.As(err, &vectorErr):
		log.Printf("ERROR [%s] Backend failure: %v", component, err)
		httputil.RespondError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &unavailableErr):
		httputil.RespondRetryableError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &assemblyErr):
		log.Printf("ERROR [%s] Context assembly failure: %v", component, err)
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		log.Printf("ERROR [%s] Unexpected failure: %v", component, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
