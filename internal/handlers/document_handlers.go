package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"lazaro-backend/internal/models"
	"lazaro-backend/pkg/httputil"
)

// DocumentService defines the interface expected from the document service.
type DocumentService interface {
	IngestDocument(ctx context.Context, conversationID uuid.UUID, filename string, data []byte) (*models.UploadResponse, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*models.DocumentResponse, error)
	ListDocuments(ctx context.Context, conversationID uuid.UUID) ([]models.DocumentResponse, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

type DocumentHandlers struct {
	documentService DocumentService
	maxUploadBytes  int64
}

func NewDocumentHandlers(svc DocumentService, maxUploadBytes int64) *DocumentHandlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &DocumentHandlers{documentService: svc, maxUploadBytes: maxUploadBytes}
}

// HandleUpload handles POST /v1/upload (multipart form).
//
// Expects the file under the "file" field. An optional "conversation_id" form
// value targets an existing conversation; without it a new conversation is
// created for the document.
func (h *DocumentHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart form (or file too large)")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	conversationID := uuid.Nil
	if raw := r.FormValue("conversation_id"); raw != "" {
		conversationID, err = uuid.Parse(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation_id format (must be UUID)")
			return
		}
	}

	resp, err := h.documentService.IngestDocument(r.Context(), conversationID, header.Filename, data)
	if err != nil {
		respondServiceError(w, "DocumentHandlers", err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleGetDocument handles GET /v1/documents/{documentID}
func (h *DocumentHandlers) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "documentID")
	if !ok {
		return
	}
	resp, err := h.documentService.GetDocument(r.Context(), id)
	if err != nil {
		respondServiceError(w, "DocumentHandlers", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleListDocuments handles GET /v1/conversations/{conversationID}/documents
func (h *DocumentHandlers) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "conversationID")
	if !ok {
		return
	}
	docs, err := h.documentService.ListDocuments(r.Context(), id)
	if err != nil {
		respondServiceError(w, "DocumentHandlers", err)
		return
	}
	if docs == nil {
		docs = []models.DocumentResponse{}
	}
	httputil.RespondJSON(w, http.StatusOK, docs)
}

// HandleDeleteDocument handles DELETE /v1/documents/{documentID}
func (h *DocumentHandlers) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "documentID")
	if !ok {
		return
	}
	if err := h.documentService.DeleteDocument(r.Context(), id); err != nil {
		respondServiceError(w, "DocumentHandlers", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
