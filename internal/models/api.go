package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// CreateConversationRequest defines the body for creating a conversation.
type CreateConversationRequest struct {
	Title          string `json:"title,omitempty"`
	InitialMessage string `json:"initial_message,omitempty"` // stored as a system message
}

// UpdateConversationRequest defines the body for renaming a conversation.
type UpdateConversationRequest struct {
	Title string `json:"title"`
}

// AppendMessageRequest defines the body for appending a message.
type AppendMessageRequest struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AskRequest defines the body for asking a question against a conversation's
// indexed documents.
type AskRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Question       string    `json:"question"`
}

// --- Response Structs ---

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	// Retryable marks transient conditions the client may poll, e.g. an
	// inference model that is still being pulled.
	Retryable bool `json:"retryable,omitempty"`
}

// MessageResponse is one conversation turn as returned by the API.
type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentResponse is a document reference with its ingestion status.
type DocumentResponse struct {
	ID          uuid.UUID      `json:"id"`
	Filename    string         `json:"filename"`
	FileType    string         `json:"file_type"`
	Status      DocumentStatus `json:"status"`
	ErrorReason *string        `json:"error_reason,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	FileSize    int64          `json:"file_size"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ConversationResponse is a full conversation with messages and documents.
type ConversationResponse struct {
	ID        uuid.UUID          `json:"id"`
	Title     string             `json:"title"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Messages  []MessageResponse  `json:"messages"`
	Documents []DocumentResponse `json:"documents"`
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	MessageCount  int       `json:"message_count"`
	DocumentCount int       `json:"document_count"`
	LastMessage   *string   `json:"last_message,omitempty"`
}

// UploadResponse reports the outcome of a document ingestion.
type UploadResponse struct {
	Message          string         `json:"message"`
	ConversationID   uuid.UUID      `json:"conversation_id"`
	DocumentID       uuid.UUID      `json:"document_id"`
	Status           DocumentStatus `json:"status"`
	ChunksProcessed  int            `json:"chunks_processed"`
	FileType         string         `json:"file_type"`
	ProcessingTimeMS float64        `json:"processing_time_ms"`
}

// SourceChunk is one retrieved passage cited by an answer.
type SourceChunk struct {
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	SourceFile string    `json:"source_file"`
	Score      float32   `json:"score"`
	Text       string    `json:"text"`
}

// AskResponse is the answer to a question plus the passages that informed it.
type AskResponse struct {
	Answer           string        `json:"answer"`
	Sources          []SourceChunk `json:"sources"`
	ConversationID   uuid.UUID     `json:"conversation_id"`
	ProcessingTimeMS float64       `json:"processing_time_ms"`
}

// HealthResponse reports service liveness and the inference model state.
type HealthResponse struct {
	Status     string `json:"status"`
	Model      string `json:"model"`
	ModelState string `json:"model_state"` // "ready", "missing", "pulling", "unknown"
}

// NewMessageResponse maps a stored message to its API shape.
func NewMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// NewDocumentResponse maps a stored document to its API shape.
func NewDocumentResponse(d *Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		Filename:    d.Filename,
		FileType:    d.FileType,
		Status:      d.Status,
		ErrorReason: d.ErrorReason,
		ChunkCount:  d.ChunkCount,
		FileSize:    d.FileSize,
		CreatedAt:   d.CreatedAt,
	}
}
