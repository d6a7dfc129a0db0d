package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"lazaro-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// ConversationListItem is one row of the conversation list view, the
// conversation plus the aggregates the sidebar needs.
type ConversationListItem struct {
	Conversation  models.Conversation
	MessageCount  int
	DocumentCount int
	LastMessage   *string
}

// UpdateDocumentStatusParams carries a document state transition. ErrorReason
// is set only for FAILED; ChunkCount only for INDEXED.
type UpdateDocumentStatusParams struct {
	ID          uuid.UUID
	Status      models.DocumentStatus
	ErrorReason *string
	ChunkCount  *int
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// Conversation operations
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]ConversationListItem, error)
	UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) (*models.Conversation, error)
	TouchConversation(ctx context.Context, id uuid.UUID) error
	DeleteConversation(ctx context.Context, id uuid.UUID) error

	// Message operations
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)

	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListDocumentsByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, arg UpdateDocumentStatusParams) (*models.Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}
