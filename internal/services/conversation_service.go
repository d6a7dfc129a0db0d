package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"lazaro-backend/internal/models"
	"lazaro-backend/internal/store"
	"lazaro-backend/internal/vectorstore"
)

// ErrValidation marks rejected input, mapped to 422 at the HTTP boundary.
var ErrValidation = errors.New("validation failed")

// ConversationService defines the interface for conversation operations.
type ConversationService interface {
	CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationResponse, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.ConversationResponse, error)
	ListConversations(ctx context.Context) ([]models.ConversationSummary, error)
	RenameConversation(ctx context.Context, id uuid.UUID, req models.UpdateConversationRequest) (*models.ConversationResponse, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	AppendMessage(ctx context.Context, conversationID uuid.UUID, req models.AppendMessageRequest) (*models.MessageResponse, error)
}

type conversationService struct {
	store     store.Store
	index     vectorstore.Index
	locks     *ConversationLocks
	uploadDir string
}

// NewConversationService creates a new ConversationService.
func NewConversationService(s store.Store, index vectorstore.Index, locks *ConversationLocks, uploadDir string) ConversationService {
	return &conversationService{store: s, index: index, locks: locks, uploadDir: uploadDir}
}

// CreateConversation creates a conversation, optionally seeding it with a
// system message.
func (s *conversationService) CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationResponse, error) {
	title := req.Title
	if title == "" {
		title = "New conversation"
	}
	conv := &models.Conversation{ID: uuid.New(), Title: title}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	log.Printf("[ConversationService] Created conversation %s", conv.ID)

	if req.InitialMessage != "" {
		msg := &models.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			Role:           models.RoleSystem,
			Content:        req.InitialMessage,
		}
		if err := s.store.AppendMessage(ctx, msg); err != nil {
			return nil, fmt.Errorf("appending initial message: %w", err)
		}
	}
	return s.buildResponse(ctx, conv)
}

// GetConversation returns a conversation with its messages and documents.
func (s *conversationService) GetConversation(ctx context.Context, id uuid.UUID) (*models.ConversationResponse, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrConversationNotFound
		}
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}
	return s.buildResponse(ctx, conv)
}

// ListConversations returns all conversations as list-view summaries.
func (s *conversationService) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	items, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	summaries := make([]models.ConversationSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, models.ConversationSummary{
			ID:            item.Conversation.ID,
			Title:         item.Conversation.Title,
			CreatedAt:     item.Conversation.CreatedAt,
			UpdatedAt:     item.Conversation.UpdatedAt,
			MessageCount:  item.MessageCount,
			DocumentCount: item.DocumentCount,
			LastMessage:   item.LastMessage,
		})
	}
	return summaries, nil
}

// RenameConversation updates a conversation's title.
func (s *conversationService) RenameConversation(ctx context.Context, id uuid.UUID, req models.UpdateConversationRequest) (*models.ConversationResponse, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	conv, err := s.store.UpdateConversationTitle(ctx, id, req.Title)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrConversationNotFound
		}
		return nil, fmt.Errorf("renaming conversation: %w", err)
	}
	return s.buildResponse(ctx, conv)
}

// DeleteConversation removes the conversation, its messages and documents, its
// vector collection, and the raw uploads on disk.
func (s *conversationService) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	docs, err := s.store.ListDocumentsByConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("listing documents for delete: %w", err)
	}

	if err := s.store.DeleteConversation(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.ErrConversationNotFound
		}
		return fmt.Errorf("deleting conversation: %w", err)
	}

	// The record is gone; vector and file cleanup must not resurrect it, but
	// a transient backend blip should not leave the collection searchable.
	if err := retryTransient(ctx, "delete-collection", func() error {
		return s.index.DeleteCollection(ctx, id)
	}); err != nil {
		log.Printf("WARN [ConversationService] Failed to drop vector collection for %s: %v", id, err)
	}
	for _, doc := range docs {
		if err := os.RemoveAll(filepath.Join(s.uploadDir, doc.ID.String())); err != nil {
			log.Printf("WARN [ConversationService] Failed to remove uploads for document %s: %v", doc.ID, err)
		}
	}
	log.Printf("[ConversationService] Deleted conversation %s (%d documents)", id, len(docs))
	return nil
}

// AppendMessage validates and stores one conversation turn.
func (s *conversationService) AppendMessage(ctx context.Context, conversationID uuid.UUID, req models.AppendMessageRequest) (*models.MessageResponse, error) {
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrValidation)
	}
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrConversationNotFound
		}
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           req.Role,
		Content:        req.Content,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}
	if err := s.store.TouchConversation(ctx, conversationID); err != nil {
		log.Printf("WARN [ConversationService] Failed to touch conversation %s: %v", conversationID, err)
	}
	resp := models.NewMessageResponse(msg)
	return &resp, nil
}

func (s *conversationService) buildResponse(ctx context.Context, conv *models.Conversation) (*models.ConversationResponse, error) {
	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	docs, err := s.store.ListDocumentsByConversation(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	resp := &models.ConversationResponse{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  make([]models.MessageResponse, 0, len(messages)),
		Documents: make([]models.DocumentResponse, 0, len(docs)),
	}
	for i := range messages {
		resp.Messages = append(resp.Messages, models.NewMessageResponse(&messages[i]))
	}
	for i := range docs {
		resp.Documents = append(resp.Documents, models.NewDocumentResponse(&docs[i]))
	}
	return resp, nil
}
