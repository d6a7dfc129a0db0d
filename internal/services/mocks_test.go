package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lazaro-backend/internal/llm"
	"lazaro-backend/internal/models"
	"lazaro-backend/internal/store"
)

// mockStore is an in-memory store.Store for service tests.
type mockStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID][]models.Message
	documents     map[uuid.UUID]*models.Document
	seq           int64
}

var _ store.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID][]models.Message),
		documents:     make(map[uuid.UUID]*models.Document),
	}
}

func (m *mockStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	copied := *conv
	m.conversations[conv.ID] = &copied
	return nil
}

func (m *mockStore) GetConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (m *mockStore) ListConversations(_ context.Context) ([]store.ConversationListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []store.ConversationListItem{}
	for id, conv := range m.conversations {
		item := store.ConversationListItem{Conversation: *conv}
		item.MessageCount = len(m.messages[id])
		for _, doc := range m.documents {
			if doc.ConversationID == id {
				item.DocumentCount++
			}
		}
		if msgs := m.messages[id]; len(msgs) > 0 {
			content := msgs[len(msgs)-1].Content
			item.LastMessage = &content
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Conversation.UpdatedAt.After(items[j].Conversation.UpdatedAt)
	})
	return items, nil
}

func (m *mockStore) UpdateConversationTitle(_ context.Context, id uuid.UUID, title string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = time.Now()
	copied := *conv
	return &copied, nil
}

func (m *mockStore) TouchConversation(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (m *mockStore) DeleteConversation(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	for docID, doc := range m.documents {
		if doc.ConversationID == id {
			delete(m.documents, docID)
		}
	}
	return nil
}

func (m *mockStore) AppendMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	msg.Seq = m.seq
	msg.CreatedAt = time.Now()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

func (m *mockStore) ListMessages(_ context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message{}, m.messages[conversationID]...), nil
}

func (m *mockStore) ListRecentMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.Message{}, msgs...), nil
}

func (m *mockStore) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	copied := *doc
	m.documents[doc.ID] = &copied
	return nil
}

func (m *mockStore) GetDocument(_ context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *mockStore) ListDocumentsByConversation(_ context.Context, conversationID uuid.UUID) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := []models.Document{}
	for _, doc := range m.documents {
		if doc.ConversationID == conversationID {
			docs = append(docs, *doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return docs, nil
}

func (m *mockStore) UpdateDocumentStatus(_ context.Context, arg store.UpdateDocumentStatusParams) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[arg.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc.Status = arg.Status
	doc.ErrorReason = arg.ErrorReason
	if arg.ChunkCount != nil {
		doc.ChunkCount = *arg.ChunkCount
	}
	doc.UpdatedAt = time.Now()
	copied := *doc
	return &copied, nil
}

func (m *mockStore) DeleteDocument(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

// mockEmbedder returns a fixed-direction vector and can be told to fail its
// first N calls with a transient error.
type mockEmbedder struct {
	mu       sync.Mutex
	dim      int
	failures int
	calls    int
}

func newMockEmbedder(dim int) *mockEmbedder { return &mockEmbedder{dim: dim} }

func (e *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failures > 0 {
		e.failures--
		return nil, &models.EmbeddingServiceError{Err: context.DeadlineExceeded}
	}
	vec := make([]float32, e.dim)
	vec[0] = 1
	return vec, nil
}

func (e *mockEmbedder) Dimension() int { return e.dim }

// mockLLM returns a canned answer and records the last prompt it saw.
type mockLLM struct {
	mu         sync.Mutex
	answer     string
	err        error
	lastPrompt string
}

func (l *mockLLM) Complete(_ context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastPrompt = prompt
	if l.err != nil {
		return "", l.err
	}
	return l.answer, nil
}

func (l *mockLLM) ModelStatus(context.Context) llm.ModelState { return llm.ModelReady }
func (l *mockLLM) ModelName() string                          { return "mock" }

func (l *mockLLM) prompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPrompt
}
