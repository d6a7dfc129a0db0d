package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lazaro-backend/internal/models"
	"lazaro-backend/internal/store"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables on startup when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	log.Printf("[PostgresStore] Ensuring schema...")
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		seq BIGSERIAL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at, seq);

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		file_type TEXT NOT NULL,
		status TEXT NOT NULL,
		error_reason TEXT,
		chunk_count INT NOT NULL DEFAULT 0,
		file_size BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_documents_conversation ON documents (conversation_id, created_at);
	`
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// --- Conversation Methods ---

// CreateConversation inserts a new conversation record.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	log.Printf("[PostgresStore] CreateConversation called for ID: %s", conv.ID)
	query := `
		INSERT INTO conversations (id, title)
		VALUES ($1, $2)
		RETURNING created_at, updated_at`

	err := s.db.QueryRow(ctx, query, conv.ID, conv.Title).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateConversation: Failed insert for ID %s: %v", conv.ID, err)
		return fmt.Errorf("database error creating conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
// Returns store.ErrNotFound if the conversation does not exist.
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1`

	conv := &models.Conversation{}
	err := s.db.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetConversation: Failed query for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns all conversations with their message and document
// aggregates, most recently updated first.
func (s *PostgresStore) ListConversations(ctx context.Context) ([]store.ConversationListItem, error) {
	query := `
		SELECT c.id, c.title, c.created_at, c.updated_at,
		       COUNT(DISTINCT m.id) AS message_count,
		       COUNT(DISTINCT d.id) AS document_count,
		       (SELECT content FROM messages
		        WHERE conversation_id = c.id
		        ORDER BY created_at DESC, seq DESC LIMIT 1) AS last_message
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		LEFT JOIN documents d ON d.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListConversations: Failed query: %v", err)
		return nil, fmt.Errorf("database error listing conversations: %w", err)
	}
	defer rows.Close()

	items := []store.ConversationListItem{}
	for rows.Next() {
		var item store.ConversationListItem
		err := rows.Scan(
			&item.Conversation.ID,
			&item.Conversation.Title,
			&item.Conversation.CreatedAt,
			&item.Conversation.UpdatedAt,
			&item.MessageCount,
			&item.DocumentCount,
			&item.LastMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("database error scanning conversation row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating conversations: %w", err)
	}
	return items, nil
}

// UpdateConversationTitle renames a conversation and bumps updated_at.
func (s *PostgresStore) UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) (*models.Conversation, error) {
	log.Printf("[PostgresStore] UpdateConversationTitle called for ID: %s", id)
	query := `
		UPDATE conversations
		SET title = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, title, created_at, updated_at`

	conv := &models.Conversation{}
	err := s.db.QueryRow(ctx, query, id, title).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] UpdateConversationTitle: Failed for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error updating conversation: %w", err)
	}
	return conv, nil
}

// TouchConversation bumps updated_at so activity reorders the list view.
func (s *PostgresStore) TouchConversation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database error touching conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteConversation removes a conversation; messages and documents go with it
// via ON DELETE CASCADE.
func (s *PostgresStore) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	log.Printf("[PostgresStore] DeleteConversation called for ID: %s", id)
	tag, err := s.db.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteConversation: Failed for ID %s: %v", id, err)
		return fmt.Errorf("database error deleting conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
