package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"lazaro-backend/internal/models"
)

// --- Message Methods ---

// AppendMessage inserts a message. The database assigns seq, which fixes the
// total order for same-timestamp messages.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING seq, created_at`

	err := s.db.QueryRow(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
	).Scan(&msg.Seq, &msg.CreatedAt)
	if err != nil {
		log.Printf("ERROR [PostgresStore] AppendMessage: Failed insert for conversation %s: %v", msg.ConversationID, err)
		return fmt.Errorf("database error appending message: %w", err)
	}
	return nil
}

// ListMessages returns every message of a conversation in chronological order.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, seq, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC`

	return s.queryMessages(ctx, query, conversationID)
}

// ListRecentMessages returns the last limit messages of a conversation, still
// in chronological order.
func (s *PostgresStore) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, seq, role, content, created_at
		FROM (
			SELECT id, conversation_id, seq, role, content, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC`

	return s.queryMessages(ctx, query, conversationID, limit)
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Printf("ERROR [PostgresStore] queryMessages: Failed query: %v", err)
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Seq, &msg.Role, &msg.Content, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("database error scanning message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating messages: %w", err)
	}
	return messages, nil
}
