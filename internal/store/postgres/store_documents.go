package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"lazaro-backend/internal/models"
	"lazaro-backend/internal/store"
)

// --- Document Methods ---

// CreateDocument inserts a new document record in its initial status.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	log.Printf("[PostgresStore] CreateDocument called for %s (conversation %s)", doc.Filename, doc.ConversationID)
	query := `
		INSERT INTO documents (id, conversation_id, filename, file_type, status, file_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := s.db.QueryRow(ctx, query,
		doc.ID,
		doc.ConversationID,
		doc.Filename,
		doc.FileType,
		doc.Status,
		doc.FileSize,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateDocument: Failed insert for %s: %v", doc.Filename, err)
		return fmt.Errorf("database error creating document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
// Returns store.ErrNotFound if the document does not exist.
func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `
		SELECT id, conversation_id, filename, file_type, status, error_reason, chunk_count, file_size, created_at, updated_at
		FROM documents
		WHERE id = $1`

	doc := &models.Document{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.ConversationID,
		&doc.Filename,
		&doc.FileType,
		&doc.Status,
		&doc.ErrorReason,
		&doc.ChunkCount,
		&doc.FileSize,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetDocument: Failed query for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching document: %w", err)
	}
	return doc, nil
}

// ListDocumentsByConversation returns a conversation's documents, oldest first.
func (s *PostgresStore) ListDocumentsByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Document, error) {
	query := `
		SELECT id, conversation_id, filename, file_type, status, error_reason, chunk_count, file_size, created_at, updated_at
		FROM documents
		WHERE conversation_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, conversationID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListDocumentsByConversation: Failed query for conversation %s: %v", conversationID, err)
		return nil, fmt.Errorf("database error listing documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.ConversationID,
			&doc.Filename,
			&doc.FileType,
			&doc.Status,
			&doc.ErrorReason,
			&doc.ChunkCount,
			&doc.FileSize,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("database error scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating documents: %w", err)
	}
	return docs, nil
}

// UpdateDocumentStatus applies a state transition and returns the updated row.
func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, arg store.UpdateDocumentStatusParams) (*models.Document, error) {
	log.Printf("[PostgresStore] UpdateDocumentStatus called for ID %s -> %s", arg.ID, arg.Status)
	query := `
		UPDATE documents
		SET status = $2,
		    error_reason = $3,
		    chunk_count = COALESCE($4, chunk_count),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, conversation_id, filename, file_type, status, error_reason, chunk_count, file_size, created_at, updated_at`

	doc := &models.Document{}
	err := s.db.QueryRow(ctx, query, arg.ID, arg.Status, arg.ErrorReason, arg.ChunkCount).Scan(
		&doc.ID,
		&doc.ConversationID,
		&doc.Filename,
		&doc.FileType,
		&doc.Status,
		&doc.ErrorReason,
		&doc.ChunkCount,
		&doc.FileSize,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] UpdateDocumentStatus: Failed for ID %s: %v", arg.ID, err)
		return nil, fmt.Errorf("database error updating document status: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes a document record.
func (s *PostgresStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	log.Printf("[PostgresStore] DeleteDocument called for ID: %s", id)
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteDocument: Failed for ID %s: %v", id, err)
		return fmt.Errorf("database error deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
