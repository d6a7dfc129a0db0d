// Package vectorstore defines the vector-index port used by ingestion and
// retrieval, plus the per-conversation collection naming shared by all
// implementations.
package vectorstore

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
)

// ChunkPayload is the metadata stored alongside each chunk vector. It carries
// everything retrieval needs to cite the chunk without a database round trip.
type ChunkPayload struct {
	Text       string
	DocumentID uuid.UUID
	ChunkIndex int
	SourceFile string
}

// ChunkPoint is a single chunk ready to be indexed.
type ChunkPoint struct {
	ID      uuid.UUID
	Vector  []float32
	Payload ChunkPayload
}

// SearchResult is one scored hit from a similarity search.
type SearchResult struct {
	Payload ChunkPayload
	Score   float32
}

// Index is the vector-database capability interface. Every conversation gets
// its own collection; operations never cross conversation boundaries.
// Implementations wrap backend failures in *models.VectorStoreError.
type Index interface {
	// EnsureCollection creates the conversation's collection if it does not
	// exist yet. Idempotent.
	EnsureCollection(ctx context.Context, conversationID uuid.UUID, dimension int) error

	// Upsert writes the given chunk points into the conversation's collection.
	Upsert(ctx context.Context, conversationID uuid.UUID, points []ChunkPoint) error

	// Search returns up to limit chunks most similar to the query vector,
	// highest score first. A conversation with no indexed documents yields an
	// empty result, not an error.
	Search(ctx context.Context, conversationID uuid.UUID, vector []float32, limit int) ([]SearchResult, error)

	// DeleteByDocument removes all points belonging to one document.
	DeleteByDocument(ctx context.Context, conversationID, documentID uuid.UUID) error

	// DeleteCollection drops the conversation's collection entirely.
	DeleteCollection(ctx context.Context, conversationID uuid.UUID) error

	// Close releases the backend connection.
	Close() error
}

// CollectionName derives the collection name for a conversation. The hex form
// keeps the name stable, collision-free and valid for every backend.
func CollectionName(conversationID uuid.UUID) string {
	return "conv_" + hex.EncodeToString(conversationID[:])
}
