package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// DocumentStatus is the lifecycle state of an uploaded document.
// Uploaded -> Extracting -> Chunking -> Embedding -> Indexed, with Failed
// reachable from any non-terminal state.
type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "UPLOADED"
	DocumentExtracting DocumentStatus = "EXTRACTING"
	DocumentChunking   DocumentStatus = "CHUNKING"
	DocumentEmbedding  DocumentStatus = "EMBEDDING"
	DocumentIndexed    DocumentStatus = "INDEXED"
	DocumentFailed     DocumentStatus = "FAILED"
)

// Terminal reports whether the status is a terminal lifecycle state.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentIndexed || s == DocumentFailed
}

// Conversation is a named chat session owning messages and documents.
type Conversation struct {
	ID        uuid.UUID `db:"id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Message is a single immutable conversation turn. Seq is assigned by the
// store in insertion order so that messages sharing a timestamp still sort
// stably.
type Message struct {
	ID             uuid.UUID `db:"id"`
	ConversationID uuid.UUID `db:"conversation_id"`
	Seq            int64     `db:"seq"`
	Role           Role      `db:"role"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
}

// Document is a reference to an uploaded file owned by exactly one
// conversation. The extracted content itself is stored as DocumentChunks.
type Document struct {
	ID             uuid.UUID      `db:"id"`
	ConversationID uuid.UUID      `db:"conversation_id"`
	Filename       string         `db:"filename"`
	FileType       string         `db:"file_type"` // e.g. "pdf", "zip", "text"
	Status         DocumentStatus `db:"status"`
	ErrorReason    *string        `db:"error_reason"` // set when Status is FAILED
	ChunkCount     int            `db:"chunk_count"`
	FileSize       int64          `db:"file_size"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// DocumentChunk is one bounded slice of a document's extracted text, the unit
// of embedding and retrieval. ChunkIndex is 0-based and defines reconstruction
// order within the document. ConversationID is denormalized so retrieval can
// filter without a join.
type DocumentChunk struct {
	ID             uuid.UUID `db:"id"`
	DocumentID     uuid.UUID `db:"document_id"`
	ConversationID uuid.UUID `db:"conversation_id"`
	ChunkIndex     int       `db:"chunk_index"`
	Text           string    `db:"text"`
	SourceFile     string    `db:"source_file"` // file inside an archive, or the filename itself
	FileType       string    `db:"file_type"`
}
