package models

import (
	"errors"
	"fmt"
)

// Not-found errors are permanent: the caller must change its input.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDocumentNotFound     = errors.New("document not found")
)

// ExtractionError reports unsupported or corrupt input to the extraction
// stage. Permanent: never retried.
type ExtractionError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed for %q: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed for %q: %s", e.Filename, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingServiceError reports an unreachable or erroring embedding backend.
// Transient: callers retry a bounded number of times before surfacing it.
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service error: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// VectorStoreError reports a vector database connection or collection error.
// Transient: callers retry a bounded number of times before surfacing it.
type VectorStoreError struct {
	Op  string // "ensure-collection", "upsert", "search", "delete"
	Err error
}

func (e *VectorStoreError) Error() string {
	return fmt.Sprintf("vector store error during %s: %v", e.Op, e.Err)
}

func (e *VectorStoreError) Unwrap() error { return e.Err }

// InferenceUnavailableError signals that the language model backend is up but
// the model itself is missing or still being pulled. This is a pollable
// transient condition, not a hard failure, and is never retried internally.
type InferenceUnavailableError struct {
	Model string
	State string // "missing", "pulling", "loading"
}

func (e *InferenceUnavailableError) Error() string {
	return fmt.Sprintf("inference model %q unavailable (%s)", e.Model, e.State)
}

// ContextAssemblyError reports a configuration mismatch detected during
// context assembly, e.g. an embedding dimension that differs from the
// configured one. Fatal: retrying cannot help.
type ContextAssemblyError struct {
	Reason string
}

func (e *ContextAssemblyError) Error() string {
	return fmt.Sprintf("context assembly error: %s", e.Reason)
}
