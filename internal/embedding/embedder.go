// Package embedding turns text into fixed-dimension vectors through an
// external embedding backend.
package embedding

import "context"

// Embedder is the capability interface the ingestion and retrieval components
// depend on. The same call embeds chunks and queries so both live in the same
// vector space.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension is the configured vector length every embedding must have.
	Dimension() int
}
