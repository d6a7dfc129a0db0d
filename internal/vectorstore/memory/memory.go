// Package memory implements the vector index in process memory. It serves
// tests and single-node deployments that run without a Qdrant server.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"lazaro-backend/internal/vectorstore"
)

type point struct {
	id      uuid.UUID
	vector  []float32
	payload vectorstore.ChunkPayload
}

// Store keeps one point slice per collection, guarded by a single mutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]point
}

var _ vectorstore.Index = (*Store)(nil)

func New() *Store {
	return &Store{collections: make(map[string][]point)}
}

func (s *Store) EnsureCollection(_ context.Context, conversationID uuid.UUID, _ int) error {
	name := vectorstore.CollectionName(conversationID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	return nil
}

func (s *Store) Upsert(_ context.Context, conversationID uuid.UUID, points []vectorstore.ChunkPoint) error {
	name := vectorstore.CollectionName(conversationID)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.collections[name]
	for _, p := range points {
		replaced := false
		for i := range existing {
			if existing[i].id == p.ID {
				existing[i] = point{id: p.ID, vector: p.Vector, payload: p.Payload}
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, point{id: p.ID, vector: p.Vector, payload: p.Payload})
		}
	}
	s.collections[name] = existing
	return nil
}

func (s *Store) Search(_ context.Context, conversationID uuid.UUID, vector []float32, limit int) ([]vectorstore.SearchResult, error) {
	name := vectorstore.CollectionName(conversationID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.collections[name]
	if !ok || len(points) == 0 {
		return nil, nil
	}

	results := make([]vectorstore.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, vectorstore.SearchResult{
			Score:   cosineSimilarity(vector, p.vector),
			Payload: p.payload,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) DeleteByDocument(_ context.Context, conversationID, documentID uuid.UUID) error {
	name := vectorstore.CollectionName(conversationID)
	s.mu.Lock()
	defer s.mu.Unlock()

	points := s.collections[name]
	kept := points[:0]
	for _, p := range points {
		if p.payload.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	s.collections[name] = kept
	return nil
}

func (s *Store) DeleteCollection(_ context.Context, conversationID uuid.UUID) error {
	name := vectorstore.CollectionName(conversationID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Store) Close() error { return nil }

// cosineSimilarity returns 0 for mismatched or zero-magnitude vectors instead
// of erroring; such points simply rank last.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
