package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"lazaro-backend/internal/models"
	"lazaro-backend/internal/store"
	"lazaro-backend/internal/vectorstore/memory"
)

func init() {
	retryInitialDelay = time.Millisecond
}

func newDocumentFixture(t *testing.T, embedder *mockEmbedder) (DocumentService, *mockStore, *memory.Store) {
	t.Helper()
	ms := newMockStore()
	index := memory.New()
	svc := NewDocumentService(ms, index, embedder, NewConversationLocks(), IngestionConfig{
		ChunkSize:          100,
		ChunkOverlap:       20,
		EmbedConcurrency:   2,
		EmbeddingDimension: 3,
		UploadDir:          t.TempDir(),
	})
	return svc, ms, index
}

func TestIngestTextDocument(t *testing.T) {
	svc, ms, index := newDocumentFixture(t, newMockEmbedder(3))

	text := strings.Repeat("some interesting prose about the system. ", 20)
	resp, err := svc.IngestDocument(context.Background(), uuid.Nil, "notes.txt", []byte(text))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if resp.Status != models.DocumentIndexed {
		t.Errorf("expected INDEXED, got %s", resp.Status)
	}
	if resp.ChunksProcessed == 0 {
		t.Error("expected at least one chunk")
	}
	if resp.ConversationID == uuid.Nil {
		t.Fatal("expected an auto-created conversation")
	}
	if _, err := ms.GetConversation(context.Background(), resp.ConversationID); err != nil {
		t.Errorf("auto-created conversation not stored: %v", err)
	}

	doc, err := ms.GetDocument(context.Background(), resp.DocumentID)
	if err != nil {
		t.Fatalf("document record missing: %v", err)
	}
	if doc.Status != models.DocumentIndexed || doc.ChunkCount != resp.ChunksProcessed {
		t.Errorf("document record not finalized: %+v", doc)
	}

	hits, err := index.Search(context.Background(), resp.ConversationID, []float32{1, 0, 0}, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != resp.ChunksProcessed {
		t.Errorf("expected %d indexed points, got %d", resp.ChunksProcessed, len(hits))
	}
}

func TestIngestEmbeddingFailureIsAllOrNothing(t *testing.T) {
	embedder := newMockEmbedder(3)
	embedder.failures = 1000 // beyond any retry budget
	svc, ms, index := newDocumentFixture(t, embedder)

	text := strings.Repeat("text that will split into several chunks. ", 30)
	resp, err := svc.IngestDocument(context.Background(), uuid.Nil, "notes.txt", []byte(text))
	if resp != nil {
		t.Fatal("expected no response on failure")
	}
	var embedErr *models.EmbeddingServiceError
	if !errors.As(err, &embedErr) {
		t.Fatalf("expected EmbeddingServiceError, got %v", err)
	}

	var failed *models.Document
	for _, id := range documentIDs(ms) {
		doc, _ := ms.GetDocument(context.Background(), id)
		failed = doc
	}
	if failed == nil {
		t.Fatal("document record missing")
	}
	if failed.Status != models.DocumentFailed {
		t.Errorf("expected FAILED, got %s", failed.Status)
	}
	if failed.ErrorReason == nil || !strings.Contains(*failed.ErrorReason, "embedding service error") {
		t.Errorf("expected error reason to name the embedding service, got %v", failed.ErrorReason)
	}

	hits, err := index.Search(context.Background(), failed.ConversationID, []float32{1, 0, 0}, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("failed ingestion must leave no indexed chunks, found %d", len(hits))
	}
}

func TestIngestTransientFailureRecovers(t *testing.T) {
	embedder := newMockEmbedder(3)
	embedder.failures = 2 // third attempt succeeds
	svc, _, _ := newDocumentFixture(t, embedder)

	resp, err := svc.IngestDocument(context.Background(), uuid.Nil, "short.txt", []byte("brief note"))
	if err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
	if resp.Status != models.DocumentIndexed {
		t.Errorf("expected INDEXED, got %s", resp.Status)
	}
}

func TestIngestLegacyFormatFailsWithoutRetry(t *testing.T) {
	embedder := newMockEmbedder(3)
	svc, ms, _ := newDocumentFixture(t, embedder)

	_, err := svc.IngestDocument(context.Background(), uuid.Nil, "old.doc", []byte("binary"))
	var extractErr *models.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if embedder.calls != 0 {
		t.Errorf("extraction failure must not reach the embedder, got %d calls", embedder.calls)
	}
	for _, id := range documentIDs(ms) {
		doc, _ := ms.GetDocument(context.Background(), id)
		if doc.Status != models.DocumentFailed {
			t.Errorf("expected FAILED, got %s", doc.Status)
		}
	}
}

// deadlineStore refuses writes once the caller's context is dead, the way a
// real database driver would.
type deadlineStore struct{ *mockStore }

func (s *deadlineStore) UpdateDocumentStatus(ctx context.Context, arg store.UpdateDocumentStatusParams) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.mockStore.UpdateDocumentStatus(ctx, arg)
}

// stalledEmbedder blocks until the context expires, simulating a hung backend.
type stalledEmbedder struct{}

func (stalledEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, &models.EmbeddingServiceError{Err: ctx.Err()}
}

func (stalledEmbedder) Dimension() int { return 3 }

func TestIngestTimeoutStillMarksDocumentFailed(t *testing.T) {
	ms := newMockStore()
	svc := NewDocumentService(&deadlineStore{mockStore: ms}, memory.New(), stalledEmbedder{}, NewConversationLocks(), IngestionConfig{
		ChunkSize:          100,
		ChunkOverlap:       20,
		EmbedConcurrency:   2,
		EmbeddingDimension: 3,
		UploadDir:          t.TempDir(),
		IngestTimeout:      50 * time.Millisecond,
	})

	_, err := svc.IngestDocument(context.Background(), uuid.Nil, "slow.txt", []byte("text that never embeds"))
	if err == nil {
		t.Fatal("expected the pipeline deadline to fail the ingest")
	}

	var failed *models.Document
	for _, id := range documentIDs(ms) {
		failed, _ = ms.GetDocument(context.Background(), id)
	}
	if failed == nil {
		t.Fatal("document record missing")
	}
	if failed.Status != models.DocumentFailed {
		t.Errorf("expected FAILED after the pipeline deadline, got %s", failed.Status)
	}
	if failed.ErrorReason == nil {
		t.Error("expected the failure reason recorded on the document")
	}
}

func TestIngestEmptyDocumentIndexesWithZeroChunks(t *testing.T) {
	embedder := newMockEmbedder(3)
	svc, ms, _ := newDocumentFixture(t, embedder)

	// A DOCX whose body holds no text runs extracts to empty text.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	if _, err := w.Write([]byte(`<document><body></body></document>`)); err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("building fixture: %v", err)
	}

	resp, err := svc.IngestDocument(context.Background(), uuid.Nil, "empty.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if resp.Status != models.DocumentIndexed {
		t.Errorf("expected INDEXED, got %s", resp.Status)
	}
	if resp.ChunksProcessed != 0 {
		t.Errorf("expected zero chunks, got %d", resp.ChunksProcessed)
	}
	if embedder.calls != 0 {
		t.Errorf("zero chunks must not reach the embedder, got %d calls", embedder.calls)
	}
	doc, err := ms.GetDocument(context.Background(), resp.DocumentID)
	if err != nil {
		t.Fatalf("document record missing: %v", err)
	}
	if doc.Status != models.DocumentIndexed || doc.ChunkCount != 0 {
		t.Errorf("document record not finalized: %+v", doc)
	}
}

func TestIngestIntoUnknownConversation(t *testing.T) {
	svc, _, _ := newDocumentFixture(t, newMockEmbedder(3))
	_, err := svc.IngestDocument(context.Background(), uuid.New(), "notes.txt", []byte("text"))
	if !errors.Is(err, models.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestIngestRejectsEmptyUpload(t *testing.T) {
	svc, _, _ := newDocumentFixture(t, newMockEmbedder(3))
	if _, err := svc.IngestDocument(context.Background(), uuid.Nil, "notes.txt", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty data: expected ErrValidation, got %v", err)
	}
	if _, err := svc.IngestDocument(context.Background(), uuid.Nil, "", []byte("x")); !errors.Is(err, ErrValidation) {
		t.Errorf("empty filename: expected ErrValidation, got %v", err)
	}
}

func TestDeleteDocumentRemovesVectors(t *testing.T) {
	svc, _, index := newDocumentFixture(t, newMockEmbedder(3))

	resp, err := svc.IngestDocument(context.Background(), uuid.Nil, "notes.txt", []byte("some persistent text"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := svc.DeleteDocument(context.Background(), resp.DocumentID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetDocument(context.Background(), resp.DocumentID); !errors.Is(err, models.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound after delete, got %v", err)
	}
	hits, err := index.Search(context.Background(), resp.ConversationID, []float32{1, 0, 0}, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected vectors gone after delete, found %d", len(hits))
	}
}

func TestIngestKeepsConversationsIsolated(t *testing.T) {
	svc, _, index := newDocumentFixture(t, newMockEmbedder(3))

	respA, err := svc.IngestDocument(context.Background(), uuid.Nil, "a.txt", []byte("contents of conversation A"))
	if err != nil {
		t.Fatalf("ingest A: %v", err)
	}
	respB, err := svc.IngestDocument(context.Background(), uuid.Nil, "b.txt", []byte("contents of conversation B"))
	if err != nil {
		t.Fatalf("ingest B: %v", err)
	}

	hits, err := index.Search(context.Background(), respA.ConversationID, []float32{1, 0, 0}, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range hits {
		if h.Payload.DocumentID == respB.DocumentID {
			t.Fatal("document from conversation B visible in conversation A")
		}
	}
}

func documentIDs(ms *mockStore) []uuid.UUID {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(ms.documents))
	for id := range ms.documents {
		ids = append(ids, id)
	}
	return ids
}
