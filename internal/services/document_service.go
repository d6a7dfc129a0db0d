package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lazaro-backend/internal/chunker"
	"lazaro-backend/internal/embedding"
	"lazaro-backend/internal/extract"
	"lazaro-backend/internal/models"
	"lazaro-backend/internal/store"
	"lazaro-backend/internal/vectorstore"
)

// IngestionConfig holds the tunables of the document pipeline.
type IngestionConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	EmbedConcurrency   int
	EmbeddingDimension int
	UploadDir          string
	// IngestTimeout bounds a single document's pipeline run.
	IngestTimeout time.Duration
}

// DocumentService defines the interface for document ingestion and lifecycle.
type DocumentService interface {
	// IngestDocument runs the full pipeline synchronously: extract, chunk,
	// embed, index. A nil conversationID creates a fresh conversation for the
	// document.
	IngestDocument(ctx context.Context, conversationID uuid.UUID, filename string, data []byte) (*models.UploadResponse, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*models.DocumentResponse, error)
	ListDocuments(ctx context.Context, conversationID uuid.UUID) ([]models.DocumentResponse, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	store    store.Store
	index    vectorstore.Index
	embedder embedding.Embedder
	chunker  *chunker.Chunker
	locks    *ConversationLocks
	cfg      IngestionConfig
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(s store.Store, index vectorstore.Index, embedder embedding.Embedder, locks *ConversationLocks, cfg IngestionConfig) DocumentService {
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}
	if cfg.IngestTimeout <= 0 {
		cfg.IngestTimeout = 10 * time.Minute
	}
	return &documentService{
		store:    s,
		index:    index,
		embedder: embedder,
		chunker:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		locks:    locks,
		cfg:      cfg,
	}
}

// IngestDocument processes an upload end to end. A document only becomes
// INDEXED after every chunk is embedded and upserted in one batch, so readers
// never observe a partially indexed document. The pipeline keeps running if
// the client disconnects mid-upload.
func (s *documentService) IngestDocument(ctx context.Context, conversationID uuid.UUID, filename string, data []byte) (*models.UploadResponse, error) {
	start := time.Now()
	if filename == "" {
		return nil, fmt.Errorf("%w: filename cannot be empty", ErrValidation)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}

	if conversationID == uuid.Nil {
		conv := &models.Conversation{ID: uuid.New(), Title: filename}
		if err := s.store.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("creating conversation for upload: %w", err)
		}
		seed := &models.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			Role:           models.RoleSystem,
			Content:        fmt.Sprintf("Conversation created for document %q.", filename),
		}
		if err := s.store.AppendMessage(ctx, seed); err != nil {
			return nil, fmt.Errorf("seeding conversation for upload: %w", err)
		}
		conversationID = conv.ID
		log.Printf("[DocumentService] Created conversation %s for upload %s", conversationID, filename)
	} else if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrConversationNotFound
		}
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}

	// A dropped upload connection must not abort a pipeline that is already
	// writing state; the pipeline carries its own deadline instead.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.IngestTimeout)
	defer cancel()

	doc := &models.Document{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Filename:       filename,
		FileType:       strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		Status:         models.DocumentUploaded,
		FileSize:       int64(len(data)),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document record: %w", err)
	}

	if err := s.saveUpload(doc.ID, filename, data); err != nil {
		return nil, s.fail(ctx, doc, err)
	}

	s.setStatus(ctx, doc, models.DocumentExtracting)
	result, err := extract.Document(filename, data)
	if err != nil {
		return nil, s.fail(ctx, doc, err)
	}
	doc.FileType = result.FileType

	s.setStatus(ctx, doc, models.DocumentChunking)
	chunks := s.chunkFiles(doc, result.Files)
	log.Printf("[DocumentService] Document %s: %d chunks from %d files", doc.ID, len(chunks), len(result.Files))

	// Empty extracted text is a valid terminal: the document indexes with
	// zero chunks and simply never matches a search.
	if len(chunks) > 0 {
		s.setStatus(ctx, doc, models.DocumentEmbedding)
		points, err := s.embedChunks(ctx, chunks)
		if err != nil {
			return nil, s.fail(ctx, doc, err)
		}

		if err := retryTransient(ctx, "ensure-collection", func() error {
			return s.index.EnsureCollection(ctx, conversationID, s.cfg.EmbeddingDimension)
		}); err != nil {
			return nil, s.fail(ctx, doc, err)
		}
		// Single batch: the collection either gains all chunks or none.
		if err := retryTransient(ctx, "upsert", func() error {
			return s.index.Upsert(ctx, conversationID, points)
		}); err != nil {
			return nil, s.fail(ctx, doc, err)
		}
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	chunkCount := len(chunks)
	updated, err := s.store.UpdateDocumentStatus(ctx, store.UpdateDocumentStatusParams{
		ID:         doc.ID,
		Status:     models.DocumentIndexed,
		ChunkCount: &chunkCount,
	})
	if err != nil {
		return nil, fmt.Errorf("marking document indexed: %w", err)
	}
	if err := s.store.TouchConversation(ctx, conversationID); err != nil {
		log.Printf("WARN [DocumentService] Failed to touch conversation %s: %v", conversationID, err)
	}

	log.Printf("[DocumentService] Document %s indexed (%d chunks, %s)", doc.ID, chunkCount, time.Since(start))
	return &models.UploadResponse{
		Message:          fmt.Sprintf("Document %q processed successfully", filename),
		ConversationID:   conversationID,
		DocumentID:       updated.ID,
		Status:           updated.Status,
		ChunksProcessed:  chunkCount,
		FileType:         updated.FileType,
		ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// GetDocument returns one document's metadata and ingestion status.
func (s *documentService) GetDocument(ctx context.Context, id uuid.UUID) (*models.DocumentResponse, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("fetching document: %w", err)
	}
	resp := models.NewDocumentResponse(doc)
	return &resp, nil
}

// ListDocuments returns a conversation's documents, oldest first.
func (s *documentService) ListDocuments(ctx context.Context, conversationID uuid.UUID) ([]models.DocumentResponse, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrConversationNotFound
		}
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}
	docs, err := s.store.ListDocumentsByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	resp := make([]models.DocumentResponse, 0, len(docs))
	for i := range docs {
		resp = append(resp, models.NewDocumentResponse(&docs[i]))
	}
	return resp, nil
}

// DeleteDocument removes a document's vectors, record, and raw upload.
func (s *documentService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.ErrDocumentNotFound
		}
		return fmt.Errorf("fetching document: %w", err)
	}

	if err := retryTransient(ctx, "delete-by-document", func() error {
		return s.index.DeleteByDocument(ctx, doc.ConversationID, doc.ID)
	}); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.ErrDocumentNotFound
		}
		return fmt.Errorf("deleting document: %w", err)
	}
	if err := os.RemoveAll(filepath.Join(s.cfg.UploadDir, doc.ID.String())); err != nil {
		log.Printf("WARN [DocumentService] Failed to remove uploads for document %s: %v", doc.ID, err)
	}
	if err := s.store.TouchConversation(ctx, doc.ConversationID); err != nil {
		log.Printf("WARN [DocumentService] Failed to touch conversation %s: %v", doc.ConversationID, err)
	}
	log.Printf("[DocumentService] Deleted document %s", id)
	return nil
}

// chunkFiles splits every extracted file, numbering chunks consecutively
// across the whole document.
func (s *documentService) chunkFiles(doc *models.Document, files []extract.File) []models.DocumentChunk {
	var chunks []models.DocumentChunk
	for _, f := range files {
		fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Path)), ".")
		for _, text := range s.chunker.Chunk(f.Text, fileType) {
			chunks = append(chunks, models.DocumentChunk{
				ID:             uuid.New(),
				DocumentID:     doc.ID,
				ConversationID: doc.ConversationID,
				ChunkIndex:     len(chunks),
				Text:           text,
				SourceFile:     f.Path,
				FileType:       fileType,
			})
		}
	}
	return chunks
}

// embedChunks embeds all chunks with bounded parallelism. Each chunk gets its
// own transient-retry budget; one definitive failure aborts the group.
func (s *documentService) embedChunks(ctx context.Context, chunks []models.DocumentChunk) ([]vectorstore.ChunkPoint, error) {
	points := make([]vectorstore.ChunkPoint, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)
	for i := range chunks {
		i := i
		g.Go(func() error {
			var vec []float32
			err := retryTransient(gctx, "embed", func() error {
				v, err := s.embedder.Embed(gctx, chunks[i].Text)
				if err != nil {
					return err
				}
				vec = v
				return nil
			})
			if err != nil {
				return err
			}
			if s.cfg.EmbeddingDimension > 0 && len(vec) != s.cfg.EmbeddingDimension {
				return &models.EmbeddingServiceError{
					Err: fmt.Errorf("embedding dimension %d does not match configured %d", len(vec), s.cfg.EmbeddingDimension),
				}
			}
			points[i] = vectorstore.ChunkPoint{
				ID:     chunks[i].ID,
				Vector: vec,
				Payload: vectorstore.ChunkPayload{
					Text:       chunks[i].Text,
					DocumentID: chunks[i].DocumentID,
					ChunkIndex: chunks[i].ChunkIndex,
					SourceFile: chunks[i].SourceFile,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *documentService) saveUpload(docID uuid.UUID, filename string, data []byte) error {
	dir := filepath.Join(s.cfg.UploadDir, docID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating upload dir: %w", err)
	}
	// Uploaded names may carry path separators; keep only the base.
	if err := os.WriteFile(filepath.Join(dir, filepath.Base(filename)), data, 0o644); err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}
	return nil
}

func (s *documentService) setStatus(ctx context.Context, doc *models.Document, status models.DocumentStatus) {
	updated, err := s.store.UpdateDocumentStatus(ctx, store.UpdateDocumentStatusParams{ID: doc.ID, Status: status})
	if err != nil {
		log.Printf("WARN [DocumentService] Failed to set document %s to %s: %v", doc.ID, status, err)
		return
	}
	*doc = *updated
}

// fail marks the document FAILED with the error as reason and passes the
// error through to the caller.
func (s *documentService) fail(ctx context.Context, doc *models.Document, cause error) error {
	reason := cause.Error()
	log.Printf("ERROR [DocumentService] Ingestion of document %s failed: %v", doc.ID, cause)
	// The cause may be the pipeline deadline itself; recording the terminal
	// state must not die with the context that produced the failure.
	ctx = context.WithoutCancel(ctx)
	if _, err := s.store.UpdateDocumentStatus(ctx, store.UpdateDocumentStatusParams{
		ID:          doc.ID,
		Status:      models.DocumentFailed,
		ErrorReason: &reason,
	}); err != nil {
		log.Printf("ERROR [DocumentService] Failed to mark document %s FAILED: %v", doc.ID, err)
	}
	return cause
}
