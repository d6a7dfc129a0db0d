package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"lazaro-backend/internal/chunker"
	"lazaro-backend/internal/embedding"
	"lazaro-backend/internal/llm"
	"lazaro-backend/internal/models"
	"lazaro-backend/internal/store"
	"lazaro-backend/internal/vectorstore"
)

// QueryConfig holds the tunables of retrieval and context assembly.
type QueryConfig struct {
	TopK               int
	MaxContextLength   int
	MaxHistoryMessages int
	EmbeddingDimension int
	ChunkSize          int
	ChunkOverlap       int
}

// QueryService defines the interface for answering questions against a
// conversation's indexed documents.
type QueryService interface {
	Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error)
}

type queryService struct {
	store    store.Store
	index    vectorstore.Index
	embedder embedding.Embedder
	llm      llm.Client
	locks    *ConversationLocks
	cfg      QueryConfig
	// overlap is what the splitter actually repeated between chunks, after
	// any clamping it applied to the configured value.
	overlap int
}

// NewQueryService creates a new QueryService.
func NewQueryService(s store.Store, index vectorstore.Index, embedder embedding.Embedder, client llm.Client, locks *ConversationLocks, cfg QueryConfig) QueryService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxContextLength <= 0 {
		cfg.MaxContextLength = 4096
	}
	if cfg.MaxHistoryMessages <= 0 {
		cfg.MaxHistoryMessages = 10
	}
	return &queryService{
		store:    s,
		index:    index,
		embedder: embedder,
		llm:      client,
		locks:    locks,
		cfg:      cfg,
		overlap:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap).Overlap(),
	}
}

// passage is a run of one or more adjacent retrieved chunks from the same
// source file, merged with their shared overlap removed.
type passage struct {
	documentID uuid.UUID
	sourceFile string
	chunkIndex int // index of the first merged chunk
	endIndex   int // index of the last merged chunk
	text       string
	score      float32
}

// Ask runs retrieval-augmented answering: embed the question, search the
// conversation's collection, assemble a bounded context, prompt the model, and
// record both turns.
func (s *queryService) Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()
	if req.Question == "" {
		return nil, fmt.Errorf("%w: question cannot be empty", ErrValidation)
	}
	if req.ConversationID == uuid.Nil {
		return nil, fmt.Errorf("%w: conversation_id is required", ErrValidation)
	}
	if _, err := s.store.GetConversation(ctx, req.ConversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.ErrConversationNotFound
		}
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}

	var vec []float32
	err := retryTransient(ctx, "embed-question", func() error {
		v, err := s.embedder.Embed(ctx, req.Question)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.cfg.EmbeddingDimension > 0 && len(vec) != s.cfg.EmbeddingDimension {
		return nil, &models.ContextAssemblyError{
			Reason: fmt.Sprintf("question embedding dimension %d does not match configured %d", len(vec), s.cfg.EmbeddingDimension),
		}
	}

	var hits []vectorstore.SearchResult
	err = retryTransient(ctx, "search", func() error {
		h, err := s.index.Search(ctx, req.ConversationID, vec, s.cfg.TopK)
		if err != nil {
			return err
		}
		hits = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	passages := s.assemblePassages(hits)
	log.Printf("[QueryService] Conversation %s: %d hits merged into %d passages", req.ConversationID, len(hits), len(passages))

	history, err := s.store.ListRecentMessages(ctx, req.ConversationID, s.cfg.MaxHistoryMessages)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	prompt := buildPrompt(req.Question, passages, history)
	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.ConversationID)
	defer unlock()

	for _, turn := range []struct {
		role    models.Role
		content string
	}{
		{models.RoleUser, req.Question},
		{models.RoleAssistant, answer},
	} {
		msg := &models.Message{
			ID:             uuid.New(),
			ConversationID: req.ConversationID,
			Role:           turn.role,
			Content:        turn.content,
		}
		if err := s.store.AppendMessage(ctx, msg); err != nil {
			return nil, fmt.Errorf("recording %s turn: %w", turn.role, err)
		}
	}
	if err := s.store.TouchConversation(ctx, req.ConversationID); err != nil {
		log.Printf("WARN [QueryService] Failed to touch conversation %s: %v", req.ConversationID, err)
	}

	sources := make([]models.SourceChunk, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, models.SourceChunk{
			DocumentID: p.documentID,
			ChunkIndex: p.chunkIndex,
			SourceFile: p.sourceFile,
			Score:      p.score,
			Text:       p.text,
		})
	}
	return &models.AskResponse{
		Answer:           answer,
		Sources:          sources,
		ConversationID:   req.ConversationID,
		ProcessingTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// assemblePassages merges adjacent chunks and trims the result to the context
// budget. Chunks from the same document and file with consecutive indices are
// joined after dropping the repeated overlap; a merged passage keeps its best
// chunk score. Passages are then admitted best score first until the budget is
// spent. The top passage always survives, truncated if it alone exceeds the
// budget.
func (s *queryService) assemblePassages(hits []vectorstore.SearchResult) []passage {
	if len(hits) == 0 {
		return nil
	}

	ordered := make([]vectorstore.SearchResult, len(hits))
	copy(ordered, hits)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].Payload, ordered[j].Payload
		if a.DocumentID != b.DocumentID {
			return a.DocumentID.String() < b.DocumentID.String()
		}
		return a.ChunkIndex < b.ChunkIndex
	})

	var merged []passage
	for _, hit := range ordered {
		p := hit.Payload
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.documentID == p.DocumentID && last.sourceFile == p.SourceFile &&
				p.ChunkIndex == last.endIndex+1 {
				if len(p.Text) > s.overlap {
					last.text += p.Text[s.overlap:]
				}
				last.endIndex = p.ChunkIndex
				if hit.Score > last.score {
					last.score = hit.Score
				}
				continue
			}
		}
		merged = append(merged, passage{
			documentID: p.DocumentID,
			sourceFile: p.SourceFile,
			chunkIndex: p.ChunkIndex,
			endIndex:   p.ChunkIndex,
			text:       p.Text,
			score:      hit.Score,
		})
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].score > merged[j].score })

	budget := s.cfg.MaxContextLength
	var kept []passage
	used := 0
	for i, p := range merged {
		if i == 0 && len(p.text) > budget {
			p.text = p.text[:budget]
			kept = append(kept, p)
			break
		}
		if used+len(p.text) > budget {
			continue
		}
		used += len(p.text)
		kept = append(kept, p)
	}
	return kept
}

const personaPrompt = `You are a helpful assistant named LAZARO. Answer the question using the document context below, as a senior developer explaining a codebase. Follow these rules:

1. Place every block of code between <code></code> tags, properly indented.
2. Always name the file you are talking about, and explain how the code works and why it answers the question.
3. Use both the document context and the conversation history; keep continuity with previous answers.
4. When suggesting changes, present targeted modifications, preserve existing functionality, and note impacts on other parts of the code.
5. Use a professional and friendly tone. If addressed as LAZARO directly, you may answer from general knowledge beyond the provided context.`

// buildPrompt assembles the final prompt from the persona, recent history,
// retrieved passages, and the question.
func buildPrompt(question string, passages []passage, history []models.Message) string {
	var b strings.Builder
	b.WriteString(personaPrompt)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, msg := range history {
			role := "User"
			switch msg.Role {
			case models.RoleAssistant:
				role = "Assistant"
			case models.RoleSystem:
				role = "System"
			}
			fmt.Fprintf(&b, "%s: %s\n\n", role, msg.Content)
		}
	}

	b.WriteString("Document Context:\n")
	if len(passages) == 0 {
		b.WriteString("No relevant documents found.\n")
	}
	for _, p := range passages {
		fmt.Fprintf(&b, "[source: %s]\n%s\n\n", p.sourceFile, p.text)
	}

	fmt.Fprintf(&b, "Current Question:\n%s\n\nAnswer:\n", question)
	return b.String()
}
