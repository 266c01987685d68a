package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Petrobere4/rag-docs-demo/internal/config"
	"github.com/Petrobere4/rag-docs-demo/internal/logger"
	"github.com/Petrobere4/rag-docs-demo/models"
	"github.com/Petrobere4/rag-docs-demo/utils"
)

// Completer generates text from a system instruction and a user message.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// SearchStore is the slice of the document store the answer pipeline needs.
type SearchStore interface {
	SearchChunks(ctx context.Context, embedding []float32, limit int, threshold float64) ([]models.ChunkMatch, error)
	InsertQueryLog(ctx context.Context, log *models.QueryLog) error
}

const (
	// FallbackNoSources is returned when similarity search yields nothing.
	FallbackNoSources = "I can't find that in the provided documents. Please upload relevant docs or ask a different question."
	// FallbackNoAnswer substitutes for an empty completion.
	FallbackNoAnswer = "No answer"

	groundingInstruction = "Answer ONLY using the provided sources. If not in sources, say you cannot find it in the documents. End with 'Sources: Source 1, Source 2...' based on what you used."

	// No minimum similarity floor: the top matches are always considered.
	similarityThreshold = 0.0
)

// AnswerService embeds a question, retrieves the most similar chunks,
// assembles a grounded prompt and returns the completion together with cited
// sources. Each call is stateless; the query-log insert is its only mutation.
type AnswerService struct {
	embedder  Embedder
	completer Completer
	store     SearchStore

	topK       int
	snippetMax int
}

func NewAnswerService(cfg *config.Config, embedder Embedder, completer Completer, store SearchStore) *AnswerService {
	return &AnswerService{
		embedder:   embedder,
		completer:  completer,
		store:      store,
		topK:       cfg.TopK,
		snippetMax: cfg.SnippetMaxChars,
	}
}

// Answer runs the retrieval pipeline for one question.
func (s *AnswerService) Answer(ctx context.Context, question string) (*models.QueryResponse, error) {
	start := time.Now()

	question = strings.TrimSpace(question)
	if len(question) < 2 {
		return nil, utils.E(utils.KindValidation, "invalid_question",
			"Question must be at least 2 characters.")
	}

	embedding, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, utils.Wrap(utils.KindDependency, "embedding_error",
			"Failed to embed question", err)
	}

	matches, err := s.store.SearchChunks(ctx, embedding, s.topK, similarityThreshold)
	if err != nil {
		return nil, utils.Wrap(utils.KindDependency, "search_error",
			"Similarity search failed", err)
	}

	sources := make([]models.SourceRef, 0, len(matches))
	for _, m := range matches {
		title := m.Metadata.Title
		if title == "" {
			title = "Untitled"
		}
		snippet := m.Content
		if len(snippet) > s.snippetMax {
			snippet = snippet[:s.snippetMax]
		}
		sources = append(sources, models.SourceRef{
			ChunkID:    m.ID,
			DocumentID: m.DocumentID,
			Title:      title,
			Snippet:    snippet,
			Score:      m.Similarity,
			Similarity: m.Similarity,
		})
	}

	if len(sources) == 0 {
		s.logQuery(ctx, question, FallbackNoSources, sources, start)
		return &models.QueryResponse{Answer: FallbackNoSources, Sources: sources}, nil
	}

	answer, err := s.completer.Complete(ctx, groundingInstruction, buildUserPrompt(question, sources))
	if err != nil {
		return nil, utils.Wrap(utils.KindDependency, "completion_error",
			"Failed to generate answer", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = FallbackNoAnswer
	}

	s.logQuery(ctx, question, answer, sources, start)
	return &models.QueryResponse{Answer: answer, Sources: sources}, nil
}

// buildUserPrompt lays out the question followed by each numbered source
// snippet.
func buildUserPrompt(question string, sources []models.SourceRef) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	for i, src := range sources {
		fmt.Fprintf(&sb, "Source %d:\n%s\n\n", i+1, src.Snippet)
	}
	return sb.String()
}

// logQuery writes the append-only audit record. The write is best effort:
// the user still gets their answer if only the log insert fails.
func (s *AnswerService) logQuery(ctx context.Context, question, answer string, sources []models.SourceRef, start time.Time) {
	entry := &models.QueryLog{
		Question:   question,
		Answer:     answer,
		TopSources: sources,
		LatencyMS:  time.Since(start).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertQueryLog(ctx, entry); err != nil {
		logger.Error("Failed to persist query log", "error", err)
	}
}
