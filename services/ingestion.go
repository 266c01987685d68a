package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Petrobere4/rag-docs-demo/internal/config"
	"github.com/Petrobere4/rag-docs-demo/internal/logger"
	"github.com/Petrobere4/rag-docs-demo/models"
	"github.com/Petrobere4/rag-docs-demo/utils"
)

// TextChunker splits extracted text into ordered segments.
type TextChunker interface {
	ChunkText(text string) []string
}

// Embedder produces embedding vectors for text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestionStore is the slice of the document store the ingestion pipeline
// needs.
type IngestionStore interface {
	ReserveDocumentSlot(ctx context.Context) (bool, error)
	ReleaseDocumentSlot(ctx context.Context) error
	InsertDocument(ctx context.Context, doc *models.Document) error
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	DeleteDocumentCascade(ctx context.Context, id primitive.ObjectID) error
}

// IngestionService validates an upload, extracts its text, chunks it, embeds
// each chunk in one batch call and persists the Document and Chunk rows.
type IngestionService struct {
	chunker  TextChunker
	embedder Embedder
	store    IngestionStore

	maxFileBytes int64
	maxDocs      int64
}

func NewIngestionService(cfg *config.Config, chunker TextChunker, embedder Embedder, store IngestionStore) *IngestionService {
	return &IngestionService{
		chunker:      chunker,
		embedder:     embedder,
		store:        store,
		maxFileBytes: cfg.MaxFileBytes,
		maxDocs:      cfg.MaxDocs,
	}
}

// Ingest runs the full ingestion pipeline for one upload. A failure after the
// Document row exists triggers a compensating delete so no orphaned Document
// is left behind.
func (s *IngestionService) Ingest(ctx context.Context, up Upload, title string) (*models.IngestResult, error) {
	if int64(len(up.Data)) > s.maxFileBytes {
		return nil, utils.E(utils.KindLimitExceeded, "file_too_large",
			fmt.Sprintf("File too large. Max %dMB.", s.maxFileBytes/1024/1024))
	}

	text, appErr := ExtractUploadText(up)
	if appErr != nil {
		return nil, appErr
	}

	if title == "" {
		title = "Untitled"
	}

	reserved, err := s.store.ReserveDocumentSlot(ctx)
	if err != nil {
		return nil, utils.Wrap(utils.KindDependency, "store_error",
			"Failed to check document limit", err)
	}
	if !reserved {
		return nil, utils.E(utils.KindLimitExceeded, "document_limit_reached",
			fmt.Sprintf("Documents limit reached (%d). Delete something first.", s.maxDocs))
	}

	doc := &models.Document{
		Title:      title,
		SourceType: models.SourceTypeUpload,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		s.releaseSlot(ctx)
		return nil, utils.Wrap(utils.KindDependency, "store_error",
			"Failed to create document", err)
	}

	chunks := s.chunker.ChunkText(text)
	if len(chunks) == 0 {
		s.compensate(ctx, doc.ID)
		return nil, utils.E(utils.KindExtraction, "no_chunks_produced",
			"No chunks produced from document text.")
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		s.compensate(ctx, doc.ID)
		return nil, utils.Wrap(utils.KindDependency, "embedding_error",
			"Failed to generate embeddings", err)
	}
	if len(embeddings) != len(chunks) {
		s.compensate(ctx, doc.ID)
		return nil, utils.E(utils.KindDependency, "embedding_error",
			"Embedding service returned wrong number of vectors.")
	}

	rows := make([]models.Chunk, len(chunks))
	for i, content := range chunks {
		rows[i] = models.Chunk{
			DocumentID: doc.ID,
			Content:    content,
			Metadata: models.ChunkMetadata{
				ChunkIndex: i,
				Title:      title,
				FileName:   up.FileName,
				FileType:   up.MIMEType,
			},
			Embedding: embeddings[i],
		}
	}
	if err := s.store.InsertChunks(ctx, rows); err != nil {
		s.compensate(ctx, doc.ID)
		return nil, utils.Wrap(utils.KindDependency, "store_error",
			"Failed to persist chunks", err)
	}

	logger.Info("Document ingested",
		"document_id", doc.ID.Hex(), "title", title, "chunks", len(rows))

	return &models.IngestResult{
		DocumentID: doc.ID.Hex(),
		ChunkCount: len(rows),
	}, nil
}

// compensate removes a partially created document after a downstream
// failure. Best effort: the original error is what the caller sees.
func (s *IngestionService) compensate(ctx context.Context, id primitive.ObjectID) {
	if err := s.store.DeleteDocumentCascade(ctx, id); err != nil {
		logger.Error("Failed to clean up partial document", "document_id", id.Hex(), "error", err)
	}
}

func (s *IngestionService) releaseSlot(ctx context.Context) {
	if err := s.store.ReleaseDocumentSlot(ctx); err != nil {
		logger.Error("Failed to release document slot", "error", err)
	}
}
