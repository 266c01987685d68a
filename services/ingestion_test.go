package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Petrobere4/rag-docs-demo/internal/config"
	"github.com/Petrobere4/rag-docs-demo/models"
	"github.com/Petrobere4/rag-docs-demo/utils"
)

type fakeEmbedder struct {
	batchCalls  int
	singleCalls int
	batchErr    error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.singleCalls++
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1, 0}
	}
	return vectors, nil
}

type fakeIngestionStore struct {
	slots          int64
	maxSlots       int64
	documents      []*models.Document
	chunks         []models.Chunk
	cascadeDeletes []primitive.ObjectID
	reserveErr     error
	insertChunkErr error
}

func (f *fakeIngestionStore) ReserveDocumentSlot(ctx context.Context) (bool, error) {
	if f.reserveErr != nil {
		return false, f.reserveErr
	}
	if f.slots >= f.maxSlots {
		return false, nil
	}
	f.slots++
	return true, nil
}

func (f *fakeIngestionStore) ReleaseDocumentSlot(ctx context.Context) error {
	if f.slots > 0 {
		f.slots--
	}
	return nil
}

func (f *fakeIngestionStore) InsertDocument(ctx context.Context, doc *models.Document) error {
	doc.ID = primitive.NewObjectID()
	f.documents = append(f.documents, doc)
	return nil
}

func (f *fakeIngestionStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if f.insertChunkErr != nil {
		return f.insertChunkErr
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIngestionStore) DeleteDocumentCascade(ctx context.Context, id primitive.ObjectID) error {
	f.cascadeDeletes = append(f.cascadeDeletes, id)
	if f.slots > 0 {
		f.slots--
	}
	return nil
}

func newTestIngestionService(st *fakeIngestionStore, emb *fakeEmbedder) *IngestionService {
	cfg := &config.Config{MaxFileBytes: 1024, MaxDocs: st.maxSlots}
	chunker := NewChunker(100, 20, 5, 200)
	return NewIngestionService(cfg, chunker, emb, st)
}

func textUpload(content string) Upload {
	return Upload{FileName: "notes.txt", MIMEType: "text/plain", Data: []byte(content)}
}

func TestIngestFileTooLarge(t *testing.T) {
	st := &fakeIngestionStore{maxSlots: 5}
	emb := &fakeEmbedder{}
	svc := newTestIngestionService(st, emb)

	_, err := svc.Ingest(context.Background(), textUpload(strings.Repeat("x", 2000)), "big")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.KindLimitExceeded, appErr.Kind)
	assert.Equal(t, "file_too_large", appErr.Code)
	assert.Zero(t, emb.batchCalls, "no external call after rejection")
	assert.Empty(t, st.documents)
}

func TestIngestUnsupportedType(t *testing.T) {
	st := &fakeIngestionStore{maxSlots: 5}
	svc := newTestIngestionService(st, &fakeEmbedder{})

	_, err := svc.Ingest(context.Background(), Upload{
		FileName: "img.png", MIMEType: "image/png", Data: []byte{1, 2, 3},
	}, "img")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "unsupported_file_type", appErr.Code)
	assert.Empty(t, st.documents)
}

func TestIngestDocumentLimitReached(t *testing.T) {
	st := &fakeIngestionStore{maxSlots: 1, slots: 1}
	emb := &fakeEmbedder{}
	svc := newTestIngestionService(st, emb)

	_, err := svc.Ingest(context.Background(), textUpload("some document body"), "doc")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.KindLimitExceeded, appErr.Kind)
	assert.Equal(t, "document_limit_reached", appErr.Code)
	assert.Empty(t, st.documents, "no document row on limit rejection")
	assert.Empty(t, st.chunks)
	assert.Zero(t, emb.batchCalls)
}

func TestIngestHappyPath(t *testing.T) {
	st := &fakeIngestionStore{maxSlots: 5}
	emb := &fakeEmbedder{}
	svc := newTestIngestionService(st, emb)

	text := "first paragraph\n\n" + strings.Repeat("second paragraph body ", 10)
	result, err := svc.Ingest(context.Background(), textUpload(text), "My Doc")
	require.NoError(t, err)

	require.Len(t, st.documents, 1)
	assert.Equal(t, "My Doc", st.documents[0].Title)
	assert.Equal(t, models.SourceTypeUpload, st.documents[0].SourceType)

	require.NotEmpty(t, st.chunks)
	assert.Equal(t, result.ChunkCount, len(st.chunks))
	assert.Equal(t, st.documents[0].ID.Hex(), result.DocumentID)
	assert.Equal(t, 1, emb.batchCalls, "embeddings requested in one batch")

	for i, chunk := range st.chunks {
		assert.Equal(t, i, chunk.Metadata.ChunkIndex, "chunk order preserved")
		assert.Equal(t, "My Doc", chunk.Metadata.Title)
		assert.Equal(t, "notes.txt", chunk.Metadata.FileName)
		assert.Equal(t, "text/plain", chunk.Metadata.FileType)
		assert.Equal(t, st.documents[0].ID, chunk.DocumentID)
		assert.NotEmpty(t, chunk.Embedding)
	}
}

func TestIngestDefaultsTitle(t *testing.T) {
	st := &fakeIngestionStore{maxSlots: 5}
	svc := newTestIngestionService(st, &fakeEmbedder{})

	_, err := svc.Ingest(context.Background(), textUpload("body text"), "")
	require.NoError(t, err)
	require.Len(t, st.documents, 1)
	assert.Equal(t, "Untitled", st.documents[0].Title)
}

func TestIngestEmbeddingFailureCompensates(t *testing.T) {
	st := &fakeIngestionStore{maxSlots: 5}
	emb := &fakeEmbedder{batchErr: errors.New("quota exhausted")}
	svc := newTestIngestionService(st, emb)

	_, err := svc.Ingest(context.Background(), textUpload("some document body"), "doc")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.KindDependency, appErr.Kind)
	assert.Equal(t, "embedding_error", appErr.Code)

	require.Len(t, st.documents, 1)
	require.Len(t, st.cascadeDeletes, 1)
	assert.Equal(t, st.documents[0].ID, st.cascadeDeletes[0], "partial document cleaned up")
	assert.Zero(t, st.slots, "reserved slot released")
}

func TestIngestChunkInsertFailureCompensates(t *testing.T) {
	st := &fakeIngestionStore{maxSlots: 5, insertChunkErr: errors.New("write failed")}
	svc := newTestIngestionService(st, &fakeEmbedder{})

	_, err := svc.Ingest(context.Background(), textUpload("some document body"), "doc")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.KindDependency, appErr.Kind)
	require.Len(t, st.cascadeDeletes, 1)
}

type emptyChunker struct{}

func (emptyChunker) ChunkText(string) []string { return nil }

func TestIngestNoChunksProduced(t *testing.T) {
	st := &fakeIngestionStore{maxSlots: 5}
	cfg := &config.Config{MaxFileBytes: 1024, MaxDocs: 5}
	svc := NewIngestionService(cfg, emptyChunker{}, &fakeEmbedder{}, st)

	_, err := svc.Ingest(context.Background(), textUpload("text that chunks to nothing"), "doc")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "no_chunks_produced", appErr.Code)
	require.Len(t, st.cascadeDeletes, 1, "document removed when chunking yields nothing")
}
