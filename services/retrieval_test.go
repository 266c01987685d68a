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

type fakeSearchStore struct {
	matches   []models.ChunkMatch
	searchErr error
	logs      []models.QueryLog

	lastLimit     int
	lastThreshold float64
}

func (f *fakeSearchStore) SearchChunks(ctx context.Context, embedding []float32, limit int, threshold float64) ([]models.ChunkMatch, error) {
	f.lastLimit = limit
	f.lastThreshold = threshold
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.matches, nil
}

func (f *fakeSearchStore) InsertQueryLog(ctx context.Context, log *models.QueryLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

type fakeCompleter struct {
	calls      int
	lastSystem string
	lastUser   string
	reply      string
	err        error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func match(content string, similarity float64) models.ChunkMatch {
	return models.ChunkMatch{
		ID:         primitive.NewObjectID(),
		DocumentID: primitive.NewObjectID(),
		Content:    content,
		Metadata:   models.ChunkMetadata{Title: "Handbook"},
		Similarity: similarity,
	}
}

func newTestAnswerService(st *fakeSearchStore, emb *fakeEmbedder, comp *fakeCompleter) *AnswerService {
	cfg := &config.Config{TopK: 10, SnippetMaxChars: 1500}
	return NewAnswerService(cfg, emb, comp, st)
}

func TestAnswerRejectsShortQuestion(t *testing.T) {
	emb := &fakeEmbedder{}
	st := &fakeSearchStore{}
	svc := newTestAnswerService(st, emb, &fakeCompleter{})

	_, err := svc.Answer(context.Background(), "h")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.KindValidation, appErr.Kind)
	assert.Equal(t, "invalid_question", appErr.Code)
	assert.Zero(t, emb.singleCalls, "rejected before any external call")
	assert.Empty(t, st.logs)
}

func TestAnswerAcceptsTwoCharQuestion(t *testing.T) {
	emb := &fakeEmbedder{}
	st := &fakeSearchStore{matches: []models.ChunkMatch{match("greeting text", 0.9)}}
	comp := &fakeCompleter{reply: "Hello. Sources: Source 1"}
	svc := newTestAnswerService(st, emb, comp)

	result, err := svc.Answer(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, emb.singleCalls)
	assert.Equal(t, "Hello. Sources: Source 1", result.Answer)
}

func TestAnswerNoMatchesFallback(t *testing.T) {
	emb := &fakeEmbedder{}
	st := &fakeSearchStore{}
	comp := &fakeCompleter{reply: "should not be used"}
	svc := newTestAnswerService(st, emb, comp)

	result, err := svc.Answer(context.Background(), "what is the refund policy?")
	require.NoError(t, err)

	assert.Equal(t, FallbackNoSources, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, comp.calls, "completion skipped without sources")

	require.Len(t, st.logs, 1, "fallback answer still logged")
	assert.Equal(t, FallbackNoSources, st.logs[0].Answer)
	assert.Empty(t, st.logs[0].TopSources)
	assert.GreaterOrEqual(t, st.logs[0].LatencyMS, int64(0))
}

func TestAnswerHappyPath(t *testing.T) {
	emb := &fakeEmbedder{}
	st := &fakeSearchStore{matches: []models.ChunkMatch{
		match("refunds are issued within 30 days", 0.92),
		match("shipping takes two weeks", 0.61),
	}}
	comp := &fakeCompleter{reply: "  Refunds are issued within 30 days. Sources: Source 1  "}
	svc := newTestAnswerService(st, emb, comp)

	result, err := svc.Answer(context.Background(), "what is the refund policy?")
	require.NoError(t, err)

	assert.Equal(t, 10, st.lastLimit)
	assert.Equal(t, 0.0, st.lastThreshold, "no minimum similarity floor")

	assert.Equal(t, "Refunds are issued within 30 days. Sources: Source 1", result.Answer)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "Handbook", result.Sources[0].Title)
	assert.Equal(t, 0.92, result.Sources[0].Similarity)
	assert.Equal(t, result.Sources[0].Score, result.Sources[0].Similarity)

	assert.Contains(t, comp.lastSystem, "ONLY using the provided sources")
	assert.Contains(t, comp.lastUser, "Question: what is the refund policy?")
	assert.Contains(t, comp.lastUser, "Source 1:\nrefunds are issued within 30 days")
	assert.Contains(t, comp.lastUser, "Source 2:\nshipping takes two weeks")

	require.Len(t, st.logs, 1)
	assert.Equal(t, result.Answer, st.logs[0].Answer)
	assert.Len(t, st.logs[0].TopSources, 2)
}

func TestAnswerSnippetTruncation(t *testing.T) {
	long := strings.Repeat("s", 2000)
	st := &fakeSearchStore{matches: []models.ChunkMatch{match(long, 0.8)}}
	comp := &fakeCompleter{reply: "ok"}
	svc := newTestAnswerService(st, &fakeEmbedder{}, comp)

	result, err := svc.Answer(context.Background(), "anything here?")
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Len(t, result.Sources[0].Snippet, 1500)
}

func TestAnswerUntitledFallback(t *testing.T) {
	m := match("content", 0.5)
	m.Metadata.Title = ""
	st := &fakeSearchStore{matches: []models.ChunkMatch{m}}
	svc := newTestAnswerService(st, &fakeEmbedder{}, &fakeCompleter{reply: "ok"})

	result, err := svc.Answer(context.Background(), "anything here?")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", result.Sources[0].Title)
}

func TestAnswerEmptyCompletion(t *testing.T) {
	st := &fakeSearchStore{matches: []models.ChunkMatch{match("content", 0.5)}}
	svc := newTestAnswerService(st, &fakeEmbedder{}, &fakeCompleter{reply: "   "})

	result, err := svc.Answer(context.Background(), "anything here?")
	require.NoError(t, err)
	assert.Equal(t, FallbackNoAnswer, result.Answer)
}

func TestAnswerCompletionFailure(t *testing.T) {
	st := &fakeSearchStore{matches: []models.ChunkMatch{match("content", 0.5)}}
	comp := &fakeCompleter{err: errors.New("model overloaded")}
	svc := newTestAnswerService(st, &fakeEmbedder{}, comp)

	_, err := svc.Answer(context.Background(), "anything here?")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.KindDependency, appErr.Kind)
	assert.Equal(t, "completion_error", appErr.Code)
	assert.Empty(t, st.logs, "failed completions are not logged")
}

func TestAnswerSearchFailure(t *testing.T) {
	st := &fakeSearchStore{searchErr: errors.New("index offline")}
	svc := newTestAnswerService(st, &fakeEmbedder{}, &fakeCompleter{})

	_, err := svc.Answer(context.Background(), "anything here?")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "search_error", appErr.Code)
}
