package store

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Petrobere4/rag-docs-demo/models"
)

// SearchChunks returns up to limit chunks ranked by descending similarity to
// the query embedding, keeping only matches at or above threshold. With an
// Atlas vector index configured it runs $vectorSearch; otherwise it falls
// back to a brute-force cosine scan, which is fine at the document counts
// this service caps itself to.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, limit int, threshold float64) ([]models.ChunkMatch, error) {
	if s.vectorEnabled {
		return s.vectorSearch(ctx, embedding, limit, threshold)
	}
	return s.bruteForceSearch(ctx, embedding, limit, threshold)
}

func (s *Store) vectorSearch(ctx context.Context, embedding []float32, limit int, threshold float64) ([]models.ChunkMatch, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.M{
			"index":         s.vectorIndex,
			"path":          "embedding",
			"queryVector":   embedding,
			"numCandidates": limit * 10,
			"limit":         limit,
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"document_id": 1,
			"content":     1,
			"metadata":    1,
			"similarity":  bson.M{"$meta": "vectorSearchScore"},
		}}},
	}

	cursor, err := s.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer cursor.Close(ctx)

	matches := make([]models.ChunkMatch, 0, limit)
	for cursor.Next(ctx) {
		var m models.ChunkMatch
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode match: %w", err)
		}
		if m.Similarity >= threshold {
			matches = append(matches, m)
		}
	}
	return matches, cursor.Err()
}

func (s *Store) bruteForceSearch(ctx context.Context, embedding []float32, limit int, threshold float64) ([]models.ChunkMatch, error) {
	cursor, err := s.chunks.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	matches := make([]models.ChunkMatch, 0)
	for cursor.Next(ctx) {
		var chunk models.Chunk
		if err := cursor.Decode(&chunk); err != nil {
			return nil, fmt.Errorf("failed to decode chunk: %w", err)
		}
		sim := cosineSimilarity(embedding, chunk.Embedding)
		if sim < threshold {
			continue
		}
		matches = append(matches, models.ChunkMatch{
			ID:         chunk.ID,
			DocumentID: chunk.DocumentID,
			Content:    chunk.Content,
			Metadata:   chunk.Metadata,
			Similarity: sim,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// cosineSimilarity returns 0 for mismatched or zero vectors instead of
// erroring; such chunks simply never rank.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (normA * normB)
}
