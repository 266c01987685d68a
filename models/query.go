package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceRef cites the chunk an answer was derived from. Score and Similarity
// carry the same value; both are kept for API compatibility.
type SourceRef struct {
	ChunkID    primitive.ObjectID `bson:"chunk_id" json:"chunk_id"`
	DocumentID primitive.ObjectID `bson:"document_id" json:"document_id"`
	Title      string             `bson:"title" json:"title"`
	Snippet    string             `bson:"snippet" json:"snippet"`
	Score      float64            `bson:"score" json:"score"`
	Similarity float64            `bson:"similarity" json:"similarity"`
}

// QueryLog is an append-only audit record of one answered question.
type QueryLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Question   string             `bson:"question" json:"question"`
	Answer     string             `bson:"answer" json:"answer"`
	TopSources []SourceRef        `bson:"top_sources" json:"top_sources"`
	LatencyMS  int64              `bson:"latency_ms" json:"latency_ms"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// QueryRequest is the retrieval endpoint request body.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// QueryResponse is the retrieval endpoint response body.
type QueryResponse struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}
