package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is an uploaded source document. Immutable after creation except
// for deletion, which cascades to its chunks and any query logs citing it.
type Document struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title      string             `bson:"title" json:"title"`
	SourceType string             `bson:"source_type" json:"source_type"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Chunk is a bounded span of a document's text with its embedding vector.
// Chunks are batch-inserted at ingestion time and never mutated.
type Chunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID primitive.ObjectID `bson:"document_id" json:"document_id"`
	Content    string             `bson:"content" json:"content"`
	Metadata   ChunkMetadata      `bson:"metadata" json:"metadata"`
	Embedding  []float32          `bson:"embedding" json:"-"`
}

// ChunkMetadata carries provenance for a chunk.
type ChunkMetadata struct {
	ChunkIndex int    `bson:"chunk_index" json:"chunk_index"`
	Title      string `bson:"title" json:"title"`
	FileName   string `bson:"file_name" json:"file_name"`
	FileType   string `bson:"file_type" json:"file_type"`
}

// ChunkMatch is a similarity-search result decoded through an explicit
// struct at the store boundary rather than a loose document.
type ChunkMatch struct {
	ID         primitive.ObjectID `bson:"_id"`
	DocumentID primitive.ObjectID `bson:"document_id"`
	Content    string             `bson:"content"`
	Metadata   ChunkMetadata      `bson:"metadata"`
	Similarity float64            `bson:"similarity"`
}

// IngestResult is returned after a successful upload.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunks"`
}

const SourceTypeUpload = "upload"
