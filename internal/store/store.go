package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Petrobere4/rag-docs-demo/internal/config"
	"github.com/Petrobere4/rag-docs-demo/internal/logger"
	"github.com/Petrobere4/rag-docs-demo/models"
)

const documentsCounterID = "documents"

// Store wraps the MongoDB collections backing documents, chunks and query
// logs. The document ceiling is enforced through a counter document updated
// with a conditional findOneAndUpdate, so concurrent uploads cannot slip past
// the limit between a count and an insert.
type Store struct {
	documents *mongo.Collection
	chunks    *mongo.Collection
	queryLogs *mongo.Collection
	counters  *mongo.Collection

	maxDocs       int64
	vectorEnabled bool
	vectorIndex   string
}

func New(client *mongo.Client, cfg *config.Config) (*Store, error) {
	db := client.Database(cfg.DBName)
	s := &Store{
		documents:     db.Collection("documents"),
		chunks:        db.Collection("chunks"),
		queryLogs:     db.Collection("query_logs"),
		counters:      db.Collection("counters"),
		maxDocs:       cfg.MaxDocs,
		vectorEnabled: cfg.VectorSearchEnabled,
		vectorIndex:   cfg.VectorIndexName,
	}

	if err := s.ensureCounter(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize document counter: %w", err)
	}
	return s, nil
}

// ensureCounter seeds the counter document so reservations never upsert.
func (s *Store) ensureCounter(ctx context.Context) error {
	_, err := s.counters.UpdateOne(ctx,
		bson.M{"_id": documentsCounterID},
		bson.M{"$setOnInsert": bson.M{"count": int64(0)}},
		options.Update().SetUpsert(true),
	)
	return err
}

// ReserveDocumentSlot atomically claims one slot under the document ceiling.
// Returns false when the ceiling is already reached.
func (s *Store) ReserveDocumentSlot(ctx context.Context) (bool, error) {
	res := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": documentsCounterID, "count": bson.M{"$lt": s.maxDocs}},
		bson.M{"$inc": bson.M{"count": int64(1)}},
	)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReleaseDocumentSlot returns a previously reserved slot, used when the
// pipeline fails before (or after) the Document row exists.
func (s *Store) ReleaseDocumentSlot(ctx context.Context) error {
	_, err := s.counters.UpdateOne(ctx,
		bson.M{"_id": documentsCounterID, "count": bson.M{"$gt": int64(0)}},
		bson.M{"$inc": bson.M{"count": int64(-1)}},
	)
	return err
}

// MaxDocs reports the configured document ceiling.
func (s *Store) MaxDocs() int64 { return s.maxDocs }

func (s *Store) InsertDocument(ctx context.Context, doc *models.Document) error {
	res, err := s.documents.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	cursor, err := s.documents.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]models.Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// InsertChunks inserts all chunk rows of one document in order.
func (s *Store) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]interface{}, len(chunks))
	for i := range chunks {
		rows[i] = chunks[i]
	}
	_, err := s.chunks.InsertMany(ctx, rows, options.InsertMany().SetOrdered(true))
	return err
}

// DeleteDocumentCascade removes a document together with its chunks and any
// query logs citing it, and releases its counter slot. Referential cleanup is
// an explicit pipeline step here, not a database constraint.
func (s *Store) DeleteDocumentCascade(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": id}); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := s.queryLogs.DeleteMany(ctx, bson.M{"top_sources.document_id": id}); err != nil {
		return fmt.Errorf("failed to delete query logs: %w", err)
	}

	res, err := s.documents.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	if err := s.ReleaseDocumentSlot(ctx); err != nil {
		// The document is gone; a stale counter only tightens the ceiling.
		logger.Warn("Failed to release document slot after delete", "document_id", id.Hex(), "error", err)
	}
	return nil
}

func (s *Store) InsertQueryLog(ctx context.Context, log *models.QueryLog) error {
	res, err := s.queryLogs.InsertOne(ctx, log)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		log.ID = oid
	}
	return nil
}

func (s *Store) ListQueryLogs(ctx context.Context, limit int64) ([]models.QueryLog, error) {
	cursor, err := s.queryLogs.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := make([]models.QueryLog, 0)
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
