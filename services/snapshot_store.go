package services

import (
	"context"
	"fmt"
	"time"

	"qa-agent/internal/rag"
	"qa-agent/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SnapshotStore persists index entries to the kb_chunks collection so a
// restarted process can serve retrieval without rebuilding.
type SnapshotStore struct {
	chunks *mongo.Collection
}

func NewSnapshotStore(db *mongo.Database) *SnapshotStore {
	return &SnapshotStore{
		chunks: db.Collection("kb_chunks"),
	}
}

// Save replaces the persisted snapshot with the given entries and
// returns the write timestamp. Entries are upserted by chunk ID and
// stale documents from a previous snapshot are removed afterwards.
func (s *SnapshotStore) Save(ctx context.Context, entries []rag.Entry) (time.Time, error) {
	now := time.Now().UTC()

	if len(entries) == 0 {
		_, err := s.chunks.DeleteMany(ctx, bson.M{})
		return now, err
	}

	batch := make([]mongo.WriteModel, 0, len(entries))
	ids := make([]string, 0, len(entries))

	for i, entry := range entries {
		doc := models.KBChunk{
			ChunkID:  entry.ID,
			Source:   entry.Chunk.Source,
			Position: i,
			Index:    entry.Chunk.Index,
			Start:    entry.Chunk.Start,
			End:      entry.Chunk.End,
			Text:     entry.Chunk.Text,
			Vector:   entry.Vector,
			SavedAt:  now,
		}

		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"chunk_id": entry.ID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
		ids = append(ids, entry.ID)
	}

	if _, err := s.chunks.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false)); err != nil {
		return time.Time{}, fmt.Errorf("failed to write snapshot: %w", err)
	}

	// Drop entries that are no longer part of the index
	if _, err := s.chunks.DeleteMany(ctx, bson.M{"chunk_id": bson.M{"$nin": ids}}); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// LatestSavedAt returns the timestamp of the most recent persisted
// write, or the zero time when no snapshot exists. Used to detect a
// snapshot written by another process, such as the queue worker.
func (s *SnapshotStore) LatestSavedAt(ctx context.Context) (time.Time, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "saved_at", Value: -1}})

	var doc models.KBChunk
	err := s.chunks.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return doc.SavedAt, nil
}

// Load returns the persisted entries in their original insertion order.
func (s *SnapshotStore) Load(ctx context.Context) ([]rag.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})

	cursor, err := s.chunks.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.KBChunk
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	entries := make([]rag.Entry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, rag.Entry{
			ID: doc.ChunkID,
			Chunk: rag.Chunk{
				Source: doc.Source,
				Index:  doc.Index,
				Start:  doc.Start,
				End:    doc.End,
				Text:   doc.Text,
			},
			Vector: doc.Vector,
		})
	}

	return entries, nil
}

// Drop removes the persisted snapshot entirely.
func (s *SnapshotStore) Drop(ctx context.Context) error {
	_, err := s.chunks.DeleteMany(ctx, bson.M{})
	return err
}
