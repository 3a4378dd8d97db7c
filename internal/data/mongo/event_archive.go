// Package mongo provides the MongoDB archive for verbatim provider payloads.
// Every payload the sync touches is stored once, keyed by its provider event
// id, for audit and incident debugging.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/easner-transaction-sync/internal/reconciliation"
	"github.com/google/uuid"
)

const (
	// EventArchiveCollectionName is the name of the provider event archive
	// collection in MongoDB
	EventArchiveCollectionName = "provider_events"
)

// EventArchive implements reconciliation.EventArchiver for MongoDB
type EventArchive struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewEventArchive creates a new MongoDB event archive and ensures the
// event id index exists
func NewEventArchive(ctx context.Context, logger *slog.Logger, db *mongo.Database) (*EventArchive, error) {
	collection := db.Collection(EventArchiveCollectionName)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "source", Value: 1}, {Key: "event_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create event archive index: %w", err)
	}

	return &EventArchive{
		db:     db,
		logger: logger,
	}, nil
}

// Archive stores one provider payload. Replaying the same event is a no-op:
// the upsert keeps the first stored payload and refreshes nothing.
func (a *EventArchive) Archive(ctx context.Context, record *reconciliation.ArchiveRecord) error {
	collection := a.db.Collection(EventArchiveCollectionName)

	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}

	filter := bson.M{"source": record.Source, "event_id": record.EventID}
	update := bson.M{"$setOnInsert": record}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		a.logger.Error("Failed to archive provider event",
			"source", record.Source,
			"event_id", record.EventID,
			"error", err)
		return fmt.Errorf("failed to archive provider event: %w", err)
	}

	return nil
}

// ListByUser returns the archived payloads for one user, newest first
func (a *EventArchive) ListByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]*reconciliation.ArchiveRecord, error) {
	collection := a.db.Collection(EventArchiveCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		a.logger.Error("Failed to list archived provider events", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list archived provider events: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*reconciliation.ArchiveRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode archived provider events: %w", err)
	}

	return records, nil
}
