package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/order-platform/internal/core/domain"
)

const collectionOrderEvents = "order_events"

// EventRepository implements ports.OrderEventRepository using MongoDB.
type EventRepository struct {
	col *mongo.Collection
	now func() time.Time
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{
		col: db.Collection(collectionOrderEvents),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type mongoOrderEvent struct {
	ID          string    `bson:"_id"`
	OrderID     string    `bson:"order_id"`
	OwnerID     string    `bson:"owner_id"`
	ActorID     string    `bson:"actor_id"`
	From        string    `bson:"from,omitempty"`
	To          string    `bson:"to"`
	Timestamp   time.Time `bson:"timestamp"`
	ProcessedAt time.Time `bson:"processed_at"`
}

// eventID is deterministic: an order enters each status at most once, so a
// redelivered event collides on _id instead of duplicating the trail.
func eventID(e domain.OrderEvent) string {
	return e.OrderID + ":" + string(e.To)
}

// InsertEvent persists an order event to the order_events audit collection.
func (r *EventRepository) InsertEvent(ctx context.Context, e domain.OrderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoOrderEvent{
		ID:          eventID(e),
		OrderID:     e.OrderID,
		OwnerID:     e.OwnerID,
		ActorID:     e.ActorID,
		From:        string(e.From),
		To:          string(e.To),
		Timestamp:   e.Timestamp.UTC(),
		ProcessedAt: r.now(),
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the order_events collection.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}
