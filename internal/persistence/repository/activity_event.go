package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type activityEventDocument struct {
	ID          string    `bson:"_id"`
	Node        int       `bson:"node"`
	UserID      string    `bson:"user_id"`
	Action      string    `bson:"action"`
	Description string    `bson:"description"`
	Origin      string    `bson:"origin,omitempty"`
	Timestamp   time.Time `bson:"timestamp"`
}

func toDocument(e *domain.ActivityEvent) activityEventDocument {
	return activityEventDocument{
		ID:          e.ID,
		Node:        e.Node,
		UserID:      e.UserID,
		Action:      string(e.Action),
		Description: e.Description,
		Origin:      e.Origin,
		Timestamp:   e.CreatedAt,
	}
}

func (d activityEventDocument) toDomain() domain.ActivityEvent {
	return domain.ActivityEvent{
		ID:          d.ID,
		Node:        d.Node,
		UserID:      d.UserID,
		Action:      domain.Action(d.Action),
		Description: d.Description,
		Origin:      d.Origin,
		CreatedAt:   d.Timestamp,
	}
}

type activityEventRepository struct {
	db *mongo.Database
}

// ActivityEventRepository is the Mongo store; EnsureIndexes runs once at startup.
type ActivityEventRepository interface {
	domain.ActivityRepository
	EnsureIndexes(ctx context.Context) error
}

func NewActivityEventRepository(db *mongo.Database) ActivityEventRepository {
	return &activityEventRepository{
		db: db,
	}
}

func (r *activityEventRepository) Append(ctx context.Context, event *domain.ActivityEvent) error {
	if event == nil || event.ID == "" {
		return domain.ErrInvalidInput
	}
	collection := r.db.Collection(db.ActivityEventsCollection)

	_, err := collection.InsertOne(ctx, toDocument(event))
	if mongo.IsDuplicateKeyError(err) {
		// Redelivered events are already stored.
		return nil
	}
	return err
}

func (r *activityEventRepository) Recent(ctx context.Context, limit int) ([]domain.ActivityEvent, error) {
	return r.find(ctx, bson.M{}, limit)
}

func (r *activityEventRepository) ByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityEvent, error) {
	return r.find(ctx, bson.M{"user_id": userID}, limit)
}

func (r *activityEventRepository) ByAction(ctx context.Context, action domain.Action, limit int) ([]domain.ActivityEvent, error) {
	return r.find(ctx, bson.M{"action": string(action)}, limit)
}

func (r *activityEventRepository) find(ctx context.Context, filter bson.M, limit int) ([]domain.ActivityEvent, error) {
	collection := r.db.Collection(db.ActivityEventsCollection)

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []activityEventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode activity events: %w", err)
	}

	events := make([]domain.ActivityEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toDomain())
	}
	return events, nil
}

func (r *activityEventRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.ActivityEventsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "action", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "node", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
