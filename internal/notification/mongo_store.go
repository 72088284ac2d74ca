// internal/notification/mongo_store.go
package notification

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	notificationsCollection = "notifications"
	failuresCollection      = "notification_failures"
)

// mongoStore backs the Store interface with the platform's document store.
type mongoStore struct {
	notifications *mongo.Collection
	failures      *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{
		notifications: db.Collection(notificationsCollection),
		failures:      db.Collection(failuresCollection),
	}
}

// EnsureIndexes creates the unique jobId index that makes Save idempotent
// under at-least-once queue delivery, plus the recipient read index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(notificationsCollection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jobId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}
	return nil
}

// Save upserts on the job id. A redelivered job finds the existing record and
// returns it unchanged instead of inserting a duplicate.
func (s *mongoStore) Save(ctx context.Context, n Notification) (Notification, error) {
	res, err := s.notifications.UpdateOne(ctx,
		bson.M{"jobId": n.JobID},
		bson.M{"$setOnInsert": n},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return Notification{}, fmt.Errorf("save notification: %w", err)
	}

	if res.UpsertedCount > 0 {
		return n, nil
	}

	var existing Notification
	if err := s.notifications.FindOne(ctx, bson.M{"jobId": n.JobID}).Decode(&existing); err != nil {
		return Notification{}, fmt.Errorf("load existing notification: %w", err)
	}
	return existing, nil
}

func (s *mongoStore) LogFailure(ctx context.Context, entry FailureEntry) error {
	if _, err := s.failures.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("log dispatch failure: %w", err)
	}
	return nil
}

func (s *mongoStore) List(ctx context.Context, userID string, limit int64) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.notifications.Find(ctx,
		bson.M{"recipientId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	var out []Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return out, nil
}

func (s *mongoStore) MarkRead(ctx context.Context, userID, notifID string) error {
	res, err := s.notifications.UpdateOne(ctx,
		bson.M{"_id": notifID, "recipientId": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *mongoStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.notifications.CountDocuments(ctx, bson.M{"recipientId": userID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
