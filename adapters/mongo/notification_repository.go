package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/model"
)

// NotificationRepository implements parcelhub.NotificationRepository on MongoDB.
type NotificationRepository struct {
	db *mongo.Database
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) collection() *mongo.Collection {
	return r.db.Collection(notificationCollection)
}

// nextID atomically increments the notification counter.
func (r *NotificationRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.db.Collection(counterCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": notificationCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

// Save creates (ID=0) or replaces a notification.
func (r *NotificationRepository) Save(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == 0 {
		id, err := r.nextID(ctx)
		if err != nil {
			return n, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to allocate notification id", err)
		}
		n.ID = id
		if _, err := r.collection().InsertOne(ctx, n); err != nil {
			return n, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to insert notification", err)
		}
		return n, nil
	}

	res, err := r.collection().ReplaceOne(ctx, bson.M{"_id": n.ID}, n)
	if err != nil {
		return n, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to update notification", err)
	}
	if res.MatchedCount == 0 {
		return n, parcelhub.ErrNoData
	}
	return n, nil
}

// FindByIdentity retrieves notifications of an identity, newest first.
func (r *NotificationRepository) FindByIdentity(ctx context.Context, identityID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	filter := bson.M{"identityId": identityID}
	if unreadOnly {
		filter["read"] = false
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cur, err := r.collection().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to find notifications", err)
	}
	defer cur.Close(ctx)

	var notifications []model.Notification
	if err := cur.All(ctx, &notifications); err != nil {
		return nil, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to decode notifications", err)
	}
	if len(notifications) == 0 {
		return nil, parcelhub.ErrNoData
	}
	return notifications, nil
}

// CountUnread returns the number of unread notifications of an identity.
func (r *NotificationRepository) CountUnread(ctx context.Context, identityID string) (int, error) {
	count, err := r.collection().CountDocuments(ctx, bson.M{"identityId": identityID, "read": false})
	if err != nil {
		return 0, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to count unread notifications", err)
	}
	return int(count), nil
}

// MarkRead sets the read flag of one notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	res, err := r.collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to mark notification as read", err)
	}
	if res.MatchedCount == 0 {
		return parcelhub.ErrNoData
	}
	return nil
}

// MarkAllRead sets the read flag of every unread notification of an identity.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, identityID string) error {
	_, err := r.collection().UpdateMany(ctx,
		bson.M{"identityId": identityID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to mark notifications as read", err)
	}
	return nil
}

// Delete removes a notification. Unknown ids are ignored.
func (r *NotificationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.collection().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to delete notification", err)
	}
	return nil
}

// isNoDocuments reports whether err is the driver's empty-result error.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
