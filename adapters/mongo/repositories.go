package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coregx/parcelhub"
)

const (
	notificationCollection = "parcelhub_notifications"
	userCollection         = "parcelhub_users"
	counterCollection      = "parcelhub_counters"
)

var (
	_ parcelhub.NotificationRepository = (*NotificationRepository)(nil)
	_ parcelhub.IdentityRepository     = (*IdentityRepository)(nil)
)

// Repositories holds the MongoDB repository implementations.
type Repositories struct {
	Notification *NotificationRepository
	Identity     *IdentityRepository
}

// NewRepositories creates all repositories on db.
func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Notification: NewNotificationRepository(db),
		Identity:     NewIdentityRepository(db),
	}
}

// EnsureIndexes creates the indexes the repositories query by.
// Existing indexes are left untouched.
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, r.Notification.db, notificationCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "identityId", Value: 1}, {Key: "read", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("identity_read_id"),
		},
	})
}

func ensureIndexes(ctx context.Context, db *mongo.Database, collection string, models []mongo.IndexModel) error {
	indexView := db.Collection(collection).Indexes()

	cur, err := indexView.List(ctx)
	if err != nil {
		return parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to list indexes", err)
	}
	defer cur.Close(ctx)

	existing := make(map[string]bool)
	for cur.Next(ctx) {
		var idx struct {
			Name string `bson:"name"`
		}
		if err := cur.Decode(&idx); err == nil {
			existing[idx.Name] = true
		}
	}

	for _, m := range models {
		if m.Options != nil && m.Options.Name != nil && existing[*m.Options.Name] {
			continue
		}
		if _, err := indexView.CreateOne(ctx, m); err != nil {
			return parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to create index on "+collection, err)
		}
	}
	return nil
}
