package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/model"
)

// IdentityRepository implements parcelhub.IdentityRepository on MongoDB.
// Documents in parcelhub_users are written by the user service.
type IdentityRepository struct {
	db *mongo.Database
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// FindByID retrieves a user by ID.
func (r *IdentityRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.db.Collection(userCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if isNoDocuments(err) {
		return u, parcelhub.ErrNoData
	}
	if err != nil {
		return u, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to load user", err)
	}
	return u, nil
}
