package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/coregx/parcelhub"
)

// DefaultDatabase is used when the connection string carries no database name.
const DefaultDatabase = "parcelhub"

// Connect opens a client for dsn, pings the primary and returns the database
// named in the connection string.
func Connect(ctx context.Context, dsn string, opts ...*options.ClientOptions) (*mongo.Database, error) {
	connDSN, err := connstring.ParseAndValidate(dsn)
	if err != nil {
		return nil, parcelhub.NewErrorWithCause(parcelhub.ErrCodeConfiguration, "invalid mongodb connection string", err)
	}

	clientOpts := []*options.ClientOptions{
		options.Client().ApplyURI(connDSN.String()),
		options.Client().SetConnectTimeout(10 * time.Second),
		options.Client().SetServerSelectionTimeout(10 * time.Second),
	}
	clientOpts = append(clientOpts, opts...)

	client, err := mongo.Connect(ctx, clientOpts...)
	if err != nil {
		return nil, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "mongodb connect failed", err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "mongodb ping failed", err)
	}

	name := connDSN.Database
	if name == "" {
		name = DefaultDatabase
	}
	return client.Database(name), nil
}
