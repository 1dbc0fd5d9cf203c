// Package mongo implements the parcelhub repositories on MongoDB.
//
// Notifications live in the "parcelhub_notifications" collection. Their integer
// ids come from a counter document in "parcelhub_counters", so ids keep the
// insertion order the ledger relies on for newest-first backlogs.
//
// Usage:
//
//	db, err := mongo.Connect(ctx, "mongodb://localhost:27017/parcelhub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	repos := mongo.NewRepositories(db)
//	if err := repos.EnsureIndexes(ctx); err != nil {
//	    log.Fatal(err)
//	}
package mongo
