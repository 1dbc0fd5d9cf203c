package parcelhub

import (
	"context"

	"github.com/coregx/parcelhub/model"
)

// NotificationRepository defines the persistence interface for notification records.
// The hub only creates records and reads the unread backlog; the remaining methods
// serve the notification CRUD endpoints.
//
// Implementations must be safe for concurrent use.
type NotificationRepository interface {
	// Save creates a new record (if ID=0) or updates an existing one.
	// Returns the saved record with populated ID.
	Save(ctx context.Context, n model.Notification) (model.Notification, error)

	// FindByIdentity retrieves records addressed to an identity, newest first.
	// When unreadOnly is set only unread records are returned.
	// A limit <= 0 means no limit. Returns ErrNoData if none found.
	FindByIdentity(ctx context.Context, identityID string, unreadOnly bool, limit int) ([]model.Notification, error)

	// CountUnread returns the number of unread records for an identity.
	CountUnread(ctx context.Context, identityID string) (int, error)

	// MarkRead sets the read flag of one record.
	MarkRead(ctx context.Context, id int64) error

	// MarkAllRead sets the read flag of every unread record of an identity.
	MarkAllRead(ctx context.Context, identityID string) error

	// Delete permanently removes a record.
	Delete(ctx context.Context, id int64) error
}

// IdentityRepository defines the read access to the external user store.
type IdentityRepository interface {
	// FindByID retrieves a user by ID.
	// Returns ErrNoData if not found.
	FindByID(ctx context.Context, id string) (model.User, error)
}
