package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/model"
	"github.com/coregx/relica"
)

// NotificationRepository implements parcelhub.NotificationRepository using Relica.
type NotificationRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewNotificationRepository creates a new NotificationRepository with default table prefix.
func NewNotificationRepository(sqlDB *sql.DB, driverName string) *NotificationRepository {
	return &NotificationRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: DefaultTablePrefix}
}

// NewNotificationRepositoryWithPrefix creates a new NotificationRepository with custom table prefix.
func NewNotificationRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *NotificationRepository {
	return &NotificationRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *NotificationRepository) tableName() string {
	return r.tablePrefix + "notification"
}

// Load retrieves a notification by ID.
func (r *NotificationRepository) Load(ctx context.Context, id int64) (model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return n, parcelhub.ErrNoData
	}
	if err != nil {
		return n, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to load notification", err)
	}
	return n, nil
}

// Save creates or updates a notification.
func (r *NotificationRepository) Save(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == 0 {
		// n.ID is auto-populated by Model().Insert()
		err := r.db.WithContext(ctx).Model(&n).Table(r.tableName()).Insert()
		if err != nil {
			return n, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to insert notification", err)
		}
		return n, nil
	}

	err := r.db.WithContext(ctx).Model(&n).Table(r.tableName()).Update()
	if err != nil {
		return n, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to update notification", err)
	}
	return n, nil
}

// FindByIdentity retrieves notifications of an identity, newest first.
func (r *NotificationRepository) FindByIdentity(ctx context.Context, identityID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	var notifications []model.Notification
	q := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("identity_id = ?", identityID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	// ids are assigned in insertion order, so id DESC is newest first
	q = q.OrderBy("id DESC")
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	err := q.WithContext(ctx).All(&notifications)
	if err != nil {
		return nil, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to find notifications", err)
	}
	if len(notifications) == 0 {
		return nil, parcelhub.ErrNoData
	}
	return notifications, nil
}

// CountUnread returns the number of unread notifications of an identity.
func (r *NotificationRepository) CountUnread(ctx context.Context, identityID string) (int, error) {
	// One scans into structs only
	var row struct {
		Count int64 `db:"count"`
	}
	err := r.db.WithContext(ctx).Select("COUNT(*) AS count").
		From(r.tableName()).
		Where("identity_id = ?", identityID).
		Where("is_read = ?", false).
		WithContext(ctx).
		One(&row)
	if err != nil {
		return 0, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to count unread notifications", err)
	}
	return int(row.Count), nil
}

// MarkRead sets the read flag of one notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	if _, err := r.Load(ctx, id); err != nil {
		return err
	}

	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"is_read": true,
		}).
		Where("id = ?", id).
		WithContext(ctx).
		Execute()
	if err != nil {
		return parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to mark notification as read", err)
	}
	return nil
}

// MarkAllRead sets the read flag of every unread notification of an identity.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, identityID string) error {
	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"is_read": true,
		}).
		Where("identity_id = ? AND is_read = ?", identityID, false).
		WithContext(ctx).
		Execute()
	if err != nil {
		return parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to mark notifications as read", err)
	}
	return nil
}

// Delete removes a notification.
func (r *NotificationRepository) Delete(ctx context.Context, id int64) error {
	n := model.Notification{ID: id}
	// Delete using Model() API - auto WHERE id = ?
	err := r.db.WithContext(ctx).Model(&n).Table(r.tableName()).Delete()
	if err != nil {
		return parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to delete notification", err)
	}
	return nil
}
