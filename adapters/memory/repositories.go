// Package memory provides in-process repository implementations for tests,
// examples and single-node deployments that can afford to lose notifications
// on restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/model"
)

var (
	_ parcelhub.NotificationRepository = (*NotificationRepository)(nil)
	_ parcelhub.IdentityRepository     = (*IdentityRepository)(nil)
)

// NotificationRepository keeps notifications in a map. Safe for concurrent use.
type NotificationRepository struct {
	mu      sync.RWMutex
	records map[int64]model.Notification
	nextID  int64
}

// NewNotificationRepository creates an empty store.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{records: make(map[int64]model.Notification)}
}

// Save creates (ID=0) or replaces a notification.
func (r *NotificationRepository) Save(_ context.Context, n model.Notification) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == 0 {
		r.nextID++
		n.ID = r.nextID
	} else if _, ok := r.records[n.ID]; !ok {
		return n, parcelhub.ErrNoData
	}
	r.records[n.ID] = n
	return n, nil
}

// FindByIdentity returns the notifications of an identity, newest first.
func (r *NotificationRepository) FindByIdentity(_ context.Context, identityID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Notification
	for _, n := range r.records {
		if n.IdentityID != identityID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, parcelhub.ErrNoData
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountUnread returns the number of unread notifications of an identity.
func (r *NotificationRepository) CountUnread(_ context.Context, identityID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.records {
		if n.IdentityID == identityID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead sets the read flag of one notification.
func (r *NotificationRepository) MarkRead(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.records[id]
	if !ok {
		return parcelhub.ErrNoData
	}
	n.MarkRead()
	r.records[id] = n
	return nil
}

// MarkAllRead sets the read flag of every notification of an identity.
func (r *NotificationRepository) MarkAllRead(_ context.Context, identityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.records {
		if n.IdentityID == identityID && !n.IsRead {
			n.MarkRead()
			r.records[id] = n
		}
	}
	return nil
}

// Delete removes a notification. Unknown ids are ignored.
func (r *NotificationRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)
	return nil
}

// IdentityRepository keeps users in a map. Safe for concurrent use.
type IdentityRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

// NewIdentityRepository creates a store seeded with users.
func NewIdentityRepository(users ...model.User) *IdentityRepository {
	r := &IdentityRepository{users: make(map[string]model.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

// Put adds or replaces a user.
func (r *IdentityRepository) Put(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// FindByID retrieves a user by ID.
func (r *IdentityRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, parcelhub.ErrNoData
	}
	return u, nil
}
