package parcelhub

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coregx/parcelhub/model"
)

// fakeConn records every event it is sent.
type fakeConn struct {
	id          string
	fingerprint string

	mu         sync.Mutex
	events     []Event
	closed     bool
	closeCalls int
	sendErr    error
}

func newFakeConn(id, fingerprint string) *fakeConn {
	return &fakeConn{id: id, fingerprint: fingerprint}
}

func (c *fakeConn) ID() string          { return c.id }
func (c *fakeConn) Fingerprint() string { return c.fingerprint }

func (c *fakeConn) Send(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCalls++
	return nil
}

func (c *fakeConn) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) Named(name EventName) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) Names() []EventName {
	var out []EventName
	for _, e := range c.Events() {
		out = append(out, e.Name)
	}
	return out
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeNotificationRepo is an in-memory store with failure injection.
type fakeNotificationRepo struct {
	mu      sync.Mutex
	records map[int64]model.Notification
	nextID  int64
	saveErr error
	findErr error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{records: make(map[int64]model.Notification)}
}

func (r *fakeNotificationRepo) Save(_ context.Context, n model.Notification) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return model.Notification{}, r.saveErr
	}
	if n.ID == 0 {
		r.nextID++
		n.ID = r.nextID
	}
	r.records[n.ID] = n
	return n, nil
}

func (r *fakeNotificationRepo) FindByIdentity(_ context.Context, identityID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []model.Notification
	for _, n := range r.records {
		if n.IdentityID != identityID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, identityID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.records {
		if n.IdentityID == identityID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.records[id]
	if !ok {
		return ErrNoData
	}
	n.MarkRead()
	r.records[id] = n
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, identityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.records {
		if n.IdentityID == identityID {
			n.MarkRead()
			r.records[id] = n
		}
	}
	return nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *fakeNotificationRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// fakeIdentityRepo resolves users from a fixed map.
type fakeIdentityRepo map[string]model.User

func (r fakeIdentityRepo) FindByID(_ context.Context, id string) (model.User, error) {
	u, ok := r[id]
	if !ok {
		return model.User{}, ErrNoData
	}
	return u, nil
}

var (
	adminAlice = model.Identity{ID: "u-admin", Name: "Alice", Role: model.RoleAdmin}
	agentBob   = model.Identity{ID: "u-agent", Name: "Bob", Role: model.RoleAgent}
	custCarol  = model.Identity{ID: "u-cust", Name: "Carol", Role: model.RoleCustomer}
	custEve    = model.Identity{ID: "u-other", Name: "Eve", Role: model.RoleCustomer}
)

// tokenVerifier treats the token as the identity id.
func tokenVerifier(identities ...model.Identity) IdentityVerifier {
	byID := make(map[string]model.Identity, len(identities))
	for _, i := range identities {
		byID[i.ID] = i
	}
	return IdentityVerifierFunc(func(_ context.Context, token string) (model.Identity, error) {
		if token == "bad" {
			return model.Identity{}, NewError(ErrCodeAuthentication, "invalid token")
		}
		identity, ok := byID[token]
		if !ok {
			return model.Identity{}, NewErrorWithCause(ErrCodeIdentityNotFound, "identity not found", errors.New(token))
		}
		return identity, nil
	})
}

// recordingMetrics counts observations.
type recordingMetrics struct {
	NoopMetrics
	mu         sync.Mutex
	opened     int
	closed     int
	evicted    int
	authFailed []string
	persisted  int
	failed     int
	dropped    int
}

func (m *recordingMetrics) ConnectionOpened(model.Role) {
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
}

func (m *recordingMetrics) ConnectionClosed(model.Role) {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
}

func (m *recordingMetrics) SessionEvicted() {
	m.mu.Lock()
	m.evicted++
	m.mu.Unlock()
}

func (m *recordingMetrics) EventDropped(EventName) {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

func (m *recordingMetrics) NotificationFailed() {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
}

func (m *recordingMetrics) AuthenticationFailed(code string) {
	m.mu.Lock()
	m.authFailed = append(m.authFailed, code)
	m.mu.Unlock()
}

func (m *recordingMetrics) NotificationPersisted(model.Severity) {
	m.mu.Lock()
	m.persisted++
	m.mu.Unlock()
}

type testHub struct {
	*Hub
	repo    *fakeNotificationRepo
	metrics *recordingMetrics
}

func newTestHub(t *testing.T, opts ...HubOption) *testHub {
	t.Helper()
	repo := newFakeNotificationRepo()
	metrics := &recordingMetrics{}
	base := []HubOption{
		WithVerifier(tokenVerifier(adminAlice, agentBob, custCarol, custEve)),
		WithNotificationRepository(repo),
		WithMetrics(metrics),
	}
	hub, err := NewHub(append(base, opts...)...)
	require.NoError(t, err)
	return &testHub{Hub: hub, repo: repo, metrics: metrics}
}

func (h *testHub) connect(t *testing.T, id, fingerprint string, identity model.Identity) *fakeConn {
	t.Helper()
	conn := newFakeConn(id, fingerprint)
	_, err := h.Connect(context.Background(), conn, identity.ID)
	require.NoError(t, err)
	return conn
}
