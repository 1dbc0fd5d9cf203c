package parcelhub

import (
	"sort"
	"sync"

	"github.com/coregx/parcelhub/model"
)

// entry is the registry's view of one live connection.
type entry struct {
	conn     Conn
	identity model.Identity
	topics   map[Topic]struct{}
}

// Registry tracks live connections, the identity each is bound to, the
// session bindings per identity and topic membership.
//
// A single RWMutex guards all three indexes so that eviction, binding and
// topic changes are observed atomically by readers. Conn.Send and Conn.Close
// are non-blocking, so they may be called while the lock is held.
//
// Registry is safe for concurrent use. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]*entry
	bindings map[string]map[string]struct{}
	topics   map[Topic]map[string]struct{}
	logger   Logger
}

// Departure describes a connection removed from the registry.
type Departure struct {
	ConnID   string
	Conn     Conn
	Identity model.Identity
	// Unbound reports that the identity has no bound connection left.
	Unbound bool
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger Logger) *Registry {
	logger = loggerOrNoop(logger)
	return &Registry{
		conns:    make(map[string]*entry),
		bindings: make(map[string]map[string]struct{}),
		topics:   make(map[Topic]map[string]struct{}),
		logger:   logger,
	}
}

// Register adds a connection bound to identity without joining any topic and
// without evicting anything. Registering an already known connection id
// moves it to the new identity and drops its topic memberships.
//
// Most callers want Bind, which also enforces the single-session rule.
func (r *Registry) Register(conn Conn, identity model.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registerLocked(conn, identity)
	r.bindLocked(identity.ID, conn.ID())
}

// Unregister removes a connection from every topic, from its identity's
// binding set and from the registry. The connection itself is not closed.
//
// Unregister is idempotent: unknown ids return ok=false.
func (r *Registry) Unregister(connID string) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.removeLocked(connID)
	if !ok {
		return Departure{}, false
	}
	return Departure{
		ConnID:   connID,
		Conn:     e.conn,
		Identity: e.identity,
		Unbound:  len(r.bindings[e.identity.ID]) == 0,
	}, true
}

// Lookup returns the identity bound to a connection.
func (r *Registry) Lookup(connID string) (model.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return model.Identity{}, false
	}
	return e.identity, true
}

// Connection returns the live connection with the given id.
func (r *Registry) Connection(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// ConnectionsOf returns the ids of the connections bound to an identity, sorted.
func (r *Registry) ConnectionsOf(identityID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.bindings[identityID])
}

// IsOnline reports whether an identity has at least one bound connection.
func (r *Registry) IsOnline(identityID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bindings[identityID]) > 0
}

// OnlineIdentities returns every identity with at least one bound connection,
// sorted by id.
func (r *Registry) OnlineIdentities() []model.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.bindings))
	for id, set := range r.bindings {
		if len(set) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]model.Identity, 0, len(ids))
	for _, id := range ids {
		for connID := range r.bindings[id] {
			out = append(out, r.conns[connID].identity)
			break
		}
	}
	return out
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.conn)
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

func (r *Registry) registerLocked(conn Conn, identity model.Identity) {
	if _, ok := r.conns[conn.ID()]; ok {
		r.removeLocked(conn.ID())
	}
	r.conns[conn.ID()] = &entry{
		conn:     conn,
		identity: identity,
		topics:   make(map[Topic]struct{}),
	}
}

func (r *Registry) bindLocked(identityID, connID string) {
	set, ok := r.bindings[identityID]
	if !ok {
		set = make(map[string]struct{})
		r.bindings[identityID] = set
	}
	set[connID] = struct{}{}
}

// removeLocked is the single teardown path shared by eviction and disconnect.
func (r *Registry) removeLocked(connID string) (*entry, bool) {
	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}

	r.leaveAllLocked(connID, e)
	delete(r.conns, connID)

	if set, ok := r.bindings[e.identity.ID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.bindings, e.identity.ID)
		}
	}
	return e, true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
