package parcelhub

import (
	"sort"
	"strings"

	"github.com/coregx/parcelhub/model"
)

// Topic is a named broadcast group.
type Topic string

const (
	identityTopicPrefix = "identity:"
	roleTopicPrefix     = "role:"
)

// AdminTopic is the topic every admin connection joins.
var AdminTopic = RoleTopic(model.RoleAdmin)

// IdentityTopic returns the per-identity topic "identity:<id>".
func IdentityTopic(identityID string) Topic {
	return Topic(identityTopicPrefix + identityID)
}

// RoleTopic returns the per-role topic "role:<role>".
func RoleTopic(role model.Role) Topic {
	return Topic(roleTopicPrefix + string(role))
}

// IdentityID returns the identity id of an identity topic.
func (t Topic) IdentityID() (string, bool) {
	if !strings.HasPrefix(string(t), identityTopicPrefix) {
		return "", false
	}
	return strings.TrimPrefix(string(t), identityTopicPrefix), true
}

// DefaultTopics returns the topics a freshly bound connection joins:
// its identity topic, plus the role topic for privileged roles.
func DefaultTopics(identity model.Identity) []Topic {
	topics := []Topic{IdentityTopic(identity.ID)}
	if identity.Role.IsPrivileged() {
		topics = append(topics, RoleTopic(identity.Role))
	}
	return topics
}

// Join adds a connection to a topic. Joining twice is a no-op.
// Returns false if the connection is not registered.
func (r *Registry) Join(connID string, topic Topic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return false
	}
	r.joinLocked(connID, e, topic)
	return true
}

// Leave removes a connection from one topic.
func (r *Registry) Leave(connID string, topic Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(e.topics, topic)
	r.unindexLocked(connID, topic)
}

// LeaveAll removes a connection from every topic it joined.
// Safe on unknown connections and on empty membership.
func (r *Registry) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.conns[connID]; ok {
		r.leaveAllLocked(connID, e)
	}
}

// Topics returns the topics a connection has joined, sorted.
func (r *Registry) Topics(connID string) []Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil
	}
	out := make([]Topic, 0, len(e.topics))
	for t := range e.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Subscribers returns a snapshot of the connections joined to a topic.
func (r *Registry) Subscribers(topic Topic) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := sortedKeys(r.topics[topic])
	out := make([]Conn, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.conns[id].conn)
	}
	return out
}

// SubscribersOf returns a snapshot of the connections joined to any of the
// topics. A connection joined to several of them is returned once.
func (r *Registry) SubscribersOf(topics ...Topic) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	union := make(map[string]struct{})
	for _, topic := range topics {
		for id := range r.topics[topic] {
			union[id] = struct{}{}
		}
	}
	ids := sortedKeys(union)
	out := make([]Conn, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.conns[id].conn)
	}
	return out
}

func (r *Registry) joinLocked(connID string, e *entry, topic Topic) {
	e.topics[topic] = struct{}{}
	members, ok := r.topics[topic]
	if !ok {
		members = make(map[string]struct{})
		r.topics[topic] = members
	}
	members[connID] = struct{}{}
}

func (r *Registry) leaveAllLocked(connID string, e *entry) {
	for topic := range e.topics {
		r.unindexLocked(connID, topic)
	}
	e.topics = make(map[Topic]struct{})
}

func (r *Registry) unindexLocked(connID string, topic Topic) {
	members, ok := r.topics[topic]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.topics, topic)
	}
}
