package parcelhub

import "github.com/coregx/parcelhub/model"

// BindResult reports what Bind changed besides registering the new connection.
type BindResult struct {
	// Evicted lists the connections closed because they shared the new
	// connection's fingerprint.
	Evicted []Departure
}

// Bind registers conn for identity while enforcing one active session per
// browser fingerprint.
//
// Both phases run in one critical section:
//
//  1. Every other registered connection with the same fingerprint receives
//     session-replaced, leaves every topic, is closed and removed from the
//     registry and from its identity's binding set.
//  2. The identity's binding set becomes exactly {conn}, the connection is
//     registered and joins its default topics.
//
// Eviction is keyed on the fingerprint, not the identity: two tabs of one
// browser evict each other whichever account they use, while a second
// browser of the same account survives but no longer counts as a binding.
func (r *Registry) Bind(conn Conn, identity model.Identity) BindResult {
	connID := conn.ID()
	fingerprint := conn.Fingerprint()

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []*entry
	for id, e := range r.conns {
		if id == connID || e.conn.Fingerprint() != fingerprint {
			continue
		}
		if err := e.conn.Send(NewEvent(EventSessionReplaced, SessionReplaced{Message: sessionReplacedMessage})); err != nil {
			r.logger.Warnf("session-replaced not delivered to %s: %v", id, err)
		}
		r.leaveAllLocked(id, e)
		if err := e.conn.Close(); err != nil {
			r.logger.Warnf("Failed to close evicted connection %s: %v", id, err)
		}
		r.removeLocked(id)
		evicted = append(evicted, e)
		r.logger.Infof("Evicted connection %s of identity %s (fingerprint reused by %s)", id, e.identity.ID, connID)
	}

	r.registerLocked(conn, identity)
	delete(r.bindings, identity.ID)
	r.bindLocked(identity.ID, connID)
	e := r.conns[connID]
	for _, topic := range DefaultTopics(identity) {
		r.joinLocked(connID, e, topic)
	}

	result := BindResult{}
	for _, ev := range evicted {
		result.Evicted = append(result.Evicted, Departure{
			ConnID:   ev.conn.ID(),
			Conn:     ev.conn,
			Identity: ev.identity,
			Unbound:  len(r.bindings[ev.identity.ID]) == 0,
		})
	}
	return result
}
