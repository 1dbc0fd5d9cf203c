package parcelhub

import (
	"context"

	"go.uber.org/multierr"

	"github.com/coregx/parcelhub/model"
)

// Hub is the real-time core: it authenticates connections, binds them to
// identities, keeps topic membership and fans domain events out to them.
//
// Transports call Connect when a client arrives, HandleInbound for every
// client message and Disconnect when the link drops. Application code calls
// the domain event methods (ParcelCreated, MarkUrgent, ...) and Notify.
type Hub struct {
	verifier      IdentityVerifier
	notifications NotificationRepository
	parcels       ParcelCommands
	logger        Logger
	metrics       Metrics
	backlogLimit  int

	registry    *Registry
	broadcaster *Broadcaster
	ledger      *Ledger
}

// NewHub creates a Hub with the provided options.
//
// Required options:
//   - WithVerifier: resolves credential tokens
//   - WithNotificationRepository: durable notification store
func NewHub(opts ...HubOption) (*Hub, error) {
	h := &Hub{
		logger:  &NoopLogger{},
		metrics: NoopMetrics{},
	}

	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply hub option", err)
		}
	}

	if h.verifier == nil {
		return nil, NewError(ErrCodeConfiguration, "IdentityVerifier is required (use WithVerifier)")
	}
	if h.notifications == nil {
		return nil, NewError(ErrCodeConfiguration, "NotificationRepository is required (use WithNotificationRepository)")
	}

	h.registry = NewRegistry(h.logger)
	h.broadcaster = NewBroadcaster(h.registry, h.logger, h.metrics)

	ledger, err := NewLedger(
		WithLedgerRepository(h.notifications),
		WithLedgerBroadcaster(h.broadcaster),
		WithLedgerLogger(h.logger),
		WithLedgerMetrics(h.metrics),
		WithLedgerBacklogLimit(h.backlogLimit),
	)
	if err != nil {
		return nil, err
	}
	h.ledger = ledger

	return h, nil
}

// Registry returns the connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Broadcaster returns the event broadcaster.
func (h *Hub) Broadcaster() *Broadcaster { return h.broadcaster }

// Ledger returns the notification ledger.
func (h *Hub) Ledger() *Ledger { return h.ledger }

// Notifications returns the notification store the hub writes to.
func (h *Hub) Notifications() NotificationRepository { return h.notifications }

// Connect authenticates conn with token and makes it live.
//
// The sequence is:
//  1. Resolve the token. On any failure the connection is closed without a
//     payload and the error is returned.
//  2. Bind the connection (evicting same-fingerprint connections) and join
//     its default topics.
//  3. Send connection:success, then the unread backlog as one
//     notifications:pending event.
//  4. Announce agents as online to admins.
//
// A failed backlog read is logged; the connection stays live. Steps 3 and 4
// are skipped once the connection has been replaced by a later one from the
// same client.
func (h *Hub) Connect(ctx context.Context, conn Conn, token string) (model.Identity, error) {
	if token == "" {
		h.reject(conn, ErrMissingToken)
		return model.Identity{}, ErrMissingToken
	}

	identity, err := h.verifier.Resolve(ctx, token)
	if err == nil {
		if verr := identity.Validate(); verr != nil {
			err = NewErrorWithCause(ErrCodeAuthentication, "resolved identity is invalid", verr)
		}
	}
	if err != nil {
		h.reject(conn, err)
		return model.Identity{}, err
	}

	result := h.registry.Bind(conn, identity)
	for _, dep := range result.Evicted {
		h.metrics.SessionEvicted()
		h.departed(dep)
	}
	h.metrics.ConnectionOpened(identity.Role)
	h.logger.Infof("Connection %s bound to %s (%s)", conn.ID(), identity.ID, identity.Role)

	if !h.isLive(conn.ID()) {
		h.logger.Infof("Connection %s was replaced while connecting", conn.ID())
		return identity, nil
	}

	h.broadcaster.EmitToConnection(conn.ID(), EventConnectionSuccess, ConnectionSuccess{
		IdentityID: identity.ID,
		Name:       identity.Name,
		Role:       identity.Role,
	})

	if _, err := h.ledger.FlushBacklog(ctx, conn.ID(), identity.ID); err != nil {
		h.logger.Errorf("Failed to deliver pending notifications to %s: %v", conn.ID(), err)
	}

	// The backlog read may block; a same-fingerprint connection can evict
	// conn meanwhile, and its departure has already announced the agent offline.
	if !h.isLive(conn.ID()) {
		h.logger.Infof("Connection %s was replaced while connecting", conn.ID())
		return identity, nil
	}

	if identity.Role == model.RoleAgent {
		h.announceOnline(conn.ID(), identity)
	}

	return identity, nil
}

// Disconnect tears a connection down: it leaves every topic, is removed from
// the registry and its binding set, and is closed. An agent left without a
// bound connection is announced offline.
//
// Disconnect is idempotent; it reports whether this call did the teardown.
func (h *Hub) Disconnect(connID string) bool {
	dep, ok := h.registry.Unregister(connID)
	if !ok {
		return false
	}
	if err := dep.Conn.Close(); err != nil {
		h.logger.Debugf("Close of %s after disconnect: %v", connID, err)
	}
	h.departed(dep)
	h.logger.Infof("Connection %s of %s disconnected", connID, dep.Identity.ID)
	return true
}

// Shutdown disconnects every live connection and returns the combined close errors.
func (h *Hub) Shutdown() error {
	var errs error
	for _, conn := range h.registry.All() {
		dep, ok := h.registry.Unregister(conn.ID())
		if !ok {
			continue
		}
		errs = multierr.Append(errs, dep.Conn.Close())
		h.metrics.ConnectionClosed(dep.Identity.Role)
	}
	h.logger.Info("Hub shut down")
	return errs
}

// Notify persists a notification for an identity and pushes it live.
// See Ledger.Notify.
func (h *Hub) Notify(ctx context.Context, identityID, message string, severity model.Severity, relatedEntityID string) (model.Notification, error) {
	return h.ledger.Notify(ctx, identityID, message, severity, relatedEntityID)
}

// OnlineAgents returns the agents that currently have a bound connection.
func (h *Hub) OnlineAgents() []model.Identity {
	var agents []model.Identity
	for _, identity := range h.registry.OnlineIdentities() {
		if identity.Role == model.RoleAgent {
			agents = append(agents, identity)
		}
	}
	return agents
}

func (h *Hub) isLive(connID string) bool {
	_, ok := h.registry.Lookup(connID)
	return ok
}

// announceOnline reports an agent online to admins. If conn departed while
// the event was going out, the offline event may have been emitted first;
// the announcement is then corrected so admins end on the registry's state.
func (h *Hub) announceOnline(connID string, agent model.Identity) {
	h.broadcaster.EmitToTopic(AdminTopic, EventAgentOnlineStatus, AgentPresence{
		AgentID:   agent.ID,
		AgentName: agent.Name,
		IsOnline:  true,
	})
	if h.isLive(connID) || h.registry.IsOnline(agent.ID) {
		return
	}
	h.broadcaster.EmitToTopic(AdminTopic, EventAgentOnlineStatus, AgentPresence{
		AgentID:   agent.ID,
		AgentName: agent.Name,
		IsOnline:  false,
	})
}

func (h *Hub) reject(conn Conn, err error) {
	h.metrics.AuthenticationFailed(errorCode(err))
	h.logger.Warnf("Rejected connection %s: %v", conn.ID(), err)
	if cerr := conn.Close(); cerr != nil {
		h.logger.Debugf("Close of rejected connection %s: %v", conn.ID(), cerr)
	}
}

// departed records a connection leaving and announces agents going offline.
func (h *Hub) departed(dep Departure) {
	h.metrics.ConnectionClosed(dep.Identity.Role)
	if dep.Identity.Role != model.RoleAgent || !dep.Unbound {
		return
	}
	h.broadcaster.EmitToTopic(AdminTopic, EventAgentOnlineStatus, AgentPresence{
		AgentID:   dep.Identity.ID,
		AgentName: dep.Identity.Name,
		IsOnline:  false,
	})
}
