package parcelhub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/parcelhub/model"
)

func TestNewHub_RequiredOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []HubOption
	}{
		{"no options", nil},
		{"missing repository", []HubOption{WithVerifier(tokenVerifier())}},
		{"missing verifier", []HubOption{WithNotificationRepository(newFakeNotificationRepo())}},
		{"nil logger", []HubOption{
			WithVerifier(tokenVerifier()),
			WithNotificationRepository(newFakeNotificationRepo()),
			WithLogger(nil),
		}},
		{"negative backlog", []HubOption{
			WithVerifier(tokenVerifier()),
			WithNotificationRepository(newFakeNotificationRepo()),
			WithBacklogLimit(-5),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, err := NewHub(tt.opts...)
			assert.Nil(t, hub)
			require.Error(t, err)
			assert.True(t, HasCode(err, ErrCodeConfiguration))
		})
	}
}

func TestConnect_MissingToken(t *testing.T) {
	h := newTestHub(t)
	conn := newFakeConn("c1", "a")

	_, err := h.Connect(context.Background(), conn, "")

	assert.True(t, IsAuthenticationFailure(err))
	assert.True(t, conn.IsClosed())
	assert.Empty(t, conn.Events())
	assert.Equal(t, 0, h.Registry().Len())
	assert.Equal(t, []string{ErrCodeAuthentication}, h.metrics.authFailed)
}

func TestConnect_InvalidToken(t *testing.T) {
	h := newTestHub(t)
	conn := newFakeConn("c1", "a")

	_, err := h.Connect(context.Background(), conn, "bad")

	assert.True(t, IsAuthenticationFailure(err))
	assert.True(t, conn.IsClosed())
	assert.Empty(t, conn.Events())
}

func TestConnect_UnknownIdentity(t *testing.T) {
	h := newTestHub(t)
	conn := newFakeConn("c1", "a")

	_, err := h.Connect(context.Background(), conn, "deleted-user")

	assert.True(t, IsIdentityNotFound(err))
	assert.True(t, conn.IsClosed())
	assert.Empty(t, conn.Events())
	assert.Equal(t, 0, h.Registry().Len())
}

func TestConnect_InvalidResolvedIdentity(t *testing.T) {
	h := newTestHub(t, WithVerifier(IdentityVerifierFunc(func(context.Context, string) (model.Identity, error) {
		return model.Identity{ID: "x", Role: "superuser"}, nil
	})))
	conn := newFakeConn("c1", "a")

	_, err := h.Connect(context.Background(), conn, "token")

	assert.True(t, IsAuthenticationFailure(err))
	assert.True(t, conn.IsClosed())
}

func TestConnect_SuccessSequence(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := h.repo.Save(ctx, model.NewNotification(custCarol.ID, "waiting", model.SeverityInfo, ""))
		require.NoError(t, err)
	}

	conn := newFakeConn("c1", "firefox")
	identity, err := h.Connect(ctx, conn, custCarol.ID)

	require.NoError(t, err)
	assert.Equal(t, custCarol, identity)
	assert.Equal(t, []EventName{EventConnectionSuccess, EventNotificationsPending}, conn.Names())
	assert.Equal(t, ConnectionSuccess{IdentityID: custCarol.ID, Name: "Carol", Role: model.RoleCustomer}, conn.Events()[0].Data)
	assert.Equal(t, 3, conn.Events()[1].Data.(NotificationsPending).Count)
	assert.Equal(t, []string{"c1"}, h.Registry().ConnectionsOf(custCarol.ID))
	assert.Equal(t, 1, h.metrics.opened)
}

func TestConnect_BacklogFailureKeepsConnection(t *testing.T) {
	h := newTestHub(t)
	h.repo.findErr = errors.New("store down")

	conn := h.connect(t, "c1", "a", custCarol)

	assert.Equal(t, []EventName{EventConnectionSuccess}, conn.Names())
	assert.False(t, conn.IsClosed())
}

func TestConnect_AgentPresence(t *testing.T) {
	h := newTestHub(t)
	admin := h.connect(t, "admin", "chrome", adminAlice)

	h.connect(t, "agent", "firefox", agentBob)

	presence := admin.Named(EventAgentOnlineStatus)
	require.Len(t, presence, 1)
	assert.Equal(t, AgentPresence{AgentID: agentBob.ID, AgentName: "Bob", IsOnline: true}, presence[0].Data)
	assert.Equal(t, []model.Identity{agentBob}, h.OnlineAgents())
}

func TestConnect_EvictionAnnouncesAgentOffline(t *testing.T) {
	h := newTestHub(t)
	admin := h.connect(t, "admin", "chrome", adminAlice)
	agent := h.connect(t, "agent", "firefox", agentBob)

	h.connect(t, "cust", "firefox", custCarol)

	assert.True(t, agent.IsClosed())
	assert.Equal(t, EventSessionReplaced, agent.Events()[len(agent.Events())-1].Name)
	presence := admin.Named(EventAgentOnlineStatus)
	require.Len(t, presence, 2)
	assert.False(t, presence[1].Data.(AgentPresence).IsOnline)
	assert.Equal(t, 1, h.metrics.evicted)
	assert.Empty(t, h.Registry().ConnectionsOf(agentBob.ID))
}

func TestConnect_SecondTabNoOfflineFlap(t *testing.T) {
	h := newTestHub(t)
	admin := h.connect(t, "admin", "chrome", adminAlice)
	h.connect(t, "tab1", "firefox", agentBob)

	h.connect(t, "tab2", "firefox", agentBob)

	var states []bool
	for _, e := range admin.Named(EventAgentOnlineStatus) {
		states = append(states, e.Data.(AgentPresence).IsOnline)
	}
	assert.Equal(t, []bool{true, true}, states)
}

func TestDisconnect_Idempotent(t *testing.T) {
	h := newTestHub(t)
	admin := h.connect(t, "admin", "chrome", adminAlice)
	agent := h.connect(t, "agent", "firefox", agentBob)

	assert.True(t, h.Disconnect("agent"))
	assert.False(t, h.Disconnect("agent"))
	assert.False(t, h.Disconnect("never-existed"))

	assert.True(t, agent.IsClosed())
	offline := 0
	for _, e := range admin.Named(EventAgentOnlineStatus) {
		if !e.Data.(AgentPresence).IsOnline {
			offline++
		}
	}
	assert.Equal(t, 1, offline)
	assert.Empty(t, h.Registry().Subscribers(IdentityTopic(agentBob.ID)))
	assert.Empty(t, h.OnlineAgents())
}

func TestDisconnect_AgentWithRemainingSession(t *testing.T) {
	h := newTestHub(t)
	admin := h.connect(t, "admin", "chrome", adminAlice)
	h.connect(t, "a1", "firefox", agentBob)
	h.Registry().Register(newFakeConn("a2", "safari"), agentBob)

	h.Disconnect("a1")

	for _, e := range admin.Named(EventAgentOnlineStatus) {
		assert.True(t, e.Data.(AgentPresence).IsOnline)
	}
}

func TestShutdown(t *testing.T) {
	h := newTestHub(t)
	a := h.connect(t, "a", "1", adminAlice)
	b := h.connect(t, "b", "2", custCarol)

	require.NoError(t, h.Shutdown())

	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
	assert.Equal(t, 0, h.Registry().Len())
}

func TestHub_NotifyDelegatesToLedger(t *testing.T) {
	h := newTestHub(t)
	conn := h.connect(t, "c1", "a", custCarol)

	n, err := h.Notify(context.Background(), custCarol.ID, "hello", "", "")

	require.NoError(t, err)
	assert.Equal(t, model.SeverityInfo, n.Severity)
	assert.Len(t, conn.Named(EventNotificationNew), 1)
	assert.Equal(t, 1, h.metrics.persisted)
}

// Agent online, admin marks a parcel assigned to the agent urgent.
func TestScenario_UrgentParcelReachesAgent(t *testing.T) {
	h := newTestHub(t)
	admin := h.connect(t, "admin", "chrome", adminAlice)
	agent := h.connect(t, "agent", "firefox", agentBob)
	parcel := model.Parcel{ID: "p-42", TrackingNumber: "TRK42", SenderID: custCarol.ID, AgentID: agentBob.ID}

	require.NoError(t, h.MarkUrgent(context.Background(), parcel))

	urgent := agent.Named(EventParcelUrgent)
	require.Len(t, urgent, 1)
	assert.Equal(t, UrgentParcel{Parcel: parcel, Priority: "high"}, urgent[0].Data)

	notes := agent.Named(EventNotificationNew)
	require.Len(t, notes, 1)
	note := notes[0].Data.(NotificationNew)
	assert.Equal(t, model.SeverityWarning, note.Severity)
	assert.Equal(t, "p-42", note.RelatedEntityID)

	assert.Len(t, admin.Named(EventParcelUrgent), 1)
	assert.Empty(t, admin.Named(EventNotificationNew))
	assert.Equal(t, 1, h.repo.Len())
}

// blockingNotificationRepo parks backlog reads for one identity until released.
type blockingNotificationRepo struct {
	*fakeNotificationRepo
	identityID string
	entered    chan struct{}
	release    chan struct{}
}

func (r *blockingNotificationRepo) FindByIdentity(ctx context.Context, identityID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if identityID == r.identityID {
		close(r.entered)
		<-r.release
	}
	return r.fakeNotificationRepo.FindByIdentity(ctx, identityID, unreadOnly, limit)
}

func TestConnect_ReplacedDuringBacklogStaysOffline(t *testing.T) {
	repo := &blockingNotificationRepo{
		fakeNotificationRepo: newFakeNotificationRepo(),
		identityID:           agentBob.ID,
		entered:              make(chan struct{}),
		release:              make(chan struct{}),
	}
	_, err := repo.Save(context.Background(), model.Notification{
		IdentityID: agentBob.ID,
		Message:    "Parcel P-1 delayed",
		Severity:   model.SeverityWarning,
	})
	require.NoError(t, err)

	h := newTestHub(t, WithNotificationRepository(repo))
	admin := h.connect(t, "admin", "chrome", adminAlice)

	agent := newFakeConn("agent", "shared-ua")
	done := make(chan error, 1)
	go func() {
		_, err := h.Connect(context.Background(), agent, agentBob.ID)
		done <- err
	}()
	<-repo.entered

	h.connect(t, "cust", "shared-ua", custCarol)
	close(repo.release)
	require.NoError(t, <-done)

	var states []bool
	for _, e := range admin.Named(EventAgentOnlineStatus) {
		states = append(states, e.Data.(AgentPresence).IsOnline)
	}
	require.NotEmpty(t, states)
	assert.False(t, states[len(states)-1])
	assert.NotContains(t, states, true)
	assert.False(t, h.Registry().IsOnline(agentBob.ID))
	assert.True(t, agent.IsClosed())
	assert.Empty(t, agent.Named(EventNotificationsPending))
}
