package parcelhub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/parcelhub/model"
)

type parcelAudience struct {
	admin, agent, sender, other *fakeConn
}

func newParcelAudience(t *testing.T, h *testHub) parcelAudience {
	t.Helper()
	return parcelAudience{
		admin:  h.connect(t, "admin", "chrome", adminAlice),
		agent:  h.connect(t, "agent", "firefox", agentBob),
		sender: h.connect(t, "sender", "safari", custCarol),
		other:  h.connect(t, "other", "edge", custEve),
	}
}

func testParcel(status model.ParcelStatus) model.Parcel {
	return model.Parcel{
		ID:             "p-1",
		TrackingNumber: "TRK0001",
		SenderID:       custCarol.ID,
		AgentID:        agentBob.ID,
		Status:         status,
	}
}

func TestParcelCreated(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)

	h.ParcelCreated(testParcel(model.ParcelStatusPending))

	assert.Len(t, a.admin.Named(EventParcelNewBooking), 1)
	assert.Empty(t, a.sender.Named(EventParcelNewBooking))
	assert.Empty(t, a.agent.Named(EventParcelNewBooking))
}

func TestParcelStatusUpdated(t *testing.T) {
	tests := []struct {
		status     model.ParcelStatus
		senderGets []EventName
		agentGets  []EventName
	}{
		{model.ParcelStatusInTransit, nil, nil},
		{model.ParcelStatusPickedUp, []EventName{EventParcelPickedUp}, nil},
		{model.ParcelStatusDelivered, []EventName{EventParcelDelivered}, []EventName{EventParcelDelivered}},
		{model.ParcelStatusFailed, []EventName{EventParcelFailed}, []EventName{EventParcelFailed}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			h := newTestHub(t)
			a := newParcelAudience(t, h)

			h.ParcelStatusUpdated(testParcel(tt.status))

			for _, c := range []*fakeConn{a.admin, a.agent, a.sender} {
				assert.Len(t, c.Named(EventParcelStatusUpdated), 1, c.ID())
			}
			assert.Empty(t, a.other.Named(EventParcelStatusUpdated))

			assert.Equal(t, append([]EventName{EventConnectionSuccess, EventParcelStatusUpdated}, tt.senderGets...), a.sender.Names())
			assert.Equal(t, append([]EventName{EventConnectionSuccess, EventParcelStatusUpdated}, tt.agentGets...), a.agent.Names())
		})
	}
}

func TestParcelStatusUpdated_FailureReason(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)

	h.ParcelStatusUpdated(testParcel(model.ParcelStatusFailed))

	failed := a.sender.Named(EventParcelFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "Delivery attempt failed", failed[0].Data.(ParcelFailure).Reason)
}

func TestParcelStatusUpdated_WithoutAgent(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)
	p := testParcel(model.ParcelStatusDelivered)
	p.AgentID = ""

	h.ParcelStatusUpdated(p)

	assert.Empty(t, a.agent.Named(EventParcelStatusUpdated))
	assert.Len(t, a.sender.Named(EventParcelDelivered), 1)
}

func TestParcelAssigned(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)

	h.ParcelAssigned(testParcel(model.ParcelStatusPending), agentBob.ID)

	events := a.agent.Named(EventParcelAssigned)
	require.Len(t, events, 1)
	assert.Equal(t, agentBob.ID, events[0].Data.(ParcelAssignment).AgentID)
	assert.Len(t, a.admin.Named(EventParcelAssigned), 1)
	assert.Empty(t, a.sender.Named(EventParcelAssigned))
}

func TestParcelDeliveredAndLocation(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)
	p := testParcel(model.ParcelStatusDelivered)

	h.ParcelDelivered(p)
	h.ParcelLocationUpdated(p)

	for _, c := range []*fakeConn{a.admin, a.agent, a.sender} {
		assert.Len(t, c.Named(EventParcelDelivered), 1, c.ID())
		assert.Len(t, c.Named(EventParcelLocationUpdated), 1, c.ID())
	}
	assert.Empty(t, a.other.Named(EventParcelDelivered))
}

func TestPaymentReceived(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)

	h.PaymentReceived(testParcel(model.ParcelStatusDelivered), 42.5)

	events := a.admin.Named(EventPaymentReceived)
	require.Len(t, events, 1)
	assert.Equal(t, 42.5, events[0].Data.(PaymentReceipt).Amount)
	assert.Len(t, a.agent.Named(EventPaymentReceived), 1)
	assert.Empty(t, a.sender.Named(EventPaymentReceived))
}

func TestMarkUrgent_WithoutAgent(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)
	p := testParcel(model.ParcelStatusPending)
	p.AgentID = ""

	require.NoError(t, h.MarkUrgent(context.Background(), p))

	assert.Len(t, a.admin.Named(EventParcelUrgent), 1)
	assert.Equal(t, 0, h.repo.Len())
}

func TestMarkUrgent_PersistenceFailure(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)
	h.repo.saveErr = errors.New("disk full")

	err := h.MarkUrgent(context.Background(), testParcel(model.ParcelStatusInTransit))

	assert.True(t, IsPersistenceFailure(err))
	assert.Len(t, a.agent.Named(EventParcelUrgent), 1)
	assert.Empty(t, a.agent.Named(EventNotificationNew))
}

func TestRouteUpdatedAndSystemAlert(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)

	h.RouteUpdated(agentBob.ID, "route-7", 12)
	h.SystemAlert("Queue backlog", "")

	routes := a.agent.Named(EventRouteUpdated)
	require.Len(t, routes, 1)
	assert.Equal(t, RouteUpdate{RouteID: "route-7", ParcelsCount: 12}, routes[0].Data)

	alerts := a.admin.Named(EventSystemAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityInfo, alerts[0].Data.(SystemAlert).Level)
	assert.Empty(t, a.agent.Named(EventSystemAlert))
}

func TestSystemAlert_Levels(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)

	h.SystemAlert("disk full", model.SeverityError)
	h.SystemAlert("all good", model.SeveritySuccess)
	h.SystemAlert("odd", model.Severity("fatal"))

	var levels []model.Severity
	for _, e := range a.admin.Named(EventSystemAlert) {
		levels = append(levels, e.Data.(SystemAlert).Level)
	}
	assert.Equal(t, []model.Severity{model.SeverityError, model.SeverityInfo, model.SeverityInfo}, levels)
}

func TestNotifyRoleAndAll(t *testing.T) {
	h := newTestHub(t)
	a := newParcelAudience(t, h)

	assert.Equal(t, 1, h.NotifyRole(model.RoleAdmin, "admins only", model.SeverityWarning))
	assert.Equal(t, 0, h.NotifyRole(model.RoleAgent, "nobody listens", model.SeverityInfo))
	assert.Equal(t, 4, h.NotifyAll("maintenance tonight", ""))

	assert.Len(t, a.admin.Named(EventNotificationNew), 2)
	assert.Len(t, a.other.Named(EventNotificationNew), 1)
	assert.Equal(t, 0, h.repo.Len(), "role and broadcast notifications are not stored")
}
