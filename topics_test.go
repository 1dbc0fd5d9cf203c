package parcelhub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coregx/parcelhub/model"
)

func TestTopicNames(t *testing.T) {
	assert.Equal(t, Topic("identity:u-1"), IdentityTopic("u-1"))
	assert.Equal(t, Topic("role:admin"), AdminTopic)

	id, ok := IdentityTopic("u-1").IdentityID()
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)

	_, ok = AdminTopic.IdentityID()
	assert.False(t, ok)
}

func TestDefaultTopics(t *testing.T) {
	tests := []struct {
		name     string
		identity model.Identity
		expected []Topic
	}{
		{"admin", adminAlice, []Topic{IdentityTopic(adminAlice.ID), AdminTopic}},
		{"agent", agentBob, []Topic{IdentityTopic(agentBob.ID)}},
		{"customer", custCarol, []Topic{IdentityTopic(custCarol.ID)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultTopics(tt.identity))
		})
	}
}

func TestRegistry_JoinAndLeave(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(newFakeConn("c1", "a"), custCarol)

	assert.True(t, r.Join("c1", "custom"))
	assert.True(t, r.Join("c1", "custom"))
	assert.Len(t, r.Subscribers("custom"), 1)

	r.Leave("c1", "custom")
	assert.Empty(t, r.Subscribers("custom"))
	assert.Empty(t, r.Topics("c1"))
}

func TestRegistry_JoinUnknownConnection(t *testing.T) {
	r := NewRegistry(nil)

	assert.False(t, r.Join("ghost", AdminTopic))
	assert.Empty(t, r.Subscribers(AdminTopic))
}

func TestRegistry_LeaveAllIsSafe(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(newFakeConn("c1", "a"), adminAlice)

	r.LeaveAll("c1") // no memberships yet
	r.LeaveAll("ghost")

	r.Join("c1", AdminTopic)
	r.Join("c1", IdentityTopic(adminAlice.ID))
	r.LeaveAll("c1")

	assert.Empty(t, r.Topics("c1"))
	assert.Empty(t, r.Subscribers(AdminTopic))
	_, ok := r.Lookup("c1")
	assert.True(t, ok, "leaving topics keeps the registration")
}

func TestRegistry_SubscribersOfDeduplicates(t *testing.T) {
	r := NewRegistry(nil)
	r.Bind(newFakeConn("admin", "a"), adminAlice)
	r.Bind(newFakeConn("agent", "b"), agentBob)

	conns := r.SubscribersOf(AdminTopic, IdentityTopic(adminAlice.ID), IdentityTopic(agentBob.ID), "empty")

	assert.Len(t, conns, 2)
}
