package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/parcelhub"
)

func TestConn_SendQueue(t *testing.T) {
	cfg := defaultConfig()
	cfg.sendBuffer = 1
	c := newConn("c-1", "browser-a", nil, cfg)

	event := parcelhub.NewEvent(parcelhub.EventSystemAlert, parcelhub.SystemAlert{Message: "hi"})
	require.NoError(t, c.Send(event))
	assert.ErrorIs(t, c.Send(event), parcelhub.ErrSendQueueFull)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(event), parcelhub.ErrConnectionClosed)

	queued, ok := <-c.send
	assert.True(t, ok)
	assert.JSONEq(t, `{"event":"system:alert","data":{"message":"hi","level":""}}`, string(queued))
	_, ok = <-c.send
	assert.False(t, ok)
}

func TestConn_Identity(t *testing.T) {
	c := newConn("c-1", "", nil, defaultConfig())
	assert.Equal(t, "c-1", c.ID())
	assert.Equal(t, "", c.Fingerprint())
}
