package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(1, nil)
	require.NoError(t, err)
	other, err := hub.Register(2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.ConnectionCount(1))

	hub.Broadcast(1, `{"type":"followed"}`)
	assert.Equal(t, `{"type":"followed"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"followed"}`, string(<-b.Send))
	assert.Empty(t, other.Send)

	hub.Unregister(a)
	hub.Unregister(a)
	assert.Equal(t, 1, hub.ConnectionCount(1))
	_, open := <-a.Send
	assert.False(t, open)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Zero(t, hub.ConnectionCount(1))
	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(9, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(9, nil)
	assert.ErrorIs(t, err, ErrUserFull)
	_ = hub.Shutdown(context.Background())
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+5; i++ {
		c.TrySend([]byte("x"))
	}
	assert.Len(t, c.Send, sendBuffer)

	hub.Unregister(c)
	assert.False(t, c.TrySend([]byte("late")))
}

func TestHub_StartWiringForwardsToUser(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := hub.Register(4, nil)
	require.NoError(t, err)
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishUser(ctx, 4, "hello"))
	select {
	case msg := <-c.Send:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("message not forwarded")
	}
}
