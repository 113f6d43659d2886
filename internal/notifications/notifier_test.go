package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "payload"))
	n.Notify(context.Background(), 1, Event{Type: EventFollowed, ActorID: 2})
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(uint, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:1", UserChannel(1))
	assert.Equal(t, "notifications:user:100", UserChannel(100))
}

func TestParseUserChannel(t *testing.T) {
	id, ok := parseUserChannel("notifications:user:42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"notifications:user:", "notifications:user:x", "chat:conv:1", "notifications:user:0"} {
		_, ok := parseUserChannel(bad)
		assert.False(t, ok, bad)
	}
}

func TestNotifier_DeliversToSubscriber(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type delivery struct {
		userID  uint
		payload string
	}
	got := make(chan delivery, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(userID uint, payload string) {
		got <- delivery{userID, payload}
	}))

	n.Notify(ctx, 7, Event{Type: EventPostLiked, ActorID: 3, ObjectID: 11})

	select {
	case d := <-got:
		assert.Equal(t, uint(7), d.userID)
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(d.payload), &ev))
		assert.Equal(t, EventPostLiked, ev.Type)
		assert.Equal(t, uint(3), ev.ActorID)
		assert.Equal(t, uint(11), ev.ObjectID)
		assert.False(t, ev.CreatedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotifier_SkipsSelfNotifications(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan uint, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(userID uint, _ string) { got <- userID }))

	n.Notify(ctx, 5, Event{Type: EventCommentCreated, ActorID: 5})
	n.Notify(ctx, 6, Event{Type: EventCommentCreated, ActorID: 5})

	select {
	case id := <-got:
		assert.Equal(t, uint(6), id)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
	assert.Never(t, func() bool { return len(got) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}
