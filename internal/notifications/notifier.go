// Package notifications provides real-time notification delivery over Redis
// pub/sub and websockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"sociable/internal/middleware"
	"sociable/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	EventFollowed       = "followed"
	EventPostLiked      = "post_liked"
	EventCommentLiked   = "comment_liked"
	EventCommentCreated = "comment_created"
)

const userChannelPrefix = "notifications:user:"

// Event is the payload delivered to a user's sockets.
type Event struct {
	Type      string    `json:"type"`
	ActorID   uint      `json:"actor_id"`
	ObjectID  uint      `json:"object_id"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier publishes notifications into per-user Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// Notify publishes ev to recipientID. Events caused by the recipient are not
// sent. Failures are logged and never returned.
func (n *Notifier) Notify(ctx context.Context, recipientID uint, ev Event) {
	if n == nil || n.rdb == nil || recipientID == 0 || recipientID == ev.ActorID {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		observability.NotificationsPublished.WithLabelValues(ev.Type, "error").Inc()
		middleware.Logger.ErrorContext(ctx, "failed to encode notification", "type", ev.Type, "error", err)
		return
	}
	if err := n.PublishUser(ctx, recipientID, string(payload)); err != nil {
		observability.NotificationsPublished.WithLabelValues(ev.Type, "error").Inc()
		middleware.Logger.WarnContext(ctx, "failed to publish notification",
			"type", ev.Type, "recipient_id", recipientID, "error", err)
		return
	}
	observability.NotificationsPublished.WithLabelValues(ev.Type, "ok").Inc()
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(userID uint, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				userID, ok := parseUserChannel(msg.Channel)
				if !ok {
					middleware.Logger.Warn("invalid notification channel", "channel", msg.Channel)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(userID, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

func parseUserChannel(channel string) (uint, bool) {
	raw, found := strings.CutPrefix(channel, userChannelPrefix)
	if !found {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
