// Package notifications fans newly shipped posts out to live-feed websockets
// through Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"shiplog/internal/middleware"
	"shiplog/internal/models"

	"github.com/redis/go-redis/v9"
)

// FeedChannel carries every created post.
const FeedChannel = "feed:posts"

// EventPostCreated is the only feed event type.
const EventPostCreated = "post_created"

// FeedEvent is the JSON envelope written to feed sockets.
type FeedEvent struct {
	Type    string      `json:"type"`
	Payload models.Post `json:"payload"`
}

// Notifier publishes feed events into Redis. Without a client it does nothing.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishPost announces a created post.
func (n *Notifier) PublishPost(ctx context.Context, post *models.Post) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(FeedEvent{Type: EventPostCreated, Payload: *post})
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	return n.rdb.Publish(ctx, FeedChannel, payload).Err()
}

// StartFeedSubscriber calls onMessage for each feed payload until ctx ends.
func (n *Notifier) StartFeedSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, FeedChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", FeedChannel, err)
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
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in feed subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
