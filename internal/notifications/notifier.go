// Package notifications publishes forum domain events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"forum/internal/middleware"
	"forum/internal/observability"

	"github.com/redis/go-redis/v9"
)

// EventsChannel carries every forum event.
const EventsChannel = "forum:events"

// Event types.
const (
	PostCreated      = "post_created"
	PostUpdated      = "post_updated"
	PostDeleted      = "post_deleted"
	CommentCreated   = "comment_created"
	CommentUpdated   = "comment_updated"
	CommentDeleted   = "comment_deleted"
	TopicCreated     = "topic_created"
	TopicUpdated     = "topic_updated"
	TopicDeleted     = "topic_deleted"
	UserRolesChanged = "user_roles_changed"
)

// Event is the JSON payload published on EventsChannel.
type Event struct {
	Type       string    `json:"type"`
	ResourceID string    `json:"resource_id"`
	ActorID    string    `json:"actor_id"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier provides helpers to publish events into Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends the event to EventsChannel.
func (n *Notifier) Publish(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, EventsChannel, payload).Err()
}

// Emit publishes the event and only logs failures. Request handling never
// depends on delivery.
func (n *Notifier) Emit(ctx context.Context, ev Event) {
	if n == nil || n.rdb == nil {
		return
	}
	if err := n.Publish(ctx, ev); err != nil {
		observability.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			"event_type", ev.Type,
			"resource_id", ev.ResourceID,
			"error", err,
		)
		return
	}
	observability.EventsPublished.WithLabelValues(ev.Type, "ok").Inc()
}

// StartSubscriber subscribes to EventsChannel and calls onEvent for each
// decodable message until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onEvent func(Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
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
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed event", "error", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in event subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
