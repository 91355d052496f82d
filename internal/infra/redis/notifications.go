package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/minhvu/snapcal/internal/core/domain"
)

const notificationTopic = "analysis:notifications"

func notificationKey(jobID string) string {
	return fmt.Sprintf("analysis:notify:%s", jobID)
}

// notificationEvent is what subscribers receive on the pub/sub topic.
type notificationEvent struct {
	JobID   string                      `json:"job_id"`
	Cleared bool                        `json:"cleared,omitempty"`
	Content *domain.NotificationContent `json:"content,omitempty"`
}

// NotificationChannel publishes notification content keyed by job id.
// The latest content per job is kept in a plain key (last write wins) and
// every change is broadcast on a pub/sub topic for live subscribers.
type NotificationChannel struct {
	client *Client
}

// NewNotificationChannel creates a redis-backed notification channel.
func NewNotificationChannel(client *Client) *NotificationChannel {
	return &NotificationChannel{client: client}
}

// Post stores and broadcasts the notification for a job.
func (n *NotificationChannel) Post(ctx context.Context, jobID string, content domain.NotificationContent) error {
	payload, err := json.Marshal(notificationEvent{JobID: jobID, Content: &content})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.client.rdb.Set(ctx, notificationKey(jobID), payload, 0).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	if err := n.client.rdb.Publish(ctx, notificationTopic, payload).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Clear removes the notification for a job and broadcasts the removal.
func (n *NotificationChannel) Clear(ctx context.Context, jobID string) error {
	if err := n.client.rdb.Del(ctx, notificationKey(jobID)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}

	payload, err := json.Marshal(notificationEvent{JobID: jobID, Cleared: true})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.client.rdb.Publish(ctx, notificationTopic, payload).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Current returns the stored notification for a job, if any.
func (n *NotificationChannel) Current(ctx context.Context, jobID string) (*domain.NotificationContent, error) {
	payload, err := n.client.rdb.Get(ctx, notificationKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}

	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return event.Content, nil
}
