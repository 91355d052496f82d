package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// Channel delivers notification content keyed by job id. One notification
// slot per job, last write wins. The orchestrator guarantees single-threaded
// progression per job, so writes for one job never race.
type Channel interface {
	Post(ctx context.Context, jobID string, content domain.NotificationContent) error
	Clear(ctx context.Context, jobID string) error
}

// Presenter renders job progress and terminal failures onto a Channel.
type Presenter struct {
	channel Channel
}

// NewPresenter creates a presenter over the given channel.
func NewPresenter(channel Channel) *Presenter {
	return &Presenter{channel: channel}
}

// PostProgress renders the ongoing notification for an in-flight attempt.
func (p *Presenter) PostProgress(ctx context.Context, jobID string, attemptIndex, maxAttempts int) {
	content := domain.NotificationContent{
		Title:     "Analyzing photo",
		Message:   fmt.Sprintf("Attempt %d/%d", attemptIndex+1, maxAttempts),
		IsOngoing: true,
	}
	if err := p.channel.Post(ctx, jobID, content); err != nil {
		slog.Warn("Failed to post progress notification", "job", jobID, "error", err)
	}
}

// PostTerminalFailure renders the final failure notification. A retry
// action is attached only when the artifact was retained for manual retry.
func (p *Presenter) PostTerminalFailure(
	ctx context.Context,
	jobID string,
	content domain.NotificationContent,
	allowManualRetry bool,
) {
	content.IsOngoing = false
	if allowManualRetry {
		content.ActionLabel = "Retry"
	} else {
		content.ActionLabel = ""
	}
	if err := p.channel.Post(ctx, jobID, content); err != nil {
		slog.Warn("Failed to post terminal notification", "job", jobID, "error", err)
	}
}

// Clear removes the notification on terminal success.
func (p *Presenter) Clear(ctx context.Context, jobID string) {
	if err := p.channel.Clear(ctx, jobID); err != nil {
		slog.Warn("Failed to clear notification", "job", jobID, "error", err)
	}
}

// LogChannel writes notifications to the structured log. Used when no
// external notification transport is configured.
type LogChannel struct{}

func NewLogChannel() *LogChannel {
	return &LogChannel{}
}

func (c *LogChannel) Post(ctx context.Context, jobID string, content domain.NotificationContent) error {
	slog.Info("Notification",
		"job", jobID,
		"title", content.Title,
		"message", content.Message,
		"action", content.ActionLabel,
		"ongoing", content.IsOngoing,
	)
	return nil
}

func (c *LogChannel) Clear(ctx context.Context, jobID string) error {
	slog.Info("Notification cleared", "job", jobID)
	return nil
}
