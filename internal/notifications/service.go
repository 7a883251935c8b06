package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ntfybridge/internal/config"
	"ntfybridge/internal/ntfy"
)

const noticeTitle = "Remote Bridge"

// Service defines the lifecycle notices sent by the daemon and CLI.
type Service interface {
	NotifyStopped(ctx context.Context, cycles, relayed int64, uptime time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// Publisher delivers a single publication to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, pub ntfy.Publication) error
}

// NewService builds a notification service publishing to the configured reply
// topic. When no topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config, publisher Publisher) Service {
	if cfg == nil || publisher == nil {
		return noopService{}
	}
	topic := cfg.ReplyTopic()
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{topic: topic, publisher: publisher}
}

type ntfyService struct {
	topic     string
	publisher Publisher
}

func (n *ntfyService) NotifyStopped(ctx context.Context, cycles, relayed int64, uptime time.Duration) error {
	uptime = uptime.Round(time.Second)
	if uptime < 0 {
		uptime = 0
	}
	return n.send(ctx, ntfy.Publication{
		Title:    noticeTitle,
		Message:  fmt.Sprintf("Bridge stopped after %s (%d cycles, %d messages relayed)", uptime, cycles, relayed),
		Tags:     ntfy.NoticeTag + ",stop_sign",
		Priority: ntfy.PriorityLow,
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, ntfy.Publication{
		Title:    noticeTitle + " - Error",
		Message:  builder.String(),
		Tags:     ntfy.NoticeTag + ",warning",
		Priority: ntfy.PriorityHigh,
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, ntfy.Publication{
		Title:    noticeTitle + " - Test",
		Message:  "Notification system test",
		Tags:     ntfy.NoticeTag + ",test_tube",
		Priority: ntfy.PriorityLow,
	})
}

func (n *ntfyService) send(ctx context.Context, pub ntfy.Publication) error {
	if n == nil || n.publisher == nil {
		return nil
	}
	if err := n.publisher.Publish(ctx, n.topic, pub); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyStopped(context.Context, int64, int64, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
