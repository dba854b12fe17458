package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/pkg/database"
)

// PasswordResetEvent is published when a reset link is issued
type PasswordResetEvent struct {
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	ResetLink string    `json:"reset_link"`
	ExpiresIn int       `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
}

const passwordResetEventType = "password_reset_requested"

// LogNotifier records reset requests in the log without the link
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("reset_notifier")}
}

func (n *LogNotifier) NotifyPasswordReset(ctx context.Context, email string, link *domain.ResetLink) error {
	n.logger.Info("password reset link issued",
		zap.String("email", email),
		zap.Time("expires_at", link.ExpiresAt),
	)
	return nil
}

// RedisNotifier publishes reset events on a Redis Pub/Sub channel for the mail sender
type RedisNotifier struct {
	redis   *database.Redis
	channel string
	now     func() time.Time
}

// NewRedisNotifier creates a notifier publishing on channel
func NewRedisNotifier(redis *database.Redis, channel string) *RedisNotifier {
	return &RedisNotifier{redis: redis, channel: channel, now: time.Now}
}

func (n *RedisNotifier) NotifyPasswordReset(ctx context.Context, email string, link *domain.ResetLink) error {
	now := n.now()
	payload, err := json.Marshal(PasswordResetEvent{
		Type:      passwordResetEventType,
		Email:     email,
		ResetLink: link.Link,
		ExpiresIn: int(link.ExpiresAt.Sub(now).Seconds()),
		IssuedAt:  now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode reset event: %w", err)
	}

	if err := n.redis.Client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish reset event: %w", err)
	}

	return nil
}
