package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

// NotificationProcessor delivers queued notifications as mail events. Rows are
// claimed with SKIP LOCKED so several instances can share the queue; a claim
// left behind by a crash goes stale after LockTTL and is picked up again.
// When Pub/Sub is not configured deliveries are logged and marked sent so the
// queue still drains in dev.
type NotificationProcessor struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	WorkerID  string
	BatchSize int
	Interval  time.Duration
	LockTTL   time.Duration
}

func NewNotificationProcessor(db *gorm.DB, logger *logrus.Logger) *NotificationProcessor {
	return &NotificationProcessor{
		DB:        db,
		Logger:    logger,
		WorkerID:  "notify-" + time.Now().Format("20060102-150405.000"),
		BatchSize: 50,
		Interval:  5 * time.Second,
		LockTTL:   30 * time.Second,
	}
}

func (p *NotificationProcessor) Run(ctx context.Context) {
	if p == nil || p.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *NotificationProcessor) processOnce(ctx context.Context) {
	var claimed []*models.Notification
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := models.ClaimUnsentNotifications(tx, p.WorkerID, p.BatchSize, p.LockTTL)
		if err != nil {
			return err
		}
		claimed = batch
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "notification_processor", "processOnce", "claim batch", nil, err)
		return
	}

	for _, notification := range claimed {
		if err := p.deliver(ctx, notification); err != nil {
			config.LogError(p.Logger, "notification_processor", "processOnce", "deliver", notification.ID, err)
			_ = models.ReleaseNotificationClaim(p.DB.WithContext(ctx), notification.ID)
			continue
		}
		if err := models.MarkNotificationSent(p.DB.WithContext(ctx), notification.ID); err != nil {
			config.LogError(p.Logger, "notification_processor", "processOnce", "mark sent", notification.ID, err)
		}
	}
}

func (p *NotificationProcessor) deliver(ctx context.Context, notification *models.Notification) error {
	user, err := models.GetUser(ctx, notification.UserId)
	if err != nil {
		// Recipient is gone; drop the notification rather than retry forever.
		return nil
	}
	settings, err := models.GetNotificationSettings(ctx, user.ID)
	if err != nil {
		return err
	}
	if settings.EmailEnabled == nil || !*settings.EmailEnabled || user.Email == nil {
		// In-app only.
		return nil
	}

	if !config.MailEventsEnabled() {
		p.Logger.WithFields(logrus.Fields{
			"module":          "notification_processor",
			"notification_id": notification.ID,
			"to":              *user.Email,
			"type":            notification.Type,
		}).Info("mail events disabled; marking delivered: " + notification.Title)
		return nil
	}

	event := config.MailEvent{
		Kind:    "user_notification",
		To:      *user.Email,
		Subject: notification.Title,
		Body:    notification.Body,
	}
	if notification.OrderId != nil {
		event.OrderId = *notification.OrderId
	}
	messageId, err := config.PublishMailEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("publish mail event: %w", err)
	}
	p.Logger.WithFields(logrus.Fields{
		"module":          "notification_processor",
		"notification_id": notification.ID,
		"message_id":      messageId,
	}).Info("notification mail published")
	return nil
}
