package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

// Notification retention window for the cleanup pass.
const notificationRetention = 30 * 24 * time.Hour

// ReminderSweeper generates periodic reminders for stalled orders, flags
// overdue invoice payments and prunes old read notifications. One pass per
// interval, serialized across instances by a redis lock.
type ReminderSweeper struct {
	Logger   *logrus.Logger
	Interval time.Duration

	// StaleAfter is how long an order may sit in uploaded or sent before it
	// counts as stalled.
	StaleAfter time.Duration
}

func NewReminderSweeper(logger *logrus.Logger) *ReminderSweeper {
	return &ReminderSweeper{
		Logger:     logger,
		Interval:   time.Hour,
		StaleAfter: 3 * 24 * time.Hour,
	}
}

func (s *ReminderSweeper) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
	}
}

func (s *ReminderSweeper) sweepOnce(ctx context.Context) {
	locker := config.GetRedisLock()
	if locker != nil {
		lock, err := locker.Obtain(ctx, "lock:order-reminder-sweep", 5*time.Minute, nil)
		if err != nil {
			if !errors.Is(err, redislock.ErrNotObtained) {
				config.LogError(s.Logger, "workflow", "sweepOnce", "obtain reminder lock", nil, err)
			}
			return
		}
		defer lock.Release(ctx)
	}

	s.remindStalledOrders(ctx, models.OrderStatusUploaded, models.NotificationUploadedReminder)
	s.remindStalledOrders(ctx, models.OrderStatusSent, models.NotificationSentReminder)
	s.flagOverduePayments(ctx)
	s.cleanupNotifications(ctx)
}

// remindStalledOrders notifies each eligible recipient about orders stuck in
// status for longer than StaleAfter. Per-user frequency settings gate how
// often the same reminder type repeats.
func (s *ReminderSweeper) remindStalledOrders(ctx context.Context, status models.OrderStatus, reminderType models.NotificationType) {
	now := time.Now().UTC()
	recipients, err := models.ListReminderRecipients(ctx, reminderType, now)
	if err != nil {
		config.LogError(s.Logger, "workflow", "remindStalledOrders", "list recipients", reminderType, err)
		return
	}
	if len(recipients) == 0 {
		return
	}

	stalled, err := models.ListStalledOrders(ctx, status, now.Add(-s.StaleAfter))
	if err != nil {
		config.LogError(s.Logger, "workflow", "remindStalledOrders", "list stalled orders", status, err)
		return
	}
	if len(stalled) == 0 {
		return
	}

	title := fmt.Sprintf("%d order(s) waiting in %s", len(stalled), status)
	body := reminderBody(stalled)
	for _, userId := range recipients {
		if _, err := models.QueueNotification(ctx, userId, nil, reminderType, title, body); err != nil {
			config.LogError(s.Logger, "workflow", "remindStalledOrders", "queue reminder", userId, err)
		}
	}
}

func (s *ReminderSweeper) flagOverduePayments(ctx context.Context) {
	overdue, err := models.MarkOverdueInvoices(ctx)
	if err != nil {
		config.LogError(s.Logger, "workflow", "flagOverduePayments", "mark overdue", nil, err)
		return
	}
	if len(overdue) == 0 {
		return
	}

	approvers, err := models.ListApprovers(ctx)
	if err != nil {
		config.LogError(s.Logger, "workflow", "flagOverduePayments", "list approvers", nil, err)
		return
	}
	for _, invoice := range overdue {
		title := fmt.Sprintf("Invoice %s is overdue", invoice.InvoiceNumber)
		body := fmt.Sprintf("Invoice %s (%s %s) was due %s",
			invoice.InvoiceNumber, invoice.Amount.StringFixed(2), invoice.Currency,
			invoice.DueDate.Format("2006-01-02"))
		for _, approver := range approvers {
			orderId := invoice.OrderId
			if _, err := models.QueueNotification(ctx, approver.ID, &orderId,
				models.NotificationPaymentOverdue, title, body); err != nil {
				config.LogError(s.Logger, "workflow", "flagOverduePayments", "queue notification", approver.ID, err)
			}
		}
	}
}

func (s *ReminderSweeper) cleanupNotifications(ctx context.Context) {
	deleted, err := models.CleanupOldNotifications(ctx, notificationRetention)
	if err != nil {
		config.LogError(s.Logger, "workflow", "cleanupNotifications", "cleanup", nil, err)
		return
	}
	if deleted > 0 && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"module":  "workflow",
			"deleted": deleted,
		}).Info("notification cleanup")
	}
}

func reminderBody(orders []*models.Order) string {
	const maxListed = 10
	body := ""
	for i, order := range orders {
		if i == maxListed {
			body += fmt.Sprintf("… and %d more\n", len(orders)-maxListed)
			break
		}
		body += order.DisplayName() + "\n"
	}
	return body
}
