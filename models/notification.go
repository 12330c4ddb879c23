package models

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type Notification struct {
	ID        int              `gorm:"primary_key" json:"id"`
	UserId    int              `gorm:"not null;index" json:"user_id"`
	OrderId   *int             `gorm:"index" json:"order_id"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Title     string           `gorm:"size:200;not null" json:"title"`
	Body      string           `gorm:"type:text" json:"body"`
	IsRead    *bool            `gorm:"not null;default:false;index" json:"is_read"`
	IsSent    *bool            `gorm:"not null;default:false" json:"is_sent"`
	LockedAt  *time.Time       `json:"-"`
	LockedBy  string           `gorm:"size:64" json:"-"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// QueueNotification stores an in-app notification. Delivery to mail is
// asynchronous: the processor claims unsent rows and publishes mail events.
func QueueNotification(ctx context.Context, userId int, orderId *int, notifType NotificationType, title, body string) (*Notification, error) {
	db := config.GetDB()
	notification := Notification{
		UserId:  userId,
		OrderId: orderId,
		Type:    notifType,
		Title:   title,
		Body:    body,
		IsRead:  utils.NewFalse(),
		IsSent:  utils.NewFalse(),
	}
	if err := db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func QueueNotificationTx(tx *gorm.DB, userId int, orderId *int, notifType NotificationType, title, body string) error {
	notification := Notification{
		UserId:  userId,
		OrderId: orderId,
		Type:    notifType,
		Title:   title,
		Body:    body,
		IsRead:  utils.NewFalse(),
		IsSent:  utils.NewFalse(),
	}
	return tx.Create(&notification).Error
}

func ListNotifications(ctx context.Context, userId int, unreadOnly bool, p Pagination) (*PagedResult[*Notification], error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userId)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var notifications []*Notification
	if err := q.Order("created_at DESC, id DESC").
		Offset(p.Offset()).Limit(p.PageSize).
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return &PagedResult[*Notification]{Items: notifications, Page: p.Page, PageSize: p.PageSize, Total: total}, nil
}

func CountUnreadNotifications(ctx context.Context, userId int) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userId, false).
		Count(&count).Error
	return count, err
}

// MarkNotificationRead only touches the caller's own rows.
func MarkNotificationRead(ctx context.Context, userId, notificationId int) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", notificationId, userId).
		Update("IsRead", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func MarkAllNotificationsRead(ctx context.Context, userId int) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userId, false).
		Update("IsRead", true)
	return result.RowsAffected, result.Error
}

// CleanupOldNotifications deletes read notifications older than the retention
// window.
func CleanupOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	db := config.GetDB()
	cutoff := time.Now().UTC().Add(-olderThan)
	result := db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&Notification{})
	return result.RowsAffected, result.Error
}

// ClaimUnsentNotifications row-locks a batch of unsent rows for the delivery
// processor. SKIP LOCKED lets multiple processors share the queue without
// blocking; stale locks from a crashed claimant are reclaimed after staleAfter.
func ClaimUnsentNotifications(tx *gorm.DB, claimant string, batchSize int, staleAfter time.Duration) ([]*Notification, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-staleAfter)

	var batch []*Notification
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("is_sent = ? AND (locked_at IS NULL OR locked_at < ?)", false, staleBefore).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&batch).Error; err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(batch))
	for _, n := range batch {
		ids = append(ids, n.ID)
	}
	if err := tx.Model(&Notification{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"LockedAt": &now, "LockedBy": claimant}).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func MarkNotificationSent(tx *gorm.DB, id int) error {
	return tx.Model(&Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"IsSent":   true,
			"LockedAt": nil,
			"LockedBy": "",
		}).Error
}

func ReleaseNotificationClaim(tx *gorm.DB, id int) error {
	return tx.Model(&Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"LockedAt": nil, "LockedBy": ""}).Error
}
