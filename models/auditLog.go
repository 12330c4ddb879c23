package models

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
)

type AuditLog struct {
	ID        int         `gorm:"primary_key" json:"id"`
	OrderId   int         `gorm:"not null;index" json:"order_id"`
	UserId    *int        `gorm:"index" json:"user_id"`
	User      *User       `gorm:"foreignKey:UserId" json:"user,omitempty"`
	Action    AuditAction `gorm:"size:30;not null" json:"action"`
	Detail    string      `gorm:"type:text" json:"detail"`
	CreatedAt time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
}

// RecordAudit writes a trail entry. Failures are reported to the caller but
// never block the action being audited; callers log and continue.
func RecordAudit(ctx context.Context, orderId int, userId *int, action AuditAction, detail string) error {
	db := config.GetDB()
	entry := AuditLog{
		OrderId: orderId,
		UserId:  userId,
		Action:  action,
		Detail:  detail,
	}
	return db.WithContext(ctx).Create(&entry).Error
}

// RecordAuditTx is RecordAudit inside an existing transaction, for workflow
// executors whose audit entry must commit with the effect.
func RecordAuditTx(tx *gorm.DB, orderId int, userId *int, action AuditAction, detail string) error {
	entry := AuditLog{
		OrderId: orderId,
		UserId:  userId,
		Action:  action,
		Detail:  detail,
	}
	return tx.Create(&entry).Error
}

func ListAuditLogs(ctx context.Context, orderId int, p Pagination) (*PagedResult[*AuditLog], error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&AuditLog{}).Where("order_id = ?", orderId)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []*AuditLog
	if err := q.Preload("User").
		Order("created_at DESC, id DESC").
		Offset(p.Offset()).Limit(p.PageSize).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	for _, l := range logs {
		if l.User != nil {
			l.User.PrepareGive()
		}
	}
	return &PagedResult[*AuditLog]{Items: logs, Page: p.Page, PageSize: p.PageSize, Total: total}, nil
}
