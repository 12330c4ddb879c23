package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

const MaxReasonLength = 2000

// Confirmation is one request to perform a privileged order action. At most
// one pending confirmation may exist per (order, action); the nullable
// PendingKey column carries "<orderId>:<action>" while pending and is cleared
// by the same UPDATE that moves the row to a terminal status, so the unique
// index enforces the invariant without any table lock.
type Confirmation struct {
	ID            int                `gorm:"primary_key" json:"id"`
	OrderId       int                `gorm:"not null;index" json:"order_id"`
	Order         *Order             `gorm:"foreignKey:OrderId" json:"order,omitempty"`
	Action        ConfirmationAction `gorm:"size:30;not null" json:"action"`
	Status        ConfirmationStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	PendingKey    *string            `gorm:"size:60;unique" json:"-"`
	Payload       string             `gorm:"type:text" json:"payload"`
	Reason        string             `gorm:"type:text" json:"reason"`
	RequestedById int                `gorm:"not null;index" json:"requested_by_id"`
	RequestedBy   *User              `gorm:"foreignKey:RequestedById" json:"requested_by,omitempty"`
	DecidedById   *int               `json:"decided_by_id"`
	DecidedBy     *User              `gorm:"foreignKey:DecidedById" json:"decided_by,omitempty"`
	ExpiresAt     time.Time          `gorm:"not null;index" json:"expires_at"`
	DecidedAt     *time.Time         `json:"decided_at"`
	ExecutedAt    *time.Time         `json:"executed_at"`
	CorrelationId string             `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func PendingKeyFor(orderId int, action ConfirmationAction) string {
	return fmt.Sprintf("%d:%s", orderId, action)
}

func (c *Confirmation) IsExpired(now time.Time) bool {
	return c.Status == ConfirmationStatusPending && !now.Before(c.ExpiresAt)
}

// EffectiveStatus is what readers should see: a pending row past its deadline
// reads as expired even before the sweep persists the flip.
func (c *Confirmation) EffectiveStatus(now time.Time) ConfirmationStatus {
	if c.IsExpired(now) {
		return ConfirmationStatusExpired
	}
	return c.Status
}

// CanTransitionTo encodes the state machine: pending may move to any terminal
// status; terminal statuses are absorbing.
func (c *Confirmation) CanTransitionTo(target ConfirmationStatus) bool {
	return c.Status == ConfirmationStatusPending &&
		target.Valid() && target != ConfirmationStatusPending
}

func (c *Confirmation) Executed() bool {
	return c.ExecutedAt != nil
}

// IsDuplicateKeyErr reports whether err is a MySQL duplicate-entry error
// (1062) from a unique index.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// CreateConfirmationRecord inserts a pending confirmation. A duplicate-key
// failure on pending_key means another pending confirmation already holds the
// (order, action) slot; the existing row's id is surfaced as a ConflictError.
func CreateConfirmationRecord(ctx context.Context, confirmation *Confirmation) error {
	db := config.GetDB()
	key := PendingKeyFor(confirmation.OrderId, confirmation.Action)
	confirmation.Status = ConfirmationStatusPending
	confirmation.PendingKey = &key

	if err := db.WithContext(ctx).Create(confirmation).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			var existing Confirmation
			if lookupErr := db.WithContext(ctx).
				Where("pending_key = ?", key).
				First(&existing).Error; lookupErr == nil {
				return &utils.ConflictError{PendingConfirmationId: existing.ID}
			}
			// The winner resolved between our insert and the lookup; report
			// the conflict without an id rather than a bare SQL error.
			return &utils.ConflictError{}
		}
		return err
	}
	return nil
}

// TransitionConfirmation is the single compare-and-set that resolves a pending
// confirmation. The WHERE clause pins status = pending so concurrent approvals,
// rejections and the expiry sweep race safely: exactly one UPDATE hits a row.
// The pending_key is cleared in the same statement, freeing the (order, action)
// slot atomically with the resolution.
func TransitionConfirmation(tx *gorm.DB, id int, target ConfirmationStatus, decidedById *int, reason string) (bool, error) {
	if target == ConfirmationStatusPending || !target.Valid() {
		return false, utils.NewStateError("cannot transition a confirmation to %q", target)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"Status":     target,
		"PendingKey": nil,
		"DecidedAt":  &now,
	}
	if decidedById != nil {
		updates["DecidedById"] = decidedById
	}
	if reason != "" {
		updates["Reason"] = reason
	}

	result := tx.Model(&Confirmation{}).
		Where("id = ? AND status = ?", id, ConfirmationStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkConfirmationExecuted stamps ExecutedAt after the side effect committed.
func MarkConfirmationExecuted(tx *gorm.DB, id int) error {
	now := time.Now().UTC()
	return tx.Model(&Confirmation{}).
		Where("id = ? AND executed_at IS NULL", id).
		Update("ExecutedAt", &now).Error
}

func GetConfirmation(ctx context.Context, id int) (*Confirmation, error) {
	db := config.GetDB()
	var confirmation Confirmation
	if err := db.WithContext(ctx).
		Preload("Order").Preload("RequestedBy").Preload("DecidedBy").
		First(&confirmation, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if confirmation.RequestedBy != nil {
		confirmation.RequestedBy.PrepareGive()
	}
	if confirmation.DecidedBy != nil {
		confirmation.DecidedBy.PrepareGive()
	}
	return &confirmation, nil
}

// GetConfirmationForUpdate loads and row-locks a confirmation inside tx.
func GetConfirmationForUpdate(tx *gorm.DB, id int) (*Confirmation, error) {
	var confirmation Confirmation
	if err := tx.Clauses(forUpdate()).First(&confirmation, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &confirmation, nil
}

type ConfirmationFilter struct {
	OrderId int
	Status  ConfirmationStatus
	Action  ConfirmationAction
}

func ListConfirmations(ctx context.Context, filter ConfirmationFilter, p Pagination) (*PagedResult[*Confirmation], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, utils.NewValidationError("invalid confirmation status %q", filter.Status)
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, utils.NewValidationError("invalid confirmation action %q", filter.Action)
	}

	db := config.GetDB()
	q := db.WithContext(ctx).Model(&Confirmation{})
	if filter.OrderId != 0 {
		q = q.Where("order_id = ?", filter.OrderId)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var confirmations []*Confirmation
	if err := q.Preload("Order").Preload("RequestedBy").
		Order("created_at DESC, id DESC").
		Offset(p.Offset()).Limit(p.PageSize).
		Find(&confirmations).Error; err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, c := range confirmations {
		c.Status = c.EffectiveStatus(now)
		if c.RequestedBy != nil {
			c.RequestedBy.PrepareGive()
		}
	}
	return &PagedResult[*Confirmation]{Items: confirmations, Page: p.Page, PageSize: p.PageSize, Total: total}, nil
}

// ListDuePendingConfirmations returns ids of pending confirmations whose
// deadline has passed, for the expiry sweep.
func ListDuePendingConfirmations(ctx context.Context, now time.Time, limit int) ([]int, error) {
	db := config.GetDB()
	var ids []int
	if err := db.WithContext(ctx).Model(&Confirmation{}).
		Where("status = ? AND expires_at <= ?", ConfirmationStatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
