package models

import (
	"time"

	"gorm.io/gorm"
)

type ExecutionKeyState string

const (
	ExecutionStarted   ExecutionKeyState = "STARTED"
	ExecutionSucceeded ExecutionKeyState = "SUCCEEDED"
	ExecutionFailed    ExecutionKeyState = "FAILED"
)

// ExecutionKey makes confirmation side effects at-least-once safe. One row per
// confirmation execution attempt family; the unique key means a retry observes
// the prior attempt's state instead of running the effect twice.
type ExecutionKey struct {
	ID             int               `gorm:"primary_key" json:"id"`
	Key            string            `gorm:"size:100;not null;unique" json:"key"`
	ConfirmationId int               `gorm:"not null;index" json:"confirmation_id"`
	State          ExecutionKeyState `gorm:"size:20;not null" json:"state"`
	LastError      string            `gorm:"type:text" json:"last_error"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// ClaimExecutionKey inserts the STARTED marker for key. When the key already
// exists the existing row is returned with claimed=false so the caller can
// decide between skipping (SUCCEEDED) and retrying (FAILED/stale STARTED).
func ClaimExecutionKey(tx *gorm.DB, key string, confirmationId int) (existing *ExecutionKey, claimed bool, err error) {
	row := ExecutionKey{
		Key:            key,
		ConfirmationId: confirmationId,
		State:          ExecutionStarted,
	}
	if err := tx.Create(&row).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			var prior ExecutionKey
			if lookupErr := tx.Where("`key` = ?", key).First(&prior).Error; lookupErr != nil {
				return nil, false, lookupErr
			}
			return &prior, false, nil
		}
		return nil, false, err
	}
	return &row, true, nil
}

func (k *ExecutionKey) MarkSucceeded(tx *gorm.DB) error {
	return tx.Model(k).Updates(map[string]interface{}{
		"State":     ExecutionSucceeded,
		"LastError": "",
	}).Error
}

func (k *ExecutionKey) MarkFailed(tx *gorm.DB, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return tx.Model(k).Updates(map[string]interface{}{
		"State":     ExecutionFailed,
		"LastError": msg,
	}).Error
}

// ResetForRetry flips a FAILED (or stale STARTED) key back to STARTED so the
// re-approve path can run the effect again.
func (k *ExecutionKey) ResetForRetry(tx *gorm.DB) error {
	return tx.Model(k).Update("State", ExecutionStarted).Error
}
