package models

import (
	"context"
	"time"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

const (
	DefaultReminderFrequencyDays = 7
	MinReminderFrequencyDays     = 1
	MaxReminderFrequencyDays     = 30
)

type NotificationSettings struct {
	ID                    int       `gorm:"primary_key" json:"id"`
	UserId                int       `gorm:"not null;unique" json:"user_id"`
	EmailEnabled          *bool     `gorm:"not null;default:true" json:"email_enabled"`
	RemindersEnabled      *bool     `gorm:"not null;default:true" json:"reminders_enabled"`
	ReminderFrequencyDays int       `gorm:"not null;default:7" json:"reminder_frequency_days"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetNotificationSettings returns the user's settings, creating the default
// row on first access.
func GetNotificationSettings(ctx context.Context, userId int) (*NotificationSettings, error) {
	db := config.GetDB()
	var settings NotificationSettings
	err := db.WithContext(ctx).Where("user_id = ?", userId).First(&settings).Error
	if err == nil {
		return &settings, nil
	}

	settings = NotificationSettings{
		UserId:                userId,
		EmailEnabled:          utils.NewTrue(),
		RemindersEnabled:      utils.NewTrue(),
		ReminderFrequencyDays: DefaultReminderFrequencyDays,
	}
	if err := db.WithContext(ctx).Create(&settings).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			if err := db.WithContext(ctx).Where("user_id = ?", userId).First(&settings).Error; err == nil {
				return &settings, nil
			}
		}
		return nil, err
	}
	return &settings, nil
}

type UpdateNotificationSettingsInput struct {
	EmailEnabled          *bool `json:"email_enabled"`
	RemindersEnabled      *bool `json:"reminders_enabled"`
	ReminderFrequencyDays *int  `json:"reminder_frequency_days"`
}

func UpdateNotificationSettings(ctx context.Context, userId int, input *UpdateNotificationSettingsInput) (*NotificationSettings, error) {
	settings, err := GetNotificationSettings(ctx, userId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.EmailEnabled != nil {
		updates["EmailEnabled"] = *input.EmailEnabled
	}
	if input.RemindersEnabled != nil {
		updates["RemindersEnabled"] = *input.RemindersEnabled
	}
	if input.ReminderFrequencyDays != nil {
		freq := *input.ReminderFrequencyDays
		if freq < MinReminderFrequencyDays || freq > MaxReminderFrequencyDays {
			return nil, utils.NewValidationError("reminder frequency must be between %d and %d days",
				MinReminderFrequencyDays, MaxReminderFrequencyDays)
		}
		updates["ReminderFrequencyDays"] = freq
	}
	if len(updates) == 0 {
		return settings, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(settings).Updates(updates).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// ListReminderRecipients returns user ids with reminders enabled whose
// frequency window has elapsed since their last reminder of the given type.
func ListReminderRecipients(ctx context.Context, reminderType NotificationType, now time.Time) ([]int, error) {
	db := config.GetDB()

	var settings []*NotificationSettings
	if err := db.WithContext(ctx).
		Where("reminders_enabled = ?", true).
		Find(&settings).Error; err != nil {
		return nil, err
	}

	var recipients []int
	for _, s := range settings {
		var last Notification
		err := db.WithContext(ctx).
			Where("user_id = ? AND type = ?", s.UserId, reminderType).
			Order("created_at DESC").
			First(&last).Error
		if err == nil {
			next := last.CreatedAt.AddDate(0, 0, s.ReminderFrequencyDays)
			if now.Before(next) {
				continue
			}
		}
		recipients = append(recipients, s.UserId)
	}
	return recipients, nil
}
