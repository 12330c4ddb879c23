package config

import (
	"os"
	"strings"
)

func boolFlag(name string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// RunExpirySweep controls the in-process confirmation expiry sweeper.
// Default on: overdue pending confirmations are already treated as expired at
// read time, so the sweep is a catch-up, not the source of truth.
//
// Set via env: EXPIRY_SWEEP=false
func RunExpirySweep() bool {
	return boolFlag("EXPIRY_SWEEP", true)
}

// RunReminderSweep controls overdue-order reminder generation.
//
// Set via env: REMINDER_SWEEP=false
func RunReminderSweep() bool {
	return boolFlag("REMINDER_SWEEP", true)
}

// RunNotificationProcessor controls the in-process notification delivery loop.
//
// Set via env: NOTIFICATION_PROCESSING=false
func RunNotificationProcessor() bool {
	return boolFlag("NOTIFICATION_PROCESSING", true)
}
