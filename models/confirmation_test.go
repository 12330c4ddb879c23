package models

import (
	"testing"
	"time"
)

func TestPendingKeyFor(t *testing.T) {
	got := PendingKeyFor(42, ActionSendOrder)
	if got != "42:send_order" {
		t.Fatalf("PendingKeyFor(42, send_order) = %q", got)
	}
}

func TestConfirmationIsExpired(t *testing.T) {
	deadline := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pending := Confirmation{Status: ConfirmationStatusPending, ExpiresAt: deadline}

	if pending.IsExpired(deadline.Add(-time.Second)) {
		t.Fatalf("confirmation expired before its deadline")
	}
	// The deadline itself counts as expired.
	if !pending.IsExpired(deadline) {
		t.Fatalf("confirmation not expired exactly at its deadline")
	}
	if !pending.IsExpired(deadline.Add(time.Second)) {
		t.Fatalf("confirmation not expired after its deadline")
	}

	// Resolved rows never read as expired, however old.
	approved := Confirmation{Status: ConfirmationStatusApproved, ExpiresAt: deadline}
	if approved.IsExpired(deadline.Add(24 * time.Hour)) {
		t.Fatalf("approved confirmation reported expired")
	}
}

func TestConfirmationEffectiveStatus(t *testing.T) {
	deadline := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		status ConfirmationStatus
		now    time.Time
		want   ConfirmationStatus
	}{
		{"pending before deadline", ConfirmationStatusPending, deadline.Add(-time.Hour), ConfirmationStatusPending},
		{"pending past deadline", ConfirmationStatusPending, deadline.Add(time.Hour), ConfirmationStatusExpired},
		{"approved past deadline", ConfirmationStatusApproved, deadline.Add(time.Hour), ConfirmationStatusApproved},
		{"rejected past deadline", ConfirmationStatusRejected, deadline.Add(time.Hour), ConfirmationStatusRejected},
	}
	for _, tt := range tests {
		c := Confirmation{Status: tt.status, ExpiresAt: deadline}
		if got := c.EffectiveStatus(tt.now); got != tt.want {
			t.Errorf("%s: EffectiveStatus = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestConfirmationCanTransitionTo(t *testing.T) {
	terminals := []ConfirmationStatus{
		ConfirmationStatusApproved, ConfirmationStatusRejected, ConfirmationStatusExpired,
	}

	pending := Confirmation{Status: ConfirmationStatusPending}
	for _, target := range terminals {
		if !pending.CanTransitionTo(target) {
			t.Errorf("pending cannot transition to %s", target)
		}
	}
	if pending.CanTransitionTo(ConfirmationStatusPending) {
		t.Errorf("pending may transition to itself")
	}
	if pending.CanTransitionTo(ConfirmationStatus("bogus")) {
		t.Errorf("pending may transition to an unknown status")
	}

	// Terminal statuses are absorbing.
	for _, from := range terminals {
		c := Confirmation{Status: from}
		for _, target := range append(terminals, ConfirmationStatusPending) {
			if c.CanTransitionTo(target) {
				t.Errorf("%s may transition to %s", from, target)
			}
		}
	}
}

func TestConfirmationStatusTerminal(t *testing.T) {
	if ConfirmationStatusPending.Terminal() {
		t.Fatalf("pending reported terminal")
	}
	for _, s := range []ConfirmationStatus{
		ConfirmationStatusApproved, ConfirmationStatusRejected, ConfirmationStatusExpired,
	} {
		if !s.Terminal() {
			t.Errorf("%s not reported terminal", s)
		}
	}
}

func TestConfirmationExecuted(t *testing.T) {
	c := Confirmation{}
	if c.Executed() {
		t.Fatalf("confirmation with nil ExecutedAt reported executed")
	}
	now := time.Now().UTC()
	c.ExecutedAt = &now
	if !c.Executed() {
		t.Fatalf("confirmation with ExecutedAt not reported executed")
	}
}
