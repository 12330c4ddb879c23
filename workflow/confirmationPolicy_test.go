package workflow

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

func TestExpiryFor(t *testing.T) {
	tests := []struct {
		action models.ConfirmationAction
		want   time.Duration
	}{
		{models.ActionSendOrder, 72 * time.Hour},
		{models.ActionUploadInvoice, 48 * time.Hour},
		{models.ActionCompleteOrder, 24 * time.Hour},
		{models.ActionRejectOrder, 24 * time.Hour},
		{models.ActionOther, 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := ExpiryFor(tt.action); got != tt.want {
			t.Errorf("ExpiryFor(%s) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestCheckActionAllowed(t *testing.T) {
	allowed := []struct {
		action models.ConfirmationAction
		status models.OrderStatus
	}{
		{models.ActionSendOrder, models.OrderStatusUploaded},
		{models.ActionUploadInvoice, models.OrderStatusSent},
		// A second invoice on the same order is legitimate.
		{models.ActionUploadInvoice, models.OrderStatusInvoiceReceived},
		{models.ActionCompleteOrder, models.OrderStatusInvoiceReceived},
		// reject_order and other run from any non-terminal status.
		{models.ActionRejectOrder, models.OrderStatusUploaded},
		{models.ActionRejectOrder, models.OrderStatusSent},
		{models.ActionRejectOrder, models.OrderStatusInvoiceReceived},
		{models.ActionOther, models.OrderStatusUploaded},
		{models.ActionOther, models.OrderStatusInvoiceReceived},
	}
	for _, tt := range allowed {
		if err := CheckActionAllowed(tt.action, tt.status); err != nil {
			t.Errorf("%s on %s order rejected: %v", tt.action, tt.status, err)
		}
	}
}

func TestCheckActionAllowedRejections(t *testing.T) {
	var validationErr *utils.ValidationError
	err := CheckActionAllowed(models.ConfirmationAction("teleport_order"), models.OrderStatusUploaded)
	if !errors.As(err, &validationErr) {
		t.Fatalf("unknown action: got %v, want *utils.ValidationError", err)
	}

	wrongState := []struct {
		name   string
		action models.ConfirmationAction
		status models.OrderStatus
	}{
		{"send from sent", models.ActionSendOrder, models.OrderStatusSent},
		{"invoice before send", models.ActionUploadInvoice, models.OrderStatusUploaded},
		{"complete before invoice", models.ActionCompleteOrder, models.OrderStatusSent},
		{"send on completed order", models.ActionSendOrder, models.OrderStatusCompleted},
		{"reject on cancelled order", models.ActionRejectOrder, models.OrderStatusCancelled},
		{"other on completed order", models.ActionOther, models.OrderStatusCompleted},
	}
	for _, tt := range wrongState {
		err := CheckActionAllowed(tt.action, tt.status)
		if !errors.As(err, &validationErr) {
			t.Errorf("%s: got %v, want *utils.ValidationError", tt.name, err)
		}
	}
}

func TestCanDecide(t *testing.T) {
	if !CanDecide(models.UserRoleAdmin) {
		t.Errorf("admin cannot decide")
	}
	if !CanDecide(models.UserRoleManager) {
		t.Errorf("manager cannot decide")
	}
	if CanDecide(models.UserRoleEmployee) {
		t.Errorf("employee can decide")
	}
	if CanDecide(models.UserRole("X")) {
		t.Errorf("unknown role can decide")
	}
}
