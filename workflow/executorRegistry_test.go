package workflow

import (
	"testing"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

func TestDefaultRegistryCoversEveryAction(t *testing.T) {
	r := DefaultRegistry()
	for _, action := range []models.ConfirmationAction{
		models.ActionSendOrder, models.ActionUploadInvoice,
		models.ActionCompleteOrder, models.ActionRejectOrder, models.ActionOther,
	} {
		if _, err := r.Lookup(action); err != nil {
			t.Errorf("Lookup(%s): %v", action, err)
		}
	}
	if _, err := r.Lookup(models.ConfirmationAction("bogus")); err == nil {
		t.Errorf("Lookup(bogus) found an executor")
	}
}

func TestFactoryOrderMailEvent(t *testing.T) {
	order := &models.Order{
		ID:          7,
		OrderNumber: "PO-2026-0042",
		DocumentKey: "documents/u3/7f2c.xlsx",
		Factory:     &models.Factory{Email: "orders@nordholz.example"},
	}
	confirmation := &models.Confirmation{OrderId: 7, CorrelationId: "cid-42"}

	event := factoryOrderMailEvent(order, confirmation)
	if event.Kind != "factory_order" {
		t.Fatalf("event kind = %q, want factory_order", event.Kind)
	}
	if event.To != "orders@nordholz.example" {
		t.Fatalf("event to = %q", event.To)
	}
	if event.AttachmentKey != "documents/u3/7f2c.xlsx" {
		t.Fatalf("attachment key = %q, want the order spreadsheet key", event.AttachmentKey)
	}
	if event.OrderId != 7 || event.CorrelationId != "cid-42" {
		t.Fatalf("event order/correlation = %d/%q", event.OrderId, event.CorrelationId)
	}
}
