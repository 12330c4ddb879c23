package workflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

func TestNewConfirmationEngineWiresDefaults(t *testing.T) {
	engine := NewConfirmationEngine(logrus.New())
	if engine.Registry == nil {
		t.Fatalf("engine has no executor registry")
	}
	if engine.Tracer == nil {
		t.Fatalf("engine has no tracer")
	}
}

func TestValidatePayloadUploadInvoice(t *testing.T) {
	input := &CreateConfirmationInput{
		OrderId: 1,
		Action:  models.ActionUploadInvoice,
		Payload: `{"invoice_number":"INV-100","amount":"1250.50","currency":"EUR"}`,
	}
	if err := input.validatePayload(); err != nil {
		t.Fatalf("valid invoice payload rejected: %v", err)
	}

	var validationErr *utils.ValidationError
	bad := []struct {
		name    string
		payload string
	}{
		{"not json", "not json"},
		{"empty payload", ""},
		{"missing invoice number", `{"amount":"10"}`},
		{"zero amount", `{"invoice_number":"INV-101","amount":"0"}`},
		{"negative amount", `{"invoice_number":"INV-102","amount":"-5"}`},
		{"due before issued", `{"invoice_number":"INV-103","amount":"10","issued_date":"2026-08-10T00:00:00Z","due_date":"2026-08-01T00:00:00Z"}`},
	}
	for _, tt := range bad {
		input.Payload = tt.payload
		err := input.validatePayload()
		if !errors.As(err, &validationErr) {
			t.Errorf("%s: got %v, want *utils.ValidationError", tt.name, err)
		}
	}
}

func TestValidatePayloadRejectOrderReason(t *testing.T) {
	input := &CreateConfirmationInput{OrderId: 1, Action: models.ActionRejectOrder}

	input.Payload = `{"reason":"supplier discontinued the line"}`
	if err := input.validatePayload(); err != nil {
		t.Fatalf("valid reason rejected: %v", err)
	}

	input.Payload = `{"reason":""}`
	if err := input.validatePayload(); err == nil {
		t.Fatalf("empty reason accepted")
	}
	input.Payload = `{}`
	if err := input.validatePayload(); err == nil {
		t.Fatalf("missing reason accepted")
	}

	// Reason length is bounded at MaxReasonLength, inclusive.
	atLimit := strings.Repeat("x", models.MaxReasonLength)
	input.Payload = `{"reason":"` + atLimit + `"}`
	if err := input.validatePayload(); err != nil {
		t.Fatalf("reason of %d chars rejected: %v", models.MaxReasonLength, err)
	}
	input.Payload = `{"reason":"` + atLimit + `x"}`
	if err := input.validatePayload(); err == nil {
		t.Fatalf("reason of %d chars accepted", models.MaxReasonLength+1)
	}
}

func TestValidatePayloadOtherActionsIgnorePayload(t *testing.T) {
	for _, action := range []models.ConfirmationAction{
		models.ActionSendOrder, models.ActionCompleteOrder, models.ActionOther,
	} {
		input := &CreateConfirmationInput{OrderId: 1, Action: action, Payload: "free-form note"}
		if err := input.validatePayload(); err != nil {
			t.Errorf("%s: payload rejected: %v", action, err)
		}
	}
}

func TestExtractPayloadReason(t *testing.T) {
	if got := extractPayloadReason(`{"reason":"too expensive"}`); got != "too expensive" {
		t.Fatalf("extractPayloadReason = %q", got)
	}
	if got := extractPayloadReason("not json"); got != "" {
		t.Fatalf("extractPayloadReason on garbage = %q", got)
	}
}
