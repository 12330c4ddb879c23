package handlers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

func TestBuildOrdersWorkbook(t *testing.T) {
	sentAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	orders := []*models.Order{
		{
			OrderNumber: "PO-2026-0001",
			Factory: &models.Factory{
				Name:    "Nordholz Möbelwerk",
				Country: &models.Country{Code: "DE"},
			},
			Status:      models.OrderStatusSent,
			TotalAmount: decimal.RequireFromString("12500.5"),
			Currency:    "EUR",
			OrderDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			SentAt:      &sentAt,
		},
		{
			// No factory preloaded; the export leaves those cells blank.
			OrderNumber: "PO-2026-0002",
			Status:      models.OrderStatusUploaded,
			TotalAmount: decimal.NewFromInt(800),
			Currency:    "EUR",
			OrderDate:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		},
	}

	f, err := BuildOrdersWorkbook(orders)
	if err != nil {
		t.Fatalf("BuildOrdersWorkbook: %v", err)
	}

	cell := func(ref string) string {
		t.Helper()
		value, err := f.GetCellValue("Orders", ref)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", ref, err)
		}
		return value
	}

	if got := cell("A1"); got != "Order Number" {
		t.Fatalf("A1 = %q", got)
	}
	if got := cell("A2"); got != "PO-2026-0001" {
		t.Fatalf("A2 = %q", got)
	}
	if got := cell("B2"); got != "Nordholz Möbelwerk" {
		t.Fatalf("B2 = %q", got)
	}
	if got := cell("C2"); got != "DE" {
		t.Fatalf("C2 = %q", got)
	}
	if got := cell("D2"); got != "sent" {
		t.Fatalf("D2 = %q", got)
	}
	if got := cell("E2"); got != "12500.50" {
		t.Fatalf("E2 = %q", got)
	}
	if got := cell("G2"); got != "2026-03-01" {
		t.Fatalf("G2 = %q", got)
	}
	if got := cell("H2"); got != "2026-03-10 09:30" {
		t.Fatalf("H2 = %q", got)
	}

	if got := cell("B3"); got != "" {
		t.Fatalf("B3 = %q, want blank for missing factory", got)
	}
	if got := cell("H3"); got != "" {
		t.Fatalf("H3 = %q, want blank for unsent order", got)
	}
}
