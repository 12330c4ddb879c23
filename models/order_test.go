package models

import (
	"fmt"
	"testing"
	"time"
)

func TestParseOrderFilter(t *testing.T) {
	thisYear := time.Now().UTC().Year()

	filter, err := ParseOrderFilter("sent", "3", fmt.Sprint(thisYear), "6", " nordholz ")
	if err != nil {
		t.Fatalf("ParseOrderFilter: %v", err)
	}
	if filter.Status != OrderStatusSent || filter.FactoryId != 3 ||
		filter.Year != thisYear || filter.Month != 6 || filter.Search != "nordholz" {
		t.Fatalf("unexpected filter: %+v", filter)
	}
}

func TestParseOrderFilterRejections(t *testing.T) {
	maxYear := time.Now().UTC().Year() + 1
	tests := []struct {
		name                                  string
		status, factoryId, year, month, query string
	}{
		{"unknown status", "shipped", "", "", "", ""},
		{"factoryId not a number", "", "abc", "", "", ""},
		{"year below range", "", "", "1999", "", ""},
		{"year above range", "", "", fmt.Sprint(maxYear + 1), "", ""},
		{"month without year", "", "", "", "6", ""},
		{"month out of range", "", "", "2026", "13", ""},
		{"search too short", "", "", "", "", "a"},
	}
	for _, tt := range tests {
		if _, err := ParseOrderFilter(tt.status, tt.factoryId, tt.year, tt.month, tt.query); err == nil {
			t.Errorf("%s: accepted", tt.name)
		}
	}

	// Next year is allowed for orders dated ahead.
	if _, err := ParseOrderFilter("", "", fmt.Sprint(maxYear), "", ""); err != nil {
		t.Errorf("year %d rejected: %v", maxYear, err)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusUploaded, OrderStatusSent, OrderStatusInvoiceReceived} {
		if s.Terminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s not reported terminal", s)
		}
	}
}

func TestOrderDisplayName(t *testing.T) {
	order := Order{ID: 7, OrderNumber: "PO-2026-0007"}
	if got := order.DisplayName(); got != "PO-2026-0007 (#7)" {
		t.Fatalf("DisplayName = %q", got)
	}
}
