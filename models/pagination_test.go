package models

import (
	"errors"
	"testing"

	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

func TestParsePaginationDefaults(t *testing.T) {
	p, err := ParsePagination("", "")
	if err != nil {
		t.Fatalf("ParsePagination: %v", err)
	}
	if p.Page != 1 || p.PageSize != DefaultPageSize {
		t.Fatalf("defaults = page %d size %d, want 1/%d", p.Page, p.PageSize, DefaultPageSize)
	}
}

func TestParsePaginationBounds(t *testing.T) {
	for _, size := range []string{"5", "100"} {
		if _, err := ParsePagination("1", size); err != nil {
			t.Errorf("pageSize=%s rejected: %v", size, err)
		}
	}

	// Out-of-range values are rejected, not clamped.
	var validationErr *utils.ValidationError
	for _, size := range []string{"4", "101", "0", "-1", "abc"} {
		_, err := ParsePagination("1", size)
		if err == nil {
			t.Errorf("pageSize=%s accepted", size)
			continue
		}
		if !errors.As(err, &validationErr) {
			t.Errorf("pageSize=%s: got %T, want *utils.ValidationError", size, err)
		}
	}

	for _, page := range []string{"0", "-3", "x"} {
		if _, err := ParsePagination(page, ""); err == nil {
			t.Errorf("page=%s accepted", page)
		}
	}
}

func TestPaginationOffset(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 20}
	if got := p.Offset(); got != 40 {
		t.Fatalf("Offset = %d, want 40", got)
	}
}
