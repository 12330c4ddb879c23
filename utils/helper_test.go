package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{"orders@nordholz.example", "a.b+tag@sub.domain.de"}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("%q rejected", email)
		}
	}
	invalid := []string{"", "no-at-sign", "missing@tld", "spaces in@mail.de"}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("%q accepted", email)
		}
	}
}

func TestFormatPhoneE164(t *testing.T) {
	// Empty phone is allowed and stays empty.
	got, err := FormatPhoneE164("", "DE")
	if err != nil || got != "" {
		t.Fatalf("empty phone: got %q, %v", got, err)
	}

	got, err = FormatPhoneE164("0151 12345678", "DE")
	if err != nil {
		t.Fatalf("FormatPhoneE164: %v", err)
	}
	if !strings.HasPrefix(got, "+49") {
		t.Fatalf("formatted phone = %q, want +49 prefix", got)
	}

	if _, err := FormatPhoneE164("12", "DE"); err == nil {
		t.Fatalf("bogus phone accepted")
	}
}

func TestValidateSafeFilename(t *testing.T) {
	if err := ValidateSafeFilename("invoice-2026.pdf"); err != nil {
		t.Fatalf("plain file name rejected: %v", err)
	}

	bad := []string{
		"",
		"../etc/passwd",
		"dir/file.pdf",
		"dir\\file.pdf",
		"name\x00.pdf",
		strings.Repeat("x", 256),
	}
	var validationErr *ValidationError
	for _, name := range bad {
		err := ValidateSafeFilename(name)
		if err == nil {
			t.Errorf("%q accepted", name)
			continue
		}
		if !errors.As(err, &validationErr) {
			t.Errorf("%q: got %T, want *ValidationError", name, err)
		}
	}
}

func TestExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("invoice insert failed")
	err := &ExecutionError{Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("ExecutionError does not unwrap its cause")
	}
	if !strings.Contains(err.Error(), "approved but not yet executed") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
