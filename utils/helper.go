package utils

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is the fallback region for phone parsing when the factory's
// country gives no hint.
var DefaultRegion = "DE"

func IsValidEmail(email string) bool {
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

// FormatPhoneE164 normalizes a phone number to E.164 so reminders and factory
// contact exports carry a single canonical form. Empty input passes through.
func FormatPhoneE164(phoneNumber, countryCode string) (string, error) {
	if strings.TrimSpace(phoneNumber) == "" {
		return "", nil
	}
	if countryCode == "" {
		countryCode = DefaultRegion
	}
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func GenerateUniqueFilename() string {
	timestamp := time.Now().UnixNano()
	random := rand.Intn(1000)
	return fmt.Sprintf("%d_%d", timestamp, random)
}

// ValidateSafeFilename rejects path traversal and control characters in
// client-supplied file names before they become storage object keys.
func ValidateSafeFilename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("file name is required")
	}
	if len(name) > 255 {
		return NewValidationError("file name exceeds 255 characters")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return NewValidationError("file name must not contain path separators")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return NewValidationError("file name contains control characters")
		}
	}
	if name != filepath.Base(name) {
		return NewValidationError("invalid file name")
	}
	return nil
}

func ProcessValidationErrors(err error) map[string]string {
	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func UniqueSlice[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
