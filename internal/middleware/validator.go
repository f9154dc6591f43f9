package middleware

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/wunderbrand/internal/domain/tier"
)

// Input validation for path and query parameters. Handlers answer 400 on error.

// ValidateTier parses a tier from a path segment.
func ValidateTier(s string) (tier.Tier, error) {
	return tier.Parse(s)
}

// ValidateReportID requires a UUID.
func ValidateReportID(id string) error {
	if id == "" {
		return fmt.Errorf("report ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid report ID format")
	}
	return nil
}

// ValidateEmail checks a bare address; display names are rejected.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
