package application

import (
	"fmt"
	"net/mail"
	"strings"
)

// NormalizeEmail lowercases and validates a bare address. Display-name forms
// such as "Ada <a@b.co>" are rejected.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email %q", ErrInvalidInput, raw)
	}
	return email, nil
}
