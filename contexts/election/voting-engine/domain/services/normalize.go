package services

import (
	"regexp"
	"strings"

	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
)

const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeKey is the comparison form for case-insensitive exact matches on
// emails, candidate names and positions.
func NormalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func NormalizeEmail(email string) (string, error) {
	normalized := NormalizeKey(email)
	if !emailPattern.MatchString(normalized) {
		return "", domainerrors.ErrInvalidEmail
	}
	return normalized, nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domainerrors.ErrWeakPassword
	}
	return nil
}

// ResolvePosition trims a candidate position and applies the default.
func ResolvePosition(position string, fallback string) string {
	value := strings.TrimSpace(position)
	if value == "" {
		return fallback
	}
	return value
}
