package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for new profiles.
const MinPasswordLength = 8

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// SanitizeString strips null bytes and surrounding whitespace
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

// ParseBoolParam treats only "true" (any case) as true.
func ParseBoolParam(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// NormalizeUserName lowercases a login name so lookups ignore case.
func NormalizeUserName(name string) string {
	return strings.ToLower(SanitizeString(name))
}
