package service

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigits    = regexp.MustCompile(`\D`)
	passwordSet  = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)
)

const passwordRule = "Password must be at least 8 characters with uppercase, lowercase, number, and special character"

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// validPhone accepts any formatting as long as at least 10 digits remain
func validPhone(phone string) bool {
	return len(nonDigits.ReplaceAllString(phone, "")) >= 10
}

// validPassword requires a lowercase, an uppercase, a digit and one of @$!%*?&
func validPassword(password string) bool {
	return passwordSet.MatchString(password) &&
		strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") &&
		strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
		strings.ContainsAny(password, "0123456789") &&
		strings.ContainsAny(password, "@$!%*?&")
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
