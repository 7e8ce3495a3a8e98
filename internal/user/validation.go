package user

import "regexp"

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether the value looks like an email address.
// Intentionally loose; the normalized form is what gets stored.
func IsValidEmail(value string) bool {
	return emailRegex.MatchString(value)
}
