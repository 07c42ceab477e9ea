package validator

import (
	"net/mail"
	"slices"
	"strings"
)

// ValidEmail accepts a bare RFC 5322 address whose domain has at least two
// non-empty labels. Display-name forms such as "Bob <bob@example.com>" fail.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool { return isEmail(value) },
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

func isEmail(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" {
		return false
	}
	labels := strings.Split(domain, ".")
	return len(labels) >= 2 && !slices.Contains(labels, "")
}
