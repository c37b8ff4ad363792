package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 6

// Registration is what a new user submits.
type Registration struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FullName        *string
}

// Credentials is what a returning user submits.
type Credentials struct {
	Username string
	Password string
}

// Validate checks the shape of a registration locally. It never touches
// storage; every failure is a *RegistrationError.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Email) == "" ||
		r.Password == "" || r.ConfirmPassword == "" {
		return &RegistrationError{Reason: "all fields are required"}
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return &RegistrationError{Reason: "password must be at least 6 characters"}
	}
	if r.Password != r.ConfirmPassword {
		return &RegistrationError{Reason: "passwords do not match"}
	}
	if !validEmail(r.Email) {
		return &RegistrationError{Reason: "email address is not valid"}
	}
	return nil
}

// Validate rejects empty fields with ErrInvalidCredentials.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// validEmail accepts a bare addr-spec with a dotted domain: no display
// name, no angle brackets.
func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
