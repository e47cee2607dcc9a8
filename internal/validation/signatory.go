// Package validation holds input checks shared by services and handlers.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxSignatories      = 20
	maxSignatoryNameLen = 200
	maxEmailLen         = 320
	maxCommentLen       = 2000
)

// verificationTokenRegex matches the base64url alphabet used for signing tokens.
var verificationTokenRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

// NormalizeEmail trims and lowercases an address for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignatoryName requires a non-blank name of bounded length.
func ValidateSignatoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("signatory name is required")
	}
	if utf8.RuneCountInString(name) > maxSignatoryNameLen {
		return fmt.Errorf("signatory name must be at most %d characters", maxSignatoryNameLen)
	}
	return nil
}

// ValidateEmail accepts a bare address (no display name).
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > maxEmailLen {
		return fmt.Errorf("email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("email %q is not a valid address", email)
	}
	if !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return fmt.Errorf("email %q is not a valid address", email)
	}
	return nil
}

// ValidateComment bounds the optional free-text note on a response.
func ValidateComment(comment string) error {
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return fmt.Errorf("comment must be at most %d characters", maxCommentLen)
	}
	return nil
}

// LooksLikeVerificationToken rejects obviously malformed tokens before a lookup.
func LooksLikeVerificationToken(token string) bool {
	return verificationTokenRegex.MatchString(token)
}
