package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// verificationTokenBytes is the entropy of a signing link token (256 bits).
const verificationTokenBytes = 32

// NewVerificationToken returns a URL-safe bearer token for a signing link.
func NewVerificationToken() (string, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newTokenSet returns n pairwise distinct tokens.
func newTokenSet(n int, gen func() (string, error)) ([]string, error) {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		tok, err := gen()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out, nil
}
