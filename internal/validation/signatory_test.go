package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSignatoryName(t *testing.T) {
	assert.NoError(t, ValidateSignatoryName("Maria da Silva"))
	assert.Error(t, ValidateSignatoryName("   "))
	assert.Error(t, ValidateSignatoryName(strings.Repeat("á", 201)))
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"maria@example.com", "a.b+c@sub.example.com.br"}
	invalid := []string{"", "maria", "maria@", "Maria <maria@example.com>", "maria@localhost", "a@b@c.com"}

	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}
	for _, email := range invalid {
		assert.Error(t, ValidateEmail(email), email)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "maria@example.com", NormalizeEmail("  Maria@Example.COM "))
}

func TestValidateComment(t *testing.T) {
	assert.NoError(t, ValidateComment(""))
	assert.Error(t, ValidateComment(strings.Repeat("x", 2001)))
}

func TestLooksLikeVerificationToken(t *testing.T) {
	assert.True(t, LooksLikeVerificationToken("q8Nw0y2uV3o1k9J3xJm7eW6x2a5pZ0bQ4rT8sU1vY2c"))
	assert.False(t, LooksLikeVerificationToken("short"))
	assert.False(t, LooksLikeVerificationToken("has spaces in it but is long"))
	assert.False(t, LooksLikeVerificationToken("../../etc/passwd-aaaaaaaaaaa"))
}
