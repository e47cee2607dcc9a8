package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactToken(t *testing.T) {
	tests := []struct {
		path, prefix, want string
	}{
		{"/api/sign/abcDEF123", "/api/sign", "/api/sign/<redacted>"},
		{"/api/sign/abcDEF123?x=1", "/api/sign/", "/api/sign/<redacted>?x=1"},
		{"https://app.example/assinatura/tok/extra", "/assinatura", "https://app.example/assinatura/<redacted>/extra"},
		{"/api/signature-requests/4", "/api/sign", "/api/signature-requests/4"},
		{"/api/sign/", "/api/sign", "/api/sign/"},
		{"/health/live", "/api/sign", "/health/live"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactToken(tt.path, tt.prefix), tt.path)
	}
}

func TestGenerateCorrelationID_Unique(t *testing.T) {
	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
