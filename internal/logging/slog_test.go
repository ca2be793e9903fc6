package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "normal email", email: "alice@example.com"},
		{name: "another email", email: "bob@example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			assert.NotEmpty(t, got)
			assert.NotContains(t, got, tt.email)
			assert.Contains(t, got, "user:")
			// Stable for correlation
			assert.Equal(t, got, AnonymizeEmail(tt.email))
		})
	}

	assert.Empty(t, AnonymizeEmail(""))
}

func TestAnonymizePhone(t *testing.T) {
	got := AnonymizePhone("+15551234567")
	assert.Contains(t, got, "phone:")
	assert.NotContains(t, got, "555")
	assert.Empty(t, AnonymizePhone(""))
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))
	got := SanitizeToken("ya29.secret-token-value")
	assert.NotContains(t, got, "secret")
	assert.Equal(t, "[token:23 chars]", got)
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{name: "normal email", email: "alice@example.com", expected: "example.com"},
		{name: "empty", email: "", expected: ""},
		{name: "no at sign", email: "not-an-email", expected: ""},
		{name: "multiple at signs", email: "a@b@c", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractDomain(tt.email))
		})
	}
}

func TestErr(t *testing.T) {
	// nil error must produce an attribute slog omits from output
	attr := Err(nil)
	assert.Equal(t, slog.KindGroup, attr.Value.Kind())

	attr = Err(assert.AnError)
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, assert.AnError.Error(), attr.Value.String())
}
