package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeField(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"credential field", "credential", "gsk_abcdefghijklmnop", "gsk_************mnop"},
		{"api key uppercase", "API_KEY", "gsk_1234567890", "gsk_******7890"},
		{"authorization header", "Authorization", "Bearer gsk_secret_value", "Bear***************alue"},
		{"encryption key", "encryption_key", "short", "s***t"},
		{"mysql dsn", "mysql_dsn", "user:pw@tcp(db)/vault", "user*************ault"},
		{"empty value", "token", "", ""},
		{"non-sensitive", "model", "llama-3.3-70b-versatile", "llama-3.3-70b-versatile"},
		{"credential prefix", "credential_label", "gsk", "g*k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeField(tt.key, tt.value))
		})
	}
}

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"", ""},
		{"a", "*"},
		{"ab", "**"},
		{"abc", "a*c"},
		{"abcdefgh", "a******h"},
		{"abcdefghi", "abcd*fghi"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			masked := MaskCredential(tt.value)
			assert.Equal(t, tt.expected, masked)
			assert.Len(t, masked, len(tt.value))
		})
	}
}
