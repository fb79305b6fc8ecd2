package log

import (
	"strings"
)

// sensitiveKeywords 匹配到这些关键字的字段值会被脱敏
var sensitiveKeywords = []string{
	"password", "passwd", "pwd",
	"api_key", "apikey", "api-key",
	"token", "secret", "auth",
	"credential", "bearer", "private_key",
	"encryption_key", "dsn",
}

// SanitizeField masks value when key looks sensitive. Keys are matched
// case-insensitively by substring.
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return MaskCredential(value)
		}
	}

	return value
}

// MaskCredential masks a secret showing only the first 4 and last 4
// characters. Values of 8 characters or fewer keep only their first and last
// character, and values of 2 or fewer are fully masked.
//
//	MaskCredential("gsk_abcdefghijklmnop") -> "gsk_************mnop"
func MaskCredential(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}

	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
