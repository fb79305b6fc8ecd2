package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected UpstreamErrorType
	}{
		{"rate limited", 429, ErrorTypeRateLimited},
		{"unauthorized", 401, ErrorTypeUnauthorized},
		{"forbidden", 403, ErrorTypeUnauthorized},
		{"bad request", 400, ErrorTypeClientError},
		{"not found", 404, ErrorTypeClientError},
		{"internal", 500, ErrorTypeServerError},
		{"bad gateway", 502, ErrorTypeServerError},
		{"ok", 200, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyStatus(tt.status))
		})
	}

	assert.True(t, IsRateLimited(429))
	assert.False(t, IsRateLimited(503))
}

func TestUpstreamError_Messages(t *testing.T) {
	statusErr := NewStatusError(500, []byte(`{"error":{"message":"boom"}}`))
	assert.Equal(t, ErrorTypeServerError, statusErr.Type)
	assert.Equal(t, 500, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "HTTP 500 server_error")
	assert.Contains(t, statusErr.Error(), "boom")

	cause := fmt.Errorf("invalid character 'x'")
	malformed := NewMalformedError(200, []byte("x"), cause)
	assert.Equal(t, "malformed_response", malformed.Type.String())
	assert.ErrorIs(t, malformed, cause)

	transport := NewTransportError(context.DeadlineExceeded)
	assert.Equal(t, 0, transport.StatusCode)
	assert.ErrorIs(t, transport, context.DeadlineExceeded)
	assert.Contains(t, transport.Error(), "transport")
}

func TestAsUpstreamError(t *testing.T) {
	wrapped := fmt.Errorf("invoke: %w", NewStatusError(401, []byte("invalid key")))

	upErr, ok := AsUpstreamError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeUnauthorized, upErr.Type)
	assert.Equal(t, "invalid key", upErr.Body)

	_, ok = AsUpstreamError(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(errors.New("dial tcp 10.0.0.1:443: connect: connection refused")))
	assert.True(t, IsConnectionError(errors.New("read: Connection Reset by peer")))
	assert.False(t, IsConnectionError(context.Canceled))
	assert.False(t, IsConnectionError(nil))
}
