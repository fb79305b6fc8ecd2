// Package errors provides classification of failures returned by the
// upstream chat-completion service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UpstreamErrorType represents the class of an upstream failure.
type UpstreamErrorType int

const (
	// ErrorTypeUnknown represents an unclassified failure.
	ErrorTypeUnknown UpstreamErrorType = iota
	// ErrorTypeRateLimited represents HTTP 429, the throttling signal.
	ErrorTypeRateLimited
	// ErrorTypeUnauthorized represents HTTP 401/403 (revoked or invalid credential).
	ErrorTypeUnauthorized
	// ErrorTypeClientError represents any other 4xx response.
	ErrorTypeClientError
	// ErrorTypeServerError represents a 5xx response.
	ErrorTypeServerError
	// ErrorTypeMalformedResponse represents a 2xx response whose body could not be decoded.
	ErrorTypeMalformedResponse
	// ErrorTypeTransport represents a failure before any response was received.
	ErrorTypeTransport
)

// String returns a stable label used in logs, metrics and audit records.
func (t UpstreamErrorType) String() string {
	switch t {
	case ErrorTypeRateLimited:
		return "rate_limited"
	case ErrorTypeUnauthorized:
		return "unauthorized"
	case ErrorTypeClientError:
		return "client_error"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeMalformedResponse:
		return "malformed_response"
	case ErrorTypeTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// UpstreamError is a non-throttling failure from the upstream service. It
// carries the HTTP status and body so callers can decide what to do.
type UpstreamError struct {
	Type       UpstreamErrorType
	StatusCode int    // 0 for transport failures
	Body       string // raw response body, or the transport error text
	Err        error  // underlying cause, if any
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.Type == ErrorTypeTransport:
		return fmt.Sprintf("upstream transport error: %v", e.Err)
	case e.Type == ErrorTypeMalformedResponse:
		return fmt.Sprintf("upstream malformed response (HTTP %d): %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("upstream error (HTTP %d %s): %s", e.StatusCode, e.Type, e.Body)
	}
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps an HTTP status code to an UpstreamErrorType.
// 2xx and other non-error codes map to ErrorTypeUnknown.
func ClassifyStatus(status int) UpstreamErrorType {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorTypeUnauthorized
	case status >= 400 && status < 500:
		return ErrorTypeClientError
	case status >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// IsRateLimited reports whether status is the upstream throttling signal.
func IsRateLimited(status int) bool {
	return ClassifyStatus(status) == ErrorTypeRateLimited
}

// NewStatusError builds an UpstreamError from a non-success response.
func NewStatusError(status int, body []byte) *UpstreamError {
	return &UpstreamError{
		Type:       ClassifyStatus(status),
		StatusCode: status,
		Body:       string(body),
	}
}

// NewMalformedError builds an UpstreamError for a success response whose
// envelope could not be decoded.
func NewMalformedError(status int, body []byte, cause error) *UpstreamError {
	return &UpstreamError{
		Type:       ErrorTypeMalformedResponse,
		StatusCode: status,
		Body:       string(body),
		Err:        cause,
	}
}

// NewTransportError builds an UpstreamError for a request that never got a response.
func NewTransportError(cause error) *UpstreamError {
	return &UpstreamError{
		Type: ErrorTypeTransport,
		Body: cause.Error(),
		Err:  cause,
	}
}

// AsUpstreamError extracts an *UpstreamError from err's chain.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}

// IsConnectionError checks whether a transport error message looks like a
// network-level problem (as opposed to e.g. a cancelled context).
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
		"eof",
		"dial tcp",
		"socks connect",
	} {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}
	return false
}
