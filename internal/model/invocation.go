package model

import "time"

// Invocation outcome constants, stored in vault_invocation_logs.outcome.
const (
	InvocationSuccess   = "SUCCESS"
	InvocationExhausted = "POOL_EXHAUSTED"
	InvocationUpstream  = "UPSTREAM_ERROR"
	InvocationParse     = "PARSE_ERROR"
	InvocationCanceled  = "CANCELED"
)

// Invocation describes one finished logical call.
type Invocation struct {
	RequestID string
	// CredentialIndex 最后一次尝试使用的凭证下标
	CredentialIndex int
	// KeyHint 脱敏后的凭证，例如 gsk_************mnop
	KeyHint        string
	Model          string
	JSONMode       bool
	Attempts       int
	Outcome        string
	UpstreamStatus int
	Duration       time.Duration
	Error          string
}
