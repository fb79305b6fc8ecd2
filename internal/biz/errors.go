package biz

import (
	"github.com/go-kratos/kratos/v2/errors"
)

const (
	// ReasonNoCredentials 启动时没有可用凭证
	ReasonNoCredentials = "VAULT_NO_CREDENTIALS"
	// ReasonPoolExhausted 一次逻辑调用内所有凭证都被限流
	ReasonPoolExhausted = "VAULT_POOL_EXHAUSTED"
	// ReasonResponseParse 成功响应的内容无法按 JSON 解析
	ReasonResponseParse = "VAULT_RESPONSE_PARSE"
)

var (
	// ErrNoCredentials is returned by NewCredentialPool when the filtered
	// credential list is empty. It is never returned after construction.
	ErrNoCredentials = errors.New(500, ReasonNoCredentials, "no usable credentials configured")

	// ErrPoolExhausted is returned when every credential was rate limited
	// within one logical call. Callers may retry later.
	ErrPoolExhausted = errors.New(429, ReasonPoolExhausted, "all credentials are rate limited")

	// ErrResponseParse is returned when JSON output was requested and the
	// generated content is not valid JSON.
	ErrResponseParse = errors.New(502, ReasonResponseParse, "failed to parse generated content as JSON")
)

// IsPoolExhausted reports whether err is (or wraps) ErrPoolExhausted.
func IsPoolExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}

// IsNoCredentials reports whether err is (or wraps) ErrNoCredentials.
func IsNoCredentials(err error) bool {
	return errors.Is(err, ErrNoCredentials)
}
