package log

import (
	"context"
	"math/rand/v2"
	"time"
)

// contextKey 是用于存储 RequestContext 的私有 key 类型
type contextKey string

const requestContextKey contextKey = "vaultlane_request_context"

// base36 字符集（小写字母 + 数字）
const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

// RequestContext 存储请求追踪信息，通过 Context 在 service / biz 层之间传递
type RequestContext struct {
	RequestID string    // 10 位短 ID，如 mgrn0zfqda
	ClientIP  string    // 调用方 IP
	StartTime time.Time // 请求开始时间
}

// GenerateRequestID 生成 10 位 base36 随机请求 ID
func GenerateRequestID() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[rand.IntN(len(base36Chars))]
	}
	return string(b)
}

// WithRequestContext 将 RequestContext 注入到 Context 中
func WithRequestContext(ctx context.Context, requestID, clientIP string) context.Context {
	return context.WithValue(ctx, requestContextKey, &RequestContext{
		RequestID: requestID,
		ClientIP:  clientIP,
		StartTime: time.Now(),
	})
}

// GetRequestContext 从 Context 中提取 RequestContext。
// 不存在时返回 RequestID 为 "unknown" 的默认值，避免调用方做 nil 检查
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID 从 Context 中提取 Request ID
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetElapsedTime 获取请求已执行时间（毫秒）
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
