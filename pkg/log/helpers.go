package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// LogHelper 扩展 Kratos log.Helper，为每类日志自动附加 "type" 字段，
// 由 EmojiConsoleEncoder 映射为表情符号
type LogHelper struct {
	*log.Helper
}

// NewLogHelper 创建增强的日志辅助器
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func withType(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := make([]interface{}, 0, len(kvs)+4)
	allKvs = append(allKvs, "msg", msg)
	allKvs = append(allKvs, kvs...)
	return append(allKvs, "type", logType)
}

// Vault 记录凭证池相关日志（🔑）
func (h *LogHelper) Vault(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "vault", kvs)...)
}

// Rotation 记录凭证轮换日志（🔄）
func (h *LogHelper) Rotation(ctx context.Context, from, to, attempt int, kvs ...interface{}) {
	reqID := GetRequestID(ctx)
	msg := fmt.Sprintf("[%s] Rotating credential %d -> %d (attempt %d)", reqID, from, to, attempt)
	kvs = append(kvs, "request_id", reqID, "from_index", from, "to_index", to, "attempt", attempt)
	h.Warnw(withType(msg, "rotation", kvs)...)
}

// Cooldown 记录凭证被限流进入冷却的日志（🧊）
func (h *LogHelper) Cooldown(ctx context.Context, index int, kvs ...interface{}) {
	reqID := GetRequestID(ctx)
	msg := fmt.Sprintf("[%s] Rate limit on credential %d", reqID, index)
	kvs = append(kvs, "request_id", reqID, "credential_index", index)
	h.Warnw(withType(msg, "cooldown", kvs)...)
}

// Exhausted 记录所有凭证均被限流的日志（🪫）
func (h *LogHelper) Exhausted(ctx context.Context, attempts int, kvs ...interface{}) {
	reqID := GetRequestID(ctx)
	msg := fmt.Sprintf("[%s] Credential pool exhausted after %d attempts", reqID, attempts)
	kvs = append(kvs, "request_id", reqID, "attempts", attempts)
	h.Errorw(withType(msg, "exhausted", kvs)...)
}

// Upstream 记录上游服务失败（非限流）的日志（🔗）
func (h *LogHelper) Upstream(ctx context.Context, index, status int, kvs ...interface{}) {
	reqID := GetRequestID(ctx)
	msg := fmt.Sprintf("[%s] Upstream failure on credential %d (HTTP %d)", reqID, index, status)
	kvs = append(kvs, "request_id", reqID, "credential_index", index, "upstream_status", status)
	h.Errorw(withType(msg, "upstream", kvs)...)
}

// Success 记录成功操作日志（✅）
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "success", kvs)...)
}

// Request 记录 HTTP 请求日志（表情符号由状态码决定）
func (h *LogHelper) Request(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqID := GetRequestID(ctx)
	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s", method, url, status, durationMs, reqID)
	kvs = append(kvs,
		"request_id", reqID,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(withType(msg, "request", kvs)...)

	// 慢请求阈值 5000ms（单次调用可能包含多次轮换与退避）
	if durationMs > 5000 {
		slowMsg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms", reqID, method, url, durationMs)
		h.Warnw(withType(slowMsg, "slow_request", []interface{}{"request_id", reqID, "duration_ms", durationMs})...)
	}
}

// Auth 记录认证相关日志（🔓）
func (h *LogHelper) Auth(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "auth", kvs)...)
}

// Security 记录安全相关日志（🔒）
func (h *LogHelper) Security(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "security", kvs)...)
}

// Redis 记录 Redis 操作日志（📦）
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "redis", kvs)...)
}

// Database 记录数据库操作日志（💾）
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "database", kvs)...)
}

// Audit 记录审计日志（📋）
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "audit", kvs)...)
}

// Scheduler 记录定时任务日志（🎯）
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "scheduler", kvs)...)
}

// Startup 记录启动相关日志（🚀）
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "startup", kvs)...)
}
