package log

import (
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// emojiMap 日志类型到表情符号的映射，由 "type" 字段触发
var emojiMap = map[string]string{
	"vault":        "🔑",
	"rotation":     "🔄",
	"cooldown":     "🧊",
	"exhausted":    "🪫",
	"upstream":     "🔗",
	"request":      "🌐",
	"success":      "✅",
	"auth":         "🔓",
	"security":     "🔒",
	"redis":        "📦",
	"database":     "💾",
	"audit":        "📋",
	"scheduler":    "🎯",
	"startup":      "🚀",
	"slow_request": "🐌",
}

// statusEmoji 根据 HTTP 状态码返回表情符号
func statusEmoji(status int) string {
	switch {
	case status >= 500:
		return "🔴"
	case status >= 400:
		return "🟠"
	case status >= 300:
		return "🟡"
	default:
		return "🟢"
	}
}

// levelEmoji 没有 type / status 时按日志级别兜底
func levelEmoji(level zapcore.Level) string {
	switch {
	case level >= zapcore.ErrorLevel:
		return "❌"
	case level == zapcore.WarnLevel:
		return "⚠️"
	case level == zapcore.InfoLevel:
		return "ℹ️"
	default:
		return "🐛"
	}
}

// EmojiConsoleEncoder 包装 Zap 的 ConsoleEncoder，在消息前加表情符号
type EmojiConsoleEncoder struct {
	zapcore.Encoder
}

// NewEmojiConsoleEncoder 创建带表情符号的控制台编码器
func NewEmojiConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &EmojiConsoleEncoder{
		Encoder: zapcore.NewConsoleEncoder(cfg),
	}
}

// EncodeEntry 编码日志条目。优先级：status 字段 > type 字段 > 日志级别
func (enc *EmojiConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	entry.Message = emojiFor(entry.Level, fields) + " " + entry.Message
	return enc.Encoder.EncodeEntry(entry, fields)
}

// Clone 克隆编码器（Zap 内部使用）
func (enc *EmojiConsoleEncoder) Clone() zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: enc.Encoder.Clone()}
}

func emojiFor(level zapcore.Level, fields []zapcore.Field) string {
	var (
		logType string
		status  int64
	)
	for _, field := range fields {
		switch {
		case field.Key == "type" && field.Type == zapcore.StringType:
			logType = field.String
		case field.Key == "status" && (field.Type == zapcore.Int64Type || field.Type == zapcore.Int32Type):
			status = field.Integer
		}
	}

	if status > 0 {
		return statusEmoji(int(status))
	}
	if e, ok := emojiMap[logType]; ok {
		return e
	}
	return levelEmoji(level)
}
