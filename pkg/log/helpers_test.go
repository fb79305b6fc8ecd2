package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// createTestLogger 创建写入内存缓冲区的日志记录器
func createTestLogger() (*LogHelper, *bytes.Buffer) {
	buf := &bytes.Buffer{}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(buf), zapcore.DebugLevel)

	return NewLogHelper(NewKratosAdapter(zap.New(core))), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogHelper_TypedMessages(t *testing.T) {
	tests := []struct {
		name     string
		log      func(h *LogHelper)
		logType  string
		level    string
		contains string
	}{
		{"vault", func(h *LogHelper) { h.Vault("pool ready", "size", 3) }, "vault", "info", "pool ready"},
		{"success", func(h *LogHelper) { h.Success("completion returned") }, "success", "info", "completion returned"},
		{"security", func(h *LogHelper) { h.Security("rejected caller") }, "security", "warn", "rejected caller"},
		{"redis", func(h *LogHelper) { h.Redis("snapshot mirrored") }, "redis", "debug", "snapshot mirrored"},
		{"scheduler", func(h *LogHelper) { h.Scheduler("report") }, "scheduler", "info", "report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper, buf := createTestLogger()
			tt.log(helper)

			entries := decodeLines(t, buf)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.logType, entries[0]["type"])
			assert.Equal(t, tt.level, entries[0]["level"])
			assert.Contains(t, entries[0]["msg"], tt.contains)
		})
	}
}

func TestLogHelper_RotationCarriesRequestID(t *testing.T) {
	helper, buf := createTestLogger()
	ctx := WithRequestContext(context.Background(), "req0000001", "10.0.0.1")

	helper.Rotation(ctx, 1, 2, 1)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req0000001", entries[0]["request_id"])
	assert.Equal(t, "rotation", entries[0]["type"])
	assert.EqualValues(t, 2, entries[0]["to_index"])
	assert.Contains(t, entries[0]["msg"], "Rotating credential 1 -> 2")
}

func TestLogHelper_SanitizesCredentialFields(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Vault("loaded", "credential", "gsk_abcdefghijklmnop")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "gsk_************mnop", entries[0]["credential"])
	assert.NotContains(t, buf.String(), "abcdefghijkl")
}

func TestLogHelper_SlowRequest(t *testing.T) {
	helper, buf := createTestLogger()

	helper.Request(context.Background(), "POST", "/v1/completions", 200, 6000)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "request", entries[0]["type"])
	assert.Equal(t, "slow_request", entries[1]["type"])
	assert.Equal(t, "unknown", entries[1]["request_id"])
}

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	assert.Len(t, id, 10)
	for _, c := range id {
		assert.Contains(t, base36Chars, string(c))
	}
	assert.NotEqual(t, id, GenerateRequestID())
}
