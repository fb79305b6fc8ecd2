package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"VaultLane/internal/biz"
	"VaultLane/internal/conf"
	pkgerrors "VaultLane/pkg/errors"
	"VaultLane/pkg/groq"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter returns canned upstream responses in order
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []*groq.RawResponse
	calls     int
}

func (c *scriptedCompleter) CreateChatCompletion(_ context.Context, _ string, _ *groq.ChatCompletionRequest) (*groq.RawResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls >= len(c.responses) {
		return nil, errors.New("unexpected call")
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func chatBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
	return body
}

// setupTestService builds a VaultService over a fixed-start pool and scripted upstream.
func setupTestService(t *testing.T, keys []string, responses ...*groq.RawResponse) (*VaultService, *biz.CredentialPool) {
	t.Helper()
	logger := log.DefaultLogger

	pool, err := biz.NewCredentialPool(keys, biz.WithStartIndex(0))
	require.NoError(t, err)

	completer := &scriptedCompleter{responses: responses}
	invoker := biz.NewInvoker(pool, completer, &conf.Vault{Model: "llama-test"}, nil, nil, logger)
	monitor := biz.NewVaultMonitor(pool, nil, logger)

	return NewVaultService(invoker, monitor, logger), pool
}

func TestVaultService_Complete(t *testing.T) {
	svc, pool := setupTestService(t, []string{"gsk_aaaaaaaaaaaa"},
		&groq.RawResponse{StatusCode: http.StatusOK, Body: chatBody(t, `{"answer":42}`)})

	reply, err := svc.Complete(context.Background(), &CompleteRequest{
		SystemPrompt: "reply in JSON",
		UserPrompt:   "the answer",
		JSONMode:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"answer":42}`, reply.Content)
	assert.Equal(t, map[string]interface{}{"answer": float64(42)}, reply.Data)
	assert.Equal(t, 1, reply.Attempts)
	assert.Equal(t, 0, reply.CredentialIndex)
	assert.Equal(t, biz.VaultState{0: biz.KeyStatusIdle}, pool.Snapshot())
}

func TestVaultService_CompleteErrors(t *testing.T) {
	tests := []struct {
		name       string
		response   *groq.RawResponse
		jsonMode   bool
		wantCode   int32
		wantReason string
	}{
		{
			name:       "pool exhausted",
			response:   &groq.RawResponse{StatusCode: http.StatusTooManyRequests, Body: []byte(`{"error":{"message":"slow down"}}`)},
			wantCode:   http.StatusTooManyRequests,
			wantReason: biz.ReasonPoolExhausted,
		},
		{
			name:       "upstream server error",
			response:   &groq.RawResponse{StatusCode: http.StatusInternalServerError, Body: []byte("boom")},
			wantCode:   http.StatusBadGateway,
			wantReason: "VAULT_UPSTREAM_SERVER_ERROR",
		},
		{
			name:       "upstream unauthorized",
			response:   &groq.RawResponse{StatusCode: http.StatusUnauthorized, Body: []byte("invalid key")},
			wantCode:   http.StatusBadGateway,
			wantReason: "VAULT_UPSTREAM_UNAUTHORIZED",
		},
		{
			name:       "generated content is not JSON",
			response:   &groq.RawResponse{StatusCode: http.StatusOK, Body: chatBody(t, "not json")},
			jsonMode:   true,
			wantCode:   http.StatusBadGateway,
			wantReason: biz.ReasonResponseParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupTestService(t, []string{"gsk_aaaaaaaaaaaa"}, tt.response)

			reply, err := svc.Complete(context.Background(), &CompleteRequest{UserPrompt: "hi", JSONMode: tt.jsonMode})
			require.Error(t, err)
			assert.Nil(t, reply)

			kerr := kerrors.FromError(err)
			assert.Equal(t, tt.wantCode, kerr.Code)
			assert.Equal(t, tt.wantReason, kerr.Reason)
		})
	}
}

func TestToServiceError(t *testing.T) {
	t.Run("upstream status carried in metadata", func(t *testing.T) {
		err := toServiceError(pkgerrors.NewStatusError(http.StatusBadRequest, []byte("bad model")))
		kerr := kerrors.FromError(err)
		assert.Equal(t, int32(http.StatusBadGateway), kerr.Code)
		assert.Equal(t, "VAULT_UPSTREAM_CLIENT_ERROR", kerr.Reason)
		assert.Equal(t, "400", kerr.Metadata["upstream_status"])
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		kerr := kerrors.FromError(toServiceError(context.DeadlineExceeded))
		assert.Equal(t, int32(http.StatusGatewayTimeout), kerr.Code)
		assert.Equal(t, "VAULT_TIMEOUT", kerr.Reason)
	})

	t.Run("canceled", func(t *testing.T) {
		kerr := kerrors.FromError(toServiceError(context.Canceled))
		assert.Equal(t, int32(499), kerr.Code)
		assert.Equal(t, "VAULT_CANCELED", kerr.Reason)
	})

	t.Run("kratos errors pass through", func(t *testing.T) {
		err := toServiceError(biz.ErrPoolExhausted)
		assert.True(t, biz.IsPoolExhausted(err))
	})
}

func TestVaultService_GetVault(t *testing.T) {
	svc, pool := setupTestService(t, []string{"gsk_aaaaaaaaaaaa", "gsk_bbbbbbbbbbbb", "gsk_cccccccccccc"})
	require.NoError(t, pool.MarkCooldown(0))
	pool.Rotate()

	reply, err := svc.GetVault(context.Background(), &GetVaultRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, reply.Size)
	assert.Equal(t, 1, reply.Cursor)
	assert.Equal(t, 2, reply.Idle)
	assert.Equal(t, 1, reply.Cooldown)
	assert.True(t, reply.Degraded, "no state repo configured")

	require.Len(t, reply.Keys, 3)
	assert.Equal(t, "COOLDOWN", reply.Keys[0].Status)
	assert.True(t, reply.Keys[1].Current)
	assert.NotContains(t, reply.Keys[2].KeyHint, "cccccccccccc")
}

// readEvent reads one SSE frame and returns its data payload, skipping heartbeats
func readEvent(t *testing.T, r *bufio.Reader) StatusEvent {
	t.Helper()
	var data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			var event StatusEvent
			require.NoError(t, json.Unmarshal([]byte(data), &event))
			return event
		}
	}
}

func TestVaultService_StreamEvents(t *testing.T) {
	svc, pool := setupTestService(t, []string{"gsk_aaaaaaaaaaaa", "gsk_bbbbbbbbbbbb"})

	server := httptest.NewServer(http.HandlerFunc(svc.StreamEvents))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	// 订阅后立即收到当前状态
	initial := readEvent(t, reader)
	assert.Equal(t, map[int]string{0: "IDLE", 1: "IDLE"}, initial.Statuses)

	require.NoError(t, pool.MarkCooldown(1))
	changed := readEvent(t, reader)
	assert.Equal(t, map[int]string{0: "IDLE", 1: "COOLDOWN"}, changed.Statuses)

	// 客户端断开后取消订阅
	cancel()
	assert.Eventually(t, func() bool { return pool.Observers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
