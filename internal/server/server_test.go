package server

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"VaultLane/internal/biz"
	"VaultLane/internal/conf"
	"VaultLane/internal/service"
	"VaultLane/pkg/groq"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopCompleter struct{}

func (noopCompleter) CreateChatCompletion(context.Context, string, *groq.ChatCompletionRequest) (*groq.RawResponse, error) {
	return &groq.RawResponse{StatusCode: nethttp.StatusTooManyRequests}, nil
}

func newTestHTTPServer(t *testing.T, token string) (nethttp.Handler, *Metrics) {
	t.Helper()
	logger := log.DefaultLogger

	metrics, cleanup, err := NewMetrics(logger)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	vm, err := biz.NewVaultMetrics(NewMeter(metrics))
	require.NoError(t, err)

	pool, err := biz.NewCredentialPool([]string{"gsk_aaaaaaaaaaaa", "gsk_bbbbbbbbbbbb"}, biz.WithStartIndex(0))
	require.NoError(t, err)
	invoker := biz.NewInvoker(pool, noopCompleter{}, &conf.Vault{}, vm, nil, logger)
	svc := service.NewVaultService(invoker, biz.NewVaultMonitor(pool, nil, logger), logger)

	c := &conf.Server{HTTP: &conf.Server_HTTP{Addr: "127.0.0.1:0", AccessToken: token}}
	return NewHTTPServer(c, svc, metrics, logger), metrics
}

func TestHTTPServer_GetVault(t *testing.T) {
	srv, _ := newTestHTTPServer(t, "secret-token")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/v1/vault", nil))
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(nethttp.MethodGet, "/v1/vault", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var reply service.GetVaultReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, 2, reply.Size)
	assert.Equal(t, 2, reply.Idle)
}

func TestHTTPServer_EventsRequireToken(t *testing.T) {
	srv, _ := newTestHTTPServer(t, "secret-token")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/v1/vault/events", nil))
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
}

func TestHTTPServer_CompleteExhaustedAndMetrics(t *testing.T) {
	srv, _ := newTestHTTPServer(t, "")

	// 单次调用两次 429：第一次后退避轮换，第二次耗尽
	req := httptest.NewRequest(nethttp.MethodPost, "/v1/completions", strings.NewReader(`{"user_prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, nethttp.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), biz.ReasonPoolExhausted)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "vault_throttle_total")
	assert.Contains(t, string(body), "vault_rotation_total")
	assert.Contains(t, string(body), "go_goroutines")
}
