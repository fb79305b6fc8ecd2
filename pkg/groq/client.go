// Package groq provides a minimal client for the Groq OpenAI-compatible
// chat completions endpoint. It performs exactly one HTTP round trip per call;
// retry and credential rotation belong to the caller.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultBaseURL Groq OpenAI 兼容接口地址
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel 默认模型
	DefaultModel = "llama-3.3-70b-versatile"

	// DefaultTemperature 默认采样温度
	DefaultTemperature = 0.7

	// DefaultTimeout 单次请求超时（含读取响应体）
	DefaultTimeout = 60 * time.Second

	// UserAgent VaultLane 的 User-Agent
	UserAgent = "VaultLane/1.0"

	// maxBodyBytes 响应体读取上限
	maxBodyBytes = 8 << 20
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat requests structured output.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatCompletionRequest is the request body of POST /chat/completions.
type ChatCompletionRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// NewChatCompletionRequest builds a system+user request. When jsonMode is set
// the response format asks for a JSON object.
func NewChatCompletionRequest(model string, temperature float64, systemPrompt, userPrompt string, jsonMode bool) *ChatCompletionRequest {
	req := &ChatCompletionRequest{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Model:       model,
		Temperature: temperature,
	}
	if jsonMode {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	return req
}

// ChatCompletionResponse is the success body of POST /chat/completions.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Content returns the first choice's message content, or "" when absent.
func (r *ChatCompletionResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ErrorResponse is the error body returned by the API.
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ErrorMessage extracts error.message from an error body, falling back to the raw body.
func ErrorMessage(body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(body)
}

// RawResponse is the unprocessed outcome of one HTTP round trip.
type RawResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// OK reports whether the response has a 2xx status.
func (r *RawResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ParseChatCompletion decodes a success body.
func ParseChatCompletion(body []byte) (*ChatCompletionResponse, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid chat completion response: %w", err)
	}
	return &resp, nil
}

// Client 调用 Groq chat completions 接口
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. proxyURL may be empty, or a
// socks5://, socks5h://, http:// or https:// URL. timeout <= 0 uses DefaultTimeout.
func NewClient(baseURL, proxyURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient, err := newHTTPClient(proxyURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// CreateChatCompletion performs one POST {baseURL}/chat/completions
// authenticated with apiKey. Any response, including 429 and other non-2xx
// statuses, is returned as a RawResponse with a nil error; an error means no
// response was received.
func (c *Client) CreateChatCompletion(ctx context.Context, apiKey string, req *ChatCompletionRequest) (*RawResponse, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey cannot be empty")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}

// newHTTPClient 创建 HTTP 客户端（支持代理和自定义超时）
func newHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}

		switch parsed.Scheme {
		case "socks5", "socks5h":
			dialer, err := newSOCKS5Dialer(parsed)
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			} else {
				transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				}
			}

		case "http", "https":
			transport.Proxy = http.ProxyURL(parsed)

		default:
			return nil, fmt.Errorf("unsupported proxy scheme: %s (supported: socks5, http, https)", parsed.Scheme)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// newSOCKS5Dialer 创建 SOCKS5 代理 dialer，缺省端口 1080
func newSOCKS5Dialer(parsed *url.URL) (proxy.Dialer, error) {
	var auth *proxy.Auth
	if parsed.User != nil {
		password, _ := parsed.User.Password()
		auth = &proxy.Auth{
			User:     parsed.User.Username(),
			Password: password,
		}
	}

	host := parsed.Host
	if parsed.Port() == "" {
		host = net.JoinHostPort(parsed.Hostname(), "1080")
	}

	return proxy.SOCKS5("tcp", host, auth, proxy.Direct)
}
