package service

import "time"

// CompleteRequest is the body of POST /v1/completions.
type CompleteRequest struct {
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
	// JSONMode 为 true 时要求模型输出 JSON 对象并解析到 data 字段
	JSONMode bool `json:"json_mode"`
}

// CompleteReply is the response of POST /v1/completions.
type CompleteReply struct {
	Content         string      `json:"content"`
	Data            interface{} `json:"data,omitempty"`
	Attempts        int         `json:"attempts"`
	CredentialIndex int         `json:"credential_index"`
}

// GetVaultRequest is the (empty) request of GET /v1/vault.
type GetVaultRequest struct{}

// KeyInfo describes one credential in GetVaultReply.
type KeyInfo struct {
	Index     int    `json:"index"`
	KeyHint   string `json:"key_hint"`
	Status    string `json:"status"`
	Throttles int64  `json:"throttles_last_minute"`
	Current   bool   `json:"current"`
}

// GetVaultReply is the response of GET /v1/vault.
type GetVaultReply struct {
	Size        int       `json:"size"`
	Cursor      int       `json:"cursor"`
	Idle        int       `json:"idle"`
	Active      int       `json:"active"`
	Cooldown    int       `json:"cooldown"`
	Keys        []KeyInfo `json:"keys"`
	Degraded    bool      `json:"degraded"`
	GeneratedAt time.Time `json:"generated_at"`
}

// StatusEvent is one Server-Sent Event on GET /v1/vault/events.
type StatusEvent struct {
	Statuses map[int]string `json:"statuses"`
	At       time.Time      `json:"at"`
}
