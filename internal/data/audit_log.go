package data

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"VaultLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

const auditBufferSize = 1000

// InvocationLog is the GORM model for vault_invocation_logs table
type InvocationLog struct {
	ID              int64     `gorm:"primaryKey;column:id"`
	RequestID       string    `gorm:"column:request_id;type:varchar(64);index"`
	CredentialIndex int       `gorm:"column:credential_index;not null"`
	KeyHint         string    `gorm:"column:key_hint;type:varchar(64)"`
	Model           string    `gorm:"column:model;type:varchar(100);not null"`
	Outcome         string    `gorm:"column:outcome;type:varchar(32);not null;index"`
	Attempts        int       `gorm:"column:attempts;not null"`
	UpstreamStatus  int       `gorm:"column:upstream_status;default:0;not null"`
	DurationMs      int64     `gorm:"column:duration_ms;not null"`
	Details         string    `gorm:"column:details;type:json"` // JSON string
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (InvocationLog) TableName() string {
	return "vault_invocation_logs"
}

// InvocationLogger implements biz.InvocationAuditor. Rows are written by a
// background goroutine; with a nil DB every call is a no-op.
type InvocationLogger struct {
	db      *gorm.DB
	logChan chan *InvocationLog
	logger  *log.Helper

	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

// NewInvocationLogger creates the audit logger and starts its writer.
// The cleanup function drains pending rows before returning.
func NewInvocationLogger(d *Data, logger log.Logger) (*InvocationLogger, func()) {
	il := &InvocationLogger{
		logger:  log.NewHelper(logger),
		stopped: make(chan struct{}),
	}

	if d == nil || d.db == nil {
		close(il.stopped)
		return il, func() {}
	}

	il.db = d.db
	il.logChan = make(chan *InvocationLog, auditBufferSize)
	go il.start()

	return il, il.Close
}

// Enabled reports whether rows are persisted.
func (a *InvocationLogger) Enabled() bool {
	return a.db != nil
}

// start processes audit rows from channel
func (a *InvocationLogger) start() {
	defer close(a.stopped)

	for row := range a.logChan {
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(row).Error; err != nil {
			a.logger.Errorw("msg", "failed to write invocation log",
				"request_id", row.RequestID,
				"outcome", row.Outcome,
				"error", err)
		} else {
			a.logger.Debugw("msg", "invocation log written",
				"request_id", row.RequestID,
				"outcome", row.Outcome)
		}
	}
}

// LogInvocation queues one row. It never blocks: when the buffer is full the
// row is dropped with a warning.
func (a *InvocationLogger) LogInvocation(ctx context.Context, inv *model.Invocation) {
	if a.db == nil || inv == nil {
		return
	}

	details := map[string]interface{}{
		"json_mode": inv.JSONMode,
	}
	if inv.Error != "" {
		details["error"] = inv.Error
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("msg", "failed to marshal invocation log details", "error", err)
		return
	}

	row := &InvocationLog{
		RequestID:       inv.RequestID,
		CredentialIndex: inv.CredentialIndex,
		KeyHint:         inv.KeyHint,
		Model:           inv.Model,
		Outcome:         inv.Outcome,
		Attempts:        inv.Attempts,
		UpstreamStatus:  inv.UpstreamStatus,
		DurationMs:      inv.Duration.Milliseconds(),
		Details:         string(detailsJSON),
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.logChan <- row:
	default:
		a.logger.Warnw("msg", "invocation log channel full, dropping event",
			"request_id", inv.RequestID,
			"outcome", inv.Outcome)
	}
}

// Close stops accepting rows and waits until queued rows are written.
func (a *InvocationLogger) Close() {
	a.mu.Lock()
	if a.closed || a.logChan == nil {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.logChan)
	a.mu.Unlock()

	<-a.stopped
}
