package biz

import (
	"context"
	"sync"
	"time"

	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	mirrorBufferSize   = 256
	mirrorWriteTimeout = 2 * time.Second
)

// StatusMirror copies every pool snapshot into a VaultStateRepo and counts
// transitions into COOLDOWN. Snapshots are queued by the observer callback and
// written by a background goroutine, so a slow or unavailable store never
// blocks the invoker. When the queue is full snapshots are dropped.
type StatusMirror struct {
	pool   *CredentialPool
	repo   VaultStateRepo
	logger *pkglog.LogHelper

	mu          sync.Mutex
	closed      bool
	queue       chan VaultState
	unsubscribe func()
	done        chan struct{}
	stopOnce    sync.Once
}

// NewStatusMirror creates a mirror. When repo is nil or unavailable Start is a no-op.
func NewStatusMirror(pool *CredentialPool, repo VaultStateRepo, logger log.Logger) *StatusMirror {
	return &StatusMirror{
		pool:   pool,
		repo:   repo,
		logger: pkglog.NewLogHelper(logger),
		queue:  make(chan VaultState, mirrorBufferSize),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the pool and begins writing snapshots.
func (m *StatusMirror) Start() {
	if m.repo == nil || !m.repo.Available() {
		m.logger.Redis("Vault state repo unavailable, status mirror disabled")
		close(m.done)
		return
	}

	go m.run()
	m.unsubscribe = m.pool.Subscribe(m.enqueue)
	m.logger.Redis("Status mirror started", "pool_size", m.pool.Size())
}

// Stop unsubscribes, drains queued snapshots and waits for the writer to exit.
func (m *StatusMirror) Stop() {
	m.stopOnce.Do(func() {
		if m.unsubscribe == nil {
			return
		}
		m.unsubscribe()

		// 发布中的快照可能在取消订阅后到达
		m.mu.Lock()
		m.closed = true
		close(m.queue)
		m.mu.Unlock()

		<-m.done
		m.logger.Redis("Status mirror stopped")
	})
}

func (m *StatusMirror) enqueue(state VaultState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- state:
	default:
		m.logger.Warnw("msg", "Status mirror queue full, dropping snapshot", "type", "redis")
	}
}

func (m *StatusMirror) run() {
	defer close(m.done)

	var previous VaultState
	for state := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
		m.write(ctx, previous, state)
		cancel()
		previous = state
	}
}

func (m *StatusMirror) write(ctx context.Context, previous, state VaultState) {
	snapshot := make(map[int]string, len(state))
	for index, status := range state {
		snapshot[index] = string(status)
	}
	if err := m.repo.SaveSnapshot(ctx, snapshot); err != nil {
		// Redis 不可用时降级，只记录日志
		m.logger.Warnf("Failed to mirror vault status: %v", err)
	}

	for _, index := range CooldownTransitions(previous, state) {
		if _, err := m.repo.IncrementThrottle(ctx, index); err != nil {
			m.logger.Warnf("Failed to increment throttle counter for credential %d: %v", index, err)
		}
	}
}

// CooldownTransitions returns, in ascending order, the indices that are
// COOLDOWN in next but were not COOLDOWN in prev.
func CooldownTransitions(prev, next VaultState) []int {
	var out []int
	for index := 0; index < len(next); index++ {
		if next[index] == KeyStatusCooldown && prev[index] != KeyStatusCooldown {
			out = append(out, index)
		}
	}
	return out
}
