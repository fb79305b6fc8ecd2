package biz

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"VaultLane/internal/conf"
	"VaultLane/pkg/crypto"
	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// KeyStatus is the advisory status of one credential.
type KeyStatus string

const (
	// KeyStatusIdle 未在使用，也未处于冷却
	KeyStatusIdle KeyStatus = "IDLE"
	// KeyStatusActive 正在发起请求
	KeyStatusActive KeyStatus = "ACTIVE"
	// KeyStatusCooldown 刚被限流
	KeyStatusCooldown KeyStatus = "COOLDOWN"
)

// VaultState maps a credential index (0-based, stable for the process
// lifetime) to its status.
type VaultState map[int]KeyStatus

// Clone returns a shallow copy of s.
func (s VaultState) Clone() VaultState {
	out := make(VaultState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Count returns how many credentials are in status.
func (s VaultState) Count(status KeyStatus) int {
	n := 0
	for _, v := range s {
		if v == status {
			n++
		}
	}
	return n
}

// PoolOption configures a CredentialPool.
type PoolOption func(*poolOptions)

type poolOptions struct {
	startIndex func(n int) int
}

// WithStartIndex fixes the initial cursor instead of picking a random one.
// Out-of-range values are reduced modulo the pool size.
func WithStartIndex(i int) PoolOption {
	return func(o *poolOptions) {
		o.startIndex = func(n int) int {
			return ((i % n) + n) % n
		}
	}
}

// CredentialPool owns the ordered credentials, the cursor selecting the
// current one, and the per-credential status.
//
// Status is advisory: it is published for observers and never prevents a
// credential from being selected. All methods are safe for concurrent use, but
// concurrent logical calls are not serialized against each other.
type CredentialPool struct {
	credentials []string

	mu     sync.Mutex
	cursor int
	status VaultState

	// notifyMu 串行化状态变更与通知，保证观察者按变更顺序收到快照
	notifyMu sync.Mutex
	registry *StatusRegistry
}

// NewCredentialPool builds a pool from raw, dropping blank entries. It returns
// ErrNoCredentials when nothing usable remains. The cursor starts at a
// uniformly random index unless WithStartIndex is given, and every credential
// starts IDLE.
func NewCredentialPool(raw []string, opts ...PoolOption) (*CredentialPool, error) {
	o := &poolOptions{startIndex: rand.IntN}
	for _, opt := range opts {
		opt(o)
	}

	credentials := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		credentials = append(credentials, c)
	}
	if len(credentials) == 0 {
		return nil, ErrNoCredentials
	}

	status := make(VaultState, len(credentials))
	for i := range credentials {
		status[i] = KeyStatusIdle
	}

	return &CredentialPool{
		credentials: credentials,
		cursor:      o.startIndex(len(credentials)),
		status:      status,
		registry:    NewStatusRegistry(),
	}, nil
}

// NewCredentialPoolFromConf opens sealed entries of vc.Keys with
// vc.EncryptionKey and builds the pool. It fails fast with ErrNoCredentials
// when no usable credential remains.
func NewCredentialPoolFromConf(vc *conf.Vault, logger log.Logger) (*CredentialPool, error) {
	helper := pkglog.NewLogHelper(logger)
	if vc == nil {
		return nil, ErrNoCredentials
	}

	var sealer *crypto.Sealer
	if vc.EncryptionKey != "" {
		s, err := crypto.NewSealer([]byte(vc.EncryptionKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create credential sealer: %w", err)
		}
		sealer = s
	}

	keys, err := crypto.OpenAll(sealer, vc.Keys)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed credentials: %w", err)
	}

	pool, err := NewCredentialPool(keys)
	if err != nil {
		helper.Errorw("msg", "No usable credentials configured", "configured", len(vc.Keys))
		return nil, err
	}

	helper.Vault("Credential pool initialized",
		"pool_size", pool.Size(),
		"skipped", len(vc.Keys)-pool.Size(),
		"cursor", pool.Cursor())
	return pool, nil
}

// Size returns the number of credentials.
func (p *CredentialPool) Size() int {
	return len(p.credentials)
}

// KeyHints returns the masked credentials in index order.
func (p *CredentialPool) KeyHints() []string {
	hints := make([]string, len(p.credentials))
	for i, c := range p.credentials {
		hints[i] = pkglog.MaskCredential(c)
	}
	return hints
}

// Cursor returns the index of the current credential.
func (p *CredentialPool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Current returns the index and value of the credential at the cursor.
func (p *CredentialPool) Current() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor, p.credentials[p.cursor]
}

// Rotate advances the cursor by one, wrapping around, and returns the new
// index. It does not change any status.
func (p *CredentialPool) Rotate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = (p.cursor + 1) % len(p.credentials)
	return p.cursor
}

// Snapshot returns a copy of the current status mapping.
func (p *CredentialPool) Snapshot() VaultState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.Clone()
}

// MarkActive sets credential index to ACTIVE and notifies observers.
func (p *CredentialPool) MarkActive(index int) error {
	return p.setStatus(index, KeyStatusActive)
}

// MarkCooldown sets credential index to COOLDOWN and notifies observers.
func (p *CredentialPool) MarkCooldown(index int) error {
	return p.setStatus(index, KeyStatusCooldown)
}

// MarkIdle sets credential index to IDLE and notifies observers.
func (p *CredentialPool) MarkIdle(index int) error {
	return p.setStatus(index, KeyStatusIdle)
}

func (p *CredentialPool) setStatus(index int, status KeyStatus) error {
	if index < 0 || index >= len(p.credentials) {
		return fmt.Errorf("credential index %d out of range [0, %d)", index, len(p.credentials))
	}

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.status[index] = status
	snapshot := p.status.Clone()
	p.mu.Unlock()

	p.registry.Publish(snapshot)
	return nil
}

// Subscribe registers obs. obs is called immediately with the current state
// and then after every status change, until the returned function is called.
// obs must not change pool status from inside the callback.
func (p *CredentialPool) Subscribe(obs StatusObserver) (unsubscribe func()) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	unsubscribe = p.registry.Register(obs)
	obs(p.Snapshot())
	return unsubscribe
}

// Observers returns the number of subscribed observers.
func (p *CredentialPool) Observers() int {
	return p.registry.Len()
}
