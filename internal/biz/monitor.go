package biz

import (
	"context"
	"time"

	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// KeyReport describes one credential in a VaultReport.
type KeyReport struct {
	Index   int
	KeyHint string
	Status  KeyStatus
	// Throttles 最近一分钟内的限流次数（Redis 不可用时为 0）
	Throttles int64
	Current   bool
}

// VaultReport is a point-in-time view of the credential pool.
type VaultReport struct {
	Size        int
	Cursor      int
	Idle        int
	Active      int
	Cooldown    int
	Keys        []KeyReport
	Degraded    bool
	GeneratedAt time.Time
}

// VaultMonitor builds pool reports for the HTTP API and the scheduled job.
type VaultMonitor struct {
	pool   *CredentialPool
	repo   VaultStateRepo
	logger *pkglog.LogHelper
	now    func() time.Time
}

// NewVaultMonitor creates a VaultMonitor. repo may be nil.
func NewVaultMonitor(pool *CredentialPool, repo VaultStateRepo, logger log.Logger) *VaultMonitor {
	return &VaultMonitor{
		pool:   pool,
		repo:   repo,
		logger: pkglog.NewLogHelper(logger),
		now:    time.Now,
	}
}

// Report returns the current pool report. Throttle counters come from the
// state repo; when it is unavailable or failing the report is marked Degraded
// and counters are zero.
func (m *VaultMonitor) Report(ctx context.Context) *VaultReport {
	snapshot := m.pool.Snapshot()
	cursor := m.pool.Cursor()
	hints := m.pool.KeyHints()

	report := &VaultReport{
		Size:        m.pool.Size(),
		Cursor:      cursor,
		Idle:        snapshot.Count(KeyStatusIdle),
		Active:      snapshot.Count(KeyStatusActive),
		Cooldown:    snapshot.Count(KeyStatusCooldown),
		Keys:        make([]KeyReport, 0, len(hints)),
		GeneratedAt: m.now(),
	}

	var counts map[int]int64
	if m.repo == nil || !m.repo.Available() {
		report.Degraded = true
	} else {
		c, err := m.repo.ThrottleCounts(ctx, report.Size)
		if err != nil {
			// Redis 故障不影响报告生成
			m.logger.Warnf("Failed to read throttle counters: %v (report degraded)", err)
			report.Degraded = true
		} else {
			counts = c
		}
	}

	for i, hint := range hints {
		report.Keys = append(report.Keys, KeyReport{
			Index:     i,
			KeyHint:   hint,
			Status:    snapshot[i],
			Throttles: counts[i],
			Current:   i == cursor,
		})
	}

	return report
}

// LogReport writes the current report to the log. It is run by the scheduler.
func (m *VaultMonitor) LogReport(ctx context.Context) {
	report := m.Report(ctx)

	var throttles int64
	for _, k := range report.Keys {
		throttles += k.Throttles
	}

	m.logger.Vault("Credential pool report",
		"pool_size", report.Size,
		"cursor", report.Cursor,
		"idle", report.Idle,
		"active", report.Active,
		"cooldown", report.Cooldown,
		"throttles_last_minute", throttles,
		"degraded", report.Degraded)
}
