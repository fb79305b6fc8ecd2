package biz

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope used for vault metrics.
const MeterName = "VaultLane/vault"

// Call outcomes recorded on vault.call.total.
const (
	OutcomeSuccess   = "success"
	OutcomeExhausted = "exhausted"
	OutcomeUpstream  = "upstream_error"
	OutcomeParse     = "parse_error"
	OutcomeCanceled  = "canceled"
)

// VaultMetrics records invoker activity.
type VaultMetrics struct {
	attempts  metric.Int64Counter
	throttles metric.Int64Counter
	rotations metric.Int64Counter
	calls     metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewVaultMetrics creates the vault instruments on meter. A nil meter yields
// no-op instruments.
func NewVaultMetrics(meter metric.Meter) (*VaultMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
	}

	attempts, err := meter.Int64Counter(
		"vault.attempt.total",
		metric.WithDescription("Upstream attempts issued, per credential"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	throttles, err := meter.Int64Counter(
		"vault.throttle.total",
		metric.WithDescription("Rate limited responses, per credential"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	rotations, err := meter.Int64Counter(
		"vault.rotation.total",
		metric.WithDescription("Cursor rotations caused by rate limiting"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return nil, err
	}

	calls, err := meter.Int64Counter(
		"vault.call.total",
		metric.WithDescription("Logical calls, by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"vault.call.duration_ms",
		metric.WithDescription("Logical call duration in milliseconds, including backoff"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &VaultMetrics{
		attempts:  attempts,
		throttles: throttles,
		rotations: rotations,
		calls:     calls,
		duration:  duration,
	}, nil
}

func credentialAttr(index int) metric.AddOption {
	return metric.WithAttributes(attribute.Int("credential.index", index))
}

// RecordAttempt counts one upstream attempt on credential index.
func (m *VaultMetrics) RecordAttempt(ctx context.Context, index int) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, credentialAttr(index))
}

// RecordThrottle counts one rate limited response on credential index.
func (m *VaultMetrics) RecordThrottle(ctx context.Context, index int) {
	if m == nil {
		return
	}
	m.throttles.Add(ctx, 1, credentialAttr(index))
}

// RecordRotation counts one cursor rotation.
func (m *VaultMetrics) RecordRotation(ctx context.Context) {
	if m == nil {
		return
	}
	m.rotations.Add(ctx, 1)
}

// RecordCall records the outcome and duration of one logical call.
func (m *VaultMetrics) RecordCall(ctx context.Context, outcome string, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	opt := metric.WithAttributes(attribute.String("outcome", outcome))
	m.calls.Add(ctx, 1, opt)
	m.duration.Record(ctx, float64(d.Milliseconds()),
		metric.WithAttributes(attribute.String("outcome", outcome), attribute.Int("attempts", attempts)))
}
