package server

import (
	"context"
	nethttp "net/http"
	"time"

	"VaultLane/internal/biz"
	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics owns the OpenTelemetry meter provider and the Prometheus registry
// it exports to.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// NewMetrics creates a meter provider backed by a private Prometheus registry.
func NewMetrics(logger log.Logger) (*Metrics, func(), error) {
	helper := pkglog.NewLogHelper(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	m := &Metrics{
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
		registry: registry,
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := m.provider.Shutdown(ctx); err != nil {
			helper.Warnf("Failed to shut down meter provider: %v", err)
		}
	}

	return m, cleanup, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() nethttp.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NewMeter returns the meter used by the vault instruments.
func NewMeter(m *Metrics) metric.Meter {
	return m.provider.Meter(biz.MeterName)
}
