package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterName is the instrumentation scope for gateway instruments
const MeterName = "github.com/upb/expert-gateway"

// Outcome labels for gate decisions
const (
	OutcomeBypass = "bypass"
	OutcomeAllow  = "allow"
	OutcomeReject = "reject"
)

// GateMetrics records gate and audit counters
type GateMetrics struct {
	decisions   metric.Int64Counter
	adminAccess metric.Int64Counter
	auditDrops  metric.Int64Counter
}

// NewGateMetrics creates the gate instruments on meter
func NewGateMetrics(meter metric.Meter) (*GateMetrics, error) {
	decisions, err := meter.Int64Counter(
		"gateway.gate.decisions",
		metric.WithDescription("Authentication gate decisions by outcome and reason"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create decisions counter: %w", err)
	}

	adminAccess, err := meter.Int64Counter(
		"gateway.admin.access",
		metric.WithDescription("Requests allowed through the admin enforcement point"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create admin access counter: %w", err)
	}

	auditDrops, err := meter.Int64Counter(
		"gateway.audit.dropped",
		metric.WithDescription("Admin access records dropped because the audit buffer was full"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit drop counter: %w", err)
	}

	return &GateMetrics{
		decisions:   decisions,
		adminAccess: adminAccess,
		auditDrops:  auditDrops,
	}, nil
}

// NewNoopGateMetrics returns metrics backed by a no-op meter
func NewNoopGateMetrics() *GateMetrics {
	m, _ := NewGateMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordDecision counts one gate decision
func (m *GateMetrics) RecordDecision(ctx context.Context, outcome, reason string) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	))
}

// RecordAdminAccess counts one allowed admin request
func (m *GateMetrics) RecordAdminAccess(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.adminAccess.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordAuditDrop counts one dropped audit record
func (m *GateMetrics) RecordAuditDrop(ctx context.Context) {
	if m == nil {
		return
	}
	m.auditDrops.Add(ctx, 1)
}

// PrometheusProvider bundles a MeterProvider with the handler that serves its registry
type PrometheusProvider struct {
	MeterProvider *sdkmetric.MeterProvider
	Handler       http.Handler
}

// NewPrometheusProvider creates a MeterProvider whose instruments are exported
// through a dedicated Prometheus registry. extra readers receive the same instruments.
func NewPrometheusProvider(extra ...sdkmetric.Reader) (*PrometheusProvider, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithReader(exporter)}
	for _, reader := range extra {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	return &PrometheusProvider{
		MeterProvider: sdkmetric.NewMeterProvider(opts...),
		Handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// NewPushReader returns a periodic reader for the named push exporter
// (stdout or otlp), or nil for none.
func NewPushReader(ctx context.Context, name string) (sdkmetric.Reader, error) {
	switch name {
	case "none", "":
		return nil, nil
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("create stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "otlp":
		if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") == "" {
			return nil, fmt.Errorf("OTLP metrics endpoint not configured: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create OTLP metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", name)
	}
}

// Meter returns the gateway meter
func (p *PrometheusProvider) Meter() metric.Meter {
	return p.MeterProvider.Meter(MeterName)
}

// Shutdown flushes and stops the provider
func (p *PrometheusProvider) Shutdown(ctx context.Context) error {
	return p.MeterProvider.Shutdown(ctx)
}
