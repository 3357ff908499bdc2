package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig holds configuration for OpenTelemetry metrics export.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active. Default: false (no-op).
	Enabled bool

	// ServiceName is the name of the service for metric attribution.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// ExporterType specifies which exporter to use.
	ExporterType ExporterType

	// OTLPEndpoint is the endpoint for OTLP exporters (e.g., "localhost:4317").
	OTLPEndpoint string

	// OTLPInsecure disables TLS for OTLP connections.
	OTLPInsecure bool
}

// DefaultMetricsConfig returns a default configuration with metrics disabled.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled:      false,
		ServiceName:  "leakwatch",
		ExporterType: ExporterNone,
	}
}

// Metrics wraps OpenTelemetry metrics with leakwatch-specific instruments.
type Metrics struct {
	config        *MetricsConfig
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	shutdown      func(context.Context) error

	samplesCollected metric.Int64Counter
	probeFailures    metric.Int64Counter
	tickDuration     metric.Float64Histogram
	rssGauge         metric.Float64ObservableGauge
	rssRegistration  metric.Registration
}

// NewMetrics creates a Metrics instance. A nil or disabled config yields
// no-op instruments.
func NewMetrics(ctx context.Context, cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil {
		cfg = DefaultMetricsConfig()
	}

	m := &Metrics{config: cfg}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		m.meterProvider = sdkmetric.NewMeterProvider()
		m.meter = m.meterProvider.Meter(cfg.ServiceName)
		m.shutdown = func(context.Context) error { return nil }
		if err := m.registerInstruments(); err != nil {
			return nil, err
		}
		return m, nil
	}

	exporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	m.meterProvider = mp
	m.meter = mp.Meter(cfg.ServiceName)
	m.shutdown = mp.Shutdown

	if err := m.registerInstruments(); err != nil {
		return nil, fmt.Errorf("failed to register metric instruments: %w", err)
	}

	return m, nil
}

func newMetricExporter(ctx context.Context, cfg *MetricsConfig) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()

	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)

	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

func (m *Metrics) registerInstruments() error {
	var err error

	m.samplesCollected, err = m.meter.Int64Counter(
		"leakwatch.samples.collected",
		metric.WithDescription("Samples appended to the store"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return err
	}

	m.probeFailures, err = m.meter.Int64Counter(
		"leakwatch.probe.failures",
		metric.WithDescription("Per-tag probe failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	m.tickDuration, err = m.meter.Float64Histogram(
		"leakwatch.sampler.tick.duration",
		metric.WithDescription("Sampler tick duration"),
		metric.WithUnit("ms"),
	)
	return err
}

// RecordSample records one appended sample for a tag.
func (m *Metrics) RecordSample(ctx context.Context, tag string) {
	m.samplesCollected.Add(ctx, 1, metric.WithAttributes(attribute.String("tag", tag)))
}

// RecordProbeFailure records one skipped tag.
func (m *Metrics) RecordProbeFailure(ctx context.Context, tag string) {
	m.probeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("tag", tag)))
}

// RecordTickDuration records how long one sampler tick took.
func (m *Metrics) RecordTickDuration(ctx context.Context, ms float64) {
	m.tickDuration.Record(ctx, ms)
}

// RegisterRSSObserver registers an observable gauge reporting the latest RSS
// per tag, read from the provided snapshot function at collection time.
func (m *Metrics) RegisterRSSObserver(latest func() map[string]float64) error {
	gauge, err := m.meter.Float64ObservableGauge(
		"leakwatch.process.rss",
		metric.WithDescription("Latest resident set size per tracked tag"),
		metric.WithUnit("MBy"),
	)
	if err != nil {
		return err
	}
	m.rssGauge = gauge

	m.rssRegistration, err = m.meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			for tag, rss := range latest() {
				o.ObserveFloat64(gauge, rss, metric.WithAttributes(attribute.String("tag", tag)))
			}
			return nil
		},
		gauge,
	)
	return err
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.rssRegistration != nil {
		_ = m.rssRegistration.Unregister()
	}
	return m.shutdown(ctx)
}
