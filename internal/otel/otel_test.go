package otel

import (
	"context"
	"testing"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tracer, err := NewTracer(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracer.Enabled() {
		t.Error("expected disabled tracer")
	}

	// Spans must be safe to start and end on a disabled tracer.
	ctx, span := tracer.StartSpan(context.Background(), "test-span")
	if ctx == nil {
		t.Error("expected a context back")
	}
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestNilTracerEnabled(t *testing.T) {
	var tracer *Tracer
	if tracer.Enabled() {
		t.Error("expected nil tracer to report disabled")
	}
}

func TestStdoutTracer(t *testing.T) {
	tracer, err := NewTracer(context.Background(), &Config{
		Enabled:      true,
		ServiceName:  "leakwatch-test",
		ExporterType: ExporterStdout,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tracer.Enabled() {
		t.Error("expected enabled tracer")
	}

	_, span := tracer.StartSpan(context.Background(), "test-span")
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestUnknownExporterType(t *testing.T) {
	_, err := NewTracer(context.Background(), &Config{
		Enabled:      true,
		ExporterType: ExporterType("bogus"),
	})
	if err == nil {
		t.Error("expected error for unknown exporter type")
	}
}

func TestDisabledMetrics(t *testing.T) {
	m, err := NewMetrics(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	m.RecordSample(ctx, "api")
	m.RecordProbeFailure(ctx, "api")
	m.RecordTickDuration(ctx, 12.5)

	if err := m.RegisterRSSObserver(func() map[string]float64 {
		return map[string]float64{"api": 100}
	}); err != nil {
		t.Errorf("unexpected observer error: %v", err)
	}

	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestUnknownMetricsExporter(t *testing.T) {
	_, err := NewMetrics(context.Background(), &MetricsConfig{
		Enabled:      true,
		ExporterType: ExporterType("bogus"),
	})
	if err == nil {
		t.Error("expected error for unknown exporter type")
	}
}
