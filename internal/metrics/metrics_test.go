package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistryCounters(t *testing.T) {
	reg := NewRegistry()

	reg.SamplerTicks.Inc()
	reg.SamplerTicks.Inc()
	reg.SamplesCollected.WithLabelValues("api").Inc()
	reg.ProbeFailures.WithLabelValues("worker").Inc()
	reg.SeriesPoints.WithLabelValues("api").Set(42)
	reg.MonitoringActive.Set(1)

	if got := testutil.ToFloat64(reg.SamplerTicks); got != 2 {
		t.Errorf("expected 2 ticks, got %v", got)
	}
	if got := testutil.ToFloat64(reg.SamplesCollected.WithLabelValues("api")); got != 1 {
		t.Errorf("expected 1 sample collected, got %v", got)
	}
	if got := testutil.ToFloat64(reg.SeriesPoints.WithLabelValues("api")); got != 42 {
		t.Errorf("expected series gauge 42, got %v", got)
	}
	if got := testutil.ToFloat64(reg.MonitoringActive); got != 1 {
		t.Errorf("expected monitoring active 1, got %v", got)
	}
}

func TestRegistriesAreIsolated(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.SamplerTicks.Inc()

	if got := testutil.ToFloat64(b.SamplerTicks); got != 0 {
		t.Errorf("expected isolated registries, got %v ticks in b", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	reg := NewRegistry()
	reg.SamplerTicks.Inc()
	reg.HTTPRequests.WithLabelValues("/api/current", "200").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "leakwatch_sampler_ticks_total 1") {
		t.Errorf("expected tick counter in exposition, got:\n%s", body)
	}
	if !strings.Contains(body, `leakwatch_http_requests_total{code="200",path="/api/current"} 1`) {
		t.Errorf("expected request counter in exposition, got:\n%s", body)
	}
}
