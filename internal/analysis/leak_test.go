package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/leakwatch-io/leakwatch/internal/store"
)

func linearSeries(base time.Time, n int, startMB, mbPerHour float64) []store.Sample {
	samples := make([]store.Sample, n)
	for i := 0; i < n; i++ {
		elapsed := time.Duration(i) * time.Minute
		samples[i] = store.Sample{
			Timestamp: base.Add(elapsed),
			RSSMB:     startMB + mbPerHour*elapsed.Hours(),
		}
	}
	return samples
}

func TestAnalyzeLinearGrowth(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	// 61 samples over an hour growing at exactly 30 MB/hour.
	samples := linearSeries(base, 61, 100, 30)

	result := NewAnalyzer().Analyze("api", samples, 1)

	if result.Status != StatusOK {
		t.Fatalf("expected status ok, got %q", result.Status)
	}
	if result.GrowthRateMBPerHour == nil || result.R2Consistency == nil {
		t.Fatal("expected trend fields to be set")
	}
	if math.Abs(*result.GrowthRateMBPerHour-30) > 1e-6 {
		t.Errorf("expected slope 30 MB/h, got %v", *result.GrowthRateMBPerHour)
	}
	if math.Abs(*result.R2Consistency-1) > 1e-6 {
		t.Errorf("expected r2 1.0 for a perfect line, got %v", *result.R2Consistency)
	}
	if math.Abs(result.TotalGrowthMB-30) > 1e-6 {
		t.Errorf("expected total growth 30 MB, got %v", result.TotalGrowthMB)
	}
	if result.StartMemoryMB != 100 {
		t.Errorf("expected start memory 100, got %v", result.StartMemoryMB)
	}
	if result.Severity != SeverityHigh {
		t.Errorf("expected high severity for 30 MB/h, got %q", result.Severity)
	}
	if result.DataPoints != 61 {
		t.Errorf("expected 61 data points, got %d", result.DataPoints)
	}
}

func TestAnalyzeConstantMemory(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples := linearSeries(base, 30, 250, 0)

	result := NewAnalyzer().Analyze("api", samples, 1)

	if result.Status != StatusOK {
		t.Fatalf("expected status ok, got %q", result.Status)
	}
	if *result.GrowthRateMBPerHour != 0 {
		t.Errorf("expected zero slope, got %v", *result.GrowthRateMBPerHour)
	}
	// SS_tot is zero for identical values; the fit is perfect by definition.
	if *result.R2Consistency != 1.0 {
		t.Errorf("expected r2 1.0 for constant memory, got %v", *result.R2Consistency)
	}
	if result.Severity != SeverityLow {
		t.Errorf("expected low severity, got %q", result.Severity)
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		samples []store.Sample
	}{
		{"no samples", nil},
		{"one sample", []store.Sample{{Timestamp: base, RSSMB: 100}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewAnalyzer().Analyze("api", tt.samples, 1)

			if result.Status != StatusInsufficientData {
				t.Fatalf("expected insufficient_data, got %q", result.Status)
			}
			if result.GrowthRateMBPerHour != nil {
				t.Errorf("expected nil growth rate, got %v", *result.GrowthRateMBPerHour)
			}
			if result.R2Consistency != nil {
				t.Errorf("expected nil r2, got %v", *result.R2Consistency)
			}
			if result.Severity != SeverityLow {
				t.Errorf("expected low severity, got %q", result.Severity)
			}
		})
	}
}

func TestAnalyzeSingleSampleEndpoints(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	result := NewAnalyzer().Analyze("api", []store.Sample{{Timestamp: base, RSSMB: 42}}, 1)

	if result.StartMemoryMB != 42 || result.EndMemoryMB != 42 {
		t.Errorf("expected start and end memory 42, got (%v, %v)", result.StartMemoryMB, result.EndMemoryMB)
	}
	if result.TotalGrowthMB != 0 {
		t.Errorf("expected zero growth, got %v", result.TotalGrowthMB)
	}
}

func TestAnalyzeNegativeGrowthAlwaysLow(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	// Shrinking fast: rate magnitude is past every threshold, but release of
	// memory is never a leak signal.
	samples := linearSeries(base, 30, 500, -100)

	result := NewAnalyzer().Analyze("api", samples, 1)

	if result.Severity != SeverityLow {
		t.Errorf("expected low severity for negative growth, got %q", result.Severity)
	}
	if *result.GrowthRateMBPerHour >= 0 {
		t.Errorf("expected negative slope, got %v", *result.GrowthRateMBPerHour)
	}
}

func TestClassifySeverity(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		name   string
		rate   float64
		growth float64
		want   Severity
	}{
		{"flat", 0, 0, SeverityLow},
		{"slow growth", 4, 8, SeverityLow},
		{"medium by rate", 6, 0, SeverityMedium},
		{"medium by total", 0, 15, SeverityMedium},
		{"high by rate", 25, 0, SeverityHigh},
		{"high by total", 1, 60, SeverityHigh},
		{"boundary rate is medium", 20, 0, SeverityMedium},
		{"boundary total is medium", 0, 50, SeverityMedium},
		{"negative", -40, -80, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.classify(tt.rate, tt.growth); got != tt.want {
				t.Errorf("classify(%v, %v): expected %q, got %q", tt.rate, tt.growth, tt.want, got)
			}
		})
	}
}

func TestCustomThresholds(t *testing.T) {
	a := NewAnalyzer()
	a.SetThresholds(Thresholds{
		HighRateMBPerHour:   100,
		HighTotalMB:         200,
		MediumRateMBPerHour: 50,
		MediumTotalMB:       100,
	})

	if got := a.classify(30, 0); got != SeverityLow {
		t.Errorf("expected low under raised thresholds, got %q", got)
	}
	if got := a.classify(60, 0); got != SeverityMedium {
		t.Errorf("expected medium, got %q", got)
	}
	if got := a.classify(150, 0); got != SeverityHigh {
		t.Errorf("expected high, got %q", got)
	}
}

func TestAnalyzeNoisyGrowthR2(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples := linearSeries(base, 60, 100, 10)
	// Alternate noise around the line; the trend should still dominate.
	for i := range samples {
		if i%2 == 0 {
			samples[i].RSSMB += 0.5
		} else {
			samples[i].RSSMB -= 0.5
		}
	}

	result := NewAnalyzer().Analyze("api", samples, 1)

	if *result.R2Consistency >= 1.0 {
		t.Errorf("expected r2 below 1.0 for noisy data, got %v", *result.R2Consistency)
	}
	if *result.R2Consistency < 0.8 {
		t.Errorf("expected r2 above 0.8 for a dominant trend, got %v", *result.R2Consistency)
	}
	if math.Abs(*result.GrowthRateMBPerHour-10) > 1 {
		t.Errorf("expected slope near 10 MB/h, got %v", *result.GrowthRateMBPerHour)
	}
}

func TestAnalyzeSparklineCapped(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples := linearSeries(base, 500, 100, 10)

	a := NewAnalyzer()
	result := a.Analyze("api", samples, 1)
	if len(result.Sparkline) != 60 {
		t.Errorf("expected 60 sparkline points, got %d", len(result.Sparkline))
	}

	a.SetSparklinePoints(10)
	result = a.Analyze("api", samples, 1)
	if len(result.Sparkline) != 10 {
		t.Errorf("expected 10 sparkline points, got %d", len(result.Sparkline))
	}
}

func TestRankOffenders(t *testing.T) {
	rate := func(v float64) *float64 { return &v }

	results := []Result{
		{Tag: "small", TotalGrowthMB: 5, GrowthRateMBPerHour: rate(1), DataPoints: 10, Severity: SeverityLow},
		{Tag: "big", TotalGrowthMB: 80, GrowthRateMBPerHour: rate(20), DataPoints: 10, Severity: SeverityHigh},
		{Tag: "tie-slow", TotalGrowthMB: 30, GrowthRateMBPerHour: rate(2), DataPoints: 10, Severity: SeverityMedium},
		{Tag: "tie-fast", TotalGrowthMB: 30, GrowthRateMBPerHour: rate(9), DataPoints: 10, Severity: SeverityMedium},
		{Tag: "empty", Status: StatusInsufficientData},
	}

	offenders := RankOffenders(results)

	wantOrder := []string{"big", "tie-fast", "tie-slow", "small", "empty"}
	if len(offenders) != len(wantOrder) {
		t.Fatalf("expected %d offenders, got %d", len(wantOrder), len(offenders))
	}
	for i, want := range wantOrder {
		if offenders[i].Name != want {
			t.Errorf("expected position %d to be %q, got %q", i, want, offenders[i].Name)
		}
	}
	if offenders[4].GrowthRateMBPerHour != 0 {
		t.Errorf("expected zero rate for result without trend, got %v", offenders[4].GrowthRateMBPerHour)
	}
}

func TestThresholdsWithDefaults(t *testing.T) {
	got := Thresholds{}.WithDefaults()
	want := DefaultThresholds()
	if got != want {
		t.Errorf("expected defaults %+v, got %+v", want, got)
	}

	partial := Thresholds{HighRateMBPerHour: 99}.WithDefaults()
	if partial.HighRateMBPerHour != 99 {
		t.Errorf("expected explicit value kept, got %v", partial.HighRateMBPerHour)
	}
	if partial.MediumTotalMB != want.MediumTotalMB {
		t.Errorf("expected default medium total, got %v", partial.MediumTotalMB)
	}
}
