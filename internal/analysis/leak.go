package analysis

import (
	"sort"
	"time"

	"github.com/leakwatch-io/leakwatch/internal/store"
)

// Severity is the coarse leak-risk classification for a series.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Analysis result statuses.
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

// Thresholds classify growth into severities. A series is rated at a level
// when either its growth rate or its total growth exceeds that level's bound.
type Thresholds struct {
	HighRateMBPerHour   float64
	HighTotalMB         float64
	MediumRateMBPerHour float64
	MediumTotalMB       float64
}

// DefaultThresholds returns the default severity bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighRateMBPerHour:   20,
		HighTotalMB:         50,
		MediumRateMBPerHour: 5,
		MediumTotalMB:       10,
	}
}

// WithDefaults returns a copy of the thresholds with zero values replaced by
// defaults.
func (t Thresholds) WithDefaults() Thresholds {
	defaults := DefaultThresholds()
	result := t
	if result.HighRateMBPerHour <= 0 {
		result.HighRateMBPerHour = defaults.HighRateMBPerHour
	}
	if result.HighTotalMB <= 0 {
		result.HighTotalMB = defaults.HighTotalMB
	}
	if result.MediumRateMBPerHour <= 0 {
		result.MediumRateMBPerHour = defaults.MediumRateMBPerHour
	}
	if result.MediumTotalMB <= 0 {
		result.MediumTotalMB = defaults.MediumTotalMB
	}
	return result
}

// Result is the trend analysis for one tag over one window. It is computed
// fresh from a store snapshot on every request and never cached.
//
// GrowthRate and R2 are nil when Status is "insufficient_data": a slope must
// not be fabricated from fewer than two points.
type Result struct {
	Tag                 string   `json:"tag"`
	Status              string   `json:"status"`
	WindowHours         float64  `json:"window_hours"`
	StartMemoryMB       float64  `json:"start_memory_mb"`
	EndMemoryMB         float64  `json:"end_memory_mb"`
	TotalGrowthMB       float64  `json:"total_growth_mb"`
	GrowthRateMBPerHour *float64 `json:"growth_rate_mb_per_hour,omitempty"`
	R2Consistency       *float64 `json:"r2_consistency,omitempty"`
	DataPoints          int      `json:"data_points"`
	Severity            Severity `json:"severity"`
	Sparkline           []Point  `json:"sparkline"`
}

// Offender is one row of the top-offenders ranking.
type Offender struct {
	Name                string   `json:"name"`
	TotalGrowthMB       float64  `json:"total_growth_mb"`
	GrowthRateMBPerHour float64  `json:"growth_rate_mb_per_hour"`
	Points              int      `json:"points"`
	Severity            Severity `json:"severity"`
}

// Analyzer computes leak-trend results from sample snapshots.
type Analyzer struct {
	thresholds      Thresholds
	sparklinePoints int
}

// NewAnalyzer creates an Analyzer with default thresholds and a 60-point
// sparkline cap.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		thresholds:      DefaultThresholds(),
		sparklinePoints: 60,
	}
}

// SetThresholds overrides the severity bounds.
func (a *Analyzer) SetThresholds(t Thresholds) {
	a.thresholds = t.WithDefaults()
}

// SetSparklinePoints overrides the sparkline point cap.
func (a *Analyzer) SetSparklinePoints(n int) {
	if n > 0 {
		a.sparklinePoints = n
	}
}

// Analyze fits memory_mb = a + b*elapsed_hours by ordinary least squares over
// the samples and classifies the trend. Samples must be in ascending time
// order, as returned by the store.
func (a *Analyzer) Analyze(tag string, samples []store.Sample, windowHours float64) Result {
	result := Result{
		Tag:         tag,
		WindowHours: windowHours,
		DataPoints:  len(samples),
		Severity:    SeverityLow,
		Sparkline:   Downsample(samples, 0, a.sparklinePoints),
	}

	if len(samples) < 2 {
		result.Status = StatusInsufficientData
		if len(samples) == 1 {
			result.StartMemoryMB = samples[0].RSSMB
			result.EndMemoryMB = samples[0].RSSMB
		}
		return result
	}

	result.Status = StatusOK

	first := samples[0]
	last := samples[len(samples)-1]
	result.StartMemoryMB = first.RSSMB
	result.EndMemoryMB = last.RSSMB
	// Reported growth is raw endpoint delta, not the fitted line's, so the
	// number matches what a human sees on the chart.
	result.TotalGrowthMB = last.RSSMB - first.RSSMB

	slope, r2 := fitLinear(samples, first.Timestamp)
	result.GrowthRateMBPerHour = &slope
	result.R2Consistency = &r2
	result.Severity = a.classify(slope, result.TotalGrowthMB)

	return result
}

// classify rates growth against the thresholds. Negative or flat growth is
// always low, regardless of magnitude.
func (a *Analyzer) classify(rateMBPerHour, totalGrowthMB float64) Severity {
	t := a.thresholds
	switch {
	case rateMBPerHour > t.HighRateMBPerHour || totalGrowthMB > t.HighTotalMB:
		return SeverityHigh
	case rateMBPerHour > t.MediumRateMBPerHour || totalGrowthMB > t.MediumTotalMB:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// fitLinear returns the OLS slope (MB per hour) of RSS over elapsed hours
// from origin, and the coefficient of determination of the fit.
//
// SS_tot == 0 means every value is identical; the flat line explains the data
// perfectly, so R2 is defined as 1.0 rather than dividing by zero.
func fitLinear(samples []store.Sample, origin time.Time) (slope, r2 float64) {
	n := float64(len(samples))

	var sumX, sumY, sumXY, sumXX float64
	for _, s := range samples {
		x := s.Timestamp.Sub(origin).Hours()
		y := s.RSSMB
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	meanY := sumY / n

	var intercept float64
	if denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
		intercept = (sumY - slope*sumX) / n
	} else {
		// All samples share one timestamp; a slope is not identifiable, so
		// report the flat fit through the mean.
		slope = 0
		intercept = meanY
	}

	var ssRes, ssTot float64
	for _, s := range samples {
		x := s.Timestamp.Sub(origin).Hours()
		predicted := intercept + slope*x
		ssRes += (s.RSSMB - predicted) * (s.RSSMB - predicted)
		ssTot += (s.RSSMB - meanY) * (s.RSSMB - meanY)
	}

	if ssTot == 0 {
		return slope, 1.0
	}
	return slope, 1.0 - ssRes/ssTot
}

// RankOffenders sorts results descending by total growth; ties break on
// growth rate descending. Results with no trend data rank with zero values.
func RankOffenders(results []Result) []Offender {
	offenders := make([]Offender, 0, len(results))
	for _, r := range results {
		o := Offender{
			Name:          r.Tag,
			TotalGrowthMB: r.TotalGrowthMB,
			Points:        r.DataPoints,
			Severity:      r.Severity,
		}
		if r.GrowthRateMBPerHour != nil {
			o.GrowthRateMBPerHour = *r.GrowthRateMBPerHour
		}
		offenders = append(offenders, o)
	}

	sort.SliceStable(offenders, func(i, j int) bool {
		if offenders[i].TotalGrowthMB != offenders[j].TotalGrowthMB {
			return offenders[i].TotalGrowthMB > offenders[j].TotalGrowthMB
		}
		return offenders[i].GrowthRateMBPerHour > offenders[j].GrowthRateMBPerHour
	})
	return offenders
}
