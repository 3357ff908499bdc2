// Package analysis provides downsampling and leak-trend statistics over
// sample series. All functions are pure computations over snapshots and hold
// no locks; callers pass copies obtained from the store.
package analysis

import (
	"sort"
	"time"

	"github.com/leakwatch-io/leakwatch/internal/store"
)

// Point is one downsampled chart point. Values within a bucket are averaged;
// the point carries the bucket's end timestamp.
type Point struct {
	Timestamp  time.Time `json:"timestamp"`
	RSSMB      float64   `json:"rss_mb"`
	VMSMB      float64   `json:"vms_mb"`
	CPUPercent float64   `json:"cpu_percent"`
}

// ResolutionFull requests no bucketing; output is still capped at maxPoints.
const ResolutionFull = "full"

// ParseResolution maps a resolution query value to a bucket width.
// "full" (or empty) maps to zero width. The second return reports whether the
// value was recognized; callers fall back to full on unknown values.
func ParseResolution(value string) (time.Duration, bool) {
	switch value {
	case "", ResolutionFull:
		return 0, true
	case "1min":
		return time.Minute, true
	case "5min":
		return 5 * time.Minute, true
	case "15min":
		return 15 * time.Minute, true
	case "1hour":
		return time.Hour, true
	default:
		return 0, false
	}
}

type bucket struct {
	end     time.Time
	rss     float64
	vms     float64
	cpu     float64
	samples int
}

// Downsample reduces ordered samples to at most maxPoints points.
//
// With a positive bucket width, samples are partitioned into consecutive
// non-overlapping buckets and each bucket emits the mean of its values. Mean
// aggregation is deliberate: leak detection cares about trend, not transient
// spikes. With zero width the samples pass through unreduced up to the cap.
//
// Buckets are anchored at the first sample's timestamp, not at wall-clock
// boundaries, so a window of N bucket widths never spills into N+1 buckets.
//
// Zero samples yield an empty result. Fewer samples than buckets degenerate
// to one point per sample.
func Downsample(samples []store.Sample, width time.Duration, maxPoints int) []Point {
	if maxPoints <= 0 {
		maxPoints = 1000
	}
	if len(samples) == 0 {
		return []Point{}
	}

	if width <= 0 {
		return capPoints(toPoints(samples), maxPoints)
	}

	origin := samples[0].Timestamp
	buckets := make(map[int64]*bucket)
	for _, s := range samples {
		key := int64(s.Timestamp.Sub(origin) / width)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{end: origin.Add(time.Duration(key+1) * width)}
			buckets[key] = b
		}
		b.rss += s.RSSMB
		b.vms += s.VMSMB
		b.cpu += s.CPUPercent
		b.samples++
	}

	keys := make([]int64, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	points := make([]Point, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		n := float64(b.samples)
		points = append(points, Point{
			Timestamp:  b.end,
			RSSMB:      b.rss / n,
			VMSMB:      b.vms / n,
			CPUPercent: b.cpu / n,
		})
	}
	return capPoints(points, maxPoints)
}

func toPoints(samples []store.Sample) []Point {
	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = Point{
			Timestamp:  s.Timestamp,
			RSSMB:      s.RSSMB,
			VMSMB:      s.VMSMB,
			CPUPercent: s.CPUPercent,
		}
	}
	return points
}

// capPoints stride-samples down to maxPoints, always keeping the last point
// so the chart's trailing edge matches the newest data.
func capPoints(points []Point, maxPoints int) []Point {
	if len(points) <= maxPoints {
		return points
	}
	if maxPoints == 1 {
		return []Point{points[len(points)-1]}
	}

	result := make([]Point, 0, maxPoints)
	stride := float64(len(points)-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints-1; i++ {
		result = append(result, points[int(float64(i)*stride)])
	}
	return append(result, points[len(points)-1])
}
