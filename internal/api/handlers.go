package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/leakwatch-io/leakwatch/internal/analysis"
	"github.com/leakwatch-io/leakwatch/internal/monitor"
	"github.com/leakwatch-io/leakwatch/internal/store"
)

const (
	defaultWindowHours          = 1.0
	defaultOffendersWindowHours = 24.0

	// hoursAll asks for the full retained history instead of a window.
	hoursAll = "all"
)

// parseHours reads the "hours" query parameter. Unparseable or non-positive
// values fall back to the provided default rather than failing the request.
// The second return reports the "all" sentinel.
func parseHours(r *http.Request, fallback float64) (float64, bool) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return fallback, false
	}
	if raw == hoursAll {
		return 0, true
	}
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil || hours <= 0 {
		return fallback, false
	}
	return hours, false
}

// parseInterval reads the "interval" query parameter in seconds, falling back
// to the server default on absent or invalid values.
func (s *Server) parseInterval(r *http.Request) time.Duration {
	raw := r.URL.Query().Get("interval")
	if raw == "" {
		return time.Duration(s.config.DefaultIntervalSeconds) * time.Second
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 1 {
		return time.Duration(s.config.DefaultIntervalSeconds) * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func windowDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func (s *Server) monitoringStatus() MonitoringStatus {
	session := s.controller.Snapshot()
	status := MonitoringStatus{
		Status:     string(session.Status),
		Interval:   session.IntervalSeconds,
		DataPoints: session.SampleCount,
	}
	if session.Status == monitor.StatusActive {
		startTime := session.StartTime
		status.StartTime = &startTime
	}
	return status
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	processes := make(map[string]store.Sample)
	for _, tag := range s.store.Tags() {
		if sample, ok := s.store.Latest(tag); ok {
			processes[tag] = sample
		}
	}

	s.writeJSON(w, http.StatusOK, &CurrentResponse{
		Processes:        processes,
		MonitoringStatus: s.monitoringStatus(),
	})
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	hours, all := parseHours(r, defaultWindowHours)

	series := make(map[string][]store.Sample)
	for _, tag := range s.store.Tags() {
		var samples []store.Sample
		if all {
			samples = s.store.ReadAll(tag)
		} else {
			samples = s.store.Read(tag, windowDuration(hours))
		}
		series[tag] = capSamples(samples, s.config.MaxChartPoints)
	}

	s.writeJSON(w, http.StatusOK, &HistoricalResponse{
		WindowHours: hours,
		FullHistory: all,
		Series:      series,
	})
}

func (s *Server) handleHistoricalChart(w http.ResponseWriter, r *http.Request) {
	hours, all := parseHours(r, defaultWindowHours)

	resolution := r.URL.Query().Get("resolution")
	width, ok := analysis.ParseResolution(resolution)
	if !ok {
		resolution = analysis.ResolutionFull
		width = 0
	} else if resolution == "" {
		resolution = analysis.ResolutionFull
	}

	series := make(map[string][]analysis.Point)
	for _, tag := range s.store.Tags() {
		var samples []store.Sample
		if all {
			samples = s.store.ReadAll(tag)
		} else {
			samples = s.store.Read(tag, windowDuration(hours))
		}
		series[tag] = analysis.Downsample(samples, width, s.config.MaxChartPoints)
	}

	s.writeJSON(w, http.StatusOK, &HistoricalChartResponse{
		WindowHours: hours,
		Resolution:  resolution,
		Series:      series,
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	hours, all := parseHours(r, defaultWindowHours)

	results := make(map[string]analysis.Result)
	for _, tag := range s.store.Tags() {
		if all {
			samples := s.store.ReadAll(tag)
			results[tag] = s.analyzer.Analyze(tag, samples, spanHours(samples))
			continue
		}
		results[tag] = s.analyzer.Analyze(tag, s.store.Read(tag, windowDuration(hours)), hours)
	}

	s.writeJSON(w, http.StatusOK, &AnalysisResponse{
		WindowHours: hours,
		Results:     results,
	})
}

func (s *Server) handleLeakAnalysis(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]analysis.Result)
	snapshotsTotal := 0
	for _, tag := range s.store.Tags() {
		samples := s.store.ReadAll(tag)
		results[tag] = s.analyzer.Analyze(tag, samples, spanHours(samples))
		if len(samples) > snapshotsTotal {
			snapshotsTotal = len(samples)
		}
	}

	session := s.controller.Snapshot()
	s.writeJSON(w, http.StatusOK, &LeakAnalysisResponse{
		Results:          results,
		MonitoringActive: session.Status == monitor.StatusActive,
		SnapshotsTotal:   snapshotsTotal,
		Interval:         session.IntervalSeconds,
	})
}

func (s *Server) handleTopOffenders(w http.ResponseWriter, r *http.Request) {
	hours, all := parseHours(r, defaultOffendersWindowHours)

	results := make([]analysis.Result, 0)
	for _, tag := range s.store.Tags() {
		if all {
			samples := s.store.ReadAll(tag)
			results = append(results, s.analyzer.Analyze(tag, samples, spanHours(samples)))
			continue
		}
		results = append(results, s.analyzer.Analyze(tag, s.store.Read(tag, windowDuration(hours)), hours))
	}

	s.writeJSON(w, http.StatusOK, &TopOffendersResponse{
		WindowHours: hours,
		Offenders:   analysis.RankOffenders(results),
	})
}

func (s *Server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	session, created := s.controller.Start(s.parseInterval(r))

	status := "started"
	if !created {
		status = "already_running"
	}

	startTime := session.StartTime
	s.writeJSON(w, http.StatusOK, &StartMonitoringResponse{
		Status:     status,
		Interval:   session.IntervalSeconds,
		StartTime:  &startTime,
		DataPoints: session.SampleCount,
	})
}

func (s *Server) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	summary := s.controller.Stop()

	s.writeJSON(w, http.StatusOK, &StopMonitoringResponse{
		Status:              "stopped",
		DurationSeconds:     summary.DurationSeconds,
		DataPointsCollected: summary.DataPointsCollected,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, &HealthResponse{Status: "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, &HealthResponse{Status: "ready"})
}

// spanHours is the elapsed time between the first and last sample, used as
// the reported window when analyzing full retained history.
func spanHours(samples []store.Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	return samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp).Hours()
}

// capSamples stride-samples a raw series down to maxPoints, keeping the last
// sample, so /api/historical payloads stay bounded.
func capSamples(samples []store.Sample, maxPoints int) []store.Sample {
	if len(samples) <= maxPoints {
		return samples
	}
	if maxPoints <= 1 {
		return samples[len(samples)-1:]
	}

	result := make([]store.Sample, 0, maxPoints)
	stride := float64(len(samples)-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints-1; i++ {
		result = append(result, samples[int(float64(i)*stride)])
	}
	return append(result, samples[len(samples)-1])
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnw("response_encode_failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, errResp *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		s.log.Warnw("response_encode_failed", "error", err)
	}
}
