package api

import (
	"time"

	"github.com/leakwatch-io/leakwatch/internal/analysis"
	"github.com/leakwatch-io/leakwatch/internal/store"
)

// MonitoringStatus summarizes the session controller state for dashboards.
type MonitoringStatus struct {
	Status     string     `json:"status"`
	Interval   int        `json:"interval"`
	DataPoints int64      `json:"data_points"`
	StartTime  *time.Time `json:"start_time,omitempty"`
}

// CurrentResponse is the response body for GET /api/current.
type CurrentResponse struct {
	Processes        map[string]store.Sample `json:"processes"`
	MonitoringStatus MonitoringStatus        `json:"monitoring_status"`
}

// HistoricalResponse is the response body for GET /api/historical.
type HistoricalResponse struct {
	WindowHours float64                   `json:"window_hours"`
	FullHistory bool                      `json:"full_history,omitempty"`
	Series      map[string][]store.Sample `json:"series"`
}

// HistoricalChartResponse is the response body for GET /api/historical-chart.
type HistoricalChartResponse struct {
	WindowHours float64                     `json:"window_hours"`
	Resolution  string                      `json:"resolution"`
	Series      map[string][]analysis.Point `json:"series"`
}

// AnalysisResponse is the response body for GET /api/analysis.
type AnalysisResponse struct {
	WindowHours float64                    `json:"window_hours"`
	Results     map[string]analysis.Result `json:"results"`
}

// LeakAnalysisResponse is the response body for GET /api/leak_analysis:
// per-tag trend results over the full retained history plus session meta.
type LeakAnalysisResponse struct {
	Results          map[string]analysis.Result `json:"results"`
	MonitoringActive bool                       `json:"monitoring_active"`
	SnapshotsTotal   int                        `json:"snapshots_total"`
	Interval         int                        `json:"interval"`
}

// TopOffendersResponse is the response body for GET /api/top_offenders.
type TopOffendersResponse struct {
	WindowHours float64             `json:"window_hours"`
	Offenders   []analysis.Offender `json:"offenders"`
}

// StartMonitoringResponse is the response body for GET /api/start_monitoring.
// Status is "started" for a new session, "already_running" for the idempotent
// no-op case.
type StartMonitoringResponse struct {
	Status     string     `json:"status"`
	Interval   int        `json:"interval"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	DataPoints int64      `json:"data_points"`
}

// StopMonitoringResponse is the response body for GET /api/stop_monitoring.
// Stopping without an active session reports zero duration, not an error.
type StopMonitoringResponse struct {
	Status              string  `json:"status"`
	DurationSeconds     float64 `json:"duration_seconds"`
	DataPointsCollected int64   `json:"data_points_collected"`
}

// HealthResponse is the response body for GET /healthz and GET /readyz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the standard error envelope. Only genuinely bad requests
// (unknown route, wrong method) produce it; empty data and invalid query
// parameters never do.
type ErrorResponse struct {
	ErrorType    string                 `json:"error_type"`
	ErrorCode    string                 `json:"error_code"`
	ErrorMessage string                 `json:"error_message"`
	Retryable    bool                   `json:"retryable"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// Error taxonomy values for ErrorResponse.
const (
	ErrorTypeNotFound        = "not_found"
	ErrorTypeInvalidArgument = "invalid_argument"

	ErrorCodeEndpointNotFound = "ENDPOINT_NOT_FOUND"
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)
