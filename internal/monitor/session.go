// Package monitor runs the advanced-monitoring session: a single background
// sampler goroutine that probes every tracked tag on a fixed interval and
// appends the measurements to the store. The Controller owns the session
// state machine (inactive -> active -> inactive) and the sampler lifecycle.
package monitor

import "time"

// Status is the monitoring session state.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
)

// Session describes one advanced-monitoring session.
type Session struct {
	// ID uniquely identifies the session.
	ID string `json:"id"`

	// Status is "inactive" or "active".
	Status Status `json:"status"`

	// IntervalSeconds is the configured sampling interval.
	IntervalSeconds int `json:"interval_seconds"`

	// StartTime is when the session was accepted. Zero while inactive.
	StartTime time.Time `json:"start_time,omitzero"`

	// SampleCount is the number of completed sampler ticks. Incremented once
	// per tick, not per tag.
	SampleCount int64 `json:"sample_count"`
}

// Summary is the result of stopping a session. Stopping while inactive
// returns a zero summary, never an error.
type Summary struct {
	DurationSeconds     float64 `json:"duration_seconds"`
	DataPointsCollected int64   `json:"data_points_collected"`
}
