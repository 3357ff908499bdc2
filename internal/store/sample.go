// Package store provides bounded in-memory time-series storage for process
// resource samples. Each tracked tag owns one series; series are created
// lazily on first append and live for the process lifetime.
package store

import "time"

// Sample is one resource-usage measurement for a tracked process tag.
type Sample struct {
	// Timestamp is the wall-clock instant the measurement was taken.
	Timestamp time.Time `json:"timestamp"`

	// Tag identifies the process role (e.g. "main_service").
	Tag string `json:"tag"`

	// RSSMB is resident set size in megabytes.
	RSSMB float64 `json:"rss_mb"`

	// VMSMB is virtual memory size in megabytes.
	VMSMB float64 `json:"vms_mb"`

	// CPUPercent is the process CPU utilization percentage.
	CPUPercent float64 `json:"cpu_percent"`

	// ThreadCount is the number of OS threads in the process.
	ThreadCount int `json:"thread_count"`
}
