// Package poller implements the adaptive polling loop used by dashboard and
// operator clients of the engine API. The engine itself imposes no rate
// limiting; clients are expected to slow down on consecutive failures and to
// surface a connectivity warning instead of treating them as fatal.
package poller

import "time"

// BackoffConfig describes the slowdown schedule.
type BackoffConfig struct {
	// BaseInterval is the healthy polling interval. Default: 2s.
	BaseInterval time.Duration

	// SlowInterval applies after SlowAfter consecutive failures. Default: 5s.
	SlowInterval time.Duration

	// SlowestInterval applies after SlowestAfter consecutive failures.
	// Default: 10s.
	SlowestInterval time.Duration

	// SlowAfter is the consecutive-failure count that triggers SlowInterval
	// and the one-time connectivity warning. Default: 3.
	SlowAfter int

	// SlowestAfter is the consecutive-failure count that triggers
	// SlowestInterval. Default: 6.
	SlowestAfter int
}

// DefaultBackoffConfig returns the standard 2s -> 5s -> 10s schedule.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseInterval:    2 * time.Second,
		SlowInterval:    5 * time.Second,
		SlowestInterval: 10 * time.Second,
		SlowAfter:       3,
		SlowestAfter:    6,
	}
}

// WithDefaults returns a copy of the config with zero values replaced by defaults.
func (c BackoffConfig) WithDefaults() BackoffConfig {
	defaults := DefaultBackoffConfig()
	result := c
	if result.BaseInterval <= 0 {
		result.BaseInterval = defaults.BaseInterval
	}
	if result.SlowInterval <= 0 {
		result.SlowInterval = defaults.SlowInterval
	}
	if result.SlowestInterval <= 0 {
		result.SlowestInterval = defaults.SlowestInterval
	}
	if result.SlowAfter <= 0 {
		result.SlowAfter = defaults.SlowAfter
	}
	if result.SlowestAfter <= result.SlowAfter {
		result.SlowestAfter = defaults.SlowestAfter
	}
	return result
}

// Backoff is the pure polling state machine: current interval, consecutive
// failure count, and a warned flag that latches once per degradation episode.
// It is independent of any transport or UI so it can be unit-tested against a
// sequence of simulated outcomes. Not safe for concurrent use.
type Backoff struct {
	config   BackoffConfig
	failures int
	warned   bool
}

// NewBackoff creates a Backoff with the given schedule.
func NewBackoff(config BackoffConfig) *Backoff {
	return &Backoff{config: config.WithDefaults()}
}

// Interval returns the polling interval for the current state.
func (b *Backoff) Interval() time.Duration {
	switch {
	case b.failures >= b.config.SlowestAfter:
		return b.config.SlowestInterval
	case b.failures >= b.config.SlowAfter:
		return b.config.SlowInterval
	default:
		return b.config.BaseInterval
	}
}

// RecordSuccess resets the failure count and re-arms the warning.
func (b *Backoff) RecordSuccess() {
	b.failures = 0
	b.warned = false
}

// RecordFailure counts one failed poll. It returns true exactly once per
// degradation episode, when the failure count first reaches the warning
// threshold; callers use it to raise a connectivity warning without nagging.
func (b *Backoff) RecordFailure() bool {
	b.failures++
	if b.failures >= b.config.SlowAfter && !b.warned {
		b.warned = true
		return true
	}
	return false
}

// ConsecutiveFailures reports the current failure streak.
func (b *Backoff) ConsecutiveFailures() int {
	return b.failures
}

// Degraded reports whether polling is currently slowed down.
func (b *Backoff) Degraded() bool {
	return b.failures >= b.config.SlowAfter
}
