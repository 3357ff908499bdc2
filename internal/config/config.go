// Package config holds runtime configuration for the leakwatch server.
// Values come from defaults, then environment variables, then command-line
// flags (highest precedence, applied in cmd/server).
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/leakwatch-io/leakwatch/internal/probe"
)

// Config is the full server configuration.
type Config struct {
	// Address is the HTTP listen address.
	Address string `env:"LEAKWATCH_ADDRESS"`

	// Targets lists tracked processes as "tag=pattern" pairs. A bare value
	// without "=" is used as both tag and match pattern.
	Targets []string `env:"LEAKWATCH_TARGETS" envSeparator:","`

	// DefaultIntervalSeconds is the sampling interval used when
	// /api/start_monitoring carries no interval parameter.
	DefaultIntervalSeconds int `env:"LEAKWATCH_DEFAULT_INTERVAL_SECONDS"`

	// MaxPointsPerSeries caps retained samples per tag.
	MaxPointsPerSeries int `env:"LEAKWATCH_MAX_POINTS_PER_SERIES"`

	// RetentionHours is the sample time-to-live in hours.
	RetentionHours int `env:"LEAKWATCH_RETENTION_HOURS"`

	// MaxChartPoints caps points per series in API payloads.
	MaxChartPoints int `env:"LEAKWATCH_MAX_CHART_POINTS"`

	// SparklinePoints caps the inline sparkline in analysis results.
	SparklinePoints int `env:"LEAKWATCH_SPARKLINE_POINTS"`

	// Severity thresholds (MB/hour and MB).
	HighRateMBPerHour   float64 `env:"LEAKWATCH_HIGH_RATE_MB_PER_HOUR"`
	HighTotalMB         float64 `env:"LEAKWATCH_HIGH_TOTAL_MB"`
	MediumRateMBPerHour float64 `env:"LEAKWATCH_MEDIUM_RATE_MB_PER_HOUR"`
	MediumTotalMB       float64 `env:"LEAKWATCH_MEDIUM_TOTAL_MB"`

	// LogLevel is the zap log level: debug, info, warn, error.
	LogLevel string `env:"LEAKWATCH_LOG_LEVEL"`

	// OTelExporter selects the OpenTelemetry exporter: none, stdout,
	// otlp-grpc, otlp-http.
	OTelExporter string `env:"LEAKWATCH_OTEL_EXPORTER"`

	// OTLPEndpoint is the OTLP collector endpoint.
	OTLPEndpoint string `env:"LEAKWATCH_OTLP_ENDPOINT"`

	// OTLPInsecure disables TLS for OTLP connections.
	OTLPInsecure bool `env:"LEAKWATCH_OTLP_INSECURE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Address:                ":8090",
		Targets:                []string{"main_service=leakwatch-target"},
		DefaultIntervalSeconds: 10,
		MaxPointsPerSeries:     1000,
		RetentionHours:         168,
		MaxChartPoints:         1000,
		SparklinePoints:        60,
		LogLevel:               "info",
		OTelExporter:           "none",
	}
}

// Load returns the defaults overlaid with environment variables.
func Load() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// ParseTargets converts the configured "tag=pattern" pairs into probe targets.
func (c Config) ParseTargets() ([]probe.Target, error) {
	targets := make([]probe.Target, 0, len(c.Targets))
	seen := make(map[string]bool, len(c.Targets))

	for _, raw := range c.Targets {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		tag, pattern, found := strings.Cut(raw, "=")
		if !found {
			pattern = tag
		}
		tag = strings.TrimSpace(tag)
		pattern = strings.TrimSpace(pattern)
		if tag == "" || pattern == "" {
			return nil, fmt.Errorf("invalid target %q: want tag=pattern", raw)
		}
		if seen[tag] {
			return nil, fmt.Errorf("duplicate target tag %q", tag)
		}
		seen[tag] = true

		targets = append(targets, probe.Target{Tag: tag, Pattern: pattern})
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no tracked targets configured")
	}
	return targets, nil
}
