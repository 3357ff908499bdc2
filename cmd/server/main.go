package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/leakwatch-io/leakwatch/internal/analysis"
	"github.com/leakwatch-io/leakwatch/internal/api"
	"github.com/leakwatch-io/leakwatch/internal/config"
	"github.com/leakwatch-io/leakwatch/internal/logger"
	"github.com/leakwatch-io/leakwatch/internal/metrics"
	"github.com/leakwatch-io/leakwatch/internal/monitor"
	"github.com/leakwatch-io/leakwatch/internal/otel"
	"github.com/leakwatch-io/leakwatch/internal/probe"
	"github.com/leakwatch-io/leakwatch/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Address, "HTTP server address")
	targets := flag.String("targets", "", "Comma-separated tag=pattern pairs of tracked processes")
	interval := flag.Int("interval", cfg.DefaultIntervalSeconds, "Default sampling interval in seconds")
	retentionHours := flag.Int("retention-hours", cfg.RetentionHours, "Sample retention in hours")
	maxPoints := flag.Int("max-points", cfg.MaxPointsPerSeries, "Maximum retained samples per tracked process")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	otelExporter := flag.String("otel-exporter", cfg.OTelExporter, "OpenTelemetry exporter: none, stdout, otlp-grpc, otlp-http")
	otlpEndpoint := flag.String("otlp-endpoint", cfg.OTLPEndpoint, "OTLP collector endpoint")
	otlpInsecure := flag.Bool("otlp-insecure", cfg.OTLPInsecure, "Disable TLS for OTLP connections")
	autoStart := flag.Bool("auto-start", false, "Start monitoring immediately instead of waiting for /api/start_monitoring")
	flag.Parse()

	cfg.Address = *addr
	cfg.DefaultIntervalSeconds = *interval
	cfg.RetentionHours = *retentionHours
	cfg.MaxPointsPerSeries = *maxPoints
	cfg.LogLevel = *logLevel
	cfg.OTelExporter = *otelExporter
	cfg.OTLPEndpoint = *otlpEndpoint
	cfg.OTLPInsecure = *otlpInsecure
	if *targets != "" {
		cfg.Targets = strings.Split(*targets, ",")
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	probeTargets, err := cfg.ParseTargets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing targets: %v\n", err)
		os.Exit(1)
	}

	st := store.NewStore(store.Config{
		MaxPointsPerSeries: cfg.MaxPointsPerSeries,
		RetentionHours:     cfg.RetentionHours,
	})
	pruner := store.NewPruner(st, time.Hour, log)
	pruner.Start()

	prober := probe.NewProcessProber(probeTargets)

	analyzer := analysis.NewAnalyzer()
	analyzer.SetThresholds(analysis.Thresholds{
		HighRateMBPerHour:   cfg.HighRateMBPerHour,
		HighTotalMB:         cfg.HighTotalMB,
		MediumRateMBPerHour: cfg.MediumRateMBPerHour,
		MediumTotalMB:       cfg.MediumTotalMB,
	})
	analyzer.SetSparklinePoints(cfg.SparklinePoints)

	controller := monitor.NewController(log, st, prober, prober.Tags())

	registry := metrics.NewRegistry()
	controller.SetRegistry(registry)

	ctx := context.Background()
	exporter := otel.ExporterType(cfg.OTelExporter)
	otelEnabled := exporter != otel.ExporterNone && exporter != ""

	tracer, err := otel.NewTracer(ctx, &otel.Config{
		Enabled:      otelEnabled,
		ServiceName:  "leakwatch",
		ExporterType: exporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating tracer: %v\n", err)
		os.Exit(1)
	}

	otelMetrics, err := otel.NewMetrics(ctx, &otel.MetricsConfig{
		Enabled:      otelEnabled,
		ServiceName:  "leakwatch",
		ExporterType: exporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating metrics exporter: %v\n", err)
		os.Exit(1)
	}
	controller.SetOTelMetrics(otelMetrics)
	if err := otelMetrics.RegisterRSSObserver(func() map[string]float64 {
		latest := make(map[string]float64)
		for _, tag := range st.Tags() {
			if sample, ok := st.Latest(tag); ok {
				latest[tag] = sample.RSSMB
			}
		}
		return latest
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering RSS observer: %v\n", err)
		os.Exit(1)
	}

	server := api.NewServer(cfg.Address, log, st, analyzer, controller, api.ServerConfig{
		DefaultIntervalSeconds: cfg.DefaultIntervalSeconds,
		MaxChartPoints:         cfg.MaxChartPoints,
	})
	server.SetTracer(tracer)
	server.SetRegistry(registry)

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
		os.Exit(1)
	}

	if *autoStart {
		controller.Start(time.Duration(cfg.DefaultIntervalSeconds) * time.Second)
	}

	log.Infow("leakwatch_started",
		"address", server.Addr(),
		"targets", cfg.Targets,
		"retention_hours", cfg.RetentionHours,
		"auto_start", *autoStart)
	fmt.Printf("leakwatch listening on %s\n", server.URL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	controller.Stop()
	pruner.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error shutting down tracer: %v\n", err)
	}
	if err := otelMetrics.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error shutting down metrics: %v\n", err)
	}
	fmt.Println("Server stopped")
}
