package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leakwatch-io/leakwatch/internal/metrics"
	"github.com/leakwatch-io/leakwatch/internal/otel"
	"github.com/leakwatch-io/leakwatch/internal/probe"
	"github.com/leakwatch-io/leakwatch/internal/store"
)

// Controller drives the sampler goroutine and tracks the session state.
// Exactly one session can be active at a time; Start and Stop are idempotent.
type Controller struct {
	log    *zap.SugaredLogger
	store  *store.Store
	prober probe.Prober
	tags   []string

	prom *metrics.Registry
	otel *otel.Metrics

	mu      sync.Mutex
	session Session
	cancel  context.CancelFunc
	done    chan struct{}

	// sampleCount is incremented by the sampler goroutine and read by
	// Snapshot without taking the controller lock.
	sampleCount atomic.Int64

	nowFunc func() time.Time
}

// NewController creates a Controller for the given tracked tags.
func NewController(log *zap.SugaredLogger, st *store.Store, prober probe.Prober, tags []string) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Controller{
		log:     log,
		store:   st,
		prober:  prober,
		tags:    tags,
		nowFunc: time.Now,
	}
	c.session.Status = StatusInactive
	return c
}

// SetRegistry wires the Prometheus self-metrics registry.
func (c *Controller) SetRegistry(reg *metrics.Registry) {
	c.prom = reg
}

// SetOTelMetrics wires optional OpenTelemetry instruments.
func (c *Controller) SetOTelMetrics(m *otel.Metrics) {
	c.otel = m
}

// SetNowFunc overrides the time source. Intended for tests.
func (c *Controller) SetNowFunc(f func() time.Time) {
	c.nowFunc = f
}

// Tags returns the tags the controller samples.
func (c *Controller) Tags() []string {
	return c.tags
}

// Start launches a session sampling at the given interval. Calling Start
// while a session is active is a no-op that returns the existing session
// unchanged: the running sampler keeps its interval, start time, and count.
// The second return reports whether this call created the session.
func (c *Controller) Start(interval time.Duration) (Session, bool) {
	if interval <= 0 {
		interval = time.Second
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Status == StatusActive {
		return c.snapshotLocked(), false
	}

	c.session = Session{
		ID:              uuid.NewString(),
		Status:          StatusActive,
		IntervalSeconds: int(interval / time.Second),
		StartTime:       c.nowFunc(),
	}
	c.sampleCount.Store(0)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, interval, c.done)

	if c.prom != nil {
		c.prom.MonitoringActive.Set(1)
	}
	c.log.Infow("monitoring_started",
		"session_id", c.session.ID,
		"interval_seconds", c.session.IntervalSeconds,
		"tags", c.tags)

	return c.snapshotLocked(), true
}

// Stop halts the sampler and finalizes the session. The sampler observes the
// cancellation within one tick interval; Stop waits for it to exit before
// returning the summary. Stopping while inactive returns a zero summary.
func (c *Controller) Stop() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Status != StatusActive {
		return Summary{}
	}

	c.cancel()
	<-c.done

	summary := Summary{
		DurationSeconds:     c.nowFunc().Sub(c.session.StartTime).Seconds(),
		DataPointsCollected: c.sampleCount.Load(),
	}

	c.log.Infow("monitoring_stopped",
		"session_id", c.session.ID,
		"duration_seconds", summary.DurationSeconds,
		"data_points", summary.DataPointsCollected)

	c.session = Session{Status: StatusInactive}
	c.cancel = nil
	c.done = nil

	if c.prom != nil {
		c.prom.MonitoringActive.Set(0)
	}

	return summary
}

// Snapshot returns the current session state, with a live sample count while
// active.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Session {
	s := c.session
	if s.Status == StatusActive {
		s.SampleCount = c.sampleCount.Load()
	}
	return s
}

// run is the sampler loop. The select makes the inter-tick sleep
// interruptible, bounding shutdown latency by one interval.
func (c *Controller) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick probes every tag independently. A failing tag is logged and skipped;
// it never aborts the loop or the other tags' measurements. The session's
// sample count advances once per tick regardless of per-tag outcomes.
func (c *Controller) tick(ctx context.Context) {
	started := c.nowFunc()

	for _, tag := range c.tags {
		m, err := c.prober.Probe(ctx, tag)
		if err != nil {
			c.log.Warnw("sampler_probe_failed", "tag", tag, "error", err)
			if c.prom != nil {
				c.prom.ProbeFailures.WithLabelValues(tag).Inc()
			}
			if c.otel != nil {
				c.otel.RecordProbeFailure(ctx, tag)
			}
			continue
		}

		c.store.Append(tag, store.Sample{
			Timestamp:   c.nowFunc(),
			Tag:         tag,
			RSSMB:       m.RSSMB,
			VMSMB:       m.VMSMB,
			CPUPercent:  m.CPUPercent,
			ThreadCount: m.ThreadCount,
		})

		if c.prom != nil {
			c.prom.SamplesCollected.WithLabelValues(tag).Inc()
			c.prom.SeriesPoints.WithLabelValues(tag).Set(float64(c.store.Len(tag)))
		}
		if c.otel != nil {
			c.otel.RecordSample(ctx, tag)
		}
	}

	c.sampleCount.Add(1)
	if c.prom != nil {
		c.prom.SamplerTicks.Inc()
	}
	if c.otel != nil {
		c.otel.RecordTickDuration(ctx, float64(c.nowFunc().Sub(started).Milliseconds()))
	}
}
