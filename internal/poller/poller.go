package poller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Poller repeatedly fetches one API endpoint, feeding outcomes into a Backoff
// so the polling interval adapts to connectivity.
type Poller struct {
	client  *resty.Client
	backoff *Backoff
	log     *zap.SugaredLogger
}

// NewPoller creates a Poller against the engine's base URL.
func NewPoller(baseURL string, config BackoffConfig, log *zap.SugaredLogger) *Poller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")

	return &Poller{
		client:  client,
		backoff: NewBackoff(config),
		log:     log,
	}
}

// Backoff exposes the state machine, mainly for inspection in tests.
func (p *Poller) Backoff() *Backoff {
	return p.backoff
}

// Fetch performs a single GET and returns the raw JSON body.
func (p *Poller) Fetch(ctx context.Context, path string) ([]byte, error) {
	resp, err := p.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("polling %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("polling %s: unexpected status %d", path, resp.StatusCode())
	}
	return resp.Body(), nil
}

// Run polls the path until ctx is cancelled, invoking handle with each
// successful response body. Failures slow the loop down per the backoff
// schedule and log a connectivity warning once per degradation episode;
// recovery is logged when polling succeeds again.
func (p *Poller) Run(ctx context.Context, path string, handle func([]byte)) {
	timer := time.NewTimer(p.backoff.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		body, err := p.Fetch(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if p.backoff.RecordFailure() {
				p.log.Warnw("connectivity_degraded",
					"path", path,
					"consecutive_failures", p.backoff.ConsecutiveFailures(),
					"interval", p.backoff.Interval().String())
			}
		} else {
			if p.backoff.Degraded() {
				p.log.Infow("connectivity_recovered", "path", path)
			}
			p.backoff.RecordSuccess()
			handle(body)
		}

		timer.Reset(p.backoff.Interval())
	}
}
