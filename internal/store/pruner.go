package store

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pruner periodically sweeps the store for samples past their retention
// bound. Append-time eviction only touches series that are still being
// written; the sweep ages out series whose processes went away.
type Pruner struct {
	store     *Store
	interval  time.Duration
	log       *zap.SugaredLogger
	stopCh    chan struct{}
	stoppedCh chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewPruner creates a Pruner sweeping at the given interval (default 1h).
func NewPruner(st *Store, interval time.Duration, log *zap.SugaredLogger) *Pruner {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pruner{
		store:     st,
		interval:  interval,
		log:       log,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start begins the background sweep goroutine.
func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	go p.run()
}

// Stop signals the background goroutine to stop and waits for it to exit.
func (p *Pruner) Stop() {
	shouldStop := false
	func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.running {
			return
		}
		p.running = false
		shouldStop = true
	}()

	if !shouldStop {
		return
	}

	close(p.stopCh)
	<-p.stoppedCh
}

func (p *Pruner) run() {
	defer close(p.stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if dropped := p.store.Prune(); dropped > 0 {
				p.log.Infow("retention_sweep",
					"samples_dropped", dropped,
					"retention_hours", p.store.config.RetentionHours)
			}
		case <-p.stopCh:
			return
		}
	}
}
