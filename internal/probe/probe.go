// Package probe resolves tracked process tags to live OS processes and
// measures their resource usage. The OS-specific lookup is isolated behind
// the Prober interface so the sampler can run against a fake in tests.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrProcessNotFound reports that a tag could not be resolved to a live
// process this tick. Callers treat it as transient: log, skip, retry next tick.
var ErrProcessNotFound = errors.New("process not found")

// Measurement is one point-in-time reading of a process's resource usage.
type Measurement struct {
	PID         int32
	RSSMB       float64
	VMSMB       float64
	CPUPercent  float64
	ThreadCount int
}

// Target binds a tag to a way of locating its process: either a fixed PID or
// a case-insensitive substring match against process name and command line.
type Target struct {
	Tag     string
	Pattern string
	PID     int32
}

// Prober measures the process behind a tag.
type Prober interface {
	Probe(ctx context.Context, tag string) (Measurement, error)
}

// ProcessProber is the gopsutil-backed Prober. Resolved PIDs are cached per
// tag and re-resolved when the process dies or the measurement fails.
type ProcessProber struct {
	mu      sync.Mutex
	targets map[string]Target
	pids    map[string]int32
	selfPID int32
}

// NewProcessProber creates a ProcessProber for the given targets.
func NewProcessProber(targets []Target) *ProcessProber {
	byTag := make(map[string]Target, len(targets))
	for _, t := range targets {
		byTag[t.Tag] = t
	}
	return &ProcessProber{
		targets: byTag,
		pids:    make(map[string]int32),
		selfPID: int32(os.Getpid()),
	}
}

// Tags returns the sorted tags this prober knows how to resolve.
func (p *ProcessProber) Tags() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	tags := make([]string, 0, len(p.targets))
	for tag := range p.targets {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Probe resolves the tag and measures its process. A cached PID is tried
// first; if the process is gone the tag is re-resolved by pattern.
func (p *ProcessProber) Probe(ctx context.Context, tag string) (Measurement, error) {
	p.mu.Lock()
	target, ok := p.targets[tag]
	cachedPID := p.pids[tag]
	p.mu.Unlock()

	if !ok {
		return Measurement{}, fmt.Errorf("tag %q: %w", tag, ErrProcessNotFound)
	}

	if cachedPID > 0 {
		if m, err := measure(ctx, cachedPID); err == nil {
			return m, nil
		}
		p.forget(tag)
	}

	pid := target.PID
	if pid <= 0 {
		found, err := p.resolve(ctx, target.Pattern)
		if err != nil {
			return Measurement{}, fmt.Errorf("tag %q: %w", tag, err)
		}
		pid = found
	}

	m, err := measure(ctx, pid)
	if err != nil {
		return Measurement{}, fmt.Errorf("tag %q (pid %d): %w", tag, pid, err)
	}

	p.remember(tag, pid)
	return m, nil
}

func (p *ProcessProber) remember(tag string, pid int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pids[tag] = pid
}

func (p *ProcessProber) forget(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pids, tag)
}

// resolve scans live processes for the first one whose name or command line
// contains the pattern. The prober's own process is skipped so a pattern like
// "leakwatch" never matches the engine itself.
func (p *ProcessProber) resolve(ctx context.Context, pattern string) (int32, error) {
	if pattern == "" {
		return 0, ErrProcessNotFound
	}
	needle := strings.ToLower(pattern)

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	for _, proc := range procs {
		if proc.Pid == p.selfPID {
			continue
		}
		name, err := proc.NameWithContext(ctx)
		if err == nil && strings.Contains(strings.ToLower(name), needle) {
			return proc.Pid, nil
		}
		cmdline, err := proc.CmdlineWithContext(ctx)
		if err == nil && strings.Contains(strings.ToLower(cmdline), needle) {
			return proc.Pid, nil
		}
	}
	return 0, ErrProcessNotFound
}

const bytesPerMB = 1024 * 1024

func measure(ctx context.Context, pid int32) (Measurement, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Measurement{}, ErrProcessNotFound
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil || memInfo == nil {
		return Measurement{}, fmt.Errorf("reading memory info: %w", err)
	}

	m := Measurement{
		PID:   pid,
		RSSMB: float64(memInfo.RSS) / bytesPerMB,
		VMSMB: float64(memInfo.VMS) / bytesPerMB,
	}

	// CPU and thread count are best-effort; a permission error on either
	// should not discard the memory reading.
	if cpuPct, err := proc.CPUPercentWithContext(ctx); err == nil {
		m.CPUPercent = cpuPct
	}
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		m.ThreadCount = int(threads)
	}

	return m, nil
}
