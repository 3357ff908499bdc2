package store

import (
	"sort"
	"sync"
	"time"
)

// Config configures per-series bounds for the store.
type Config struct {
	// MaxPointsPerSeries caps the number of samples retained per tag.
	// Oldest samples are evicted first. Default: 1000.
	MaxPointsPerSeries int

	// RetentionHours is the time-to-live for samples in hours. Samples older
	// than this are dropped from the oldest end. Default: 168 (7 days).
	RetentionHours int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxPointsPerSeries: 1000,
		RetentionHours:     168, // 7 days
	}
}

// WithDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	result := c
	if result.MaxPointsPerSeries <= 0 {
		result.MaxPointsPerSeries = 1000
	}
	if result.RetentionHours <= 0 {
		result.RetentionHours = 168
	}
	return result
}

// series is a fixed-capacity ring buffer of samples in ascending time order.
type series struct {
	buf   []Sample
	head  int // index of the oldest sample
	count int
}

func newSeries(capacity int) *series {
	return &series{buf: make([]Sample, capacity)}
}

func (s *series) append(sample Sample) {
	if s.count < len(s.buf) {
		s.buf[(s.head+s.count)%len(s.buf)] = sample
		s.count++
		return
	}
	// Full: overwrite the oldest slot and advance the head.
	s.buf[s.head] = sample
	s.head = (s.head + 1) % len(s.buf)
}

// dropOlderThan evicts samples with timestamps before cutoff. Eviction only
// ever removes from the oldest end, so ascending order is preserved.
func (s *series) dropOlderThan(cutoff time.Time) int {
	dropped := 0
	for s.count > 0 && s.buf[s.head].Timestamp.Before(cutoff) {
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		dropped++
	}
	return dropped
}

func (s *series) latest() (Sample, bool) {
	if s.count == 0 {
		return Sample{}, false
	}
	return s.buf[(s.head+s.count-1)%len(s.buf)], true
}

// snapshot copies samples with timestamps in [from, to] into a new slice.
func (s *series) snapshot(from, to time.Time) []Sample {
	result := make([]Sample, 0, s.count)
	for i := 0; i < s.count; i++ {
		sample := s.buf[(s.head+i)%len(s.buf)]
		if sample.Timestamp.Before(from) || sample.Timestamp.After(to) {
			continue
		}
		result = append(result, sample)
	}
	return result
}

// Store holds one bounded series per tracked tag. Safe for one writer and
// many concurrent readers; readers always receive copies.
type Store struct {
	mu     sync.RWMutex
	series map[string]*series
	config Config

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
}

// NewStore creates a Store with the given bounds.
func NewStore(config Config) *Store {
	return &Store{
		series:  make(map[string]*series),
		config:  config.WithDefaults(),
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the time source. Intended for tests.
func (st *Store) SetNowFunc(f func() time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nowFunc = f
}

func (st *Store) retention() time.Duration {
	return time.Duration(st.config.RetentionHours) * time.Hour
}

// Append inserts a sample into the tag's series, creating the series on first
// use. Samples beyond the capacity or retention bound are evicted oldest-first.
func (st *Store) Append(tag string, sample Sample) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sr, ok := st.series[tag]
	if !ok {
		sr = newSeries(st.config.MaxPointsPerSeries)
		st.series[tag] = sr
	}

	sr.dropOlderThan(sample.Timestamp.Add(-st.retention()))
	sr.append(sample)
}

// Read returns a copy of the tag's samples with timestamps within
// [now-window, now], ascending. Unknown tags yield an empty slice.
func (st *Store) Read(tag string, window time.Duration) []Sample {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sr, ok := st.series[tag]
	if !ok {
		return []Sample{}
	}
	now := st.nowFunc()
	return sr.snapshot(now.Add(-window), now)
}

// ReadAll returns a copy of the tag's full retained history, ascending.
func (st *Store) ReadAll(tag string) []Sample {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sr, ok := st.series[tag]
	if !ok {
		return []Sample{}
	}
	return sr.snapshot(time.Time{}, st.nowFunc())
}

// Latest returns the most recent sample for the tag, if any.
func (st *Store) Latest(tag string) (Sample, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sr, ok := st.series[tag]
	if !ok {
		return Sample{}, false
	}
	return sr.latest()
}

// Tags returns the sorted set of known tags.
func (st *Store) Tags() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	tags := make([]string, 0, len(st.series))
	for tag := range st.series {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Len reports the number of retained samples for the tag.
func (st *Store) Len(tag string) int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sr, ok := st.series[tag]
	if !ok {
		return 0
	}
	return sr.count
}

// TotalPoints reports the number of retained samples across all tags.
func (st *Store) TotalPoints() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	total := 0
	for _, sr := range st.series {
		total += sr.count
	}
	return total
}

// Prune drops samples older than the retention bound from every series and
// reports how many were evicted. Append already prunes the series it touches;
// Prune exists so a periodic sweep can age out series that stopped receiving
// samples.
func (st *Store) Prune() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.nowFunc().Add(-st.retention())
	dropped := 0
	for _, sr := range st.series {
		dropped += sr.dropOlderThan(cutoff)
	}
	return dropped
}
