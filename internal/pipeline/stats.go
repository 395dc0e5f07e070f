package pipeline

import (
	"sync"
	"time"
)

// PipelineStats is a snapshot of execution counters for one logical pipeline.
type PipelineStats struct {
	Count         int64         `json:"count"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
}

// Stats is a process-wide, append-only execution counter keyed by pipeline
// name. Updates are mutex-guarded; this is the only shared mutable state
// across concurrent pipeline executions.
type Stats struct {
	mu      sync.Mutex
	entries map[string]*PipelineStats
}

// NewStats creates an empty stats counter.
func NewStats() *Stats {
	return &Stats{entries: make(map[string]*PipelineStats)}
}

// Record adds one execution to the named pipeline's counters.
func (s *Stats) Record(name string, duration time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[name]
	if !ok {
		entry = &PipelineStats{}
		s.entries[name] = entry
	}
	entry.Count++
	entry.TotalDuration += duration
	if failed {
		entry.Errors++
	}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() map[string]PipelineStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]PipelineStats, len(s.entries))
	for name, entry := range s.entries {
		snapshot[name] = *entry
	}
	return snapshot
}
