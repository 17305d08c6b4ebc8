package actionkit

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/actionkit/pipeline"
)

// ActionStats holds dispatch statistics for a single action. Statistics
// are observational only; nothing in the engine reads them back.
type ActionStats struct {
	Action           string
	Dispatches       uint64
	Runs             uint64 // dispatches that ran handlers; excludes skips
	HandlersExecuted uint64
	Successes        uint64
	Failures         uint64 // handler faults (errors and panics)
	Aborts           uint64
	Skips            uint64 // guard- or hook-dropped dispatches

	// Duration fields aggregate over runs only. Skipped dispatches settle
	// near-instantly and would pin MinDuration to zero.
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastDuration  time.Duration
	LastDispatch  time.Time
}

// AverageDuration returns the mean duration of the action's runs. Skipped
// dispatches are not counted.
func (as *ActionStats) AverageDuration() time.Duration {
	if as.Runs == 0 {
		return 0
	}
	return as.TotalDuration / time.Duration(as.Runs)
}

// Stats collects per-action and global dispatch statistics.
type Stats struct {
	mu      sync.RWMutex
	actions map[string]*ActionStats

	totalDispatches uint64
	totalAborts     uint64
	totalFaults     uint64
	totalSkips      uint64
	totalDuration   time.Duration
}

// NewStats creates an empty statistics collector.
func NewStats() *Stats {
	return &Stats{actions: make(map[string]*ActionStats)}
}

func (s *Stats) entryLocked(action string) *ActionStats {
	as := s.actions[action]
	if as == nil {
		as = &ActionStats{Action: action}
		s.actions[action] = as
	}
	return as
}

// RecordDispatch records the terminal result of one dispatch run.
func (s *Stats) RecordDispatch(action string, res pipeline.ExecutionResult, faults int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalDispatches++
	s.totalFaults += uint64(faults)

	as := s.entryLocked(action)
	as.Dispatches++
	as.HandlersExecuted += uint64(res.HandlersExecuted)
	as.Failures += uint64(faults)
	as.LastDispatch = time.Now()

	if res.Skipped {
		as.Skips++
		s.totalSkips++
		return
	}

	s.totalDuration += res.Duration
	as.Runs++
	as.TotalDuration += res.Duration
	as.LastDuration = res.Duration

	if as.Runs == 1 || res.Duration < as.MinDuration {
		as.MinDuration = res.Duration
	}
	if res.Duration > as.MaxDuration {
		as.MaxDuration = res.Duration
	}

	if res.Aborted {
		as.Aborts++
		s.totalAborts++
	} else {
		as.Successes++
	}
}

// RecordDeferred records a detached handler execution produced by a
// debounce deferral.
func (s *Stats) RecordDeferred(action string, fault bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	as := s.entryLocked(action)
	as.HandlersExecuted++
	if fault {
		as.Failures++
		s.totalFaults++
	}
}

// ActionStats returns a copy of the statistics for one action, or nil when
// the action has never been dispatched.
func (s *Stats) ActionStats(action string) *ActionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	as := s.actions[action]
	if as == nil {
		return nil
	}
	cp := *as
	return &cp
}

// AllActionStats returns copies of the statistics for every action,
// sorted by action name.
func (s *Stats) AllActionStats() []ActionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ActionStats, 0, len(s.actions))
	for _, as := range s.actions {
		out = append(out, *as)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}

// Snapshot is a point-in-time view of the global counters.
type Snapshot struct {
	TotalDispatches uint64
	TotalAborts     uint64
	TotalFaults     uint64
	TotalSkips      uint64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	ActionCount     int
	Timestamp       time.Time
}

// Snapshot returns the current global counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TotalDispatches: s.totalDispatches,
		TotalAborts:     s.totalAborts,
		TotalFaults:     s.totalFaults,
		TotalSkips:      s.totalSkips,
		TotalDuration:   s.totalDuration,
		ActionCount:     len(s.actions),
		Timestamp:       time.Now(),
	}
	if runs := s.totalDispatches - s.totalSkips; runs > 0 {
		snap.AverageDuration = s.totalDuration / time.Duration(runs)
	}
	return snap
}

// ResetAction clears the statistics for one action.
func (s *Stats) ResetAction(action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actions, action)
}

// Reset clears all statistics.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = make(map[string]*ActionStats)
	s.totalDispatches = 0
	s.totalAborts = 0
	s.totalFaults = 0
	s.totalSkips = 0
	s.totalDuration = 0
}
