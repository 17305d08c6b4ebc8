// Package guard implements per-handler gating for action dispatch: trailing-edge
// debounce, leading-edge throttle, and the bookkeeping that ties guard state to
// a handler registration for its lifetime.
package guard

import (
	"sync"
	"time"
)

// State holds the guard bookkeeping for a single handler registration.
// It persists across dispatches of the same action until the handler is
// unregistered.
//
// Thread-safety: all methods are safe for concurrent use. Throttle
// timestamps are shared across concurrent dispatches of the same action,
// so the window applies globally to the handler, not per dispatch.
type State struct {
	mu          sync.Mutex
	lastInvoked time.Time
	debouncer   *Debouncer
}

// AllowThrottle reports whether an invocation attempt is allowed under a
// leading-edge throttle window. The first call in a window executes and
// records the timestamp; later calls within interval of it are dropped,
// not queued. A non-positive interval always allows.
func (s *State) AllowThrottle(interval time.Duration) bool {
	if interval <= 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if !s.lastInvoked.IsZero() && now.Sub(s.lastInvoked) < interval {
		return false
	}
	s.lastInvoked = now
	return true
}

// Debounce schedules fn to run after interval of quiet. A new call cancels
// any outstanding schedule and replaces the pending function, so only the
// last trigger's fn runs, after the final quiet period. The interval is
// applied per call: a trigger with a different interval reschedules with
// that interval, not the one the state was first used with.
func (s *State) Debounce(interval time.Duration, fn func()) {
	s.mu.Lock()
	if s.debouncer == nil {
		s.debouncer = NewDebouncer(interval)
	}
	d := s.debouncer
	s.mu.Unlock()

	d.SetDelay(interval)
	d.Trigger(fn)
}

// Pending reports whether a debounced invocation is waiting to fire.
func (s *State) Pending() bool {
	s.mu.Lock()
	d := s.debouncer
	s.mu.Unlock()

	return d != nil && d.IsPending()
}

// Cancel stops any pending debounced invocation. Called on unregistration.
func (s *State) Cancel() {
	s.mu.Lock()
	d := s.debouncer
	s.mu.Unlock()

	if d != nil {
		d.Cancel()
	}
}

// Reset clears throttle history and cancels pending debounce work.
func (s *State) Reset() {
	s.Cancel()
	s.mu.Lock()
	s.lastInvoked = time.Time{}
	s.mu.Unlock()
}

// Set tracks guard state per handler id.
type Set struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewSet creates an empty guard state set.
func NewSet() *Set {
	return &Set{states: make(map[string]*State)}
}

// For returns the guard state for a handler id, creating it on first use.
func (g *Set) For(id string) *State {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.states[id]
	if !ok {
		s = &State{}
		g.states[id] = s
	}
	return s
}

// Remove cancels and discards the guard state for a handler id.
func (g *Set) Remove(id string) {
	g.mu.Lock()
	s, ok := g.states[id]
	if ok {
		delete(g.states, id)
	}
	g.mu.Unlock()

	if ok {
		s.Cancel()
	}
}

// Clear cancels and discards all guard state.
func (g *Set) Clear() {
	g.mu.Lock()
	states := g.states
	g.states = make(map[string]*State)
	g.mu.Unlock()

	for _, s := range states {
		s.Cancel()
	}
}

// Len returns the number of tracked handler ids.
func (g *Set) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.states)
}
