package hook

import (
	"sort"
	"sync"

	"github.com/dshills/actionkit/pipeline"
)

// Manager manages dispatch hooks with priority-based ordering.
type Manager struct {
	mu        sync.RWMutex
	preHooks  []PreDispatch
	postHooks []PostDispatch
}

// NewManager creates a new hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// RegisterPre adds a pre-dispatch hook, replacing any existing hook with
// the same name. Hooks are kept sorted by priority, higher first.
func (m *Manager) RegisterPre(h PreDispatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.preHooks {
		if existing.Name() == h.Name() {
			m.preHooks[i] = h
			m.sortPreLocked()
			return
		}
	}

	m.preHooks = append(m.preHooks, h)
	m.sortPreLocked()
}

// RegisterPost adds a post-dispatch hook, replacing any existing hook with
// the same name. Hooks are kept sorted by priority, lower first, so higher
// priority hooks observe the final result last.
func (m *Manager) RegisterPost(h PostDispatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.postHooks {
		if existing.Name() == h.Name() {
			m.postHooks[i] = h
			m.sortPostLocked()
			return
		}
	}

	m.postHooks = append(m.postHooks, h)
	m.sortPostLocked()
}

// Unregister removes a hook by name from both pre and post lists. Returns
// true if any hook was removed.
func (m *Manager) Unregister(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := false
	for i, h := range m.preHooks {
		if h.Name() == name {
			m.preHooks = append(m.preHooks[:i], m.preHooks[i+1:]...)
			removed = true
			break
		}
	}
	for i, h := range m.postHooks {
		if h.Name() == name {
			m.postHooks = append(m.postHooks[:i], m.postHooks[i+1:]...)
			removed = true
			break
		}
	}
	return removed
}

// RunPre runs all pre-dispatch hooks in priority order. Returns false if
// any hook cancels the dispatch.
func (m *Manager) RunPre(action string, payload *any) bool {
	m.mu.RLock()
	hooks := make([]PreDispatch, len(m.preHooks))
	copy(hooks, m.preHooks)
	m.mu.RUnlock()

	for _, h := range hooks {
		if !h.PreDispatch(action, payload) {
			return false
		}
	}
	return true
}

// RunPost runs all post-dispatch hooks from lowest to highest priority.
func (m *Manager) RunPost(action string, payload any, result *pipeline.ExecutionResult) {
	m.mu.RLock()
	hooks := make([]PostDispatch, len(m.postHooks))
	copy(hooks, m.postHooks)
	m.mu.RUnlock()

	for _, h := range hooks {
		h.PostDispatch(action, payload, result)
	}
}

// PreCount returns the number of registered pre-dispatch hooks.
func (m *Manager) PreCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.preHooks)
}

// PostCount returns the number of registered post-dispatch hooks.
func (m *Manager) PostCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.postHooks)
}

func (m *Manager) sortPreLocked() {
	sort.SliceStable(m.preHooks, func(i, j int) bool {
		return m.preHooks[i].Priority() > m.preHooks[j].Priority()
	})
}

func (m *Manager) sortPostLocked() {
	sort.SliceStable(m.postHooks, func(i, j int) bool {
		return m.postHooks[i].Priority() < m.postHooks[j].Priority()
	})
}
