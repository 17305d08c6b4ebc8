package actionkit

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/actionkit/guard"
	"github.com/dshills/actionkit/hook"
	"github.com/dshills/actionkit/logging"
)

// ActionRegister owns an action table: for each named action, a
// priority-ordered list of handler registrations, an optional execution
// mode override, and statistics. Instances are independent; create one per
// unit of isolation instead of sharing a global.
//
// Thread-safety: all methods are safe for concurrent use. Dispatches
// snapshot the handler list, so concurrent registration changes do not
// affect runs already in flight.
type ActionRegister struct {
	config Config
	logger logging.Logger
	debug  atomic.Bool // hot-settable, see SetDebug

	mu      sync.RWMutex
	actions map[string]*actionEntry
	seq     uint64 // monotonically increasing registration sequence

	guards         *guard.Set // per-handler guard state, keyed by handler id
	dispatchGuards *guard.Set // dispatch-level guard state, keyed by action
	hooks          *hook.Manager
	stats          *Stats
}

// actionEntry is one action's slot in the table.
type actionEntry struct {
	regs []*registration // priority descending, stable by registration order
	mode ExecutionMode   // per-action override, empty when unset
}

// New creates an ActionRegister with the given configuration.
func New(config Config) *ActionRegister {
	logger := config.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if !config.Registry.DefaultExecutionMode.IsValid() {
		config.Registry.DefaultExecutionMode = ModeSequential
	}

	r := &ActionRegister{
		config:         config,
		logger:         logger,
		actions:        make(map[string]*actionEntry),
		guards:         guard.NewSet(),
		dispatchGuards: guard.NewSet(),
		hooks:          hook.NewManager(),
		stats:          NewStats(),
	}
	r.debug.Store(config.Registry.Debug)
	return r
}

// NewWithDefaults creates an ActionRegister with default configuration.
func NewWithDefaults() *ActionRegister {
	return New(DefaultConfig())
}

// Name returns the register's configured name.
func (r *ActionRegister) Name() string {
	return r.config.Name
}

// RegistryConfig returns the register's behavioral configuration.
func (r *ActionRegister) RegistryConfig() RegistryConfig {
	return r.config.Registry
}

// DebugEnabled reports whether debug logging is enabled.
func (r *ActionRegister) DebugEnabled() bool {
	return r.debug.Load()
}

// SetDebug enables or disables debug logging at runtime.
func (r *ActionRegister) SetDebug(debug bool) {
	r.debug.Store(debug)
}

// Hooks returns the dispatch hook manager.
func (r *ActionRegister) Hooks() *hook.Manager {
	return r.hooks
}

// Stats returns the statistics collector.
func (r *ActionRegister) Stats() *Stats {
	return r.stats
}

// Register binds a handler to an action. The returned UnregisterFunc is
// idempotent. Registration fails with ErrInvalidConfig for an empty action
// name or nil handler, and with ErrCapacityExceeded when the action's
// handler list is at the configured MaxHandlers limit; a failed
// registration performs no mutation.
//
// When cfg.ID matches an existing registration for the action, the
// previous registration is replaced atomically and its guard state is
// discarded; replacement never triggers the capacity check.
func (r *ActionRegister) Register(action string, h HandlerFunc, cfg *HandlerConfig) (UnregisterFunc, error) {
	if action == "" {
		return nil, fmt.Errorf("%w: empty action name", ErrInvalidConfig)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: nil handler for action %s", ErrInvalidConfig, action)
	}
	if cfg == nil {
		cfg = &HandlerConfig{}
	}
	if cfg.Debounce < 0 || cfg.Throttle < 0 {
		return nil, fmt.Errorf("%w: negative guard interval for action %s", ErrInvalidConfig, action)
	}

	priority := cfg.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	reg := &registration{
		id:       id,
		action:   action,
		handler:  h,
		priority: priority,
		tags:     append([]string(nil), cfg.Tags...),
		category: cfg.Category,
		once:     cfg.Once,
		blocking: !cfg.NonBlocking,
		cond:     cfg.Condition,
		debounce: cfg.Debounce,
		throttle: cfg.Throttle,
		metadata: cfg.Metadata,
	}

	r.mu.Lock()
	entry := r.actions[action]
	if entry == nil {
		entry = &actionEntry{}
		r.actions[action] = entry
	}

	replaced := -1
	for i, existing := range entry.regs {
		if existing.id == id {
			replaced = i
			break
		}
	}

	if replaced < 0 && r.config.Registry.MaxHandlers > 0 && len(entry.regs) >= r.config.Registry.MaxHandlers {
		if len(entry.regs) == 0 && entry.mode == "" {
			delete(r.actions, action)
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: action %s is at limit %d", ErrCapacityExceeded, action, r.config.Registry.MaxHandlers)
	}

	r.seq++
	reg.seq = r.seq

	if replaced >= 0 {
		entry.regs[replaced] = reg
	} else {
		entry.regs = append(entry.regs, reg)
	}
	sortRegistrations(entry.regs)
	r.mu.Unlock()

	if replaced >= 0 {
		// The replaced registration's pending guard timers die with it.
		r.guards.Remove(id)
	}

	if r.DebugEnabled() {
		r.logger.Debug("handler registered",
			"register", r.config.Name, "action", action, "handler", id, "priority", priority)
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(reg) })
	}, nil
}

// remove unbinds a specific registration. It is a no-op when the
// registration was already removed or replaced.
func (r *ActionRegister) remove(reg *registration) {
	r.mu.Lock()
	entry := r.actions[reg.action]
	if entry == nil {
		r.mu.Unlock()
		return
	}

	found := false
	for i, existing := range entry.regs {
		if existing == reg {
			entry.regs = append(entry.regs[:i], entry.regs[i+1:]...)
			found = true
			break
		}
	}
	if found && r.config.Registry.AutoCleanup && len(entry.regs) == 0 && entry.mode == "" {
		delete(r.actions, reg.action)
	}
	r.mu.Unlock()

	if found {
		r.guards.Remove(reg.id)
		if r.DebugEnabled() {
			r.logger.Debug("handler unregistered",
				"register", r.config.Name, "action", reg.action, "handler", reg.id)
		}
	}
}

// ClearAction removes all handlers for one action, along with its mode
// override and guard state.
func (r *ActionRegister) ClearAction(action string) {
	r.mu.Lock()
	entry := r.actions[action]
	var removed []*registration
	if entry != nil {
		removed = entry.regs
		delete(r.actions, action)
	}
	r.mu.Unlock()

	for _, reg := range removed {
		r.guards.Remove(reg.id)
	}
	r.dispatchGuards.Remove(action)
}

// ClearAll empties the action table and all guard state.
func (r *ActionRegister) ClearAll() {
	r.mu.Lock()
	r.actions = make(map[string]*actionEntry)
	r.mu.Unlock()

	r.guards.Clear()
	r.dispatchGuards.Clear()
}

// HandlerCount returns the number of handlers registered for an action.
func (r *ActionRegister) HandlerCount(action string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.actions[action]
	if entry == nil {
		return 0
	}
	return len(entry.regs)
}

// HasHandlers reports whether any handler is registered for an action.
func (r *ActionRegister) HasHandlers(action string) bool {
	return r.HandlerCount(action) > 0
}

// RegisteredActions returns all action names with at least one handler,
// sorted.
func (r *ActionRegister) RegisteredActions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name, entry := range r.actions {
		if len(entry.regs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HandlersByTag returns the registrations carrying the given tag, across
// all actions.
func (r *ActionRegister) HandlersByTag(tag string) []HandlerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []HandlerInfo
	for _, entry := range r.actions {
		for _, reg := range entry.regs {
			if reg.hasTag(tag) {
				out = append(out, reg.info())
			}
		}
	}
	sortInfos(out)
	return out
}

// HandlersByCategory returns the registrations of the given category,
// across all actions.
func (r *ActionRegister) HandlersByCategory(category string) []HandlerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []HandlerInfo
	for _, entry := range r.actions {
		for _, reg := range entry.regs {
			if reg.category == category {
				out = append(out, reg.info())
			}
		}
	}
	sortInfos(out)
	return out
}

// SetActionExecutionMode sets a per-action execution mode override. The
// action's table entry is created if needed.
func (r *ActionRegister) SetActionExecutionMode(action string, mode ExecutionMode) error {
	if action == "" {
		return fmt.Errorf("%w: empty action name", ErrInvalidConfig)
	}
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.actions[action]
	if entry == nil {
		entry = &actionEntry{}
		r.actions[action] = entry
	}
	entry.mode = mode
	return nil
}

// ActionExecutionMode returns the per-action mode override, if any.
func (r *ActionRegister) ActionExecutionMode(action string) (ExecutionMode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.actions[action]
	if entry == nil || entry.mode == "" {
		return "", false
	}
	return entry.mode, true
}

// RemoveActionExecutionMode clears a per-action mode override.
func (r *ActionRegister) RemoveActionExecutionMode(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.actions[action]
	if entry == nil {
		return
	}
	entry.mode = ""
	if r.config.Registry.AutoCleanup && len(entry.regs) == 0 {
		delete(r.actions, action)
	}
}

// ActionStats returns statistics for one action, nil when never dispatched.
func (r *ActionRegister) ActionStats(action string) *ActionStats {
	return r.stats.ActionStats(action)
}

// AllActionStats returns statistics for every dispatched action.
func (r *ActionRegister) AllActionStats() []ActionStats {
	return r.stats.AllActionStats()
}

// ResetStats clears all collected statistics.
func (r *ActionRegister) ResetStats() {
	r.stats.Reset()
}

// snapshot returns a copy of the action's registration list and its
// effective mode override under the read lock. Copy-on-iterate keeps
// in-flight dispatches unaffected by concurrent registry mutation.
func (r *ActionRegister) snapshot(action string) ([]*registration, ExecutionMode) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.actions[action]
	if entry == nil {
		return nil, ""
	}
	regs := make([]*registration, len(entry.regs))
	copy(regs, entry.regs)
	return regs, entry.mode
}

func sortRegistrations(regs []*registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
}

func sortInfos(infos []HandlerInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Action != infos[j].Action {
			return infos[i].Action < infos[j].Action
		}
		if infos[i].Priority != infos[j].Priority {
			return infos[i].Priority > infos[j].Priority
		}
		return infos[i].ID < infos[j].ID
	})
}
