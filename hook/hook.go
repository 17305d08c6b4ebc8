// Package hook provides extensible pre/post dispatch hooks for the action
// register. Pre-dispatch hooks run before a pipeline starts and may replace
// the payload or cancel the dispatch; post-dispatch hooks observe the
// finished result.
package hook

import "github.com/dshills/actionkit/pipeline"

// Hook is the base interface for all dispatch hooks.
type Hook interface {
	// Name returns a unique identifier for this hook. Registering another
	// hook with the same name replaces it.
	Name() string

	// Priority returns the hook priority. Higher values run first for
	// pre-hooks and last for post-hooks.
	Priority() int
}

// PreDispatch is called before a dispatch run starts. It may replace the
// payload via the pointer. Returning false cancels the dispatch, which
// then resolves with a Skipped result.
type PreDispatch interface {
	Hook
	PreDispatch(action string, payload *any) bool
}

// PostDispatch is called after a dispatch run reaches a terminal state.
// It may inspect or annotate the result.
type PostDispatch interface {
	Hook
	PostDispatch(action string, payload any, result *pipeline.ExecutionResult)
}

// PreFunc wraps a function as a PreDispatch hook.
type PreFunc struct {
	name     string
	priority int
	fn       func(action string, payload *any) bool
}

// NewPreFunc creates a PreDispatch hook from a function.
func NewPreFunc(name string, priority int, fn func(action string, payload *any) bool) *PreFunc {
	return &PreFunc{name: name, priority: priority, fn: fn}
}

// Name implements Hook.
func (f *PreFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PreFunc) Priority() int { return f.priority }

// PreDispatch implements PreDispatch.
func (f *PreFunc) PreDispatch(action string, payload *any) bool {
	if f.fn == nil {
		return true
	}
	return f.fn(action, payload)
}

// PostFunc wraps a function as a PostDispatch hook.
type PostFunc struct {
	name     string
	priority int
	fn       func(action string, payload any, result *pipeline.ExecutionResult)
}

// NewPostFunc creates a PostDispatch hook from a function.
func NewPostFunc(name string, priority int, fn func(action string, payload any, result *pipeline.ExecutionResult)) *PostFunc {
	return &PostFunc{name: name, priority: priority, fn: fn}
}

// Name implements Hook.
func (f *PostFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PostFunc) Priority() int { return f.priority }

// PostDispatch implements PostDispatch.
func (f *PostFunc) PostDispatch(action string, payload any, result *pipeline.ExecutionResult) {
	if f.fn != nil {
		f.fn(action, payload, result)
	}
}
