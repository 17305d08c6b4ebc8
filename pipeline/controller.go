// Package pipeline provides the per-dispatch run state shared by every
// handler in a single dispatch: the mutable payload, accumulated results,
// terminal flags, and the cursor-jump primitive.
package pipeline

import (
	"context"
	"sync"
	"time"
)

// RunInfo carries read-only metadata about the dispatch a controller
// belongs to. MaxRetries and RetryDelay echo the owning register's
// configuration; the engine does not enforce them, handlers implementing
// retry read them explicitly.
type RunInfo struct {
	Action     string
	DispatchID string
	MaxRetries int
	RetryDelay time.Duration
}

// Controller is the in-flight pipeline state for one dispatch. A single
// instance is shared by reference across all handlers in the run.
//
// Handlers use it to abort the run, short-circuit with a return value,
// replace the payload seen by later handlers, accumulate results, or move
// the execution cursor to another priority tier.
//
// Thread-safety: all methods are safe for concurrent use; parallel and
// race modes share one controller across handler goroutines.
type Controller struct {
	ctx  context.Context
	info RunInfo

	mu         sync.Mutex
	payload    any
	results    []any
	aborted    bool
	reason     string
	terminated bool
	retVal     any
	jump       *int
}

// NewController creates the controller for a dispatch run.
func NewController(ctx context.Context, info RunInfo, payload any) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Controller{ctx: ctx, info: info, payload: payload}
}

// Context returns the dispatch context. It carries the dispatch-level
// timeout and any external cancellation; long-running handlers should
// observe it to stop cooperatively.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Info returns metadata about the current run.
func (c *Controller) Info() RunInfo {
	return c.info
}

// Abort marks the run terminal. No further handlers execute. Aborting is a
// first-class shutdown signal, not an error: Dispatch still resolves
// normally and DispatchWithResult reports Aborted with the reason.
// The first terminal transition wins; later calls are no-ops.
func (c *Controller) Abort(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aborted || c.terminated {
		return
	}
	c.aborted = true
	c.reason = reason
}

// Return marks the run terminal with an intentional short-circuit value.
// Subsequent handlers are skipped and the value becomes the run's result.
func (c *Controller) Return(value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aborted || c.terminated {
		return
	}
	c.terminated = true
	c.retVal = value
}

// ModifyPayload replaces the run's current payload with fn(current). The
// replacement is visible to every handler executed afterward in this run.
// fn must return a new value rather than mutate its argument; the original
// payload passed to Dispatch is never touched by the engine.
func (c *Controller) ModifyPayload(fn func(current any) any) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = fn(c.payload)
}

// Payload returns the current (possibly modified) payload.
func (c *Controller) Payload() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload
}

// SetResult appends a value to the run's accumulated result list.
func (c *Controller) SetResult(result any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns a copy of the results accumulated so far, in execution
// order.
func (c *Controller) Results() []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]any, len(c.results))
	copy(out, c.results)
	return out
}

// JumpToPriority relocates the sequential execution cursor to the first
// handler whose priority equals the given value, or the next lower
// available priority. Handlers already executed in this run are eligible
// again, so a jump can loop. The engine performs no
// cycle detection; handlers that jump are responsible for convergence,
// typically with a local counter that stops jumping after N repeats.
//
// Only sequential mode honors jumps; parallel and race runs ignore them.
func (c *Controller) JumpToPriority(priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aborted || c.terminated {
		return
	}
	p := priority
	c.jump = &p
}

// ConsumeJump returns and clears a pending jump request. Used by the
// sequential runner between handlers.
func (c *Controller) ConsumeJump() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jump == nil {
		return 0, false
	}
	p := *c.jump
	c.jump = nil
	return p, true
}

// Aborted reports whether the run was aborted, with the abort reason.
func (c *Controller) Aborted() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted, c.reason
}

// Terminated reports whether a handler short-circuited the run, with the
// return value.
func (c *Controller) Terminated() (bool, any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated, c.retVal
}

// IsTerminal reports whether the run has reached a terminal state.
func (c *Controller) IsTerminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted || c.terminated
}
