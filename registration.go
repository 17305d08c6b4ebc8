package actionkit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dshills/actionkit/pipeline"
)

// DefaultPriority is the mid-range priority assigned when a handler config
// leaves Priority at zero.
const DefaultPriority = 50

// HandlerFunc processes one dispatch of an action. The returned value, when
// non-nil, is appended to the run's accumulated result list; handlers may
// also call pc.SetResult explicitly. Returning an error is a handler fault
// and aborts the run in sequential and parallel-blocking contexts;
// recoverable conditions should instead be signalled via pc.Abort or a
// result value.
type HandlerFunc func(ctx context.Context, payload any, pc *pipeline.Controller) (any, error)

// UnregisterFunc removes the handler registration it was returned for.
// Calling it more than once is a no-op after the first call.
type UnregisterFunc func()

// HandlerConfig describes one handler registration.
type HandlerConfig struct {
	// ID uniquely identifies the registration within its action. When
	// empty an id is generated. Registering with an id that already
	// exists for the action atomically replaces the previous registration.
	ID string

	// Priority orders handlers within an action; higher runs earlier.
	// Zero selects DefaultPriority. Ties preserve registration order.
	Priority int

	// Tags and Category classify the handler for dispatch-level filtering
	// and introspection.
	Tags     []string
	Category string

	// Once limits the handler to a single successful execution, after
	// which it unregisters itself.
	Once bool

	// NonBlocking marks the handler fire-and-forget in parallel mode: the
	// dispatch does not wait for it to finish. Blocking is the default.
	NonBlocking bool

	// Condition, when set, is evaluated against the payload before any
	// guard timer logic. Returning false skips the handler for the
	// dispatch with no side effect.
	Condition func(payload any) bool

	// Debounce defers execution until the interval elapses with no new
	// trigger (trailing edge). Deferred executions run detached from the
	// originating dispatch.
	Debounce time.Duration

	// Throttle drops invocation attempts within the interval of the last
	// one (leading edge). Dropped attempts are not queued.
	Throttle time.Duration

	// Metadata is an opaque key-value map echoed through introspection.
	Metadata map[string]any
}

// HandlerInfo is the read-only introspection view of a registration.
type HandlerInfo struct {
	ID       string
	Action   string
	Priority int
	Tags     []string
	Category string
	Once     bool
	Blocking bool
	Metadata map[string]any
}

// registration is the internal record for one handler bound to one action.
type registration struct {
	id       string
	action   string
	handler  HandlerFunc
	priority int
	seq      uint64 // registration order, breaks priority ties
	tags     []string
	category string
	once     bool
	blocking bool
	cond     func(any) bool
	debounce time.Duration
	throttle time.Duration
	metadata map[string]any

	fired atomic.Bool // set when a once handler has run successfully
}

func (reg *registration) info() HandlerInfo {
	return HandlerInfo{
		ID:       reg.id,
		Action:   reg.action,
		Priority: reg.priority,
		Tags:     append([]string(nil), reg.tags...),
		Category: reg.category,
		Once:     reg.once,
		Blocking: reg.blocking,
		Metadata: reg.metadata,
	}
}

func (reg *registration) hasTag(tag string) bool {
	for _, t := range reg.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RegisterTyped registers a handler with a typed payload. The payload type
// is asserted at the dispatch boundary; a mismatch is a handler fault.
// This is the generics-friendly companion to ActionRegister.Register for
// callers that associate one payload type with each action name.
func RegisterTyped[P any](
	r *ActionRegister,
	action string,
	h func(ctx context.Context, payload P, pc *pipeline.Controller) (any, error),
	cfg *HandlerConfig,
) (UnregisterFunc, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrInvalidConfig)
	}

	wrapped := func(ctx context.Context, payload any, pc *pipeline.Controller) (any, error) {
		p, ok := payload.(P)
		if !ok {
			// A nil payload still matches a nilable P.
			if payload == nil {
				var zero P
				return h(ctx, zero, pc)
			}
			return nil, fmt.Errorf("action %s: payload type %T does not match handler", action, payload)
		}
		return h(ctx, p, pc)
	}

	return r.Register(action, wrapped, cfg)
}
