// Package actionkit is an in-process action dispatch and pipeline
// execution engine. Callers register named actions, attach one or more
// ordered handlers to each, and later dispatch a payload that runs the
// matching handlers under configurable concurrency, filtering, and
// control-flow semantics. It is a predictable, inspectable alternative to
// ad-hoc event emitters for UI-adjacent code.
//
// # Architecture
//
// An ActionRegister owns the action table: a map from action name to a
// priority-ordered list of handler registrations, plus optional per-action
// execution-mode overrides and statistics. Registers are plain values with
// no global state; tests and subsystems create isolated instances.
//
// A dispatch walks four stages:
//
//  1. Pre-dispatch hooks run (may replace the payload or cancel).
//  2. Filtering: the dispatch filter (tags/category), each handler's
//     Condition, and the per-handler guards (throttle drop, debounce
//     deferral) reduce the registration list, in that order.
//  3. The filtered handlers run under the effective execution mode:
//     sequential, parallel, or race.
//  4. The terminal state is assembled into an ExecutionResult, statistics
//     are recorded, and post-dispatch hooks observe the result.
//
// # Handlers and the pipeline controller
//
// Every handler in a run shares one pipeline.Controller. Through it a
// handler can abort the run, short-circuit with Return, replace the
// payload seen by later handlers, accumulate results, or jump the
// sequential cursor to another priority tier:
//
//	reg := actionkit.NewWithDefaults()
//	unregister, _ := reg.Register("user.save", func(ctx context.Context, payload any, pc *pipeline.Controller) (any, error) {
//	    user := payload.(User)
//	    if user.Name == "" {
//	        pc.Abort("validation failed")
//	        return nil, nil
//	    }
//	    return user.ID, nil
//	}, &actionkit.HandlerConfig{Priority: 90, Tags: []string{"validation"}})
//	defer unregister()
//
//	result, _ := reg.DispatchWithResult(ctx, "user.save", user)
//
// JumpToPriority may revisit handlers that already ran, creating cycles by
// design; the engine performs no cycle detection and handlers that jump
// are responsible for convergence.
//
// # Guards
//
// Each registration may carry a trailing-edge Debounce, a leading-edge
// Throttle, a Once flag, and a Condition predicate. Guard state is keyed
// by handler id and persists across dispatches until unregistration.
// Dispatch-level throttle/debounce in DispatchOptions gate whole
// dispatches independently.
//
// # Execution modes
//
// Sequential (the default) awaits each handler in priority order and
// honors jumps. Parallel starts all handlers concurrently, awaiting the
// blocking ones. Race adopts the first settled handler's outcome. Abort is
// a first-class shutdown signal, not an error: Dispatch resolves normally
// and DispatchWithResult reports Aborted with the reason.
package actionkit
