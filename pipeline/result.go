package pipeline

import "time"

// ExecutionResult is the outcome of one dispatch run, returned by
// DispatchWithResult.
type ExecutionResult struct {
	// Success is true when the run completed or returned early without an
	// abort or handler fault.
	Success bool

	// Aborted is true when a handler (or the dispatch timeout) aborted the
	// run. Reason carries the abort reason.
	Aborted bool
	Reason  string

	// Terminated is true when a handler short-circuited the run via
	// Return. Result carries the returned value; otherwise Result holds
	// the value produced by the configured collection strategy.
	Terminated bool
	Result     any

	// Results is the full accumulated result list when the dispatch asked
	// for collection with StrategyAll (or for inspection).
	Results []any

	// Skipped is true when the dispatch never ran: dropped by a
	// dispatch-level throttle or cancelled by a pre-dispatch hook.
	Skipped bool

	// HandlersExecuted counts handlers started during the run. Deferred
	// (debounced) and guard-dropped handlers are not counted.
	HandlersExecuted int

	// Duration is the wall time from dispatch start to terminal state.
	Duration time.Duration
}

// Completed builds the result for a run that reached the end of its
// handler list.
func Completed(executed int, d time.Duration) ExecutionResult {
	return ExecutionResult{Success: true, HandlersExecuted: executed, Duration: d}
}

// AbortedResult builds the result for an aborted run.
func AbortedResult(reason string, executed int, d time.Duration) ExecutionResult {
	return ExecutionResult{Aborted: true, Reason: reason, HandlersExecuted: executed, Duration: d}
}

// ReturnedResult builds the result for a short-circuited run.
func ReturnedResult(value any, executed int, d time.Duration) ExecutionResult {
	return ExecutionResult{Success: true, Terminated: true, Result: value, HandlersExecuted: executed, Duration: d}
}

// SkippedResult builds the result for a dispatch that never ran.
func SkippedResult(reason string) ExecutionResult {
	return ExecutionResult{Success: true, Skipped: true, Reason: reason}
}
