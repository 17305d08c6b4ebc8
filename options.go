package actionkit

import "time"

// ResultStrategy selects how the accumulated result list is reduced into
// ExecutionResult.Result when no handler returned early.
type ResultStrategy string

const (
	// StrategyFirst selects the first accumulated result.
	StrategyFirst ResultStrategy = "first"
	// StrategyLast selects the last accumulated result.
	StrategyLast ResultStrategy = "last"
	// StrategyAll selects the full result slice.
	StrategyAll ResultStrategy = "all"
	// StrategyMerge reduces the results with the caller-supplied Merger.
	StrategyMerge ResultStrategy = "merge"
)

// Filter restricts the handler set for one dispatch by tag or category.
// Filtering is applied before each handler's own Condition, and a
// filtered-out handler consumes no throttle or debounce window.
type Filter struct {
	// Tags keeps only handlers carrying at least one of the listed tags.
	Tags []string

	// Category keeps only handlers of this category when non-empty.
	Category string

	// ExcludeCategory drops handlers of this category when non-empty.
	ExcludeCategory string
}

func (f Filter) isZero() bool {
	return len(f.Tags) == 0 && f.Category == "" && f.ExcludeCategory == ""
}

func (f Filter) allows(reg *registration) bool {
	if f.ExcludeCategory != "" && reg.category == f.ExcludeCategory {
		return false
	}
	if f.Category != "" && reg.category != f.Category {
		return false
	}
	if len(f.Tags) > 0 {
		matched := false
		for _, tag := range f.Tags {
			if reg.hasTag(tag) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// ResultOptions configures result collection for one dispatch.
type ResultOptions struct {
	// Collect enables reduction of the accumulated result list into
	// ExecutionResult.Result.
	Collect bool

	// Strategy selects the reduction. Empty defaults to StrategyAll.
	Strategy ResultStrategy

	// MaxResults caps how many accumulated results feed the strategy.
	// Zero means no cap.
	MaxResults int

	// Merger reduces the result list under StrategyMerge.
	Merger func(results []any) any
}

// DispatchOptions configures a single dispatch. The zero value inherits
// everything from the register and action configuration.
type DispatchOptions struct {
	// Mode overrides the execution mode for this dispatch. Precedence is
	// dispatch option, then per-action override, then the register's
	// DefaultExecutionMode.
	Mode ExecutionMode

	// Timeout arms a timer that aborts the run with reason "timeout" on
	// expiry. Already-running non-blocking handlers are not killed, only
	// ignored.
	Timeout time.Duration

	// Filter restricts the handler set for this dispatch.
	Filter Filter

	// Throttle drops this dispatch entirely when issued within the
	// interval of the previous dispatch of the same action (leading
	// edge). Dropped dispatches resolve with a Skipped result.
	// Independent of per-handler throttles.
	Throttle time.Duration

	// Debounce defers the whole dispatch until the interval elapses with
	// no newer debounced dispatch of the same action (trailing edge). The
	// call resolves immediately with a Skipped result; the deferred run
	// executes detached and is visible through statistics.
	Debounce time.Duration

	// Result configures result collection.
	Result ResultOptions
}

func mergeOptions(opts []DispatchOptions) DispatchOptions {
	if len(opts) == 0 {
		return DispatchOptions{}
	}
	return opts[0]
}

func reduceResults(results []any, ro ResultOptions) any {
	if !ro.Collect || len(results) == 0 {
		return nil
	}
	if ro.MaxResults > 0 && len(results) > ro.MaxResults {
		results = results[:ro.MaxResults]
	}

	switch ro.Strategy {
	case StrategyFirst:
		return results[0]
	case StrategyLast:
		return results[len(results)-1]
	case StrategyMerge:
		if ro.Merger != nil {
			return ro.Merger(results)
		}
		return results
	case StrategyAll, "":
		return results
	default:
		return results
	}
}
