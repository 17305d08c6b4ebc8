package actionkit

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/actionkit/pipeline"
)

// Dispatch runs the handlers registered for an action against the payload.
// It resolves once the run reaches a terminal state. An aborted run is not
// an error; callers that need the abort reason use DispatchWithResult.
func (r *ActionRegister) Dispatch(ctx context.Context, action string, payload any, opts ...DispatchOptions) error {
	_, err := r.DispatchWithResult(ctx, action, payload, opts...)
	return err
}

// DispatchWithResult runs the handlers registered for an action and
// returns the terminal ExecutionResult. The error is non-nil only for
// invalid dispatch options; aborts, handler faults, and timeouts report
// through the result.
func (r *ActionRegister) DispatchWithResult(ctx context.Context, action string, payload any, opts ...DispatchOptions) (pipeline.ExecutionResult, error) {
	options := mergeOptions(opts)
	if options.Mode != "" && !options.Mode.IsValid() {
		return pipeline.ExecutionResult{}, fmt.Errorf("%w: %q", ErrInvalidMode, options.Mode)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Pre-dispatch hooks may replace the payload or cancel the dispatch.
	if !r.hooks.RunPre(action, &payload) {
		res := pipeline.SkippedResult("cancelled by hook")
		r.stats.RecordDispatch(action, res, 0)
		r.hooks.RunPost(action, payload, &res)
		return res, nil
	}

	// Dispatch-level guards, independent of per-handler guards.
	if options.Throttle > 0 && !r.dispatchGuards.For(action).AllowThrottle(options.Throttle) {
		if r.DebugEnabled() {
			r.logger.Debug("dispatch throttled", "register", r.config.Name, "action", action)
		}
		res := pipeline.SkippedResult("throttled")
		r.stats.RecordDispatch(action, res, 0)
		r.hooks.RunPost(action, payload, &res)
		return res, nil
	}
	if options.Debounce > 0 {
		deferred := options
		deferred.Debounce = 0
		r.dispatchGuards.For(action).Debounce(options.Debounce, func() {
			if _, err := r.DispatchWithResult(context.Background(), action, payload, deferred); err != nil {
				r.logger.Error("deferred dispatch failed", "action", action, "error", err)
			}
		})
		res := pipeline.SkippedResult("debounced")
		r.stats.RecordDispatch(action, res, 0)
		r.hooks.RunPost(action, payload, &res)
		return res, nil
	}

	res, faults := r.run(ctx, action, payload, options)
	r.stats.RecordDispatch(action, res, faults)
	r.hooks.RunPost(action, payload, &res)
	return res, nil
}

// run executes one pipeline: filtering, mode execution, and result
// assembly.
func (r *ActionRegister) run(ctx context.Context, action string, payload any, options DispatchOptions) (pipeline.ExecutionResult, int) {
	start := time.Now()

	regs, modeOverride := r.snapshot(action)
	filtered := r.filter(regs, payload, options.Filter)

	if len(filtered) == 0 {
		if r.DebugEnabled() {
			r.logger.Debug("dispatch matched no handlers", "register", r.config.Name, "action", action)
		}
		return pipeline.Completed(0, time.Since(start)), 0
	}

	mode := r.config.Registry.DefaultExecutionMode
	if modeOverride != "" {
		mode = modeOverride
	}
	if options.Mode != "" {
		mode = options.Mode
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	pc := pipeline.NewController(ctx, pipeline.RunInfo{
		Action:     action,
		DispatchID: uuid.NewString(),
		MaxRetries: r.config.Registry.MaxRetries,
		RetryDelay: r.config.Registry.RetryDelay,
	}, payload)

	// The context is the run's cancellation signal: expiry of the
	// dispatch timeout or an external cancel aborts the shared controller.
	stop := context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			pc.Abort("timeout")
		} else {
			pc.Abort("cancelled")
		}
	})
	defer stop()

	var executed, faults int
	switch mode {
	case ModeParallel:
		executed, faults = r.runParallel(pc, filtered)
	case ModeRace:
		executed, faults = r.runRace(pc, filtered)
	default:
		executed, faults = r.runSequential(pc, filtered)
	}

	duration := time.Since(start)
	results := pc.Results()

	if aborted, reason := pc.Aborted(); aborted {
		res := pipeline.AbortedResult(reason, executed, duration)
		res.Results = results
		return res, faults
	}
	if terminated, value := pc.Terminated(); terminated {
		res := pipeline.ReturnedResult(value, executed, duration)
		res.Results = results
		return res, faults
	}

	res := pipeline.Completed(executed, duration)
	res.Results = results
	res.Result = reduceResults(results, options.Result)
	return res, faults
}

// filter applies the dispatch filter, each handler's condition, and the
// per-handler guards, in that order. Debounced handlers are deferred here:
// they run detached once their quiet window elapses and are not part of
// this run. A handler dropped by the filter or its condition consumes no
// guard window.
func (r *ActionRegister) filter(regs []*registration, payload any, f Filter) []*registration {
	filtered := make([]*registration, 0, len(regs))
	for _, reg := range regs {
		if !f.isZero() && !f.allows(reg) {
			continue
		}
		if reg.cond != nil && !reg.cond(payload) {
			continue
		}
		if reg.debounce > 0 {
			r.deferHandler(reg, payload)
			continue
		}
		if reg.throttle > 0 && !r.guards.For(reg.id).AllowThrottle(reg.throttle) {
			if r.DebugEnabled() {
				r.logger.Debug("handler throttled",
					"register", r.config.Name, "action", reg.action, "handler", reg.id)
			}
			continue
		}
		filtered = append(filtered, reg)
	}
	return filtered
}

// deferHandler schedules a debounced handler. The deferred execution runs
// detached from the originating dispatch in a fresh single-handler run,
// with the payload captured at trigger time.
func (r *ActionRegister) deferHandler(reg *registration, payload any) {
	r.guards.For(reg.id).Debounce(reg.debounce, func() {
		pc := pipeline.NewController(context.Background(), pipeline.RunInfo{
			Action:     reg.action,
			DispatchID: uuid.NewString(),
			MaxRetries: r.config.Registry.MaxRetries,
			RetryDelay: r.config.Registry.RetryDelay,
		}, payload)

		_, err := r.invoke(pc, reg)
		r.stats.RecordDeferred(reg.action, err != nil)
		if err != nil {
			r.logger.Error("deferred handler failed",
				"register", r.config.Name, "action", reg.action, "handler", reg.id, "error", err)
			return
		}
		r.finishOnce(reg)
	})
}

// invoke runs a single handler with panic recovery. The handler's returned
// value is not recorded here; each mode decides what to do with it.
func (r *ActionRegister) invoke(pc *pipeline.Controller, reg *registration) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			err = fmt.Errorf("handler %s panicked: %v", reg.id, rec)
			r.logger.Error("handler panic",
				"register", r.config.Name, "action", reg.action, "handler", reg.id,
				"panic", rec, "stack", string(stack))
		}
	}()

	return reg.handler(pc.Context(), pc.Payload(), pc)
}

// finishOnce self-unregisters a once handler after its first successful
// execution. Safe to call for non-once handlers and safe to call twice.
func (r *ActionRegister) finishOnce(reg *registration) {
	if reg.once && !reg.fired.Swap(true) {
		r.remove(reg)
	}
}
