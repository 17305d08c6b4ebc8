package actionkit

import (
	"sync"

	"github.com/dshills/actionkit/pipeline"
)

// runSequential iterates the filtered list in priority order. The
// controller's terminal state is checked after every handler, and a
// pending JumpToPriority relocates the cursor instead of advancing it.
// Jumps may target handlers that already ran; the engine does not detect
// the resulting cycles.
func (r *ActionRegister) runSequential(pc *pipeline.Controller, regs []*registration) (executed, faults int) {
	for i := 0; i < len(regs); {
		if pc.IsTerminal() {
			break
		}

		reg := regs[i]
		out, err := r.invoke(pc, reg)
		executed++

		if err != nil {
			// An uncaught handler error is fatal to this dispatch.
			faults++
			pc.Abort(err.Error())
			break
		}
		if out != nil {
			pc.SetResult(out)
		}
		r.finishOnce(reg)

		if target, ok := pc.ConsumeJump(); ok {
			i = jumpIndex(regs, target)
			continue
		}
		i++
	}
	return executed, faults
}

// jumpIndex locates the first handler at the given priority, or at the
// next lower available priority. When every handler outranks the target
// the cursor moves past the end and the run completes.
func jumpIndex(regs []*registration, priority int) int {
	for i, reg := range regs {
		if reg.priority <= priority {
			return i
		}
	}
	return len(regs)
}

// runParallel starts every filtered handler concurrently. Blocking
// handlers are awaited together; a fault or abort from any of them marks
// the run aborted once all have settled. Non-blocking handlers are
// fire-and-forget: they share the controller and may still abort or record
// results, but the run does not wait for them and a late abort after the
// run resolves is a no-op.
func (r *ActionRegister) runParallel(pc *pipeline.Controller, regs []*registration) (executed, faults int) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, reg := range regs {
		executed++

		if !reg.blocking {
			go r.runDetached(pc, reg)
			continue
		}

		wg.Add(1)
		go func(reg *registration) {
			defer wg.Done()

			out, err := r.invoke(pc, reg)
			if err != nil {
				mu.Lock()
				faults++
				mu.Unlock()
				pc.Abort(err.Error())
				return
			}
			if out != nil {
				pc.SetResult(out)
			}
			r.finishOnce(reg)
		}(reg)
	}

	wg.Wait()
	return executed, faults
}

// runDetached executes a fire-and-forget handler. Its outcome is observed
// only for logging; faults are swallowed because the run no longer owns
// the handler's lifecycle.
func (r *ActionRegister) runDetached(pc *pipeline.Controller, reg *registration) {
	out, err := r.invoke(pc, reg)
	if err != nil {
		if r.DebugEnabled() {
			r.logger.Debug("non-blocking handler failed",
				"register", r.config.Name, "action", reg.action, "handler", reg.id, "error", err)
		}
		return
	}
	if out != nil {
		pc.SetResult(out)
	}
	r.finishOnce(reg)
}

// runRace starts every filtered handler concurrently and adopts the
// outcome of the first to settle. Losers are not cancelled; they run to
// completion against the shared controller but their outcomes are ignored,
// and their faults are swallowed. Once-consumption is guard state, not a
// run outcome, so a once handler that succeeds as a loser still
// self-unregisters.
func (r *ActionRegister) runRace(pc *pipeline.Controller, regs []*registration) (executed, faults int) {
	type outcome struct {
		out any
		err error
	}

	settled := make(chan outcome, len(regs))
	for _, reg := range regs {
		executed++
		go func(reg *registration) {
			out, err := r.invoke(pc, reg)
			if err == nil {
				r.finishOnce(reg)
			}
			settled <- outcome{out: out, err: err}
		}(reg)
	}

	winner := <-settled

	if winner.err != nil {
		faults++
		pc.Abort(winner.err.Error())
		return executed, faults
	}
	if winner.out != nil {
		pc.SetResult(winner.out)
	}

	// The winner's value doubles as the run result unless the winner
	// already ended the run explicitly.
	if winner.out != nil && !pc.IsTerminal() {
		pc.Return(winner.out)
	}
	return executed, faults
}
