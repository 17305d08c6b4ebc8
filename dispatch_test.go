package actionkit

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/actionkit/hook"
	"github.com/dshills/actionkit/pipeline"
)

// orderRecorder registers handlers that append their id to a shared slice.
// Only valid for sequential dispatches.
type orderRecorder struct {
	order []string
}

func (o *orderRecorder) handler(id string) HandlerFunc {
	return func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
		o.order = append(o.order, id)
		return nil, nil
	}
}

func TestDispatch_NoHandlers(t *testing.T) {
	r := NewWithDefaults()

	res, err := r.DispatchWithResult(context.Background(), "missing", nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Success || res.Aborted || res.Skipped {
		t.Errorf("unexpected result %+v, want clean completion", res)
	}
	if res.HandlersExecuted != 0 {
		t.Errorf("HandlersExecuted = %d, want 0", res.HandlersExecuted)
	}
}

func TestDispatch_PriorityOrder(t *testing.T) {
	r := NewWithDefaults()
	rec := &orderRecorder{}

	// Registered out of order; ties break by registration order.
	for _, reg := range []struct {
		id       string
		priority int
	}{
		{"mid-first", 50},
		{"low", 10},
		{"high", 90},
		{"mid-second", 50},
	} {
		if _, err := r.Register("test", rec.handler(reg.id), &HandlerConfig{ID: reg.id, Priority: reg.priority}); err != nil {
			t.Fatalf("register %s: %v", reg.id, err)
		}
	}

	if err := r.Dispatch(context.Background(), "test", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	want := []string{"high", "mid-first", "mid-second", "low"}
	if len(rec.order) != len(want) {
		t.Fatalf("order = %v, want %v", rec.order, want)
	}
	for i := range want {
		if rec.order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, rec.order[i], want[i])
		}
	}
}

func TestDispatch_NilContext(t *testing.T) {
	r := NewWithDefaults()
	if _, err := r.Register("test", noopHandler, nil); err != nil {
		t.Fatal(err)
	}
	//nolint:staticcheck // nil context is explicitly tolerated
	if err := r.Dispatch(nil, "test", nil); err != nil {
		t.Errorf("dispatch with nil context: %v", err)
	}
}

func TestDispatch_InvalidMode(t *testing.T) {
	r := NewWithDefaults()

	_, err := r.DispatchWithResult(context.Background(), "test", nil, DispatchOptions{Mode: "bogus"})
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("got %v, want ErrInvalidMode", err)
	}
}

func TestDispatch_ResultStrategies(t *testing.T) {
	newRegister := func(t *testing.T) *ActionRegister {
		t.Helper()
		r := NewWithDefaults()
		for i, v := range []string{"one", "two", "three"} {
			v := v
			_, err := r.Register("test",
				func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
					return v, nil
				},
				&HandlerConfig{Priority: 90 - i*10})
			if err != nil {
				t.Fatalf("register: %v", err)
			}
		}
		return r
	}

	tests := []struct {
		name string
		opts ResultOptions
		want any
	}{
		{"first", ResultOptions{Collect: true, Strategy: StrategyFirst}, "one"},
		{"last", ResultOptions{Collect: true, Strategy: StrategyLast}, "three"},
		{"max results caps last", ResultOptions{Collect: true, Strategy: StrategyLast, MaxResults: 2}, "two"},
		{"no collect", ResultOptions{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegister(t)
			res, err := r.DispatchWithResult(context.Background(), "test", nil,
				DispatchOptions{Result: tt.opts})
			if err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if res.Result != tt.want {
				t.Errorf("Result = %v, want %v", res.Result, tt.want)
			}
		})
	}

	t.Run("all", func(t *testing.T) {
		r := newRegister(t)
		res, err := r.DispatchWithResult(context.Background(), "test", nil,
			DispatchOptions{Result: ResultOptions{Collect: true, Strategy: StrategyAll}})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		all, ok := res.Result.([]any)
		if !ok || len(all) != 3 {
			t.Errorf("Result = %v, want all three results", res.Result)
		}
	})

	t.Run("merge", func(t *testing.T) {
		r := newRegister(t)
		res, err := r.DispatchWithResult(context.Background(), "test", nil,
			DispatchOptions{Result: ResultOptions{
				Collect:  true,
				Strategy: StrategyMerge,
				Merger: func(results []any) any {
					parts := make([]string, len(results))
					for i, v := range results {
						parts[i] = v.(string)
					}
					return strings.Join(parts, "+")
				},
			}})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		if res.Result != "one+two+three" {
			t.Errorf("Result = %v, want merged string", res.Result)
		}
	})
}

func TestDispatch_Filter(t *testing.T) {
	newRegister := func(t *testing.T, rec *orderRecorder) *ActionRegister {
		t.Helper()
		r := NewWithDefaults()
		regs := []struct {
			id       string
			category string
			tags     []string
		}{
			{"disk", "io", []string{"persist"}},
			{"net", "io", []string{"sync"}},
			{"toast", "ui", []string{"notify"}},
		}
		for i, reg := range regs {
			_, err := r.Register("save", rec.handler(reg.id),
				&HandlerConfig{ID: reg.id, Priority: 90 - i*10, Category: reg.category, Tags: reg.tags})
			if err != nil {
				t.Fatalf("register: %v", err)
			}
		}
		return r
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"by tag", Filter{Tags: []string{"persist"}}, []string{"disk"}},
		{"by category", Filter{Category: "io"}, []string{"disk", "net"}},
		{"exclude category", Filter{ExcludeCategory: "io"}, []string{"toast"}},
		{"tag within category", Filter{Category: "io", Tags: []string{"sync"}}, []string{"net"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &orderRecorder{}
			r := newRegister(t, rec)
			if err := r.Dispatch(context.Background(), "save", nil, DispatchOptions{Filter: tt.filter}); err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if len(rec.order) != len(tt.want) {
				t.Fatalf("ran %v, want %v", rec.order, tt.want)
			}
			for i := range tt.want {
				if rec.order[i] != tt.want[i] {
					t.Errorf("ran[%d] = %q, want %q", i, rec.order[i], tt.want[i])
				}
			}
		})
	}
}

func TestDispatch_Condition(t *testing.T) {
	r := NewWithDefaults()
	var ran atomic.Int32

	_, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			ran.Add(1)
			return nil, nil
		},
		&HandlerConfig{Condition: func(payload any) bool {
			s, ok := payload.(string)
			return ok && s != ""
		}})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := r.Dispatch(ctx, "test", ""); err != nil {
		t.Fatal(err)
	}
	if ran.Load() != 0 {
		t.Error("handler ran despite failing condition")
	}

	if err := r.Dispatch(ctx, "test", "go"); err != nil {
		t.Fatal(err)
	}
	if ran.Load() != 1 {
		t.Error("handler should run when condition passes")
	}
}

func TestDispatch_HandlerErrorAborts(t *testing.T) {
	r := NewWithDefaults()
	rec := &orderRecorder{}

	if _, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			return nil, errors.New("disk full")
		},
		&HandlerConfig{Priority: 90}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register("test", rec.handler("after"), &HandlerConfig{Priority: 10}); err != nil {
		t.Fatal(err)
	}

	res, err := r.DispatchWithResult(context.Background(), "test", nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Aborted || !strings.Contains(res.Reason, "disk full") {
		t.Errorf("result = %+v, want abort with handler error as reason", res)
	}
	if len(rec.order) != 0 {
		t.Error("handlers after a fault should not run")
	}

	stats := r.ActionStats("test")
	if stats == nil || stats.Failures != 1 || stats.Aborts != 1 {
		t.Errorf("stats = %+v, want one failure and one abort", stats)
	}
}

func TestDispatch_PanicRecovered(t *testing.T) {
	r := NewWithDefaults()

	if _, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			panic("boom")
		},
		&HandlerConfig{ID: "panicky"}); err != nil {
		t.Fatal(err)
	}

	res, err := r.DispatchWithResult(context.Background(), "test", nil)
	if err != nil {
		t.Fatalf("dispatch must not propagate the panic: %v", err)
	}
	if !res.Aborted || !strings.Contains(res.Reason, "panicked") {
		t.Errorf("result = %+v, want abort from recovered panic", res)
	}
}

func TestDispatch_Timeout(t *testing.T) {
	r := NewWithDefaults()

	if _, err := r.Register("test",
		func(ctx context.Context, _ any, _ *pipeline.Controller) (any, error) {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	res, err := r.DispatchWithResult(context.Background(), "test", nil,
		DispatchOptions{Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Aborted || res.Reason != "timeout" {
		t.Errorf("result = %+v, want abort with reason timeout", res)
	}
}

func TestDispatch_ContextCancelled(t *testing.T) {
	r := NewWithDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := r.Register("test",
		func(ctx context.Context, _ any, _ *pipeline.Controller) (any, error) {
			cancel()
			<-ctx.Done()
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	res, err := r.DispatchWithResult(ctx, "test", nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Aborted || res.Reason != "cancelled" {
		t.Errorf("result = %+v, want abort with reason cancelled", res)
	}
}

func TestDispatch_HookCancel(t *testing.T) {
	r := NewWithDefaults()
	var ran atomic.Int32

	if _, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			ran.Add(1)
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	r.Hooks().RegisterPre(hook.NewPreFunc("veto", 0, func(_ string, _ *any) bool {
		return false
	}))

	res, err := r.DispatchWithResult(context.Background(), "test", nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Skipped || res.Reason != "cancelled by hook" {
		t.Errorf("result = %+v, want skip from hook cancel", res)
	}
	if ran.Load() != 0 {
		t.Error("handler ran despite hook cancel")
	}

	stats := r.ActionStats("test")
	if stats == nil || stats.Skips != 1 {
		t.Errorf("stats = %+v, want one skip", stats)
	}
}

func TestDispatch_HookRewritesPayload(t *testing.T) {
	r := NewWithDefaults()
	var seen any

	if _, err := r.Register("test",
		func(_ context.Context, payload any, _ *pipeline.Controller) (any, error) {
			seen = payload
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	r.Hooks().RegisterPre(hook.NewPreFunc("rewrite", 0, func(_ string, payload *any) bool {
		*payload = "rewritten"
		return true
	}))

	if err := r.Dispatch(context.Background(), "test", "original"); err != nil {
		t.Fatal(err)
	}
	if seen != "rewritten" {
		t.Errorf("payload = %v, want rewritten by pre-hook", seen)
	}
}

func TestDispatch_PostHookSeesResult(t *testing.T) {
	r := NewWithDefaults()
	var got *pipeline.ExecutionResult

	if _, err := r.Register("test",
		func(_ context.Context, _ any, pc *pipeline.Controller) (any, error) {
			pc.Abort("nope")
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	r.Hooks().RegisterPost(hook.NewPostFunc("observe", 0,
		func(_ string, _ any, res *pipeline.ExecutionResult) {
			got = res
		}))

	if err := r.Dispatch(context.Background(), "test", nil); err != nil {
		t.Fatal(err)
	}
	if got == nil || !got.Aborted || got.Reason != "nope" {
		t.Errorf("post hook saw %+v, want the abort result", got)
	}
}

func TestDispatch_ThrottleOption(t *testing.T) {
	r := NewWithDefaults()
	var ran atomic.Int32

	if _, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			ran.Add(1)
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	opts := DispatchOptions{Throttle: time.Minute}

	first, err := r.DispatchWithResult(ctx, "test", nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Skipped {
		t.Fatalf("first dispatch skipped: %+v", first)
	}

	second, err := r.DispatchWithResult(ctx, "test", nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Skipped || second.Reason != "throttled" {
		t.Errorf("second dispatch = %+v, want throttled skip", second)
	}
	if ran.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", ran.Load())
	}
}

func TestDispatch_DebounceOption(t *testing.T) {
	r := NewWithDefaults()
	var ran atomic.Int32
	var last atomic.Value

	if _, err := r.Register("test",
		func(_ context.Context, payload any, _ *pipeline.Controller) (any, error) {
			ran.Add(1)
			last.Store(payload)
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	opts := DispatchOptions{Debounce: 30 * time.Millisecond}
	for _, payload := range []string{"a", "b", "c"} {
		res, err := r.DispatchWithResult(ctx, "test", payload, opts)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Skipped || res.Reason != "debounced" {
			t.Fatalf("result = %+v, want immediate debounced skip", res)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for ran.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := ran.Load(); got != 1 {
		t.Errorf("deferred dispatch ran %d times, want 1", got)
	}
	if got := last.Load(); got != "c" {
		t.Errorf("deferred payload = %v, want last trigger's payload", got)
	}
}

func TestDispatch_DebounceIntervalPerCall(t *testing.T) {
	r := NewWithDefaults()
	var ran atomic.Int32
	var last atomic.Value

	if _, err := r.Register("test",
		func(_ context.Context, payload any, _ *pipeline.Controller) (any, error) {
			ran.Add(1)
			last.Store(payload)
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	// Each dispatch reschedules with its own interval. The short second
	// interval must win over the long first one, not be ignored in favor
	// of the interval the action was first debounced with.
	ctx := context.Background()
	if _, err := r.DispatchWithResult(ctx, "test", "a",
		DispatchOptions{Debounce: 5 * time.Second}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.DispatchWithResult(ctx, "test", "b",
		DispatchOptions{Debounce: 20 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ran.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := ran.Load(); got != 1 {
		t.Fatalf("deferred dispatch ran %d times, want 1", got)
	}
	if got := last.Load(); got != "b" {
		t.Errorf("deferred payload = %v, want last trigger's payload", got)
	}
}

func TestHandler_Throttle(t *testing.T) {
	r := NewWithDefaults()
	var ran atomic.Int32

	if _, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			ran.Add(1)
			return nil, nil
		},
		&HandlerConfig{ID: "h", Throttle: time.Minute}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := r.Dispatch(ctx, "test", nil); err != nil {
		t.Fatal(err)
	}
	res, err := r.DispatchWithResult(ctx, "test", nil)
	if err != nil {
		t.Fatal(err)
	}

	if ran.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", ran.Load())
	}
	// A throttled handler drops silently; the dispatch itself completes.
	if !res.Success || res.HandlersExecuted != 0 {
		t.Errorf("second dispatch = %+v, want completion with zero handlers", res)
	}
}

func TestHandler_Debounce(t *testing.T) {
	r := NewWithDefaults()
	var ran atomic.Int32
	var last atomic.Value

	if _, err := r.Register("test",
		func(_ context.Context, payload any, _ *pipeline.Controller) (any, error) {
			ran.Add(1)
			last.Store(payload)
			return nil, nil
		},
		&HandlerConfig{ID: "h", Debounce: 30 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for _, payload := range []string{"a", "b"} {
		res, err := r.DispatchWithResult(ctx, "test", payload)
		if err != nil {
			t.Fatal(err)
		}
		if res.HandlersExecuted != 0 {
			t.Fatalf("deferred handler counted in originating dispatch: %+v", res)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for ran.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := ran.Load(); got != 1 {
		t.Errorf("debounced handler ran %d times, want 1", got)
	}
	if got := last.Load(); got != "b" {
		t.Errorf("debounced payload = %v, want last trigger's payload", got)
	}

	stats := r.ActionStats("test")
	if stats == nil || stats.HandlersExecuted != 1 {
		t.Errorf("stats = %+v, want the deferred execution recorded", stats)
	}
}

func TestHandler_Once(t *testing.T) {
	r := NewWithDefaults()
	var ran atomic.Int32

	if _, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			ran.Add(1)
			return nil, nil
		},
		&HandlerConfig{ID: "h", Once: true}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := r.Dispatch(ctx, "test", nil); err != nil {
		t.Fatal(err)
	}
	if err := r.Dispatch(ctx, "test", nil); err != nil {
		t.Fatal(err)
	}

	if ran.Load() != 1 {
		t.Errorf("once handler ran %d times, want 1", ran.Load())
	}
	if r.HasHandlers("test") {
		t.Error("once handler should unregister after its first success")
	}
}

func TestHandler_OnceKeptAfterFault(t *testing.T) {
	r := NewWithDefaults()
	var attempts atomic.Int32

	if _, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			if attempts.Add(1) == 1 {
				return nil, errors.New("transient")
			}
			return nil, nil
		},
		&HandlerConfig{ID: "h", Once: true}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := r.Dispatch(ctx, "test", nil); err != nil {
		t.Fatal(err)
	}
	if !r.HasHandlers("test") {
		t.Fatal("failed once handler should stay registered")
	}
	if err := r.Dispatch(ctx, "test", nil); err != nil {
		t.Fatal(err)
	}
	if r.HasHandlers("test") {
		t.Error("once handler should unregister after succeeding")
	}
}

func TestRegisterTyped(t *testing.T) {
	r := NewWithDefaults()
	var got int

	if _, err := RegisterTyped(r, "test",
		func(_ context.Context, payload int, _ *pipeline.Controller) (any, error) {
			got = payload
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := r.Dispatch(ctx, "test", 42); err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("payload = %d, want 42", got)
	}

	// A payload of the wrong type is a handler fault, not a crash.
	res, err := r.DispatchWithResult(ctx, "test", "not an int")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Aborted {
		t.Errorf("result = %+v, want abort on payload type mismatch", res)
	}

	// nil payload converts to the zero value.
	got = -1
	if err := r.Dispatch(ctx, "test", nil); err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("payload = %d, want zero value for nil", got)
	}
}

func TestDispatch_ModePrecedence(t *testing.T) {
	// Two handlers rendezvous: each signals and waits for the other.
	// They can only both settle when run concurrently.
	newRegister := func(t *testing.T) *ActionRegister {
		t.Helper()
		r := NewWithDefaults()
		a, b := make(chan struct{}), make(chan struct{})
		rendezvous := func(mine, other chan struct{}) HandlerFunc {
			return func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
				close(mine)
				select {
				case <-other:
					return nil, nil
				case <-time.After(500 * time.Millisecond):
					return nil, errors.New("rendezvous timeout")
				}
			}
		}
		if _, err := r.Register("test", rendezvous(a, b), &HandlerConfig{ID: "a", Priority: 90}); err != nil {
			t.Fatal(err)
		}
		if _, err := r.Register("test", rendezvous(b, a), &HandlerConfig{ID: "b", Priority: 10}); err != nil {
			t.Fatal(err)
		}
		return r
	}

	t.Run("option overrides default", func(t *testing.T) {
		r := newRegister(t)
		res, err := r.DispatchWithResult(context.Background(), "test", nil,
			DispatchOptions{Mode: ModeParallel})
		if err != nil {
			t.Fatal(err)
		}
		if res.Aborted {
			t.Errorf("parallel dispatch aborted: %+v", res)
		}
	})

	t.Run("action override applies", func(t *testing.T) {
		r := newRegister(t)
		if err := r.SetActionExecutionMode("test", ModeParallel); err != nil {
			t.Fatal(err)
		}
		res, err := r.DispatchWithResult(context.Background(), "test", nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.Aborted {
			t.Errorf("dispatch under action override aborted: %+v", res)
		}
	})

	t.Run("default is sequential", func(t *testing.T) {
		r := newRegister(t)
		res, err := r.DispatchWithResult(context.Background(), "test", nil)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Aborted {
			t.Errorf("sequential dispatch should deadlock the rendezvous, got %+v", res)
		}
	})
}

func TestStats_Lifecycle(t *testing.T) {
	r := NewWithDefaults()
	if _, err := r.Register("test", noopHandler, nil); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := r.Dispatch(ctx, "test", nil); err != nil {
			t.Fatal(err)
		}
	}

	stats := r.ActionStats("test")
	if stats == nil {
		t.Fatal("ActionStats is nil after dispatching")
	}
	if stats.Dispatches != 3 || stats.Successes != 3 || stats.HandlersExecuted != 3 {
		t.Errorf("stats = %+v, want 3 clean dispatches", stats)
	}
	if stats.LastDispatch.IsZero() {
		t.Error("LastDispatch should be set")
	}

	if r.ActionStats("never") != nil {
		t.Error("stats for an undispatched action should be nil")
	}

	r.ResetStats()
	if r.ActionStats("test") != nil {
		t.Error("stats should be empty after reset")
	}
}

func TestStats_SkipsExcludedFromDurations(t *testing.T) {
	r := NewWithDefaults()
	if _, err := r.Register("test",
		func(_ context.Context, _ any, _ *pipeline.Controller) (any, error) {
			time.Sleep(10 * time.Millisecond)
			return nil, nil
		}, nil); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	opts := DispatchOptions{Throttle: time.Minute}
	if err := r.Dispatch(ctx, "test", nil, opts); err != nil {
		t.Fatal(err)
	}
	if err := r.Dispatch(ctx, "test", nil, opts); err != nil {
		t.Fatal(err)
	}

	stats := r.ActionStats("test")
	if stats == nil {
		t.Fatal("ActionStats is nil after dispatching")
	}
	if stats.Dispatches != 2 || stats.Runs != 1 || stats.Skips != 1 {
		t.Fatalf("stats = %+v, want one run and one throttled skip", stats)
	}
	// The near-instant skip must not drag the duration aggregates down.
	if stats.MinDuration < 10*time.Millisecond {
		t.Errorf("MinDuration = %v, want the real run's duration", stats.MinDuration)
	}
	if got := stats.AverageDuration(); got < 10*time.Millisecond {
		t.Errorf("AverageDuration = %v, want the real run's duration", got)
	}
}
