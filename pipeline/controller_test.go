package pipeline

import (
	"context"
	"testing"
)

func newTestController(payload any) *Controller {
	return NewController(context.Background(), RunInfo{Action: "test", DispatchID: "d1"}, payload)
}

func TestController_AbortFirstWins(t *testing.T) {
	c := newTestController(nil)

	c.Abort("first")
	c.Abort("second")

	aborted, reason := c.Aborted()
	if !aborted || reason != "first" {
		t.Errorf("Aborted() = %v/%q, want true/first", aborted, reason)
	}
	if !c.IsTerminal() {
		t.Error("aborted run should be terminal")
	}
}

func TestController_ReturnAfterAbortIgnored(t *testing.T) {
	c := newTestController(nil)

	c.Abort("stop")
	c.Return("value")

	if terminated, _ := c.Terminated(); terminated {
		t.Error("Return after Abort should be a no-op")
	}
}

func TestController_AbortAfterReturnIgnored(t *testing.T) {
	c := newTestController(nil)

	c.Return("value")
	c.Abort("stop")

	if aborted, _ := c.Aborted(); aborted {
		t.Error("Abort after Return should be a no-op")
	}
	terminated, value := c.Terminated()
	if !terminated || value != "value" {
		t.Errorf("Terminated() = %v/%v, want true/value", terminated, value)
	}
}

func TestController_ModifyPayload(t *testing.T) {
	c := newTestController(1)

	c.ModifyPayload(func(cur any) any { return cur.(int) + 1 })
	c.ModifyPayload(nil) // no-op

	if got := c.Payload(); got != 2 {
		t.Errorf("Payload() = %v, want 2", got)
	}
}

func TestController_ResultsAreCopied(t *testing.T) {
	c := newTestController(nil)
	c.SetResult("a")
	c.SetResult("b")

	got := c.Results()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Results() = %v, want [a b]", got)
	}

	got[0] = "mutated"
	if again := c.Results(); again[0] != "a" {
		t.Error("Results() must return a copy")
	}
}

func TestController_ConsumeJumpOnce(t *testing.T) {
	c := newTestController(nil)

	if _, ok := c.ConsumeJump(); ok {
		t.Error("no jump should be pending initially")
	}

	c.JumpToPriority(30)
	target, ok := c.ConsumeJump()
	if !ok || target != 30 {
		t.Errorf("ConsumeJump() = %d/%v, want 30/true", target, ok)
	}
	if _, ok := c.ConsumeJump(); ok {
		t.Error("jump should be cleared after consumption")
	}
}

func TestController_JumpIgnoredWhenTerminal(t *testing.T) {
	c := newTestController(nil)

	c.Abort("done")
	c.JumpToPriority(10)

	if _, ok := c.ConsumeJump(); ok {
		t.Error("jump after terminal state should be ignored")
	}
}

func TestController_NilContext(t *testing.T) {
	c := NewController(nil, RunInfo{}, nil)
	if c.Context() == nil {
		t.Error("nil context should default to Background")
	}
}

func TestController_Info(t *testing.T) {
	info := RunInfo{Action: "save", DispatchID: "abc", MaxRetries: 3}
	c := NewController(context.Background(), info, nil)

	got := c.Info()
	if got.Action != "save" || got.DispatchID != "abc" || got.MaxRetries != 3 {
		t.Errorf("Info() = %+v, want %+v", got, info)
	}
}
