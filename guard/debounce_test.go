package guard

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32
	var last atomic.Value

	for _, name := range []string{"a", "b", "c"} {
		name := name
		d.Trigger(func() {
			fired.Add(1)
			last.Store(name)
		})
	}

	waitFor(t, func() bool { return fired.Load() > 0 })
	time.Sleep(50 * time.Millisecond) // no second firing

	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
	if got := last.Load(); got != "c" {
		t.Errorf("ran %v, want the last trigger's callback", got)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var fired atomic.Int32

	d.Trigger(func() { fired.Add(1) })
	if !d.IsPending() {
		t.Fatal("trigger should be pending")
	}

	d.Flush()
	if fired.Load() != 1 {
		t.Errorf("fired %d times after flush, want 1", fired.Load())
	}
	if d.IsPending() {
		t.Error("nothing should be pending after flush")
	}

	d.Flush() // no-op
	if fired.Load() != 1 {
		t.Error("flush with nothing pending must not fire")
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var fired atomic.Int32

	d.Trigger(func() { fired.Add(1) })
	d.Cancel()

	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("cancelled trigger must not fire")
	}
	if d.IsPending() {
		t.Error("nothing should be pending after cancel")
	}
}

func TestDebouncer_RetriggerAfterFire(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var fired atomic.Int32

	d.Trigger(func() { fired.Add(1) })
	waitFor(t, func() bool { return fired.Load() == 1 })

	d.Trigger(func() { fired.Add(1) })
	waitFor(t, func() bool { return fired.Load() == 2 })
}
