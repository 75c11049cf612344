package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type counter struct {
	mu    sync.Mutex
	total int
	calls int
}

func (c *counter) Add(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += delta
	c.calls++
	return c.total
}

func (c *counter) snapshot() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, c.calls
}

func addOne(x int) int { return x + 1 }

func double(x int) int { return x * 2 }

// TestDelegate_KindModeMatrix tests every binding kind in every mode
// Main test items:
// 1. Free, member and shared targets run exactly once per call
// 2. Sync and AsyncWait return the target's result
// 3. Async returns the zero value and the call runs on the destination
func TestDelegate_KindModeMatrix(t *testing.T) {
	loop := newLoopContext(t, "matrix")

	kinds := map[Kind]func(t *testing.T, c *counter) Target[int, int]{
		KindFree: func(t *testing.T, c *counter) Target[int, int] {
			return Free(func(x int) int { return c.Add(x) })
		},
		KindMember: func(t *testing.T, c *counter) Target[int, int] {
			return Member(c, (*counter).Add)
		},
		KindShared: func(t *testing.T, c *counter) Target[int, int] {
			ref := NewRef(c, nil)
			t.Cleanup(ref.Release)
			return Shared(ref, (*counter).Add)
		},
	}
	modes := map[Mode]func(Target[int, int]) Delegate[int, int]{
		ModeSync:      func(tg Target[int, int]) Delegate[int, int] { return NewSync(tg) },
		ModeAsync:     func(tg Target[int, int]) Delegate[int, int] { return NewAsync(tg, loop) },
		ModeAsyncWait: func(tg Target[int, int]) Delegate[int, int] { return NewAsyncWait(tg, loop, WaitInfinite) },
	}

	for kind, mkTarget := range kinds {
		for mode, mkDelegate := range modes {
			t.Run(kind.String()+"/"+mode.String(), func(t *testing.T) {
				c := &counter{}
				d := mkDelegate(mkTarget(t, c))
				defer d.Release()

				if d.Kind() != kind || d.Mode() != mode {
					t.Fatalf("got kind %s mode %s", d.Kind(), d.Mode())
				}

				ret, err := d.Invoke(5)
				if err != nil {
					t.Fatalf("Invoke: %v", err)
				}
				loop.flush(t)

				total, calls := c.snapshot()
				if calls != 1 || total != 5 {
					t.Errorf("target ran %d times with total %d", calls, total)
				}
				want := 5
				if mode == ModeAsync {
					want = 0
				}
				if ret != want {
					t.Errorf("Invoke returned %d, want %d", ret, want)
				}
			})
		}
	}
}

// TestAsyncWait_ResultMatchesSync tests that a blocking call returns what a direct call would
func TestAsyncWait_ResultMatchesSync(t *testing.T) {
	loop := newLoopContext(t, "wait")

	direct := NewSync(Free(double))
	wait := NewAsyncWait(Free(double), loop, time.Second)
	for _, x := range []int{-3, 0, 7, 1 << 20} {
		want := direct.Call(x)
		got, ok := wait.AsyncInvoke(x)
		if !ok || got != want {
			t.Errorf("AsyncInvoke(%d) = %d, %v; want %d", x, got, ok, want)
		}
		if !wait.IsSuccess() || wait.RetVal() != want {
			t.Errorf("status %s retval %d after AsyncInvoke(%d)", wait.Status(), wait.RetVal(), x)
		}
	}
}

// TestAsync_RunsOnDestination tests that a fire-and-forget call reaches its target
func TestAsync_RunsOnDestination(t *testing.T) {
	loop := newLoopContext(t, "dest")

	var seen atomic.Int64
	d := NewAsync(FreeAction(func(x int) {
		seen.Store(int64(x))
	}), loop)
	defer d.Release()

	if _, err := d.Invoke(7); err != nil {
		t.Fatal(err)
	}
	loop.flush(t)
	if seen.Load() != 7 {
		t.Errorf("async target saw %d", seen.Load())
	}
}

// TestAddOne_Timeout tests the blocking add-one scenario against a held context
// Main test items:
// 1. Draining the destination within the timeout yields 6
// 2. Never draining fails after the timeout with no result
// 3. A late run after the timeout leaves the caller's state untouched
func TestAddOne_Timeout(t *testing.T) {
	t.Run("drained", func(t *testing.T) {
		held := &heldContext{}
		d := NewAsyncWait(Free(addOne), held, 100*time.Millisecond)

		go func() {
			time.Sleep(10 * time.Millisecond)
			for held.drain() == 0 {
				time.Sleep(time.Millisecond)
			}
		}()

		got, ok := d.AsyncInvoke(5)
		if !ok || got != 6 {
			t.Errorf("AsyncInvoke(5) = %d, %v; want 6, true", got, ok)
		}
	})

	t.Run("never drained", func(t *testing.T) {
		held := &heldContext{}
		d := NewAsyncWait(Free(addOne), held, 100*time.Millisecond)

		start := time.Now()
		got, err := d.Invoke(5)
		elapsed := time.Since(start)

		if err != nil {
			t.Fatalf("timeout must not be an error, got %v", err)
		}
		if got != 0 || d.Status() != StatusTimeout || d.IsSuccess() {
			t.Errorf("got %d status %s", got, d.Status())
		}
		if elapsed < 90*time.Millisecond || elapsed > time.Second {
			t.Errorf("waited %v, expected about 100ms", elapsed)
		}

		// the destination may still run the call; the result is discarded
		if n := held.drain(); n != 1 {
			t.Fatalf("expected 1 queued call, got %d", n)
		}
		if d.Status() != StatusTimeout || d.RetVal() != 0 {
			t.Errorf("late result leaked into caller: status %s retval %d", d.Status(), d.RetVal())
		}
	})

	t.Run("zero timeout polls", func(t *testing.T) {
		held := &heldContext{}
		d := NewAsyncWait(Free(addOne), held, 0)
		if _, ok := d.AsyncInvoke(1); ok {
			t.Error("zero timeout should not wait for a held context")
		}
	})
}

// TestAsyncWait_TargetPanics tests that a panicking target releases the waiter
func TestAsyncWait_TargetPanics(t *testing.T) {
	loop := newLoopContext(t, "panics")
	d := NewAsyncWait(Free(func(int) int { panic("boom") }), loop, WaitInfinite)

	_, err := d.Invoke(1)
	if !errors.Is(err, ErrTargetPanicked) {
		t.Errorf("expected ErrTargetPanicked, got %v", err)
	}
	if d.Status() != StatusFailed {
		t.Errorf("expected StatusFailed, got %s", d.Status())
	}
}

// TestAsyncWait_Discarded tests that a dropped call wakes the waiter with ErrContextClosed
func TestAsyncWait_Discarded(t *testing.T) {
	held := &heldContext{}
	d := NewAsyncWait(Free(addOne), held, WaitInfinite)

	go func() {
		for held.Len() == 0 {
			time.Sleep(time.Millisecond)
		}
		for _, call := range held.take() {
			call.(Discarder).Discard()
		}
	}()

	_, err := d.Invoke(1)
	if !errors.Is(err, ErrContextClosed) {
		t.Errorf("expected ErrContextClosed, got %v", err)
	}
}

// TestAsync_SubmitRejected tests that a refused submission surfaces and releases resources
func TestAsync_SubmitRejected(t *testing.T) {
	held := &heldContext{reject: ErrContextClosed}
	c := &counter{}
	ref := NewRef(c, nil)
	defer ref.Release()

	d := NewAsync(Shared(ref, (*counter).Add), held)
	if _, err := d.Invoke(1); !errors.Is(err, ErrContextClosed) {
		t.Errorf("expected ErrContextClosed, got %v", err)
	}
	if ref.Count() != 2 {
		t.Errorf("clone reference leaked: count %d", ref.Count())
	}
	d.Release()
	if ref.Count() != 1 {
		t.Errorf("delegate reference not released: count %d", ref.Count())
	}

	w := NewAsyncWait(Free(addOne), held, time.Second)
	if _, ok := w.AsyncInvoke(1); ok {
		t.Error("AsyncInvoke succeeded on a rejecting context")
	}
	if w.Status() != StatusFailed {
		t.Errorf("expected StatusFailed, got %s", w.Status())
	}
}

// TestPendingInvocation_RunsOnce tests that executing a message twice panics
func TestPendingInvocation_RunsOnce(t *testing.T) {
	held := &heldContext{}
	d := NewAsync(Free(addOne), held)
	d.Invoke(1)

	calls := held.take()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	calls[0].Invoke(context.Background())
	mustPanic(t, "second Invoke", func() { calls[0].Invoke(context.Background()) })
}

// TestDelegate_NilContextAndNesting tests calls without a destination and nested waits
// Main test items:
// 1. A nil context makes asynchronous delegates synchronous
// 2. A target running on one context can block on another
func TestDelegate_NilContextAndNesting(t *testing.T) {
	loop := newLoopContext(t, "self")
	inner := NewAsyncWait(Free(addOne), nil, WaitInfinite)
	if got, _ := inner.Invoke(1); got != 2 {
		t.Errorf("nil-context AsyncWait returned %d", got)
	}

	async := NewAsync(Free(addOne), nil)
	if _, err := async.Invoke(1); err != nil {
		t.Errorf("nil-context Async: %v", err)
	}

	// dispatching to a different context from inside a destination works too
	other := newLoopContext(t, "other")
	outer := NewAsyncWait(Free(func(x int) int {
		v, _ := NewAsyncWait(Free(addOne), other, time.Second).Invoke(x)
		return v
	}), loop, time.Second)
	if got, err := outer.Invoke(1); err != nil || got != 2 {
		t.Errorf("nested wait returned %d, %v", got, err)
	}
}

// TestDelegate_Equality tests identity-based equality
// Main test items:
// 1. Same function, receiver, mode and context compare equal
// 2. Any difference in these makes delegates unequal
// 3. Timeout and argument values do not take part
func TestDelegate_Equality(t *testing.T) {
	loopA := newLoopContext(t, "a")
	loopB := newLoopContext(t, "b")
	c1, c2 := &counter{}, &counter{}

	cases := []struct {
		name  string
		a, b  Delegate[int, int]
		equal bool
	}{
		{"same free", NewSync(Free(addOne)), NewSync(Free(addOne)), true},
		{"different free", NewSync(Free(addOne)), NewSync(Free(double)), false},
		{"same member", NewSync(Member(c1, (*counter).Add)), NewSync(Member(c1, (*counter).Add)), true},
		{"different receiver", NewSync(Member(c1, (*counter).Add)), NewSync(Member(c2, (*counter).Add)), false},
		{"sync vs async", NewSync(Free(addOne)), NewAsync(Free(addOne), loopA), false},
		{"different context", NewAsync(Free(addOne), loopA), NewAsync(Free(addOne), loopB), false},
		{"timeout ignored", NewAsyncWait(Free(addOne), loopA, time.Second), NewAsyncWait(Free(addOne), loopA, time.Minute), true},
		{"free vs member", NewSync(Free(func(int) int { return 0 })), NewSync(Member(c1, (*counter).Add)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.equal {
				t.Errorf("Equal = %v, want %v", got, tc.equal)
			}
			if got := tc.b.Equal(tc.a); got != tc.equal {
				t.Errorf("Equal is not symmetric")
			}
			if !tc.a.Equal(tc.a.Clone()) {
				t.Errorf("clone is not equal to its source")
			}
		})
	}
	if NewSync(Free(addOne)).Equal(nil) {
		t.Error("delegate equals nil")
	}
}

// TestDelegate_Empty tests empty bindings
func TestDelegate_Empty(t *testing.T) {
	var nilFn func(int) int
	if !NewSync(Free(nilFn)).Empty() {
		t.Error("nil function should be empty")
	}
	if !NewSync(Member[counter](nil, (*counter).Add)).Empty() {
		t.Error("nil receiver should be empty")
	}
	if !NewSync(Shared(Ref[counter]{}, (*counter).Add)).Empty() {
		t.Error("nil Ref should be empty")
	}
	mustPanic(t, "invoke empty", func() { NewSync(Free(nilFn)).Invoke(1) })
	mustPanic(t, "invoke empty async", func() { NewAsync(Free(nilFn), &heldContext{}).Invoke(1) })
}

// TestMake_SelectsMode tests the factory's choice of delegate
func TestMake_SelectsMode(t *testing.T) {
	loop := newLoopContext(t, "make")
	c := &counter{}

	if d := MakeFree(addOne); d.Mode() != ModeSync {
		t.Errorf("no context: got %s", d.Mode())
	}
	if d := MakeMember(c, (*counter).Add, WithContext(loop)); d.Mode() != ModeAsync {
		t.Errorf("context only: got %s", d.Mode())
	}
	ref := NewRef(c, nil)
	d := MakeShared(ref, (*counter).Add, WithContext(loop), WithTimeout(time.Second))
	if d.Mode() != ModeAsyncWait || d.Kind() != KindShared {
		t.Errorf("context and timeout: got %s %s", d.Kind(), d.Mode())
	}
	if got, _ := d.Invoke(3); got != 3 {
		t.Errorf("shared wait returned %d", got)
	}
	d.Release()
	ref.Release()
}

// TestTarget_Name tests that targets report the bound function's name
func TestTarget_Name(t *testing.T) {
	if name := Free(addOne).Name(); name != "github.com/Swind/go-delegate/core.addOne" {
		t.Errorf("unexpected name %q", name)
	}
	var nilFn func(int) int
	if name := Free(nilFn).Name(); name != "anonymous" {
		t.Errorf("nil function name %q", name)
	}
}
