package core

import (
	"fmt"
	"sync/atomic"
)

// Ref is a reference-counted handle to a shared receiver.
//
// The value behind a Ref stays usable until the last holder calls Release, at which
// point the optional onRelease hook runs exactly once. Delegates bound with Shared
// retain the Ref for as long as they (and every clone in flight on another goroutine)
// exist, so the receiver outlives any asynchronous call that targets it.
//
// Ref is copied by value. Passing a *Ref to an asynchronous delegate is rejected
// when the delegate is built.
type Ref[T any] struct {
	c *refCell[T]
}

type refCell[T any] struct {
	v         *T
	count     atomic.Int64
	onRelease func(*T)
}

// NewRef wraps v with a reference count of one.
func NewRef[T any](v *T, onRelease func(*T)) Ref[T] {
	if v == nil {
		panic("core: NewRef called with nil value")
	}
	c := &refCell[T]{v: v, onRelease: onRelease}
	c.count.Store(1)
	return Ref[T]{c: c}
}

// Retain adds a holder and returns the same handle.
func (r Ref[T]) Retain() Ref[T] {
	if r.c == nil {
		panic("core: Retain on nil Ref")
	}
	for {
		n := r.c.count.Load()
		if n <= 0 {
			panic(fmt.Sprintf("core: Retain on released Ref[%T]", r.c.v))
		}
		if r.c.count.CompareAndSwap(n, n+1) {
			return r
		}
	}
}

// Release drops a holder. The last Release runs the onRelease hook.
func (r Ref[T]) Release() {
	if r.c == nil {
		return
	}
	n := r.c.count.Add(-1)
	switch {
	case n == 0:
		if r.c.onRelease != nil {
			r.c.onRelease(r.c.v)
		}
	case n < 0:
		panic(fmt.Sprintf("core: Ref[%T] released more times than retained", r.c.v))
	}
}

// Get returns the shared value. It panics once the handle has been fully released.
func (r Ref[T]) Get() *T {
	if r.c == nil {
		panic("core: Get on nil Ref")
	}
	if r.c.count.Load() <= 0 {
		panic(fmt.Sprintf("core: Get on released Ref[%T]", r.c.v))
	}
	return r.c.v
}

// Count returns the current number of holders.
func (r Ref[T]) Count() int64 {
	if r.c == nil {
		return 0
	}
	return r.c.count.Load()
}

// IsNil reports whether r was never initialised with NewRef.
func (r Ref[T]) IsNil() bool {
	return r.c == nil
}

// CloneArg makes a Ref usable as an asynchronous argument: the snapshot holds its own
// reference, released once the destination has run the call.
func (r Ref[T]) CloneArg() (Ref[T], error) {
	if r.c == nil {
		return r, nil
	}
	return r.Retain(), nil
}

func (r Ref[T]) identity() any { return r.c }

func (r Ref[T]) retainHandle()  { r.Retain() }
func (r Ref[T]) releaseHandle() { r.Release() }

// isSharedHandle marks Ref for argument validation.
func (Ref[T]) isSharedHandle() {}

type sharedHandle interface {
	isSharedHandle()
}

type refHandle interface {
	identity() any
	retainHandle()
	releaseHandle()
}
