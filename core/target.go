package core

import (
	"fmt"
	"reflect"
	"runtime"
	"sync/atomic"
)

// Void is the argument or result type of signatures that have none.
type Void struct{}

// Target is a function bound to its receiver (if any) for the signature func(A) R.
//
// Targets are plain values: build one with Free, Member or Shared (or an arity
// helper) and hand it to NewSync, NewAsync, NewAsyncWait or Make. Two targets are
// equal when they have the same Kind, the same bound function and the same receiver.
// Closures created from the same function literal share an identity.
type Target[A, R any] struct {
	kind  Kind
	fn    uintptr
	owner any
	call  func(A) R

	ref  refHandle
	held *atomic.Bool
}

// Free binds a plain function.
func Free[A, R any](fn func(A) R) Target[A, R] {
	t := Target[A, R]{kind: KindFree, fn: funcID(fn)}
	if fn != nil {
		t.call = fn
	}
	return t
}

// Member binds a method expression to a receiver owned by the caller, e.g.
// Member(counter, (*Counter).Add). The receiver must outlive every call.
func Member[T, A, R any](owner *T, fn func(*T, A) R) Target[A, R] {
	t := Target[A, R]{kind: KindMember, fn: funcID(fn)}
	if owner == nil {
		return t
	}
	t.owner = owner
	if fn != nil {
		t.call = func(args A) R { return fn(owner, args) }
	}
	return t
}

// Shared binds a method expression to a reference-counted receiver. Every delegate
// built from the target holds its own reference until Release.
func Shared[T, A, R any](owner Ref[T], fn func(*T, A) R) Target[A, R] {
	t := Target[A, R]{kind: KindShared, fn: funcID(fn)}
	if owner.IsNil() {
		return t
	}
	t.owner = owner.identity()
	t.ref = owner
	if fn != nil {
		t.call = func(args A) R { return fn(owner.Get(), args) }
	}
	return t
}

// Kind reports what the target is bound to.
func (t Target[A, R]) Kind() Kind { return t.kind }

// Empty reports whether the function (or, for bound methods, the receiver) is unset.
func (t Target[A, R]) Empty() bool { return t.call == nil }

// Name returns the runtime name of the bound function.
func (t Target[A, R]) Name() string {
	if t.fn == 0 {
		return "anonymous"
	}
	fn := runtime.FuncForPC(t.fn)
	if fn == nil || fn.Name() == "" {
		return "anonymous"
	}
	return fn.Name()
}

// Equal compares kind, function and receiver identity.
func (t Target[A, R]) Equal(other Target[A, R]) bool {
	return t.kind == other.kind && t.fn == other.fn && t.owner == other.owner
}

func (t Target[A, R]) invoke(args A) R {
	if t.call == nil {
		panic(fmt.Sprintf("core: invoke of empty %s delegate %s", t.kind, t.Name()))
	}
	return t.call(args)
}

func (t Target[A, R]) mustNotBeEmpty() {
	if t.call == nil {
		panic(fmt.Sprintf("core: invoke of empty %s delegate %s", t.kind, t.Name()))
	}
}

// acquire returns a copy of t holding its own reference on a shared receiver.
func (t Target[A, R]) acquire() Target[A, R] {
	if t.ref == nil {
		return t
	}
	t.ref.retainHandle()
	t.held = new(atomic.Bool)
	return t
}

// release drops the reference taken by acquire. Repeated calls are no-ops.
func (t Target[A, R]) release() {
	if t.ref == nil || t.held == nil {
		return
	}
	if t.held.CompareAndSwap(false, true) {
		t.ref.releaseHandle()
	}
}

func funcID(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return 0
	}
	return v.Pointer()
}
