package core

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
)

// PendingInvocation is one call waiting to run on an ExecutionContext.
type PendingInvocation interface {
	Invoke(ctx context.Context)
}

// InvocationFunc adapts a plain function to PendingInvocation.
type InvocationFunc func(ctx context.Context)

// Invoke calls f(ctx).
func (f InvocationFunc) Invoke(ctx context.Context) { f(ctx) }

// ExecutionContext is the destination of asynchronous delegates.
//
// An implementation must run every accepted PendingInvocation exactly once, on its
// own goroutine, in submission order. A submission the context can no longer honour
// must be refused with an error (ErrContextClosed) rather than silently dropped.
type ExecutionContext interface {
	Submit(call PendingInvocation) error
}

// Named is implemented by execution contexts that carry a name for logs and metrics.
type Named interface {
	Name() string
}

func contextName(ec ExecutionContext) string {
	if ec == nil {
		return "caller"
	}
	if n, ok := ec.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", ec)
}

// contextIdentity returns a comparable key for ec.
func contextIdentity(ec ExecutionContext) any {
	if ec == nil {
		return nil
	}
	t := reflect.TypeOf(ec)
	if t.Comparable() {
		return ec
	}
	switch v := reflect.ValueOf(ec); v.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice:
		return contextKey{t: t, ptr: v.Pointer()}
	default:
		return contextKey{t: t}
	}
}

type contextKey struct {
	t   reflect.Type
	ptr uintptr
}

// =============================================================================
// Context Helper
// =============================================================================

type executionContextKeyType struct{}

var executionContextKey executionContextKeyType

// WithExecutionContext returns a context that records ec as the running context.
// Execution contexts pass it to PendingInvocation.Invoke.
func WithExecutionContext(ctx context.Context, ec ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey, ec)
}

// CurrentExecutionContext returns the context running the current call, or nil.
func CurrentExecutionContext(ctx context.Context) ExecutionContext {
	if v := ctx.Value(executionContextKey); v != nil {
		return v.(ExecutionContext)
	}
	return nil
}

// =============================================================================
// Pending invocation message
// =============================================================================

// callPath tells a delegate whether it is being called by a user (externalCall)
// or by the destination context running a message (contextCallback).
type callPath int

const (
	externalCall callPath = iota
	contextCallback
)

// callback is the clone a message runs on the destination context.
type callback[A any] interface {
	contextCallback(args A)
	discard()
	name() string
	Release()
}

// Discarder is implemented by pending invocations that hold resources. An
// execution context that drops a call without running it should call Discard
// so the argument snapshot is released and a blocked caller is woken.
type Discarder interface {
	Discard()
}

// message owns the cloned delegate and the argument snapshot of one asynchronous call.
type message[A any] struct {
	target  callback[A]
	args    A
	release func()
	ran     atomic.Bool
}

// Invoke runs the clone against the snapshot. It must be called exactly once.
func (m *message[A]) Invoke(context.Context) {
	if !m.ran.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("core: pending invocation of %s executed more than once", m.target.name()))
	}
	defer m.dispose()
	m.target.contextCallback(m.args)
}

// Discard releases the message without running it. It is a no-op once the
// message has run or been discarded.
func (m *message[A]) Discard() {
	if !m.ran.CompareAndSwap(false, true) {
		return
	}
	defer m.dispose()
	m.target.discard()
}

// String names the bound function, for execution history.
func (m *message[A]) String() string {
	return m.target.name()
}

func (m *message[A]) dispose() {
	if m.release != nil {
		m.release()
		m.release = nil
	}
	m.target.Release()
}
