package delegate

import (
	"time"

	"github.com/Swind/go-delegate/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the delegate package for most use cases.

// Delegate is the uniform handle over Sync, Async and AsyncWait.
type Delegate[A, R any] = core.Delegate[A, R]

// Target is a function bound to its receiver, if any.
type Target[A, R any] = core.Target[A, R]

type (
	Sync[A, R any]      = core.Sync[A, R]
	Async[A, R any]     = core.Async[A, R]
	AsyncWait[A, R any] = core.AsyncWait[A, R]
)

// Ref is a reference-counted handle to a shared receiver.
type Ref[T any] = core.Ref[T]

type (
	Multicast[A, R any]     = core.Multicast[A, R]
	SafeMulticast[A, R any] = core.SafeMulticast[A, R]
	Unicast[A, R any]       = core.Unicast[A, R]
	SafeUnicast[A, R any]   = core.SafeUnicast[A, R]
)

// ExecutionContext is the destination of asynchronous delegates.
type ExecutionContext = core.ExecutionContext

// PendingInvocation is one queued call.
type PendingInvocation = core.PendingInvocation

type (
	Void                  = core.Void
	Kind                  = core.Kind
	Mode                  = core.Mode
	Status                = core.Status
	Option                = core.Option
	Args2[T1, T2 any]     = core.Args2[T1, T2]
	Args3[T1, T2, T3 any] = core.Args3[T1, T2, T3]
)

// WaitInfinite makes AsyncWait block until the destination runs the call.
const WaitInfinite time.Duration = core.WaitInfinite

var (
	ErrContextClosed      = core.ErrContextClosed
	ErrArgNotTransferable = core.ErrArgNotTransferable
	ErrSharedByReference  = core.ErrSharedByReference
	ErrTargetPanicked     = core.ErrTargetPanicked
)

var (
	WithContext = core.WithContext
	WithTimeout = core.WithTimeout
	WithLogger  = core.WithLogger
	WithMetrics = core.WithMetrics
)

// Free binds a plain function.
func Free[A, R any](fn func(A) R) Target[A, R] { return core.Free(fn) }

// Member binds a method expression to a caller-owned receiver.
func Member[T, A, R any](owner *T, fn func(*T, A) R) Target[A, R] { return core.Member(owner, fn) }

// Shared binds a method expression to a reference-counted receiver.
func Shared[T, A, R any](owner Ref[T], fn func(*T, A) R) Target[A, R] { return core.Shared(owner, fn) }

// NewRef wraps v with a reference count of one.
func NewRef[T any](v *T, onRelease func(*T)) Ref[T] { return core.NewRef(v, onRelease) }

func NewSync[A, R any](target Target[A, R]) *Sync[A, R] { return core.NewSync(target) }

func NewAsync[A, R any](target Target[A, R], ec ExecutionContext, opts ...Option) *Async[A, R] {
	return core.NewAsync(target, ec, opts...)
}

func NewAsyncWait[A, R any](target Target[A, R], ec ExecutionContext, timeout time.Duration, opts ...Option) *AsyncWait[A, R] {
	return core.NewAsyncWait(target, ec, timeout, opts...)
}

// Make picks the mode from the options, see core.Make.
func Make[A, R any](target Target[A, R], opts ...Option) Delegate[A, R] {
	return core.Make(target, opts...)
}

func NewMulticast[A, R any]() *Multicast[A, R] { return core.NewMulticast[A, R]() }

func NewSafeMulticast[A, R any]() *SafeMulticast[A, R] { return core.NewSafeMulticast[A, R]() }
