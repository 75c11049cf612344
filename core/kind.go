package core

import "time"

// Kind identifies what a Target is bound to.
type Kind int

const (
	// KindFree: a plain function, no receiver.
	KindFree Kind = iota

	// KindMember: a method bound to a receiver owned by the caller.
	KindMember

	// KindShared: a method bound to a reference-counted receiver (Ref).
	KindShared
)

func (k Kind) String() string {
	switch k {
	case KindFree:
		return "free"
	case KindMember:
		return "member"
	case KindShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Mode identifies how a Delegate reaches its target.
type Mode int

const (
	// ModeSync calls the target in place on the caller's goroutine.
	ModeSync Mode = iota

	// ModeAsync submits the call to an ExecutionContext and returns immediately.
	ModeAsync

	// ModeAsyncWait submits the call and blocks until it ran or the timeout elapsed.
	ModeAsyncWait
)

func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	case ModeAsyncWait:
		return "async_wait"
	default:
		return "unknown"
	}
}

// WaitInfinite makes an AsyncWait delegate block until the destination runs the call.
// Any negative timeout behaves the same way.
const WaitInfinite time.Duration = -1

// Status is the outcome of the most recent blocking invocation.
type Status int

const (
	// StatusUnknown: no invocation has completed yet.
	StatusUnknown Status = iota

	// StatusSuccess: the destination ran the target and the result was copied back.
	StatusSuccess

	// StatusTimeout: the caller stopped waiting. A late result is discarded.
	StatusTimeout

	// StatusFailed: the target panicked on the destination context.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusSuccess:
		return "success"
	case StatusTimeout:
		return "timeout"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}
