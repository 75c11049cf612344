package core

import "errors"

var (
	// ErrContextClosed is returned by an ExecutionContext that no longer accepts calls.
	ErrContextClosed = errors.New("execution context closed")

	// ErrArgNotTransferable reports an argument type that cannot cross to another goroutine.
	ErrArgNotTransferable = errors.New("argument type cannot be snapshotted")

	// ErrSharedByReference reports a Ref passed by pointer to an asynchronous delegate.
	ErrSharedByReference = errors.New("shared handle must be passed by value")

	// ErrTargetPanicked is returned by a blocking call whose target panicked on the destination.
	ErrTargetPanicked = errors.New("target panicked on destination context")
)
