package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling target panics
// =============================================================================

// PanicHandler is called when a target panics while running on an execution
// context. Implementations must be safe for concurrent use.
type PanicHandler interface {
	// HandlePanic is called after the panic has been recovered.
	//
	// Parameters:
	// - ctx: The context passed to the pending invocation
	// - contextName: The name of the execution context that ran the call
	// - panicInfo: The value recovered from the target
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, contextName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler reports panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level. A nil Logger falls back to NewDefaultLogger.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, contextName string, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("Target panicked",
		F("context", contextName),
		F("panic", panicInfo),
		F("stack", string(stackTrace)))
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics collects dispatch and execution measurements. Methods must be fast and
// non-blocking since they run on the caller and destination hot paths.
type Metrics interface {
	// RecordDispatch records one invocation submitted to a context.
	RecordDispatch(contextName string, mode Mode)

	// RecordInvocationDuration records how long a target ran on a context.
	RecordInvocationDuration(contextName string, duration time.Duration)

	// RecordInvocationPanic records that a target panicked on a context.
	RecordInvocationPanic(contextName string, panicInfo any)

	// RecordQueueDepth records the number of invocations waiting on a context.
	RecordQueueDepth(contextName string, depth int)

	// RecordRejected records an invocation a context refused to accept.
	RecordRejected(contextName string, reason string)

	// RecordWaitTimeout records a blocking invocation that gave up waiting.
	RecordWaitTimeout(contextName string)

	// RecordSnapshotFailure records a failed argument snapshot.
	RecordSnapshotFailure(contextName string)
}

// NilMetrics provides a no-op metrics implementation.
// This is the default when no metrics sink is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordDispatch(contextName string, mode Mode)                        {}
func (m *NilMetrics) RecordInvocationDuration(contextName string, duration time.Duration) {}
func (m *NilMetrics) RecordInvocationPanic(contextName string, panicInfo any)             {}
func (m *NilMetrics) RecordQueueDepth(contextName string, depth int)                      {}
func (m *NilMetrics) RecordRejected(contextName string, reason string)                    {}
func (m *NilMetrics) RecordWaitTimeout(contextName string)                                {}
func (m *NilMetrics) RecordSnapshotFailure(contextName string)                            {}
