package core

import (
	"fmt"
	"sync"
	"time"
)

// AsyncWait submits every call to a destination ExecutionContext and blocks the
// caller until the target has run there or the timeout elapsed.
//
// A timeout is not an error: Invoke returns the zero R and a nil error, Status
// reports StatusTimeout, and AsyncInvoke reports ok == false. The destination may
// still run the call later; its result is discarded.
//
// Calls made without a destination context, or by the destination while running
// the call, execute synchronously and never wait.
type AsyncWait[A, R any] struct {
	target  Target[A, R]
	ec      ExecutionContext
	timeout time.Duration
	opts    options

	mu     sync.Mutex
	status Status
	retVal R

	// Per-call state, only set on the clone that travels in a message.
	signal  *oneShot
	result  R
	failed  bool
	dropped bool
}

// NewAsyncWait binds target to ec with the given timeout (WaitInfinite waits forever).
// It panics if A cannot be snapshotted (see ValidateArgs).
func NewAsyncWait[A, R any](target Target[A, R], ec ExecutionContext, timeout time.Duration, opts ...Option) *AsyncWait[A, R] {
	mustTransfer[A]()
	return &AsyncWait[A, R]{
		target:  target.acquire(),
		ec:      ec,
		timeout: timeout,
		opts:    newOptions(opts),
	}
}

// Invoke runs the target on the destination context and returns its result.
func (d *AsyncWait[A, R]) Invoke(args A) (R, error) {
	ret, _, err := d.invoke(externalCall, args)
	return ret, err
}

// AsyncInvoke is Invoke returning ok == false instead of a result when the call
// timed out, failed or could not be submitted.
func (d *AsyncWait[A, R]) AsyncInvoke(args A) (R, bool) {
	ret, status, err := d.invoke(externalCall, args)
	if err != nil || status != StatusSuccess {
		var zero R
		return zero, false
	}
	return ret, true
}

func (d *AsyncWait[A, R]) invoke(path callPath, args A) (R, Status, error) {
	d.target.mustNotBeEmpty()
	if path == contextCallback || d.ec == nil {
		ret := d.target.invoke(args)
		d.setResult(StatusSuccess, ret)
		return ret, StatusSuccess, nil
	}

	var zero R
	name := contextName(d.ec)
	snap, release, err := snapshot(args)
	if err != nil {
		d.opts.metrics.RecordSnapshotFailure(name)
		d.opts.logger.Error("Snapshot failed", F("target", d.target.Name()), F("context", name), F("error", err))
		d.setResult(StatusFailed, zero)
		return zero, StatusFailed, fmt.Errorf("snapshot arguments of %s: %w", d.target.Name(), err)
	}

	clone := d.cloneWait()
	clone.signal = newOneShot()
	msg := &message[A]{target: clone, args: snap, release: release}
	if err := d.ec.Submit(msg); err != nil {
		msg.dispose()
		d.opts.logger.Warn("Submit rejected", F("target", d.target.Name()), F("context", name), F("error", err))
		d.setResult(StatusFailed, zero)
		return zero, StatusFailed, fmt.Errorf("submit %s to %s: %w", d.target.Name(), name, err)
	}
	d.opts.metrics.RecordDispatch(name, ModeAsyncWait)

	if !clone.signal.Wait(d.timeout) {
		d.opts.metrics.RecordWaitTimeout(name)
		d.opts.logger.Warn("Wait timed out", F("target", d.target.Name()), F("context", name), F("timeout", d.timeout))
		d.setResult(StatusTimeout, zero)
		return zero, StatusTimeout, nil
	}
	if clone.dropped {
		d.setResult(StatusFailed, zero)
		return zero, StatusFailed, fmt.Errorf("%s dropped by %s: %w", d.target.Name(), name, ErrContextClosed)
	}
	if clone.failed {
		d.setResult(StatusFailed, zero)
		return zero, StatusFailed, fmt.Errorf("%s on %s: %w", d.target.Name(), name, ErrTargetPanicked)
	}
	d.setResult(StatusSuccess, clone.result)
	return clone.result, StatusSuccess, nil
}

// contextCallback runs on the destination. The result slot is written before the
// signal, and the caller reads it only after a successful wait.
func (d *AsyncWait[A, R]) contextCallback(args A) {
	completed := false
	defer func() {
		if !completed {
			d.failed = true
		}
		d.signal.Signal()
	}()
	d.result, _, _ = d.invoke(contextCallback, args)
	completed = true
}

// discard runs when the destination drops the call unexecuted.
func (d *AsyncWait[A, R]) discard() {
	d.dropped = true
	d.signal.Signal()
}

func (d *AsyncWait[A, R]) setResult(status Status, ret R) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
	d.retVal = ret
}

// Status reports the outcome of the most recent call.
func (d *AsyncWait[A, R]) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// IsSuccess reports whether the most recent call ran on the destination in time.
func (d *AsyncWait[A, R]) IsSuccess() bool {
	return d.Status() == StatusSuccess
}

// RetVal returns the result of the most recent successful call, or the zero R.
func (d *AsyncWait[A, R]) RetVal() R {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.retVal
}

// Timeout returns the configured wait limit.
func (d *AsyncWait[A, R]) Timeout() time.Duration { return d.timeout }

// Context returns the destination context.
func (d *AsyncWait[A, R]) Context() ExecutionContext { return d.ec }

func (d *AsyncWait[A, R]) name() string { return d.target.Name() }

func (d *AsyncWait[A, R]) cloneWait() *AsyncWait[A, R] {
	return &AsyncWait[A, R]{
		target:  d.target.acquire(),
		ec:      d.ec,
		timeout: d.timeout,
		opts:    d.opts,
	}
}

func (d *AsyncWait[A, R]) Clone() Delegate[A, R] { return d.cloneWait() }

func (d *AsyncWait[A, R]) Equal(other Delegate[A, R]) bool { return equalDelegates[A, R](d, other) }
func (d *AsyncWait[A, R]) Empty() bool                     { return d.target.Empty() }
func (d *AsyncWait[A, R]) Kind() Kind                      { return d.target.kind }
func (d *AsyncWait[A, R]) Mode() Mode                      { return ModeAsyncWait }
func (d *AsyncWait[A, R]) Release()                        { d.target.release() }

func (d *AsyncWait[A, R]) identity() identity {
	return targetIdentity(ModeAsyncWait, d.target, d.ec)
}

// =============================================================================
// oneShot: per-call completion signal
// =============================================================================

// oneShot is signalled once per call by the destination and consumed by one Wait.
type oneShot struct {
	ch chan struct{}
}

func newOneShot() *oneShot {
	return &oneShot{ch: make(chan struct{}, 1)}
}

// Signal never blocks; a second signal before Wait is coalesced.
func (s *oneShot) Signal() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait consumes the signal. A negative timeout waits without limit.
func (s *oneShot) Wait(timeout time.Duration) bool {
	if timeout < 0 {
		<-s.ch
		return true
	}
	if timeout == 0 {
		select {
		case <-s.ch:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.ch:
		return true
	case <-timer.C:
		return false
	}
}
