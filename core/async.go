package core

import "fmt"

// Async submits every call to a destination ExecutionContext and returns without
// waiting ("fire and forget"). The caller never learns whether or when the
// target ran.
//
// Each call clones the delegate and snapshots the arguments; both travel in one
// message, so the caller may reuse or mutate its arguments as soon as Invoke returns.
type Async[A, R any] struct {
	target Target[A, R]
	ec     ExecutionContext
	opts   options
}

// NewAsync binds target to ec. It panics if A cannot be snapshotted (see ValidateArgs).
// A nil ec makes the delegate behave synchronously.
func NewAsync[A, R any](target Target[A, R], ec ExecutionContext, opts ...Option) *Async[A, R] {
	mustTransfer[A]()
	return &Async[A, R]{
		target: target.acquire(),
		ec:     ec,
		opts:   newOptions(opts),
	}
}

// Invoke queues the call on the destination context and returns the zero R.
func (d *Async[A, R]) Invoke(args A) (R, error) {
	return d.invoke(externalCall, args)
}

func (d *Async[A, R]) invoke(path callPath, args A) (R, error) {
	d.target.mustNotBeEmpty()
	if path == contextCallback || d.ec == nil {
		return d.target.invoke(args), nil
	}

	var zero R
	name := contextName(d.ec)
	snap, release, err := snapshot(args)
	if err != nil {
		d.opts.metrics.RecordSnapshotFailure(name)
		d.opts.logger.Error("Snapshot failed", F("target", d.target.Name()), F("context", name), F("error", err))
		return zero, fmt.Errorf("snapshot arguments of %s: %w", d.target.Name(), err)
	}

	msg := &message[A]{target: d.cloneAsync(), args: snap, release: release}
	if err := d.ec.Submit(msg); err != nil {
		msg.dispose()
		d.opts.logger.Warn("Submit rejected", F("target", d.target.Name()), F("context", name), F("error", err))
		return zero, fmt.Errorf("submit %s to %s: %w", d.target.Name(), name, err)
	}
	d.opts.metrics.RecordDispatch(name, ModeAsync)
	return zero, nil
}

func (d *Async[A, R]) contextCallback(args A) {
	d.invoke(contextCallback, args)
}

func (d *Async[A, R]) discard() {}

func (d *Async[A, R]) name() string { return d.target.Name() }

func (d *Async[A, R]) cloneAsync() *Async[A, R] {
	return &Async[A, R]{target: d.target.acquire(), ec: d.ec, opts: d.opts}
}

func (d *Async[A, R]) Clone() Delegate[A, R] { return d.cloneAsync() }

func (d *Async[A, R]) Equal(other Delegate[A, R]) bool { return equalDelegates[A, R](d, other) }
func (d *Async[A, R]) Empty() bool                     { return d.target.Empty() }
func (d *Async[A, R]) Kind() Kind                      { return d.target.kind }
func (d *Async[A, R]) Mode() Mode                      { return ModeAsync }
func (d *Async[A, R]) Release()                        { d.target.release() }

// Context returns the destination context.
func (d *Async[A, R]) Context() ExecutionContext { return d.ec }

func (d *Async[A, R]) identity() identity {
	return targetIdentity(ModeAsync, d.target, d.ec)
}
