package core

// Delegate is a bound target invocable through one uniform handle.
//
// Implementations are Sync, Async and AsyncWait. Equal compares the mode, the
// bound function, the receiver and (for asynchronous modes) the destination
// context; argument values never take part, which is what makes Remove work on
// multicast containers.
type Delegate[A, R any] interface {
	// Invoke calls the target. Asynchronous modes return the zero R (Async) or the
	// destination's result (AsyncWait). The error reports snapshot or submit
	// failures only.
	Invoke(args A) (R, error)

	// Clone returns an independent delegate with the same binding. Receivers and
	// destination contexts are shared, not copied.
	Clone() Delegate[A, R]

	Equal(other Delegate[A, R]) bool
	Empty() bool
	Kind() Kind
	Mode() Mode

	// Release drops the delegate's hold on a shared receiver. Other kinds ignore it.
	Release()

	identity() identity
}

type identity struct {
	mode  Mode
	kind  Kind
	fn    uintptr
	owner any
	ec    any
}

func targetIdentity[A, R any](mode Mode, t Target[A, R], ec ExecutionContext) identity {
	return identity{mode: mode, kind: t.kind, fn: t.fn, owner: t.owner, ec: contextIdentity(ec)}
}

func equalDelegates[A, R any](d, other Delegate[A, R]) bool {
	if other == nil {
		return false
	}
	return d.identity() == other.identity()
}

// =============================================================================
// Sync: in-place invocation
// =============================================================================

// Sync invokes its target on the caller's goroutine.
type Sync[A, R any] struct {
	target Target[A, R]
}

// NewSync binds target for synchronous invocation.
func NewSync[A, R any](target Target[A, R]) *Sync[A, R] {
	return &Sync[A, R]{target: target.acquire()}
}

// Invoke calls the target directly. It panics if the delegate is empty.
func (d *Sync[A, R]) Invoke(args A) (R, error) {
	return d.target.invoke(args), nil
}

// Call is Invoke without the error, which is always nil for Sync.
func (d *Sync[A, R]) Call(args A) R {
	return d.target.invoke(args)
}

func (d *Sync[A, R]) Clone() Delegate[A, R] {
	return &Sync[A, R]{target: d.target.acquire()}
}

func (d *Sync[A, R]) Equal(other Delegate[A, R]) bool { return equalDelegates[A, R](d, other) }
func (d *Sync[A, R]) Empty() bool                     { return d.target.Empty() }
func (d *Sync[A, R]) Kind() Kind                      { return d.target.kind }
func (d *Sync[A, R]) Mode() Mode                      { return ModeSync }
func (d *Sync[A, R]) Release()                        { d.target.release() }

// Target returns the bound target.
func (d *Sync[A, R]) Target() Target[A, R] { return d.target }

func (d *Sync[A, R]) identity() identity {
	return targetIdentity(ModeSync, d.target, nil)
}

// =============================================================================
// Factory
// =============================================================================

// Make builds the delegate the options describe: synchronous without a context,
// AsyncWait with a context and a timeout, Async with a context alone.
func Make[A, R any](target Target[A, R], opts ...Option) Delegate[A, R] {
	o := newOptions(opts)
	switch {
	case o.ec == nil:
		return NewSync(target)
	case o.hasTimeout:
		return NewAsyncWait(target, o.ec, o.timeout, opts...)
	default:
		return NewAsync(target, o.ec, opts...)
	}
}

// MakeFree binds fn, see Make.
func MakeFree[A, R any](fn func(A) R, opts ...Option) Delegate[A, R] {
	return Make(Free(fn), opts...)
}

// MakeMember binds fn to owner, see Make.
func MakeMember[T, A, R any](owner *T, fn func(*T, A) R, opts ...Option) Delegate[A, R] {
	return Make(Member(owner, fn), opts...)
}

// MakeShared binds fn to a shared owner, see Make.
func MakeShared[T, A, R any](owner Ref[T], fn func(*T, A) R, opts ...Option) Delegate[A, R] {
	return Make(Shared(owner, fn), opts...)
}
