package core

// Args2 carries the arguments of a two-parameter target.
type Args2[T1, T2 any] struct {
	A1 T1
	A2 T2
}

// Args3 carries the arguments of a three-parameter target.
type Args3[T1, T2, T3 any] struct {
	A1 T1
	A2 T2
	A3 T3
}

// Pack2 builds an Args2.
func Pack2[T1, T2 any](a1 T1, a2 T2) Args2[T1, T2] {
	return Args2[T1, T2]{A1: a1, A2: a2}
}

// Pack3 builds an Args3.
func Pack3[T1, T2, T3 any](a1 T1, a2 T2, a3 T3) Args3[T1, T2, T3] {
	return Args3[T1, T2, T3]{A1: a1, A2: a2, A3: a3}
}

// CloneArg snapshots each element in order. If one fails, the elements already
// copied are released before the error is returned.
func (a Args2[T1, T2]) CloneArg() (Args2[T1, T2], error) {
	var u unwind
	a1, err := snapshotElem(&u, a.A1)
	if err != nil {
		return Args2[T1, T2]{}, err
	}
	a2, err := snapshotElem(&u, a.A2)
	if err != nil {
		return Args2[T1, T2]{}, err
	}
	return Args2[T1, T2]{A1: a1, A2: a2}, nil
}

// Release releases every element that came out of a Cloner.
func (a Args2[T1, T2]) Release() {
	releaseElem(a.A2)
	releaseElem(a.A1)
}

func (a Args2[T1, T2]) validateArgs() error {
	if err := validateArg[T1](); err != nil {
		return err
	}
	return validateArg[T2]()
}

// CloneArg snapshots each element in order, all or nothing.
func (a Args3[T1, T2, T3]) CloneArg() (Args3[T1, T2, T3], error) {
	var u unwind
	a1, err := snapshotElem(&u, a.A1)
	if err != nil {
		return Args3[T1, T2, T3]{}, err
	}
	a2, err := snapshotElem(&u, a.A2)
	if err != nil {
		return Args3[T1, T2, T3]{}, err
	}
	a3, err := snapshotElem(&u, a.A3)
	if err != nil {
		return Args3[T1, T2, T3]{}, err
	}
	return Args3[T1, T2, T3]{A1: a1, A2: a2, A3: a3}, nil
}

// Release releases every element that came out of a Cloner.
func (a Args3[T1, T2, T3]) Release() {
	releaseElem(a.A3)
	releaseElem(a.A2)
	releaseElem(a.A1)
}

func (a Args3[T1, T2, T3]) validateArgs() error {
	if err := validateArg[T1](); err != nil {
		return err
	}
	if err := validateArg[T2](); err != nil {
		return err
	}
	return validateArg[T3]()
}

// =============================================================================
// Arity helpers
// =============================================================================

// Free0 binds a function without parameters.
func Free0[R any](fn func() R) Target[Void, R] {
	t := Target[Void, R]{kind: KindFree, fn: funcID(fn)}
	if fn != nil {
		t.call = func(Void) R { return fn() }
	}
	return t
}

// Member0 binds a method without parameters.
func Member0[T, R any](owner *T, fn func(*T) R) Target[Void, R] {
	var call func(*T, Void) R
	if fn != nil {
		call = func(o *T, _ Void) R { return fn(o) }
	}
	return rebind(Member(owner, call), fn)
}

// Shared0 binds a method without parameters to a shared receiver.
func Shared0[T, R any](owner Ref[T], fn func(*T) R) Target[Void, R] {
	var call func(*T, Void) R
	if fn != nil {
		call = func(o *T, _ Void) R { return fn(o) }
	}
	return rebind(Shared(owner, call), fn)
}

// Free2 binds a two-parameter function.
func Free2[T1, T2, R any](fn func(T1, T2) R) Target[Args2[T1, T2], R] {
	t := Target[Args2[T1, T2], R]{kind: KindFree, fn: funcID(fn)}
	if fn != nil {
		t.call = func(a Args2[T1, T2]) R { return fn(a.A1, a.A2) }
	}
	return t
}

// Member2 binds a two-parameter method.
func Member2[T, T1, T2, R any](owner *T, fn func(*T, T1, T2) R) Target[Args2[T1, T2], R] {
	var call func(*T, Args2[T1, T2]) R
	if fn != nil {
		call = func(o *T, a Args2[T1, T2]) R { return fn(o, a.A1, a.A2) }
	}
	return rebind(Member(owner, call), fn)
}

// Shared2 binds a two-parameter method to a shared receiver.
func Shared2[T, T1, T2, R any](owner Ref[T], fn func(*T, T1, T2) R) Target[Args2[T1, T2], R] {
	var call func(*T, Args2[T1, T2]) R
	if fn != nil {
		call = func(o *T, a Args2[T1, T2]) R { return fn(o, a.A1, a.A2) }
	}
	return rebind(Shared(owner, call), fn)
}

// Free3 binds a three-parameter function.
func Free3[T1, T2, T3, R any](fn func(T1, T2, T3) R) Target[Args3[T1, T2, T3], R] {
	t := Target[Args3[T1, T2, T3], R]{kind: KindFree, fn: funcID(fn)}
	if fn != nil {
		t.call = func(a Args3[T1, T2, T3]) R { return fn(a.A1, a.A2, a.A3) }
	}
	return t
}

// Member3 binds a three-parameter method.
func Member3[T, T1, T2, T3, R any](owner *T, fn func(*T, T1, T2, T3) R) Target[Args3[T1, T2, T3], R] {
	var call func(*T, Args3[T1, T2, T3]) R
	if fn != nil {
		call = func(o *T, a Args3[T1, T2, T3]) R { return fn(o, a.A1, a.A2, a.A3) }
	}
	return rebind(Member(owner, call), fn)
}

// Shared3 binds a three-parameter method to a shared receiver.
func Shared3[T, T1, T2, T3, R any](owner Ref[T], fn func(*T, T1, T2, T3) R) Target[Args3[T1, T2, T3], R] {
	var call func(*T, Args3[T1, T2, T3]) R
	if fn != nil {
		call = func(o *T, a Args3[T1, T2, T3]) R { return fn(o, a.A1, a.A2, a.A3) }
	}
	return rebind(Shared(owner, call), fn)
}

// FreeAction binds a function without a result.
func FreeAction[A any](fn func(A)) Target[A, Void] {
	t := Target[A, Void]{kind: KindFree, fn: funcID(fn)}
	if fn != nil {
		t.call = func(a A) Void { fn(a); return Void{} }
	}
	return t
}

// MemberAction binds a method without a result.
func MemberAction[T, A any](owner *T, fn func(*T, A)) Target[A, Void] {
	var call func(*T, A) Void
	if fn != nil {
		call = func(o *T, a A) Void { fn(o, a); return Void{} }
	}
	return rebind(Member(owner, call), fn)
}

// SharedAction binds a method without a result to a shared receiver.
func SharedAction[T, A any](owner Ref[T], fn func(*T, A)) Target[A, Void] {
	var call func(*T, A) Void
	if fn != nil {
		call = func(o *T, a A) Void { fn(o, a); return Void{} }
	}
	return rebind(Shared(owner, call), fn)
}

// rebind replaces the identity of an adapted target with the caller's function so
// that targets built from different methods do not compare equal.
func rebind[A, R any](t Target[A, R], fn any) Target[A, R] {
	t.fn = funcID(fn)
	return t
}
