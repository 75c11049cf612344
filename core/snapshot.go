package core

import (
	"fmt"
	"reflect"
	"time"
)

// Cloner is implemented by argument types that provide their own copy for transfer
// to another goroutine. A failing CloneArg aborts the invocation before anything
// is submitted.
type Cloner[T any] interface {
	CloneArg() (T, error)
}

// Releaser is implemented by Cloner types whose copies hold resources. Release is
// called on the copy once the destination has run the call, or when the snapshot
// is unwound after a later argument failed to copy.
type Releaser interface {
	Release()
}

type argValidator interface {
	validateArgs() error
}

// ValidateArgs reports whether values of type A can be snapshotted for an
// asynchronous call. Asynchronous delegates run it once, when they are built.
func ValidateArgs[A any]() error {
	var zero A
	if v, ok := any(zero).(argValidator); ok {
		return v.validateArgs()
	}
	return validateArg[A]()
}

func mustTransfer[A any]() {
	if err := ValidateArgs[A](); err != nil {
		panic(fmt.Sprintf("core: asynchronous delegate rejected: %v", err))
	}
}

func validateArg[T any]() error {
	var zero T
	_, cloner := any(zero).(Cloner[T])
	_, releaser := any(zero).(Releaser)
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer && t.Elem().Implements(sharedHandleType) {
		return fmt.Errorf("%w: %v", ErrSharedByReference, t)
	}
	if releaser && !cloner {
		return fmt.Errorf("%w: %v implements Releaser without Cloner", ErrArgNotTransferable, t)
	}
	if cloner {
		return nil
	}
	return validateType(t, make(map[reflect.Type]bool))
}

var sharedHandleType = reflect.TypeFor[sharedHandle]()

// valueTypes alias memory internally but are immutable, so a plain copy is enough.
var valueTypes = map[reflect.Type]bool{
	reflect.TypeFor[time.Time](): true,
}

func validateType(t reflect.Type, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true
	if valueTypes[t] {
		return nil
	}

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String, reflect.Chan, reflect.Func:
		return nil
	case reflect.Array, reflect.Slice:
		return validateType(t.Elem(), seen)
	case reflect.Map:
		if err := validateType(t.Key(), seen); err != nil {
			return err
		}
		return validateType(t.Elem(), seen)
	case reflect.Pointer:
		if t.Elem().Implements(sharedHandleType) {
			return fmt.Errorf("%w: %v", ErrSharedByReference, t)
		}
		return validateType(t.Elem(), seen)
	case reflect.Struct:
		if t.Implements(sharedHandleType) {
			return fmt.Errorf("%w: %v must be passed as a direct argument", ErrSharedByReference, t)
		}
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() && needsDeepCopy(f.Type) {
				return fmt.Errorf("%w: unexported field %v.%s of type %v", ErrArgNotTransferable, t, f.Name, f.Type)
			}
			if err := validateType(f.Type, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %v (implement Cloner)", ErrArgNotTransferable, t)
	}
}

// needsDeepCopy reports whether a plain assignment of t would alias memory.
func needsDeepCopy(t reflect.Type) bool {
	return deepCopyKinds(t, make(map[reflect.Type]bool))
}

func deepCopyKinds(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	if valueTypes[t] {
		return false
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return deepCopyKinds(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			if deepCopyKinds(t.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}

// snapshot returns an independently owned copy of args and the function that
// releases it. release is nil when nothing needs releasing.
func snapshot[A any](args A) (A, func(), error) {
	if c, ok := any(args).(Cloner[A]); ok {
		cp, err := c.CloneArg()
		if err != nil {
			var zero A
			return zero, nil, err
		}
		return cp, releaseFunc(cp), nil
	}

	out, err := deepCopy(args)
	return out, nil, err
}

// deepCopy copies args through reflection. A failed copy is reported as an
// error so callers building a tuple can unwind what they already hold.
func deepCopy[A any](args A) (out A, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero A
			out, err = zero, fmt.Errorf("%w: copying %T: %v", ErrArgNotTransferable, args, r)
		}
	}()
	dst := reflect.ValueOf(&out).Elem()
	dst.Set(copyValue(reflect.ValueOf(&args).Elem(), make(map[ptrKey]reflect.Value)))
	return out, nil
}

// ptrKey identifies a pointer by address and type. A struct and its first
// field share an address, so the address alone is ambiguous.
type ptrKey struct {
	addr uintptr
	typ  reflect.Type
}

// copyValue copies v so that the result shares no memory with it. Pointers seen
// twice map to the same copy, which keeps cycles and shared sub-objects intact.
// Pointers to zero-size values are never memoised: the runtime may hand every
// such allocation the same address.
func copyValue(v reflect.Value, ptrs map[ptrKey]reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		if v.Type().Elem().Size() == 0 {
			return reflect.New(v.Type().Elem())
		}
		key := ptrKey{addr: v.Pointer(), typ: v.Type()}
		if cp, ok := ptrs[key]; ok {
			return cp
		}
		cp := reflect.New(v.Type().Elem())
		ptrs[key] = cp
		cp.Elem().Set(copyValue(v.Elem(), ptrs))
		return cp
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		cp := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			cp.Index(i).Set(copyValue(v.Index(i), ptrs))
		}
		return cp
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		cp := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			cp.SetMapIndex(copyValue(iter.Key(), ptrs), copyValue(iter.Value(), ptrs))
		}
		return cp
	case reflect.Array:
		cp := reflect.New(v.Type()).Elem()
		for i := range v.Len() {
			cp.Index(i).Set(copyValue(v.Index(i), ptrs))
		}
		return cp
	case reflect.Struct:
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		t := v.Type()
		for i := range t.NumField() {
			if t.Field(i).IsExported() && needsDeepCopy(t.Field(i).Type) {
				cp.Field(i).Set(copyValue(v.Field(i), ptrs))
			}
		}
		return cp
	default:
		return v
	}
}

// unwind collects the releases of a partially built snapshot.
type unwind struct {
	releases []func()
}

func (u *unwind) add(release func()) {
	if release != nil {
		u.releases = append(u.releases, release)
	}
}

func (u *unwind) run() {
	for i := len(u.releases) - 1; i >= 0; i-- {
		u.releases[i]()
	}
	u.releases = nil
}

func snapshotElem[T any](u *unwind, v T) (T, error) {
	cp, release, err := snapshot(v)
	if err != nil {
		u.run()
		return cp, err
	}
	u.add(release)
	return cp, nil
}

func releaseFunc[T any](v T) func() {
	if r, ok := any(v).(Releaser); ok {
		return r.Release
	}
	return nil
}

func releaseElem[T any](v T) {
	if r, ok := any(v).(Releaser); ok {
		r.Release()
	}
}
