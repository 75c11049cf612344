package core

import (
	"errors"
	"slices"
)

// Multicast is an ordered list of delegates invoked together. Insertion order is
// invocation order and duplicates are kept.
//
// Multicast is not safe for concurrent use; see SafeMulticast.
type Multicast[A, R any] struct {
	delegates []Delegate[A, R]
}

// NewMulticast returns an empty container. The zero value is ready to use as well.
func NewMulticast[A, R any]() *Multicast[A, R] {
	return &Multicast[A, R]{}
}

// Add appends a clone of d. It panics if d is nil or empty.
func (m *Multicast[A, R]) Add(d Delegate[A, R]) {
	if d == nil || d.Empty() {
		panic("core: cannot add an empty delegate to a multicast container")
	}
	m.delegates = append(m.delegates, d.Clone())
}

// Remove releases the first delegate equal to d. Removing an absent delegate is a no-op.
//
// Free targets are identified by their code pointer only, so closures made from
// one function literal are all equal and Remove may drop a different one than
// the caller meant. Bind such handlers with Member on a distinct receiver when
// they must be removed individually.
func (m *Multicast[A, R]) Remove(d Delegate[A, R]) bool {
	if d == nil {
		return false
	}
	for i, existing := range m.delegates {
		if existing.Equal(d) {
			existing.Release()
			m.delegates = slices.Delete(m.delegates, i, i+1)
			return true
		}
	}
	return false
}

// Invoke calls every delegate in insertion order with the same arguments. Results
// are dropped; dispatch errors are joined. Asynchronous delegates only guarantee
// the order in which their calls were submitted.
func (m *Multicast[A, R]) Invoke(args A) error {
	var errs []error
	for _, d := range m.delegates {
		if _, err := d.Invoke(args); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear releases every delegate.
func (m *Multicast[A, R]) Clear() {
	for _, d := range m.delegates {
		d.Release()
	}
	m.delegates = nil
}

// Empty reports whether no delegate is registered.
func (m *Multicast[A, R]) Empty() bool { return len(m.delegates) == 0 }

// Size returns the number of registered delegates.
func (m *Multicast[A, R]) Size() int { return len(m.delegates) }

// Bool reports whether at least one delegate is registered.
func (m *Multicast[A, R]) Bool() bool { return !m.Empty() }
