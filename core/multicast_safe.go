package core

import "sync"

// SafeMulticast is a Multicast guarded by one mutex. Add, Remove, Invoke and Clear
// are atomic with respect to each other: one Invoke fans out to the membership it
// saw when it started.
//
// The lock covers submission of asynchronous calls only, not their execution on
// the destination. A synchronous target must not call back into the same
// container from inside Invoke.
type SafeMulticast[A, R any] struct {
	mu sync.Mutex
	m  Multicast[A, R]
}

// NewSafeMulticast returns an empty container.
func NewSafeMulticast[A, R any]() *SafeMulticast[A, R] {
	return &SafeMulticast[A, R]{}
}

func (s *SafeMulticast[A, R]) Add(d Delegate[A, R]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Add(d)
}

func (s *SafeMulticast[A, R]) Remove(d Delegate[A, R]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Remove(d)
}

func (s *SafeMulticast[A, R]) Invoke(args A) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Invoke(args)
}

func (s *SafeMulticast[A, R]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Clear()
}

func (s *SafeMulticast[A, R]) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Empty()
}

func (s *SafeMulticast[A, R]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Size()
}

func (s *SafeMulticast[A, R]) Bool() bool {
	return !s.Empty()
}
