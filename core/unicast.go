package core

import "sync"

// Unicast holds at most one delegate. Setting a new delegate releases the
// previous one.
type Unicast[A, R any] struct {
	d Delegate[A, R]
}

// Set stores a clone of d, replacing and releasing any previous delegate. A nil
// or empty d clears the slot.
func (u *Unicast[A, R]) Set(d Delegate[A, R]) {
	if u.d != nil {
		u.d.Release()
		u.d = nil
	}
	if d != nil && !d.Empty() {
		u.d = d.Clone()
	}
}

// Invoke calls the stored delegate. An empty slot returns the zero R and no error.
func (u *Unicast[A, R]) Invoke(args A) (R, error) {
	if u.d == nil {
		var zero R
		return zero, nil
	}
	return u.d.Invoke(args)
}

func (u *Unicast[A, R]) Clear() { u.Set(nil) }

func (u *Unicast[A, R]) Empty() bool { return u.d == nil }

func (u *Unicast[A, R]) Size() int {
	if u.d == nil {
		return 0
	}
	return 1
}

// SafeUnicast is a Unicast guarded by a mutex. The lock is held for the whole
// invocation.
type SafeUnicast[A, R any] struct {
	mu sync.Mutex
	u  Unicast[A, R]
}

func (s *SafeUnicast[A, R]) Set(d Delegate[A, R]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.u.Set(d)
}

func (s *SafeUnicast[A, R]) Invoke(args A) (R, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.u.Invoke(args)
}

func (s *SafeUnicast[A, R]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.u.Clear()
}

func (s *SafeUnicast[A, R]) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.u.Empty()
}

func (s *SafeUnicast[A, R]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.u.Size()
}
