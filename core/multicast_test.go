package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) record(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, tag)
}

func (r *recorder) First(x int) Void  { r.record("first"); return Void{} }
func (r *recorder) Second(x int) Void { r.record("second"); return Void{} }

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

// TestMulticast_OrderAndRemove tests insertion order, duplicates and removal
// Main test items:
// 1. Targets run in insertion order, duplicates included
// 2. Remove drops only the first equal delegate
// 3. Removing an absent delegate is a no-op
func TestMulticast_OrderAndRemove(t *testing.T) {
	r := &recorder{}
	first := NewSync(Member(r, (*recorder).First))
	second := NewSync(Member(r, (*recorder).Second))

	m := NewMulticast[int, Void]()
	if m.Bool() || !m.Empty() {
		t.Fatal("new container should be empty")
	}
	m.Add(first)
	m.Add(second)
	m.Add(first)
	if m.Size() != 3 {
		t.Fatalf("expected 3 delegates, got %d", m.Size())
	}

	if err := m.Invoke(1); err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "first"}
	if got := r.list(); !equalStrings(got, want) {
		t.Errorf("order %v, want %v", got, want)
	}

	if !m.Remove(first) {
		t.Fatal("Remove(first) found nothing")
	}
	if m.Size() != 2 {
		t.Errorf("expected 2 after remove, got %d", m.Size())
	}

	// a delegate built separately with the same binding is equal
	if !m.Remove(NewSync(Member(r, (*recorder).First))) {
		t.Error("Remove by equal binding failed")
	}
	if m.Remove(first) {
		t.Error("Remove of absent delegate reported success")
	}
	if m.Size() != 1 {
		t.Errorf("idempotent remove changed size to %d", m.Size())
	}

	m.Clear()
	if m.Bool() {
		t.Error("Clear left delegates behind")
	}
	mustPanic(t, "Add empty", func() {
		var nilFn func(int) Void
		m.Add(NewSync(Free(nilFn)))
	})
}

// TestMulticast_MixedModes tests fan-out across sync and async delegates
// Main test items:
// 1. Every delegate receives the same arguments
// 2. Dispatch errors are joined and the remaining delegates still run
func TestMulticast_MixedModes(t *testing.T) {
	loop := newLoopContext(t, "fanout")
	closed := &heldContext{reject: ErrContextClosed}

	var sum atomic.Int64
	add := func(x int) Void { sum.Add(int64(x)); return Void{} }

	var m Multicast[int, Void]
	m.Add(NewSync(Free(add)))
	m.Add(NewAsync(Free(add), loop))
	m.Add(NewAsync(Free(add), closed))
	m.Add(NewAsyncWait(Free(add), loop, WaitInfinite))

	err := m.Invoke(5)
	if !errors.Is(err, ErrContextClosed) {
		t.Errorf("expected joined ErrContextClosed, got %v", err)
	}
	loop.flush(t)
	if sum.Load() != 15 {
		t.Errorf("expected 15, got %d", sum.Load())
	}
}

// TestMulticast_ReleasesSharedOwners tests that containers hold and release references
func TestMulticast_ReleasesSharedOwners(t *testing.T) {
	ref := NewRef(&counter{}, nil)
	d := NewSync(Shared(ref, (*counter).Add))

	var m Multicast[int, int]
	m.Add(d)
	m.Add(d)
	if ref.Count() != 4 {
		t.Fatalf("expected 4 holders, got %d", ref.Count())
	}
	m.Remove(d)
	if ref.Count() != 3 {
		t.Errorf("Remove did not release, count %d", ref.Count())
	}
	m.Clear()
	d.Release()
	if ref.Count() != 1 {
		t.Errorf("expected only the caller's reference, got %d", ref.Count())
	}
	ref.Release()
}

// TestSafeMulticast_Stress tests concurrent add, remove and invoke
// Main test items:
// 1. Concurrent mutation and fan-out do not race or corrupt the list
// 2. Every added delegate is removed again
func TestSafeMulticast_Stress(t *testing.T) {
	loop := newLoopContext(t, "stress")
	s := NewSafeMulticast[int, Void]()

	var calls atomic.Int64
	// distinct receivers give each goroutine its own identity
	type sink struct{ id int }
	hit := func(*sink, int) Void { calls.Add(1); return Void{} }

	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			own := &sink{id: i}
			for range 100 {
				d := NewAsync(Member(own, hit), loop)
				s.Add(d)
				if err := s.Invoke(i); err != nil {
					return err
				}
				if !s.Remove(d) {
					return errors.New("remove lost a delegate")
				}
			}
			return nil
		})
	}
	for range 4 {
		g.Go(func() error {
			for range 200 {
				_ = s.Size()
				_ = s.Bool()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	loop.flush(t)

	if !s.Empty() {
		t.Errorf("expected empty container, got %d", s.Size())
	}
	if calls.Load() < 800 {
		t.Errorf("expected at least 800 calls, got %d", calls.Load())
	}
	s.Clear()
}

// TestUnicast tests the single-slot container
// Main test items:
// 1. Invoke on an empty slot returns the zero value
// 2. Set replaces and releases the previous delegate
func TestUnicast(t *testing.T) {
	var u Unicast[int, int]
	if got, err := u.Invoke(1); got != 0 || err != nil || !u.Empty() {
		t.Errorf("empty unicast returned %d, %v", got, err)
	}

	ref := NewRef(&counter{}, nil)
	u.Set(NewSync(Shared(ref, (*counter).Add)))
	if ref.Count() != 3 {
		t.Fatalf("expected 3 holders, got %d", ref.Count())
	}
	u.Set(NewSync(Free(addOne)))
	if ref.Count() != 2 {
		t.Errorf("previous delegate not released, count %d", ref.Count())
	}
	if got, _ := u.Invoke(1); got != 2 || u.Size() != 1 {
		t.Errorf("Invoke returned %d size %d", got, u.Size())
	}
	u.Clear()
	if u.Size() != 0 {
		t.Error("Clear did not empty the slot")
	}

	var s SafeUnicast[int, int]
	s.Set(NewSync(Free(double)))
	if got, _ := s.Invoke(4); got != 8 {
		t.Errorf("SafeUnicast returned %d", got)
	}
	s.Clear()
	if !s.Empty() || s.Size() != 0 {
		t.Error("SafeUnicast not cleared")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// fanout records, per Invoke token, the holder count each target observed.
type fanout struct {
	mu   sync.Mutex
	ref  Ref[fanout]
	seen map[int64][]int64
}

func (f *fanout) observe(token int64) Void {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[token] = append(f.seen[token], f.ref.Count())
	return Void{}
}

// TestSafeMulticast_ConsistentFanOut tests that one Invoke sees one membership
// Main test items:
// 1. Add and Remove never interleave with a running fan-out
// 2. The number of targets called matches the membership at fan-out time
func TestSafeMulticast_ConsistentFanOut(t *testing.T) {
	f := &fanout{seen: make(map[int64][]int64)}
	f.ref = NewRef(f, nil)
	defer f.ref.Release()

	// Add clones under the container lock and Remove releases under it, so the
	// holder count only moves while no fan-out runs.
	d := NewSync(Shared(f.ref, (*fanout).observe))
	defer d.Release()
	const baseline = 2 // the test's reference and d

	s := NewSafeMulticast[int64, Void]()
	var tokens atomic.Int64
	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			for range 200 {
				s.Add(d)
				s.Add(d)
				if !s.Remove(d) || !s.Remove(d) {
					return errors.New("remove lost a delegate")
				}
			}
			return nil
		})
	}
	for range 4 {
		g.Go(func() error {
			for range 200 {
				if err := s.Invoke(tokens.Add(1)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if !s.Empty() {
		t.Errorf("expected empty container, size %d", s.Size())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, counts := range f.seen {
		for _, c := range counts {
			if c != counts[0] {
				t.Fatalf("invoke %d saw membership change mid fan-out: %v", token, counts)
			}
		}
		if want := int(counts[0]) - baseline; len(counts) != want {
			t.Fatalf("invoke %d called %d targets, membership was %d", token, len(counts), want)
		}
	}
}
