package worker

import (
	"context"
	"testing"

	"github.com/Swind/go-delegate/core"
)

// TestFIFOQueue_OrderAndCompaction tests FIFO order across compaction
// Main test items:
// 1. Items pop in push order
// 2. Draining a large queue shrinks its backing array
func TestFIFOQueue_OrderAndCompaction(t *testing.T) {
	q := newFIFOQueue()

	const n = 500
	ids := make([]int, 0, n)
	for i := range n {
		q.Push(core.InvocationFunc(func(context.Context) { ids = append(ids, i) }))
	}
	if q.Len() != n {
		t.Fatalf("expected %d items, got %d", n, q.Len())
	}

	for {
		call, ok := q.Pop()
		if !ok {
			break
		}
		call.Invoke(context.Background())
	}
	for i, v := range ids {
		if v != i {
			t.Fatalf("ids[%d] = %d", i, v)
		}
	}
	if c := cap(q.items); c > compactMinCap {
		t.Errorf("queue not compacted, cap %d", c)
	}
}

func TestFIFOQueue_Drain(t *testing.T) {
	q := newFIFOQueue()
	for range 3 {
		q.Push(core.InvocationFunc(func(context.Context) {}))
	}
	if got := len(q.Drain()); got != 3 {
		t.Errorf("expected 3 drained, got %d", got)
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty after drain")
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on drained queue succeeded")
	}
}
