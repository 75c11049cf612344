package worker

import (
	"sync"

	"github.com/Swind/go-delegate/core"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// fifoQueue is an unbounded FIFO of pending invocations.
type fifoQueue struct {
	mu    sync.Mutex
	items []core.PendingInvocation
}

func newFIFOQueue() *fifoQueue {
	return &fifoQueue{
		items: make([]core.PendingInvocation, 0, defaultQueueCap),
	}
}

func (q *fifoQueue) Push(call core.PendingInvocation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, call)
}

func (q *fifoQueue) Pop() (core.PendingInvocation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	call := q.items[0]
	// Zero out the slot so the backing array does not pin the message
	q.items[0] = nil
	q.items = q.items[1:]
	q.maybeCompactLocked()

	return call, true
}

// Drain removes and returns everything queued.
func (q *fifoQueue) Drain() []core.PendingInvocation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = make([]core.PendingInvocation, 0, defaultQueueCap)
	return out
}

func (q *fifoQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *fifoQueue) maybeCompactLocked() {
	n := len(q.items)
	c := cap(q.items)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.items = make([]core.PendingInvocation, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	compacted := make([]core.PendingInvocation, n, max(c/2, defaultQueueCap, n))
	copy(compacted, q.items)
	q.items = compacted
}
