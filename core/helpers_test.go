package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// loopContext runs submitted calls in order on one goroutine.
type loopContext struct {
	name   string
	calls  chan PendingInvocation
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

func newLoopContext(t *testing.T, name string) *loopContext {
	t.Helper()
	l := &loopContext{
		name:  name,
		calls: make(chan PendingInvocation, 1024),
		done:  make(chan struct{}),
	}
	go l.run()
	t.Cleanup(l.close)
	return l
}

func (l *loopContext) Name() string { return l.name }

func (l *loopContext) Submit(call PendingInvocation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrContextClosed
	}
	l.calls <- call
	return nil
}

func (l *loopContext) run() {
	defer close(l.done)
	ctx := WithExecutionContext(context.Background(), l)
	for call := range l.calls {
		func() {
			defer func() { _ = recover() }()
			call.Invoke(ctx)
		}()
	}
}

func (l *loopContext) close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.calls)
	}
	l.mu.Unlock()
	<-l.done
}

// flush waits until every call submitted before it has run.
func (l *loopContext) flush(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	if err := l.Submit(InvocationFunc(func(context.Context) { close(done) })); err != nil {
		t.Fatalf("sync submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop context did not drain")
	}
}

// heldContext queues calls until the test drains it explicitly.
type heldContext struct {
	mu     sync.Mutex
	queue  []PendingInvocation
	reject error
}

func (h *heldContext) Submit(call PendingInvocation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reject != nil {
		return h.reject
	}
	h.queue = append(h.queue, call)
	return nil
}

func (h *heldContext) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// drain runs everything queued on the calling goroutine.
func (h *heldContext) drain() int {
	h.mu.Lock()
	calls := h.queue
	h.queue = nil
	h.mu.Unlock()

	ctx := WithExecutionContext(context.Background(), h)
	for _, call := range calls {
		call.Invoke(ctx)
	}
	return len(calls)
}

// take removes queued calls without running them.
func (h *heldContext) take() []PendingInvocation {
	h.mu.Lock()
	defer h.mu.Unlock()
	calls := h.queue
	h.queue = nil
	return calls
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
