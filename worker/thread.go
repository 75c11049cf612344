package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Swind/go-delegate/core"
)

// Thread binds a dedicated goroutine that runs submitted invocations one at a
// time in submission order. It is the reference core.ExecutionContext.
//
// Use cases:
// 1. A destination for asynchronous delegates in tests and small programs
// 2. Serialising access to state owned by one goroutine
// 3. Simulating a main or UI thread
type Thread struct {
	id   uuid.UUID
	name string

	queue  *fifoQueue
	signal chan struct{}

	// Lifecycle control
	ctx      context.Context
	cancel   context.CancelFunc
	stopped  chan struct{}
	draining chan struct{}
	drainOne sync.Once
	stopOnce sync.Once

	// mu orders Submit against closing so nothing is queued after the final drain.
	mu     sync.RWMutex
	closed bool

	running  atomic.Bool
	executed atomic.Int64
	panicked atomic.Int64
	rejected atomic.Int64

	logger       core.Logger
	metrics      core.Metrics
	panicHandler core.PanicHandler
	history      *history
}

// Option configures a Thread.
type Option func(*Thread)

// WithName sets the name used in logs, metrics and history.
func WithName(name string) Option {
	return func(t *Thread) { t.name = name }
}

func WithLogger(l core.Logger) Option {
	return func(t *Thread) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithMetrics(m core.Metrics) Option {
	return func(t *Thread) {
		if m != nil {
			t.metrics = m
		}
	}
}

func WithPanicHandler(h core.PanicHandler) Option {
	return func(t *Thread) {
		if h != nil {
			t.panicHandler = h
		}
	}
}

// WithHistoryCapacity sets how many completed invocations Recent can return.
func WithHistoryCapacity(n int) Option {
	return func(t *Thread) { t.history = newHistory(n) }
}

// New creates and starts a Thread.
func New(opts ...Option) *Thread {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Thread{
		id:       uuid.New(),
		queue:    newFIFOQueue(),
		signal:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
		draining: make(chan struct{}),
		logger:   core.NewNoOpLogger(),
		metrics:  &core.NilMetrics{},
		history:  newHistory(defaultHistoryCapacity),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.name == "" {
		t.name = "thread-" + t.id.String()[:8]
	}
	if t.panicHandler == nil {
		t.panicHandler = &core.DefaultPanicHandler{Logger: t.logger}
	}

	go t.runLoop()
	return t
}

// ID returns the unique identifier assigned at construction.
func (t *Thread) ID() uuid.UUID { return t.id }

// Name returns the name of the thread.
func (t *Thread) Name() string { return t.name }

// Submit queues call for execution. It returns core.ErrContextClosed once the
// thread is stopping.
func (t *Thread) Submit(call core.PendingInvocation) error {
	if call == nil {
		return fmt.Errorf("worker %s: nil invocation", t.name)
	}

	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		t.rejected.Add(1)
		t.metrics.RecordRejected(t.name, "closed")
		return fmt.Errorf("worker %s: %w", t.name, core.ErrContextClosed)
	}
	t.queue.Push(call)
	t.mu.RUnlock()

	t.metrics.RecordQueueDepth(t.name, t.queue.Len())
	select {
	case t.signal <- struct{}{}:
	default:
	}
	return nil
}

// PostTask submits a plain function.
func (t *Thread) PostTask(task func(ctx context.Context)) error {
	return t.Submit(core.InvocationFunc(task))
}

// IsClosed reports whether the thread has stopped accepting calls.
func (t *Thread) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

func (t *Thread) closeInput() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Stop refuses new calls, waits for the running call to finish and exits the
// loop. Queued calls that never ran are discarded and logged. Stop must not be
// called from a call running on the thread.
func (t *Thread) Stop() {
	t.stopOnce.Do(func() {
		t.closeInput()
		t.cancel()
		<-t.stopped

		dropped := t.queue.Drain()
		for _, call := range dropped {
			t.logger.Error("Dropped pending invocation",
				core.F("thread", t.name),
				core.F("invocation", invocationName(call)))
			if d, ok := call.(core.Discarder); ok {
				d.Discard()
			}
		}
		if len(dropped) > 0 {
			t.metrics.RecordRejected(t.name, "stopped")
		}
	})
}

// StopGraceful refuses new calls, runs everything already queued and exits.
// If ctx ends first, it falls back to Stop and returns ctx.Err().
func (t *Thread) StopGraceful(ctx context.Context) error {
	t.closeInput()
	t.drainOne.Do(func() { close(t.draining) })

	select {
	case <-t.stopped:
		t.Stop()
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}

// runLoop occupies the dedicated goroutine.
func (t *Thread) runLoop() {
	defer close(t.stopped)

	runCtx := core.WithExecutionContext(t.ctx, t)
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.draining:
			t.runQueued(runCtx)
			return
		case <-t.signal:
			t.runQueued(runCtx)
		}
	}
}

func (t *Thread) runQueued(ctx context.Context) {
	for t.ctx.Err() == nil {
		call, ok := t.queue.Pop()
		if !ok {
			return
		}
		t.execute(ctx, call)
	}
}

func (t *Thread) execute(ctx context.Context, call core.PendingInvocation) {
	name := invocationName(call)
	startedAt := time.Now()
	panicked := false

	t.running.Store(true)
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			t.panicked.Add(1)
			t.metrics.RecordInvocationPanic(t.name, rec)
			t.panicHandler.HandlePanic(ctx, t.name, rec, debug.Stack())
		}
		t.running.Store(false)
		t.executed.Add(1)

		finishedAt := time.Now()
		duration := finishedAt.Sub(startedAt)
		t.metrics.RecordInvocationDuration(t.name, duration)
		t.history.Add(Record{
			Name:       name,
			Context:    t.name,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Duration:   duration,
			Panicked:   panicked,
		})
	}()

	call.Invoke(ctx)
}

// =============================================================================
// Synchronization Methods
// =============================================================================

// WaitIdle blocks until every call submitted before it has run.
// It posts a barrier call and waits for it.
func (t *Thread) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	if err := t.PostTask(func(context.Context) { close(done) }); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FlushAsync runs callback on the thread after every call submitted before it.
func (t *Thread) FlushAsync(callback func()) error {
	return t.PostTask(func(context.Context) { callback() })
}

// =============================================================================
// Observability
// =============================================================================

// Stats is a point-in-time view of a Thread.
type Stats struct {
	ID       string
	Name     string
	Pending  int
	Running  bool
	Executed int64
	Panicked int64
	Rejected int64
	Closed   bool
	LastName string
	LastAt   time.Time
}

// Stats returns the current counters.
func (t *Thread) Stats() Stats {
	s := Stats{
		ID:       t.id.String(),
		Name:     t.name,
		Pending:  t.queue.Len(),
		Running:  t.running.Load(),
		Executed: t.executed.Load(),
		Panicked: t.panicked.Load(),
		Rejected: t.rejected.Load(),
		Closed:   t.IsClosed(),
	}
	if last, ok := t.history.Last(); ok {
		s.LastName = last.Name
		s.LastAt = last.FinishedAt
	}
	return s
}

// Recent returns up to limit completed invocations, newest first.
func (t *Thread) Recent(limit int) []Record {
	return t.history.Recent(limit)
}
