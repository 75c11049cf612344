package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-delegate/worker"
)

// ThreadSnapshotProvider provides current worker thread stats snapshots.
// *worker.Thread implements it.
type ThreadSnapshotProvider interface {
	Stats() worker.Stats
}

// SnapshotPoller periodically exports thread Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	threadsMu sync.RWMutex
	threads   map[string]ThreadSnapshotProvider

	pending  *prom.GaugeVec
	running  *prom.GaugeVec
	executed *prom.GaugeVec
	panicked *prom.GaugeVec
	rejected *prom.GaugeVec
	closed   *prom.GaugeVec

	stateMu sync.Mutex
	active  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "delegate",
			Name:      name,
			Help:      help,
		}, []string{"thread"})
	}
	pending := gauge("thread_pending", "Number of queued invocations per thread.")
	running := gauge("thread_running", "Whether a thread is running an invocation (1=yes, 0=idle).")
	executed := gauge("thread_executed_total", "Thread executed invocation count snapshot.")
	panicked := gauge("thread_panicked_total", "Thread panicked invocation count snapshot.")
	rejected := gauge("thread_rejected_total", "Thread rejected invocation count snapshot.")
	closed := gauge("thread_closed", "Thread closed state (1=closed, 0=open).")

	var err error
	for _, g := range []**prom.GaugeVec{&pending, &running, &executed, &panicked, &rejected, &closed} {
		if *g, err = registerCollector(reg, *g); err != nil {
			return nil, err
		}
	}

	return &SnapshotPoller{
		interval: interval,
		threads:  make(map[string]ThreadSnapshotProvider),
		pending:  pending,
		running:  running,
		executed: executed,
		panicked: panicked,
		rejected: rejected,
		closed:   closed,
	}, nil
}

// AddThread adds or replaces a provider by name. An empty name uses the
// provider's own Stats().Name.
func (p *SnapshotPoller) AddThread(name string, provider ThreadSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	if name == "" {
		name = provider.Stats().Name
	}
	name = normalizeLabel(name, "thread")
	p.threadsMu.Lock()
	p.threads[name] = provider
	p.threadsMu.Unlock()
}

// RemoveThread stops exporting name and deletes its series.
func (p *SnapshotPoller) RemoveThread(name string) {
	if p == nil {
		return
	}
	p.threadsMu.Lock()
	delete(p.threads, name)
	p.threadsMu.Unlock()

	for _, g := range []*prom.GaugeVec{p.pending, p.running, p.executed, p.panicked, p.rejected, p.closed} {
		g.DeleteLabelValues(name)
	}
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.active {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.active = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.active {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	cancel()
	<-done

	p.stateMu.Lock()
	p.active = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.threadsMu.RLock()
	defer p.threadsMu.RUnlock()

	for name, provider := range p.threads {
		stats := provider.Stats()
		p.pending.WithLabelValues(name).Set(float64(stats.Pending))
		p.running.WithLabelValues(name).Set(boolGauge(stats.Running))
		p.executed.WithLabelValues(name).Set(float64(stats.Executed))
		p.panicked.WithLabelValues(name).Set(float64(stats.Panicked))
		p.rejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.closed.WithLabelValues(name).Set(boolGauge(stats.Closed))
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
