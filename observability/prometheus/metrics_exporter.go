package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-delegate/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	dispatchTotal        *prom.CounterVec
	invocationSeconds    *prom.HistogramVec
	invocationPanicTotal *prom.CounterVec
	rejectedTotal        *prom.CounterVec
	waitTimeoutTotal     *prom.CounterVec
	snapshotFailureTotal *prom.CounterVec
	queueDepth           *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
// Registering twice against the same registry reuses the existing collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "delegate"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	dispatchVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_total",
		Help:      "Total number of invocations submitted to an execution context.",
	}, []string{"context", "mode"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "invocation_duration_seconds",
		Help:      "Target execution time on the destination context in seconds.",
		Buckets:   buckets,
	}, []string{"context"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "invocation_panic_total",
		Help:      "Total number of targets that panicked on a destination context.",
	}, []string{"context"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_total",
		Help:      "Total number of invocations refused or dropped by a context.",
	}, []string{"context", "reason"})
	timeoutVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "wait_timeout_total",
		Help:      "Total number of blocking invocations that timed out.",
	}, []string{"context"})
	snapshotVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_failure_total",
		Help:      "Total number of argument snapshots that failed.",
	}, []string{"context"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of queued invocations.",
	}, []string{"context"})

	var err error
	if dispatchVec, err = registerCollector(reg, dispatchVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if timeoutVec, err = registerCollector(reg, timeoutVec); err != nil {
		return nil, err
	}
	if snapshotVec, err = registerCollector(reg, snapshotVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		dispatchTotal:        dispatchVec,
		invocationSeconds:    durationVec,
		invocationPanicTotal: panicVec,
		rejectedTotal:        rejectedVec,
		waitTimeoutTotal:     timeoutVec,
		snapshotFailureTotal: snapshotVec,
		queueDepth:           queueDepthVec,
	}, nil
}

// RecordDispatch counts a submitted invocation.
func (m *MetricsExporter) RecordDispatch(contextName string, mode core.Mode) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(normalizeLabel(contextName, "unknown"), modeLabel(mode)).Inc()
}

// RecordInvocationDuration observes target execution time.
func (m *MetricsExporter) RecordInvocationDuration(contextName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.invocationSeconds.WithLabelValues(normalizeLabel(contextName, "unknown")).Observe(duration.Seconds())
}

// RecordInvocationPanic counts target panics.
func (m *MetricsExporter) RecordInvocationPanic(contextName string, panicInfo any) {
	if m == nil {
		return
	}
	m.invocationPanicTotal.WithLabelValues(normalizeLabel(contextName, "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(contextName string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(contextName, "unknown")).Set(float64(depth))
}

// RecordRejected counts refused or dropped invocations.
func (m *MetricsExporter) RecordRejected(contextName string, reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(normalizeLabel(contextName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordWaitTimeout counts blocking invocations that gave up waiting.
func (m *MetricsExporter) RecordWaitTimeout(contextName string) {
	if m == nil {
		return
	}
	m.waitTimeoutTotal.WithLabelValues(normalizeLabel(contextName, "unknown")).Inc()
}

// RecordSnapshotFailure counts failed argument snapshots.
func (m *MetricsExporter) RecordSnapshotFailure(contextName string) {
	if m == nil {
		return
	}
	m.snapshotFailureTotal.WithLabelValues(normalizeLabel(contextName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func modeLabel(mode core.Mode) string {
	switch mode {
	case core.ModeSync:
		return "sync"
	case core.ModeAsync:
		return "async"
	case core.ModeAsyncWait:
		return "async_wait"
	default:
		return "unknown"
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
