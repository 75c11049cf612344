package core

import "time"

// Option configures delegates built by NewAsync, NewAsyncWait and Make.
type Option func(*options)

type options struct {
	ec         ExecutionContext
	timeout    time.Duration
	hasTimeout bool
	logger     Logger
	metrics    Metrics
}

func newOptions(opts []Option) options {
	o := options{
		logger:  NewNoOpLogger(),
		metrics: &NilMetrics{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithContext selects the destination context. Used by Make.
func WithContext(ec ExecutionContext) Option {
	return func(o *options) { o.ec = ec }
}

// WithTimeout makes Make build a blocking delegate that waits up to d.
// Use WaitInfinite to wait without limit.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
		o.hasTimeout = true
	}
}

// WithLogger sets the logger used for dispatch failures and timeouts.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink for dispatches, timeouts and snapshot failures.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}
