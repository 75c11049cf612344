package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestZerologLogger_Fields tests level filtering and field rendering
// Main test items:
// 1. Messages below the logger level are dropped
// 2. Fields and error values appear in the output
func TestZerologLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message", F("context", "ui"), F("depth", 3))
	logger.Error("error message", F("error", errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("filtered levels leaked: %s", out)
	}
	for _, want := range []string{`"message":"warn message"`, `"context":"ui"`, `"depth":3`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

// TestDefaultPanicHandler tests that panics are reported through the logger
func TestDefaultPanicHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &DefaultPanicHandler{Logger: NewZerologLogger(zerolog.New(&buf))}
	h.HandlePanic(context.Background(), "ui", "boom", []byte("stack"))

	out := buf.String()
	if !strings.Contains(out, `"context":"ui"`) || !strings.Contains(out, `"panic":"boom"`) {
		t.Errorf("unexpected panic log: %s", out)
	}
}

// TestAsync_LogsFailures tests that dispatch failures reach the configured logger and metrics
func TestAsync_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))
	metrics := &countingMetrics{}

	held := &heldContext{reject: ErrContextClosed}
	d := NewAsync(Free(addOne), held, WithLogger(logger), WithMetrics(metrics))
	if _, err := d.Invoke(1); err == nil {
		t.Fatal("expected submit error")
	}
	if !strings.Contains(buf.String(), "Submit rejected") {
		t.Errorf("missing submit log: %s", buf.String())
	}

	l := newLedger()
	bad := NewAsync(FreeAction(func(*tracked) {}), &heldContext{}, WithMetrics(metrics))
	bad.Invoke(&tracked{id: 1, fail: true, ledger: l})
	if metrics.snapshotFailures != 1 {
		t.Errorf("expected 1 snapshot failure, got %d", metrics.snapshotFailures)
	}

	w := NewAsyncWait(Free(addOne), &heldContext{}, 0, WithMetrics(metrics))
	w.Invoke(1)
	if metrics.timeouts != 1 || metrics.dispatches != 1 {
		t.Errorf("timeouts %d dispatches %d", metrics.timeouts, metrics.dispatches)
	}
}

type countingMetrics struct {
	NilMetrics
	dispatches       int
	timeouts         int
	snapshotFailures int
}

func (m *countingMetrics) RecordDispatch(string, Mode)  { m.dispatches++ }
func (m *countingMetrics) RecordWaitTimeout(string)     { m.timeouts++ }
func (m *countingMetrics) RecordSnapshotFailure(string) { m.snapshotFailures++ }
