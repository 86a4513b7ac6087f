// Package core holds the observability primitives shared by the annotation
// pipeline, the batch runner and the CLI: metrics recorders and span tracers.
package core

import (
	"context"
	"time"

	"plicore/pkg/domain"
)

// MetricsRecorder observes the outcome and duration of a named operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Metrics extends MetricsRecorder with annotation counters.
type Metrics interface {
	MetricsRecorder
	ObserveEntry(status domain.EntryStatus)
	ObserveSystems(n int)
	ObserveLigand(invalid bool)
}

// TraceSpan is an in-flight operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around pipeline stages.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

// Observe implements MetricsRecorder.
func (NopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// ObserveEntry implements Metrics.
func (NopMetrics) ObserveEntry(domain.EntryStatus) {}

// ObserveSystems implements Metrics.
func (NopMetrics) ObserveSystems(int) {}

// ObserveLigand implements Metrics.
func (NopMetrics) ObserveLigand(bool) {}

// NopTracer starts spans that record nothing.
type NopTracer struct{}

type nopSpan struct{}

func (nopSpan) End(error) {}

// Start implements Tracer.
func (NopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, nopSpan{}
}

type entryKey struct{}

// WithEntry tags ctx with the entry being annotated so spans and logs can
// be attributed to it.
func WithEntry(ctx context.Context, entryID string) context.Context {
	return context.WithValue(ctx, entryKey{}, entryID)
}

// EntryFromContext returns the entry set by WithEntry, or "".
func EntryFromContext(ctx context.Context) string {
	id, _ := ctx.Value(entryKey{}).(string)
	return id
}

// Stage runs fn inside a span and records its duration and outcome.
func Stage(ctx context.Context, m MetricsRecorder, t Tracer, operation string, fn func(context.Context) error) error {
	if t == nil {
		t = NopTracer{}
	}
	ctx, span := t.Start(ctx, operation)
	started := time.Now()
	err := fn(ctx)
	if m != nil {
		m.Observe(ctx, operation, err == nil, time.Since(started))
	}
	span.End(err)
	return err
}
