package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"plicore/pkg/domain"
)

var expvarSeq uint64

// StageTotals aggregates the runs of one pipeline stage.
type StageTotals struct {
	Runs    int64   `json:"runs"`
	Errors  int64   `json:"errors"`
	TotalMS float64 `json:"total_ms"`
}

// ExpvarMetricsSnapshot is a point-in-time copy of an ExpvarMetricsRecorder.
type ExpvarMetricsSnapshot struct {
	Stages     map[string]StageTotals `json:"stages"`
	Entries    map[string]int64       `json:"entries_total"`
	Systems    int64                  `json:"systems_total"`
	Ligands    map[string]int64       `json:"ligands_total"`
	RecordedAt time.Time              `json:"recorded_at"`
}

// ExpvarMetricsRecorder implements Metrics on top of expvar, for runs that
// expose /debug/vars or just log the totals at the end.
type ExpvarMetricsRecorder struct {
	name    string
	mu      sync.Mutex
	stages  map[string]StageTotals
	entries map[string]int64
	systems int64
	ligands map[string]int64
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated plicore_metrics_N name when name is empty. expvar names are
// process-global; publishing the same name twice panics.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("plicore_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	r := &ExpvarMetricsRecorder{
		name:    name,
		stages:  map[string]StageTotals{},
		entries: map[string]int64{},
		ligands: map[string]int64{},
	}
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name is the expvar key of the recorder.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current totals.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ExpvarMetricsSnapshot{
		Stages:     maps.Clone(r.stages),
		Entries:    maps.Clone(r.entries),
		Systems:    r.systems,
		Ligands:    maps.Clone(r.ligands),
		RecordedAt: time.Now().UTC(),
	}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, stage string, success bool, d time.Duration) {
	if stage == "" {
		return
	}
	r.mu.Lock()
	t := r.stages[stage]
	t.Runs++
	if !success {
		t.Errors++
	}
	t.TotalMS += float64(d) / float64(time.Millisecond)
	r.stages[stage] = t
	r.mu.Unlock()
}

// ObserveEntry implements Metrics.
func (r *ExpvarMetricsRecorder) ObserveEntry(status domain.EntryStatus) {
	r.mu.Lock()
	r.entries[string(status)]++
	r.mu.Unlock()
}

// ObserveSystems implements Metrics.
func (r *ExpvarMetricsRecorder) ObserveSystems(n int) {
	r.mu.Lock()
	r.systems += int64(n)
	r.mu.Unlock()
}

// ObserveLigand implements Metrics.
func (r *ExpvarMetricsRecorder) ObserveLigand(invalid bool) {
	key := "valid"
	if invalid {
		key = "invalid"
	}
	r.mu.Lock()
	r.ligands[key]++
	r.mu.Unlock()
}

// SpanRecord is one finished stage as written by JSONTraceTracer.
type SpanRecord struct {
	Entry      string    `json:"entry,omitempty"`
	Stage      string    `json:"stage"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS float64   `json:"duration_ms"`
}

// JSONTraceTracer writes one JSON line per finished span and keeps the
// records for inspection. Spans are tagged with the entry set by WithEntry.
type JSONTraceTracer struct {
	mu    sync.Mutex
	enc   *json.Encoder
	spans []SpanRecord
}

// NewJSONTracer returns a tracer writing to w; a nil w only retains spans.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Spans returns the finished spans in completion order.
func (t *JSONTraceTracer) Spans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.spans...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, stage string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{
		tracer: t,
		rec:    SpanRecord{Entry: EntryFromContext(ctx), Stage: stage, StartedAt: time.Now().UTC()},
	}
}

type jsonSpan struct {
	tracer *JSONTraceTracer
	rec    SpanRecord
}

func (s *jsonSpan) End(err error) {
	rec := s.rec
	rec.DurationMS = float64(time.Since(rec.StartedAt)) / float64(time.Millisecond)
	rec.OK = err == nil
	if err != nil {
		rec.Error = err.Error()
	}
	t := s.tracer
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = append(t.spans, rec)
	if t.enc != nil {
		_ = t.enc.Encode(rec)
	}
}
