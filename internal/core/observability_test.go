package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"plicore/pkg/domain"
)

func TestPrometheusMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.ObserveEntry(domain.StatusSuccess)
	m.ObserveEntry(domain.StatusSuccess)
	m.ObserveEntry(domain.StatusFailed)
	m.ObserveSystems(3)
	m.ObserveLigand(true)
	m.ObserveLigand(false)
	m.Observe(context.Background(), "reconstruct", true, 20*time.Millisecond)
	m.Observe(context.Background(), "", true, time.Second)

	if got := testutil.ToFloat64(m.entries.WithLabelValues("success")); got != 2 {
		t.Fatalf("success entries = %v", got)
	}
	if got := testutil.ToFloat64(m.systems); got != 3 {
		t.Fatalf("systems = %v", got)
	}
	if got := testutil.ToFloat64(m.ligands.WithLabelValues("invalid")); got != 1 {
		t.Fatalf("invalid ligands = %v", got)
	}
	if got := testutil.ToFloat64(m.results.WithLabelValues("reconstruct", "success")); got != 1 {
		t.Fatalf("stage results = %v", got)
	}
	if n := testutil.CollectAndCount(m.stages); n != 1 {
		t.Fatalf("expected one stage series, got %d", n)
	}
}

func TestPrometheusMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusMetrics(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPrometheusMetrics(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	first.ObserveSystems(1)
	second.ObserveSystems(1)
	if got := testutil.ToFloat64(second.systems); got != 2 {
		t.Fatalf("shared counter = %v", got)
	}
}

func TestExpvarMetricsRecorderSnapshot(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "plicore_metrics_") {
		t.Fatalf("unexpected name %q", rec.Name())
	}
	rec.Observe(context.Background(), "partition", true, 5*time.Millisecond)
	rec.Observe(context.Background(), "partition", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)
	rec.ObserveEntry(domain.StatusPartial)
	rec.ObserveSystems(2)
	rec.ObserveLigand(false)

	snap := rec.Snapshot()
	if got := snap.Stages["partition"]; got != (StageTotals{Runs: 2, Errors: 1, TotalMS: 10}) {
		t.Fatalf("partition = %+v", got)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("stages = %v", snap.Stages)
	}
	if snap.Entries["partial"] != 1 || snap.Systems != 2 || snap.Ligands["valid"] != 1 {
		t.Fatalf("counters = %+v", snap)
	}
	snap.Entries["partial"] = 99
	if rec.Snapshot().Entries["partial"] != 1 {
		t.Fatalf("snapshot shares state with the recorder")
	}
	if v := expvar.Get(rec.Name()); v == nil || !strings.Contains(v.String(), "systems_total") {
		t.Fatalf("expvar export missing")
	}
}

func TestStageRecordsSpanAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	rec := NewExpvarMetricsRecorder("")
	boom := errors.New("boom")
	ctx := WithEntry(context.Background(), "6lu7")

	if err := Stage(ctx, rec, tracer, "read", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := Stage(context.Background(), rec, tracer, "write", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	spans := tracer.Spans()
	if len(spans) != 2 || !spans[0].OK || spans[0].Entry != "6lu7" || spans[1].OK || spans[1].Error != "boom" || spans[1].Entry != "" {
		t.Fatalf("spans = %+v", spans)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two json lines, got %q", buf.String())
	}
	var decoded SpanRecord
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil || decoded.Stage != "read" || decoded.Entry != "6lu7" {
		t.Fatalf("decode: %v %+v", err, decoded)
	}
	if rec.Snapshot().Stages["write"].Errors != 1 {
		t.Fatalf("metrics not recorded")
	}
	if err := Stage(context.Background(), nil, nil, "noop", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("nil collaborators: %v", err)
	}
	if EntryFromContext(context.Background()) != "" {
		t.Fatalf("unexpected entry on empty context")
	}
}
