package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"plicore/pkg/domain"
)

// PrometheusMetrics exports pipeline counters and stage durations through a
// client_golang registry.
type PrometheusMetrics struct {
	entries *prometheus.CounterVec
	systems prometheus.Counter
	ligands *prometheus.CounterVec
	stages  *prometheus.HistogramVec
	results *prometheus.CounterVec
}

// NewPrometheusMetrics registers the plicore collectors on reg. Collectors
// already registered on reg are reused.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PrometheusMetrics{
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plicore_entries_total",
			Help: "Entries processed, by final status.",
		}, []string{"status"}),
		systems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plicore_systems_total",
			Help: "Systems annotated.",
		}),
		ligands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plicore_ligands_total",
			Help: "Ligands reconstructed, by validity.",
		}, []string{"validity"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plicore_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plicore_stage_results_total",
			Help: "Pipeline stage outcomes.",
		}, []string{"stage", "status"}),
	}
	var err error
	if m.entries, err = register(reg, m.entries); err != nil {
		return nil, err
	}
	if m.systems, err = register(reg, m.systems); err != nil {
		return nil, err
	}
	if m.ligands, err = register(reg, m.ligands); err != nil {
		return nil, err
	}
	if m.stages, err = register(reg, m.stages); err != nil {
		return nil, err
	}
	if m.results, err = register(reg, m.results); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}

// Observe implements MetricsRecorder.
func (m *PrometheusMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	m.stages.WithLabelValues(operation).Observe(duration.Seconds())
	m.results.WithLabelValues(operation, status).Inc()
}

// ObserveEntry implements Metrics.
func (m *PrometheusMetrics) ObserveEntry(status domain.EntryStatus) {
	m.entries.WithLabelValues(string(status)).Inc()
}

// ObserveSystems implements Metrics.
func (m *PrometheusMetrics) ObserveSystems(n int) {
	m.systems.Add(float64(n))
}

// ObserveLigand implements Metrics.
func (m *PrometheusMetrics) ObserveLigand(invalid bool) {
	validity := "valid"
	if invalid {
		validity = "invalid"
	}
	m.ligands.WithLabelValues(validity).Inc()
}
