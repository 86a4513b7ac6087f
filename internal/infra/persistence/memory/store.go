// Package memory provides an in-memory annotation index used for tests and
// ephemeral runs.
package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"plicore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.AnnotationIndex = (*Store)(nil)

// Store keeps runs, entries, systems and the audit trail in maps guarded by
// one lock. Values are copied on the way in and out.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]domain.RunRecord
	entries map[string]domain.EntryReport
	systems map[string][]domain.SystemRecord
	audit   []domain.AuditEntry
	seen    map[string]struct{}
}

// NewStore returns an empty index.
func NewStore() *Store {
	return &Store{
		runs:    map[string]domain.RunRecord{},
		entries: map[string]domain.EntryReport{},
		systems: map[string][]domain.SystemRecord{},
		seen:    map[string]struct{}{},
	}
}

func cloneReport(r domain.EntryReport) domain.EntryReport {
	r.Failed = slices.Clone(r.Failed)
	r.Warnings = slices.Clone(r.Warnings)
	return r
}

func cloneSystem(s domain.SystemRecord) domain.SystemRecord {
	s.Receptors = slices.Clone(s.Receptors)
	s.Ligands = slices.Clone(s.Ligands)
	return s
}

// SaveRun inserts or updates a run. The start time of an existing run is
// kept.
func (s *Store) SaveRun(_ context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return errors.New("run id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.runs[run.ID]; ok {
		run.StartedAt = prev.StartedAt
	}
	s.runs[run.ID] = run
	return nil
}

// Run loads a run.
func (s *Store) Run(_ context.Context, id string) (domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return domain.RunRecord{}, domain.NotFoundError{Kind: "run", ID: id}
	}
	return r, nil
}

// PutEntry stores report and replaces the entry's systems.
func (s *Store) PutEntry(_ context.Context, report domain.EntryReport, systems []domain.SystemRecord) error {
	if report.EntryID == "" {
		return errors.New("entry id required")
	}
	copied := make([]domain.SystemRecord, len(systems))
	for i, sys := range systems {
		sys = cloneSystem(sys)
		sys.EntryID = report.EntryID
		copied[i] = sys
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[report.EntryID] = cloneReport(report)
	s.systems[report.EntryID] = copied
	return nil
}

// Entry loads the report of one entry.
func (s *Store) Entry(_ context.Context, id string) (domain.EntryReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.entries[id]
	if !ok {
		return domain.EntryReport{}, domain.NotFoundError{Kind: "entry", ID: id}
	}
	return cloneReport(r), nil
}

// Entries lists reports ordered by entry id.
func (s *Store) Entries(_ context.Context, f domain.EntryFilter) ([]domain.EntryReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.EntryReport
	for _, r := range s.entries {
		if f.Matches(r) {
			out = append(out, cloneReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Systems lists systems ordered by system id.
func (s *Store) Systems(_ context.Context, f domain.SystemFilter) ([]domain.SystemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SystemRecord
	for _, list := range s.systems {
		for _, sys := range list {
			if f.Matches(sys) {
				out = append(out, cloneSystem(sys))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SystemID < out[j].SystemID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// RecordAudit appends an audit entry. Ids must be unique.
func (s *Store) RecordAudit(_ context.Context, e domain.AuditEntry) error {
	if e.ID == "" {
		return errors.New("audit id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[e.ID]; dup {
		return errors.New("duplicate audit id " + e.ID)
	}
	s.seen[e.ID] = struct{}{}
	s.audit = append(s.audit, e)
	return nil
}

// Audit returns the trail of a run in the order it was recorded.
func (s *Store) Audit(_ context.Context, runID string) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AuditEntry
	for _, e := range s.audit {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
