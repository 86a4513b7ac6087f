package domain

import (
	"context"
	"fmt"
	"time"
)

// LigandRecord is the indexed summary of one ligand of a system.
type LigandRecord struct {
	Label      string `json:"label"`
	CCDCode    string `json:"ccd_code"`
	IsCovalent bool   `json:"is_covalent"`
	IsInvalid  bool   `json:"is_invalid"`
}

// SystemRecord is the indexed summary of one system.
type SystemRecord struct {
	SystemID  string         `json:"system_id"`
	EntryID   string         `json:"entry_id"`
	Assembly  string         `json:"assembly"`
	Type      SystemType     `json:"type"`
	Receptors []string       `json:"receptor_chains"`
	Ligands   []LigandRecord `json:"ligands"`
}

// Record summarises s for the index.
func (s System) Record() SystemRecord {
	rec := SystemRecord{SystemID: s.ID, EntryID: s.EntryID, Assembly: s.Assembly, Type: s.Type}
	for _, r := range s.Receptors {
		rec.Receptors = append(rec.Receptors, r.String())
	}
	for _, l := range s.Ligands {
		rec.Ligands = append(rec.Ligands, LigandRecord{
			Label:      l.Label.String(),
			CCDCode:    l.CCDCode,
			IsCovalent: l.IsCovalent,
			IsInvalid:  l.IsInvalid,
		})
	}
	return rec
}

// RunRecord tracks one batch run.
type RunRecord struct {
	ID         string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Entries    int       `json:"entries"`
	Succeeded  int       `json:"succeeded"`
	Partial    int       `json:"partial"`
	Failed     int       `json:"failed"`
	// Config is the JSON rendering of the run configuration.
	Config string `json:"config,omitempty"`
}

// Count adds one entry outcome to the run totals.
func (r *RunRecord) Count(status EntryStatus) {
	r.Entries++
	switch status {
	case StatusSuccess:
		r.Succeeded++
	case StatusPartial:
		r.Partial++
	default:
		r.Failed++
	}
}

// AuditEntry is one line of the run audit trail.
type AuditEntry struct {
	ID         string      `json:"id"`
	RunID      string      `json:"run_id"`
	Action     string      `json:"action"`
	EntryID    string      `json:"entry_id,omitempty"`
	Status     EntryStatus `json:"status,omitempty"`
	Detail     string      `json:"detail,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Audit actions.
const (
	AuditRunStarted    = "run.started"
	AuditRunFinished   = "run.finished"
	AuditEntryIndexed  = "entry.indexed"
	AuditEntryRejected = "entry.rejected"
)

// EntryFilter narrows Entries. Zero fields match everything.
type EntryFilter struct {
	Status EntryStatus
	RunID  string
	Limit  int
}

// Matches reports whether r passes the filter, ignoring Limit.
func (f EntryFilter) Matches(r EntryReport) bool {
	return (f.Status == "" || r.Status == f.Status) && (f.RunID == "" || r.RunID == f.RunID)
}

// SystemFilter narrows Systems. Zero fields match everything.
type SystemFilter struct {
	EntryID string
	CCDCode string
	Limit   int
}

// Matches reports whether s passes the filter, ignoring Limit.
func (f SystemFilter) Matches(s SystemRecord) bool {
	if f.EntryID != "" && s.EntryID != f.EntryID {
		return false
	}
	if f.CCDCode == "" {
		return true
	}
	for _, l := range s.Ligands {
		if l.CCDCode == f.CCDCode {
			return true
		}
	}
	return false
}

// NotFoundError reports a missing index record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

// AnnotationIndex is the queryable record of annotation runs, entry
// outcomes and the systems they produced. Implementations must be safe for
// concurrent use.
type AnnotationIndex interface {
	SaveRun(ctx context.Context, run RunRecord) error
	Run(ctx context.Context, id string) (RunRecord, error)
	// PutEntry stores report and replaces the systems indexed for the entry.
	PutEntry(ctx context.Context, report EntryReport, systems []SystemRecord) error
	Entry(ctx context.Context, id string) (EntryReport, error)
	Entries(ctx context.Context, f EntryFilter) ([]EntryReport, error)
	Systems(ctx context.Context, f SystemFilter) ([]SystemRecord, error)
	RecordAudit(ctx context.Context, e AuditEntry) error
	Audit(ctx context.Context, runID string) ([]AuditEntry, error)
	Close() error
}
