// Package sqlstore implements domain.AnnotationIndex over database/sql. The
// sqlite and postgres drivers share it and differ only in placeholder
// syntax and migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"plicore/pkg/domain"
)

var _ domain.AnnotationIndex = (*Store)(nil)

// Dialect describes the SQL differences between drivers.
type Dialect struct {
	Goose goose.Dialect
	// Numbered placeholders ($1, $2, ...) instead of "?".
	Numbered bool
}

// Store is a database/sql backed annotation index.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Migrate applies the migrations in fsys (a directory of goose .sql files).
func Migrate(ctx context.Context, db *sql.DB, d Dialect, fsys fs.FS) error {
	p, err := goose.NewProvider(d.Goose, db, fsys)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// New wraps an open, migrated database.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// bind rewrites "?" placeholders for numbered dialects.
func (s *Store) bind(q string) string {
	if !s.dialect.Numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func decodeList(s string) ([]string, error) {
	var out []string
	if s == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

const upsertRun = `INSERT INTO runs(run_id, started_at_ns, finished_at_ns, entries, succeeded, partial, failed, config)
VALUES(?,?,?,?,?,?,?,?)
ON CONFLICT(run_id) DO UPDATE SET finished_at_ns=excluded.finished_at_ns, entries=excluded.entries,
succeeded=excluded.succeeded, partial=excluded.partial, failed=excluded.failed, config=excluded.config`

// SaveRun inserts or updates a run.
func (s *Store) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return errors.New("run id required")
	}
	cfg := run.Config
	if cfg == "" {
		cfg = "{}"
	}
	_, err := s.db.ExecContext(ctx, s.bind(upsertRun), run.ID, nanos(run.StartedAt), nanos(run.FinishedAt),
		run.Entries, run.Succeeded, run.Partial, run.Failed, cfg)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Run loads a run.
func (s *Store) Run(ctx context.Context, id string) (domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT run_id, started_at_ns, finished_at_ns, entries, succeeded, partial, failed, config FROM runs WHERE run_id=?`), id)
	var r domain.RunRecord
	var started, finished int64
	if err := row.Scan(&r.ID, &started, &finished, &r.Entries, &r.Succeeded, &r.Partial, &r.Failed, &r.Config); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunRecord{}, domain.NotFoundError{Kind: "run", ID: id}
		}
		return domain.RunRecord{}, fmt.Errorf("load run %s: %w", id, err)
	}
	r.StartedAt, r.FinishedAt = fromNanos(started), fromNanos(finished)
	return r, nil
}

const upsertEntry = `INSERT INTO entries(entry_id, run_id, status, systems, failed_systems, warnings, error, duration_ns, started_at_ns)
VALUES(?,?,?,?,?,?,?,?,?)
ON CONFLICT(entry_id) DO UPDATE SET run_id=excluded.run_id, status=excluded.status, systems=excluded.systems,
failed_systems=excluded.failed_systems, warnings=excluded.warnings, error=excluded.error,
duration_ns=excluded.duration_ns, started_at_ns=excluded.started_at_ns`

// PutEntry stores the report and replaces the entry's systems in one
// transaction.
func (s *Store) PutEntry(ctx context.Context, report domain.EntryReport, systems []domain.SystemRecord) (retErr error) {
	if report.EntryID == "" {
		return errors.New("entry id required")
	}
	failed, err := encodeList(report.Failed)
	if err != nil {
		return err
	}
	warnings, err := encodeList(report.Warnings)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, s.bind(upsertEntry), report.EntryID, report.RunID, string(report.Status), report.Systems,
		failed, warnings, report.Error, int64(report.Duration), nanos(report.StartedAt)); err != nil {
		return fmt.Errorf("upsert entry %s: %w", report.EntryID, err)
	}
	if _, err := tx.ExecContext(ctx, s.bind(`DELETE FROM system_ligands WHERE system_id IN (SELECT system_id FROM systems WHERE entry_id=?)`), report.EntryID); err != nil {
		return fmt.Errorf("clear ligands of %s: %w", report.EntryID, err)
	}
	if _, err := tx.ExecContext(ctx, s.bind(`DELETE FROM systems WHERE entry_id=?`), report.EntryID); err != nil {
		return fmt.Errorf("clear systems of %s: %w", report.EntryID, err)
	}
	for _, sys := range systems {
		receptors, err := encodeList(sys.Receptors)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO systems(system_id, entry_id, assembly, type, receptors) VALUES(?,?,?,?,?)`),
			sys.SystemID, report.EntryID, sys.Assembly, string(sys.Type), receptors); err != nil {
			return fmt.Errorf("insert system %s: %w", sys.SystemID, err)
		}
		for i, l := range sys.Ligands {
			if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO system_ligands(system_id, position, label, ccd_code, is_covalent, is_invalid) VALUES(?,?,?,?,?,?)`),
				sys.SystemID, i, l.Label, l.CCDCode, l.IsCovalent, l.IsInvalid); err != nil {
				return fmt.Errorf("insert ligand %s of %s: %w", l.Label, sys.SystemID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entry %s: %w", report.EntryID, err)
	}
	return nil
}

const selectEntry = `SELECT entry_id, run_id, status, systems, failed_systems, warnings, error, duration_ns, started_at_ns FROM entries`

func scanEntry(sc interface{ Scan(...any) error }) (domain.EntryReport, error) {
	var r domain.EntryReport
	var status, failed, warnings string
	var duration, started int64
	if err := sc.Scan(&r.EntryID, &r.RunID, &status, &r.Systems, &failed, &warnings, &r.Error, &duration, &started); err != nil {
		return domain.EntryReport{}, err
	}
	var err error
	if r.Failed, err = decodeList(failed); err != nil {
		return domain.EntryReport{}, fmt.Errorf("decode failed systems of %s: %w", r.EntryID, err)
	}
	if r.Warnings, err = decodeList(warnings); err != nil {
		return domain.EntryReport{}, fmt.Errorf("decode warnings of %s: %w", r.EntryID, err)
	}
	r.Status = domain.EntryStatus(status)
	r.Duration = time.Duration(duration)
	r.StartedAt = fromNanos(started)
	return r, nil
}

// Entry loads the report of one entry.
func (s *Store) Entry(ctx context.Context, id string) (domain.EntryReport, error) {
	r, err := scanEntry(s.db.QueryRowContext(ctx, s.bind(selectEntry+` WHERE entry_id=?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EntryReport{}, domain.NotFoundError{Kind: "entry", ID: id}
	}
	if err != nil {
		return domain.EntryReport{}, fmt.Errorf("load entry %s: %w", id, err)
	}
	return r, nil
}

// Entries lists reports ordered by entry id.
func (s *Store) Entries(ctx context.Context, f domain.EntryFilter) ([]domain.EntryReport, error) {
	q := selectEntry + ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		q += ` AND status=?`
		args = append(args, string(f.Status))
	}
	if f.RunID != "" {
		q += ` AND run_id=?`
		args = append(args, f.RunID)
	}
	q += ` ORDER BY entry_id`
	if f.Limit > 0 {
		q += ` LIMIT ` + strconv.Itoa(f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, s.bind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.EntryReport
	for rows.Next() {
		r, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// Systems lists systems ordered by system id, each with its ligands in
// system order.
func (s *Store) Systems(ctx context.Context, f domain.SystemFilter) ([]domain.SystemRecord, error) {
	q := `SELECT system_id, entry_id, assembly, type, receptors FROM systems WHERE 1=1`
	var args []any
	if f.EntryID != "" {
		q += ` AND entry_id=?`
		args = append(args, f.EntryID)
	}
	if f.CCDCode != "" {
		q += ` AND system_id IN (SELECT system_id FROM system_ligands WHERE ccd_code=?)`
		args = append(args, f.CCDCode)
	}
	q += ` ORDER BY system_id`
	if f.Limit > 0 {
		q += ` LIMIT ` + strconv.Itoa(f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, s.bind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	var out []domain.SystemRecord
	for rows.Next() {
		var r domain.SystemRecord
		var typ, receptors string
		if err := rows.Scan(&r.SystemID, &r.EntryID, &r.Assembly, &typ, &receptors); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan system: %w", err)
		}
		r.Type = domain.SystemType(typ)
		if r.Receptors, err = decodeList(receptors); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode receptors of %s: %w", r.SystemID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate systems: %w", err)
	}
	_ = rows.Close()
	for i := range out {
		if out[i].Ligands, err = s.ligands(ctx, out[i].SystemID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) ligands(ctx context.Context, systemID string) ([]domain.LigandRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT label, ccd_code, is_covalent, is_invalid FROM system_ligands WHERE system_id=? ORDER BY position`), systemID)
	if err != nil {
		return nil, fmt.Errorf("list ligands of %s: %w", systemID, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.LigandRecord
	for rows.Next() {
		var l domain.LigandRecord
		if err := rows.Scan(&l.Label, &l.CCDCode, &l.IsCovalent, &l.IsInvalid); err != nil {
			return nil, fmt.Errorf("scan ligand of %s: %w", systemID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RecordAudit appends an audit entry.
func (s *Store) RecordAudit(ctx context.Context, e domain.AuditEntry) error {
	if e.ID == "" {
		return errors.New("audit id required")
	}
	_, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO audit(audit_id, run_id, action, entry_id, status, detail, occurred_at_ns) VALUES(?,?,?,?,?,?,?)`),
		e.ID, e.RunID, e.Action, e.EntryID, string(e.Status), e.Detail, nanos(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("record audit %s: %w", e.Action, err)
	}
	return nil
}

// Audit returns the trail of a run in the order it was recorded.
func (s *Store) Audit(ctx context.Context, runID string) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT audit_id, run_id, action, entry_id, status, detail, occurred_at_ns FROM audit WHERE run_id=? ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("list audit of %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var status string
		var at int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Action, &e.EntryID, &status, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Status = domain.EntryStatus(status)
		e.OccurredAt = fromNanos(at)
		out = append(out, e)
	}
	return out, rows.Err()
}
