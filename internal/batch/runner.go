// Package batch annotates many entries concurrently. Each entry runs the
// pipeline, the validation and affinity joins, artifact persistence and
// indexing; a failing entry is recorded as failed and the batch continues.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"plicore/internal/annotate"
	"plicore/internal/artifact"
	"plicore/internal/core"
	"plicore/internal/validation"
	"plicore/pkg/domain"
)

// Annotator produces an annotated entry from a structure file.
type Annotator interface {
	AnnotateEntry(ctx context.Context, path string) (*annotate.Result, error)
}

// Options configure a Runner.
type Options struct {
	// Workers bounds concurrent entries; 0 uses GOMAXPROCS.
	Workers int
	// Validation, when set, fills the quality columns of the annotation.
	Validation *validation.Table
	Criteria   validation.Criteria
	// Affinities, when set, fills the binding affinity columns.
	Affinities validation.Affinities
	// Config is recorded verbatim on the run.
	Config string
}

// Deps are the collaborators of a Runner. Annotator and Writer are
// required; a nil Index skips indexing.
type Deps struct {
	Annotator Annotator
	Writer    *artifact.Writer
	Index     domain.AnnotationIndex
	Metrics   core.Metrics
	Tracer    core.Tracer
	Logger    *slog.Logger
}

// Summary is the outcome of a run. Reports are in input order.
type Summary struct {
	Run     domain.RunRecord
	Reports []domain.EntryReport
}

// Runner executes batches. It is safe to call Run concurrently.
type Runner struct {
	deps  Deps
	opts  Options
	now   func() time.Time
	newID func() string
}

// NewRunner validates deps and returns a Runner.
func NewRunner(deps Deps, opts Options) (*Runner, error) {
	if deps.Annotator == nil {
		return nil, errors.New("batch: annotator required")
	}
	if deps.Writer == nil {
		return nil, errors.New("batch: artifact writer required")
	}
	if deps.Metrics == nil {
		deps.Metrics = core.NopMetrics{}
	}
	if deps.Tracer == nil {
		deps.Tracer = core.NopTracer{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Criteria == (validation.Criteria{}) {
		opts.Criteria = validation.DefaultCriteria()
	}
	return &Runner{deps: deps, opts: opts, now: time.Now, newID: uuid.NewString}, nil
}

// EntryID derives an entry id from a structure path: the lowercased base
// name without .gz and .cif suffixes.
func EntryID(path string) string {
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".cif")
	return base
}

// Run annotates every path. Entry failures are reported, not returned; the
// error is non-nil only when the index cannot be written or ctx ends.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	run := domain.RunRecord{ID: r.newID(), StartedAt: r.now().UTC(), Config: r.opts.Config}
	log := r.deps.Logger.With("run", run.ID)
	if err := r.begin(ctx, run); err != nil {
		return Summary{Run: run}, err
	}
	log.Info("batch started", "entries", len(paths), "workers", r.opts.Workers)

	reports := make([]domain.EntryReport, len(paths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, systems := r.entry(gctx, run.ID, path, log)
			if err := r.index(gctx, report, systems); err != nil {
				return err
			}
			mu.Lock()
			reports[i] = report
			run.Count(report.Status)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	run.FinishedAt = r.now().UTC()
	if ferr := r.finish(context.WithoutCancel(ctx), run); ferr != nil {
		err = errors.Join(err, ferr)
	}
	log.Info("batch finished", "entries", run.Entries, "succeeded", run.Succeeded,
		"partial", run.Partial, "failed", run.Failed, "elapsed", run.FinishedAt.Sub(run.StartedAt))
	return Summary{Run: run, Reports: reports}, err
}

// entry processes one structure file and always returns a report.
func (r *Runner) entry(ctx context.Context, runID, path string, log *slog.Logger) (domain.EntryReport, []domain.SystemRecord) {
	started := r.now()
	report := domain.EntryReport{EntryID: EntryID(path), RunID: runID, StartedAt: started.UTC()}
	var systems []domain.SystemRecord
	ctx = core.WithEntry(ctx, report.EntryID)

	err := core.Stage(ctx, r.deps.Metrics, r.deps.Tracer, "entry", func(ctx context.Context) error {
		res, err := r.deps.Annotator.AnnotateEntry(ctx, path)
		if err != nil {
			return err
		}
		rows := validation.Rows(res.Entry)
		if r.opts.Validation != nil {
			rows = validation.Join(rows, r.opts.Validation, r.opts.Criteria)
		}
		if r.opts.Affinities != nil {
			rows = r.opts.Affinities.Apply(rows)
		}
		written, werr := r.deps.Writer.WriteEntry(ctx, res, rows)
		written.RunID, written.StartedAt = report.RunID, report.StartedAt
		report = written
		if res.Entry.Status == domain.StatusPartial && report.Status == domain.StatusSuccess {
			report.Status = domain.StatusPartial
		}
		for _, b := range res.Systems {
			if !failedSystem(report.Failed, b.System.ID) {
				systems = append(systems, b.System.Record())
			}
		}
		if werr != nil {
			log.Warn("entry partially persisted", "entry", report.EntryID, "error", werr)
		}
		return nil
	})
	if err != nil {
		report.Status = domain.StatusFailed
		report.Error = err.Error()
		log.Error("entry failed", "entry", report.EntryID, "path", path, "error", err)
	}
	report.Duration = r.now().Sub(started)
	if err := r.deps.Writer.WriteReport(ctx, report); err != nil {
		report.Warnings = append(report.Warnings, err.Error())
		log.Warn("status not persisted", "entry", report.EntryID, "error", err)
	}
	r.deps.Metrics.ObserveEntry(report.Status)
	return report, systems
}

func failedSystem(failed []string, id string) bool {
	for _, f := range failed {
		if f == id {
			return true
		}
	}
	return false
}

func (r *Runner) audit(ctx context.Context, e domain.AuditEntry) error {
	if r.deps.Index == nil {
		return nil
	}
	e.ID = r.newID()
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now().UTC()
	}
	return r.deps.Index.RecordAudit(ctx, e)
}

func (r *Runner) begin(ctx context.Context, run domain.RunRecord) error {
	if r.deps.Index == nil {
		return nil
	}
	if err := r.deps.Index.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return r.audit(ctx, domain.AuditEntry{RunID: run.ID, Action: domain.AuditRunStarted, OccurredAt: run.StartedAt})
}

func (r *Runner) index(ctx context.Context, report domain.EntryReport, systems []domain.SystemRecord) error {
	if r.deps.Index == nil {
		return nil
	}
	if err := r.deps.Index.PutEntry(ctx, report, systems); err != nil {
		return fmt.Errorf("index entry %s: %w", report.EntryID, err)
	}
	action := domain.AuditEntryIndexed
	if report.Status == domain.StatusFailed {
		action = domain.AuditEntryRejected
	}
	return r.audit(ctx, domain.AuditEntry{RunID: report.RunID, Action: action, EntryID: report.EntryID, Status: report.Status, Detail: report.Error})
}

func (r *Runner) finish(ctx context.Context, run domain.RunRecord) error {
	if r.deps.Index == nil {
		return nil
	}
	if err := r.deps.Index.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	detail := fmt.Sprintf("entries=%d succeeded=%d partial=%d failed=%d", run.Entries, run.Succeeded, run.Partial, run.Failed)
	return r.audit(ctx, domain.AuditEntry{RunID: run.ID, Action: domain.AuditRunFinished, Detail: detail, OccurredAt: run.FinishedAt})
}
