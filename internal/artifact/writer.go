// Package artifact persists annotated systems as the per-system folder
// layout ({system_id}/receptor.cif, ligand_files/{label}.sdf, ...) plus the
// entry-level annotation table and status report, through a blob.Store.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"plicore/internal/annotate"
	"plicore/internal/blob"
	"plicore/internal/validation"
	"plicore/pkg/domain"
)

// Options control artifact rendering.
type Options struct {
	// AddHydrogens keeps hydrogens in ligand SDF files.
	AddHydrogens bool
	// FASTAColumns wraps sequence lines; 0 writes each sequence on one line.
	FASTAColumns int
}

// SystemError reports a system whose artifacts could not be persisted.
type SystemError struct {
	SystemID string
	Err      error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("persist system %s: %v", e.SystemID, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// AnnotationKey is the key of an entry's annotation table.
func AnnotationKey(entryID string) string { return entryID + "__annotation.tsv" }

// StatusKey is the key of an entry's status report.
func StatusKey(entryID string) string { return entryID + "__status.json" }

// Writer renders and stores artifacts. It is safe for concurrent use when
// the store is.
type Writer struct {
	store  blob.Store
	opts   Options
	logger *slog.Logger
}

// NewWriter returns a Writer over store.
func NewWriter(store blob.Store, opts Options, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{store: store, opts: opts, logger: logger}
}

// Store returns the underlying blob store.
func (w *Writer) Store() blob.Store { return w.store }

// WriteSystem replaces the folder of one system. Files left over from an
// earlier run are removed first; when a write fails the files written so far
// are deleted again and a *SystemError is returned. Rendering warnings, such
// as a receptor too large for the PDB format, are returned alongside.
func (w *Writer) WriteSystem(ctx context.Context, entry *domain.Entry, b *annotate.SystemBundle) ([]blob.Info, []string, error) {
	id := b.System.ID
	files, warnings, err := renderSystem(entry, b, w.opts)
	if err != nil {
		return nil, nil, &SystemError{SystemID: id, Err: err}
	}
	prefix := id + "/"
	if err := w.clear(ctx, prefix); err != nil {
		return nil, warnings, &SystemError{SystemID: id, Err: err}
	}
	md := map[string]string{"system_id": id, "entry_id": entry.ID}
	infos := make([]blob.Info, 0, len(files))
	for _, f := range files {
		info, err := w.store.Put(ctx, prefix+f.name, bytes.NewReader(f.data), blob.PutOptions{Metadata: md, Overwrite: true})
		if err != nil {
			w.rollback(ctx, infos)
			return nil, warnings, &SystemError{SystemID: id, Err: fmt.Errorf("write %s: %w", f.name, err)}
		}
		infos = append(infos, info)
	}
	for _, warn := range warnings {
		w.logger.Warn("system artifact warning", "entry", entry.ID, "system", id, "warning", warn)
	}
	return infos, warnings, nil
}

func (w *Writer) clear(ctx context.Context, prefix string) error {
	stale, err := w.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	for _, inf := range stale {
		if _, err := w.store.Delete(ctx, inf.Key); err != nil {
			return fmt.Errorf("remove stale %s: %w", inf.Key, err)
		}
	}
	return nil
}

func (w *Writer) rollback(ctx context.Context, written []blob.Info) {
	for _, inf := range written {
		if _, err := w.store.Delete(ctx, inf.Key); err != nil {
			w.logger.Warn("cleanup after failed system write", "key", inf.Key, "error", err)
		}
	}
}

// WriteEntry persists every system of res and the entry's annotation table.
// A failing system is logged, recorded in the report and skipped; the next
// system proceeds. The returned report has Status partial when anything
// failed; timing fields are left for the caller.
func (w *Writer) WriteEntry(ctx context.Context, res *annotate.Result, rows []validation.AnnotatedRow) (domain.EntryReport, error) {
	entry := &res.Entry
	report := domain.EntryReport{
		EntryID:  entry.ID,
		Status:   domain.StatusSuccess,
		Systems:  len(res.Systems),
		Warnings: append([]string(nil), entry.Warnings...),
	}
	var errs []error
	for i := range res.Systems {
		b := &res.Systems[i]
		_, warnings, err := w.WriteSystem(ctx, entry, b)
		report.Warnings = append(report.Warnings, warnings...)
		if err != nil {
			w.logger.Error("system not persisted", "entry", entry.ID, "system", b.System.ID, "error", err)
			report.Failed = append(report.Failed, b.System.ID)
			errs = append(errs, err)
		}
	}
	if err := w.WriteAnnotation(ctx, entry.ID, rows); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		report.Status = domain.StatusPartial
	}
	return report, errors.Join(errs...)
}

// WriteAnnotation stores the annotated rows of an entry as TSV.
func (w *Writer) WriteAnnotation(ctx context.Context, entryID string, rows []validation.AnnotatedRow) error {
	var buf bytes.Buffer
	if err := validation.WriteTSV(&buf, rows); err != nil {
		return fmt.Errorf("render annotation of %s: %w", entryID, err)
	}
	if _, err := w.store.Put(ctx, AnnotationKey(entryID), &buf, blob.PutOptions{Overwrite: true, Metadata: map[string]string{"entry_id": entryID}}); err != nil {
		return fmt.Errorf("write annotation of %s: %w", entryID, err)
	}
	return nil
}

// WriteReport stores the status report of an entry.
func (w *Writer) WriteReport(ctx context.Context, report domain.EntryReport) error {
	b, err := marshalJSON(report)
	if err != nil {
		return fmt.Errorf("render status of %s: %w", report.EntryID, err)
	}
	if _, err := w.store.Put(ctx, StatusKey(report.EntryID), bytes.NewReader(b), blob.PutOptions{Overwrite: true, Metadata: map[string]string{"entry_id": report.EntryID, "status": string(report.Status)}}); err != nil {
		return fmt.Errorf("write status of %s: %w", report.EntryID, err)
	}
	return nil
}

// ReadReport loads the status report of an entry.
func (w *Writer) ReadReport(ctx context.Context, entryID string) (domain.EntryReport, error) {
	_, rc, err := w.store.Get(ctx, StatusKey(entryID))
	if err != nil {
		return domain.EntryReport{}, err
	}
	defer rc.Close()
	var report domain.EntryReport
	if err := json.NewDecoder(rc).Decode(&report); err != nil {
		return domain.EntryReport{}, fmt.Errorf("decode status of %s: %w", entryID, err)
	}
	return report, nil
}

// SystemFiles lists the artifacts of a system. When expiry is positive each
// file gets a URL from the store; stores without URL support leave it as
// listed.
func (w *Writer) SystemFiles(ctx context.Context, systemID string, expiry time.Duration) ([]blob.Info, error) {
	infos, err := w.store.List(ctx, systemID+"/")
	if err != nil {
		return nil, fmt.Errorf("list system %s: %w", systemID, err)
	}
	if expiry <= 0 {
		return infos, nil
	}
	for i := range infos {
		url, err := w.store.PresignURL(ctx, infos[i].Key, blob.SignedURLOptions{Expiry: expiry})
		switch {
		case errors.Is(err, blob.ErrUnsupported):
		case err != nil:
			return nil, fmt.Errorf("sign %s: %w", infos[i].Key, err)
		default:
			infos[i].URL = url
		}
	}
	return infos, nil
}

// Open returns a reader over one stored artifact.
func (w *Writer) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_, rc, err := w.store.Get(ctx, key)
	return rc, err
}
