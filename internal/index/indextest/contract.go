// Package indextest holds the behaviour every domain.AnnotationIndex driver
// must share.
package indextest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"plicore/pkg/domain"
)

// Run exercises idx against the index contract. idx must be empty.
func Run(t *testing.T, idx domain.AnnotationIndex) {
	t.Helper()
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("runs", func(t *testing.T) {
		run := domain.RunRecord{ID: "run-1", StartedAt: started, Config: `{"workers":2}`}
		if err := idx.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
		run.Count(domain.StatusSuccess)
		run.Count(domain.StatusFailed)
		run.FinishedAt = started.Add(time.Minute)
		if err := idx.SaveRun(ctx, run); err != nil {
			t.Fatalf("finish run: %v", err)
		}
		got, err := idx.Run(ctx, "run-1")
		if err != nil {
			t.Fatalf("load run: %v", err)
		}
		if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(run.FinishedAt) || got.Entries != 2 || got.Failed != 1 || got.Config != run.Config {
			t.Fatalf("run = %+v", got)
		}
		var nf domain.NotFoundError
		if _, err := idx.Run(ctx, "missing"); !errors.As(err, &nf) || nf.Kind != "run" {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		if err := idx.SaveRun(ctx, domain.RunRecord{}); err == nil {
			t.Fatalf("expected error for empty run id")
		}
	})

	sys := func(id, entry string, codes ...string) domain.SystemRecord {
		r := domain.SystemRecord{SystemID: id, EntryID: entry, Assembly: "1", Type: domain.SystemHolo, Receptors: []string{"1.A"}}
		for i, c := range codes {
			r.Ligands = append(r.Ligands, domain.LigandRecord{Label: fmt.Sprintf("1.%c", 'B'+i), CCDCode: c, IsCovalent: c == "PJE"})
		}
		return r
	}

	t.Run("entries", func(t *testing.T) {
		ok := domain.EntryReport{EntryID: "6lu7", RunID: "run-1", Status: domain.StatusSuccess, Systems: 2, Warnings: []string{"chain C: unknown role"}, Duration: 3 * time.Second, StartedAt: started}
		bad := domain.EntryReport{EntryID: "9bad", RunID: "run-1", Status: domain.StatusFailed, Error: "parse 9bad.cif: unexpected EOF", StartedAt: started}
		if err := idx.PutEntry(ctx, ok, []domain.SystemRecord{sys("6lu7__1__1.A__1.C", "6lu7", "PJE"), sys("6lu7__1__1.A__1.B", "6lu7", "PJE", "SO4")}); err != nil {
			t.Fatalf("put 6lu7: %v", err)
		}
		if err := idx.PutEntry(ctx, bad, nil); err != nil {
			t.Fatalf("put 9bad: %v", err)
		}
		got, err := idx.Entry(ctx, "6lu7")
		if err != nil {
			t.Fatalf("entry: %v", err)
		}
		if got.Status != domain.StatusSuccess || got.Systems != 2 || len(got.Warnings) != 1 || got.Duration != 3*time.Second || !got.StartedAt.Equal(started) || got.RunID != "run-1" {
			t.Fatalf("entry = %+v", got)
		}
		failed, err := idx.Entries(ctx, domain.EntryFilter{Status: domain.StatusFailed})
		if err != nil || len(failed) != 1 || failed[0].Error != bad.Error {
			t.Fatalf("failed entries = %+v %v", failed, err)
		}
		all, err := idx.Entries(ctx, domain.EntryFilter{RunID: "run-1"})
		if err != nil || len(all) != 2 || all[0].EntryID != "6lu7" {
			t.Fatalf("run entries = %+v %v", all, err)
		}
		if limited, _ := idx.Entries(ctx, domain.EntryFilter{Limit: 1}); len(limited) != 1 {
			t.Fatalf("limit not applied: %d", len(limited))
		}
		var nf domain.NotFoundError
		if _, err := idx.Entry(ctx, "0000"); !errors.As(err, &nf) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("systems", func(t *testing.T) {
		list, err := idx.Systems(ctx, domain.SystemFilter{EntryID: "6lu7"})
		if err != nil || len(list) != 2 {
			t.Fatalf("systems = %+v %v", list, err)
		}
		if list[0].SystemID != "6lu7__1__1.A__1.B" || len(list[0].Ligands) != 2 || list[0].Ligands[1].CCDCode != "SO4" || !list[0].Ligands[0].IsCovalent {
			t.Fatalf("system = %+v", list[0])
		}
		if len(list[0].Receptors) != 1 || list[0].Receptors[0] != "1.A" || list[0].Type != domain.SystemHolo {
			t.Fatalf("system receptors = %+v", list[0])
		}
		byCode, err := idx.Systems(ctx, domain.SystemFilter{CCDCode: "SO4"})
		if err != nil || len(byCode) != 1 {
			t.Fatalf("systems with SO4 = %+v %v", byCode, err)
		}
		// Re-annotation replaces the entry's systems.
		if err := idx.PutEntry(ctx, domain.EntryReport{EntryID: "6lu7", Status: domain.StatusPartial, Systems: 1, Failed: []string{"6lu7__1__1.A__1.B"}}, []domain.SystemRecord{sys("6lu7__1__1.A__1.C", "6lu7", "PJE")}); err != nil {
			t.Fatalf("replace: %v", err)
		}
		list, _ = idx.Systems(ctx, domain.SystemFilter{EntryID: "6lu7"})
		if len(list) != 1 {
			t.Fatalf("systems after replace = %+v", list)
		}
		if byCode, _ := idx.Systems(ctx, domain.SystemFilter{CCDCode: "SO4"}); len(byCode) != 0 {
			t.Fatalf("stale ligand rows: %+v", byCode)
		}
		got, _ := idx.Entry(ctx, "6lu7")
		if got.Status != domain.StatusPartial || len(got.Failed) != 1 {
			t.Fatalf("replaced entry = %+v", got)
		}
	})

	t.Run("audit", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- idx.RecordAudit(ctx, domain.AuditEntry{ID: fmt.Sprintf("a-%d", i), RunID: "run-2", Action: domain.AuditEntryIndexed, EntryID: fmt.Sprintf("%04d", i), Status: domain.StatusSuccess, OccurredAt: started})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("record audit: %v", err)
			}
		}
		if err := idx.RecordAudit(ctx, domain.AuditEntry{ID: "a-0", RunID: "run-2", Action: domain.AuditRunFinished, OccurredAt: started}); err == nil {
			t.Fatalf("expected duplicate audit id to fail")
		}
		trail, err := idx.Audit(ctx, "run-2")
		if err != nil || len(trail) != 8 {
			t.Fatalf("audit = %d %v", len(trail), err)
		}
		if !trail[0].OccurredAt.Equal(started) || trail[0].Action != domain.AuditEntryIndexed {
			t.Fatalf("audit entry = %+v", trail[0])
		}
		if other, _ := idx.Audit(ctx, "run-1"); len(other) != 0 {
			t.Fatalf("audit leaked across runs: %+v", other)
		}
	})
}
