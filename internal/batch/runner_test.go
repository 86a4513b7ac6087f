package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"plicore/internal/annotate"
	"plicore/internal/artifact"
	"plicore/internal/blob"
	"plicore/internal/chem"
	"plicore/internal/core"
	"plicore/internal/infra/persistence/memory"
	"plicore/internal/structure"
	"plicore/internal/validation"
	"plicore/pkg/domain"
)

type fakeAnnotator struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeAnnotator) AnnotateEntry(_ context.Context, path string) (*annotate.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	id := EntryID(path)
	if strings.HasPrefix(id, "bad") {
		return nil, structure.ParseError{Path: path, Err: io.ErrUnexpectedEOF}
	}
	return result(id), nil
}

func result(id string) *annotate.Result {
	protein := &structure.Chain{AsymID: "A", AuthID: "A", EntityID: "1", EntityType: structure.EntityPolymer, PolymerType: "polypeptide(L)",
		Residues: []structure.Residue{{Name: "GLY", SeqID: 1, AuthSeq: 1, Atoms: []structure.Atom{{Name: "CA", Element: "C", Occupancy: 1}}}}}
	lig := &structure.Chain{AsymID: "B", AuthID: "A", EntityID: "2", EntityType: structure.EntityNonPolymer,
		Residues: []structure.Residue{{Name: "SO4", AuthSeq: 401, Atoms: []structure.Atom{{Name: "S", Element: "S", Occupancy: 1, Pos: structure.Vec3{3, 0, 0}}}}}}
	recLabel := domain.ChainLabel{Instance: 1, Asym: "A"}
	ligLabel := domain.ChainLabel{Instance: 1, Asym: "B"}
	system := domain.System{
		ID: id + "__1__1.A__1.B", EntryID: id, Assembly: "1", Type: domain.SystemHolo,
		Receptors: []domain.ChainLabel{recLabel},
		Ligands:   []domain.Ligand{{Label: ligLabel, AsymID: "B", AuthChain: "A", ResidueNumbers: []int{401}, CCDCode: "SO4", Interactions: domain.InteractionMap{}}},
	}
	mol := &chem.Molecule{Atoms: []chem.Atom{{Element: "S", Pos: structure.Vec3{3, 0, 0}}}}
	return &annotate.Result{
		Entry: domain.Entry{ID: id, Status: domain.StatusSuccess, Systems: []domain.System{system},
			Chains: []domain.Chain{{AsymID: "A", AuthID: "A", Role: domain.RoleProtein, Sequence: "G"}}},
		Systems: []annotate.SystemBundle{{
			System:    system,
			Receptors: []*structure.AssemblyChain{{Label: recLabel, Source: protein, Residues: protein.Residues}},
			Ligands:   []*structure.AssemblyChain{{Label: ligLabel, Source: lig, Residues: lig.Residues}},
			Molecules: []*chem.Molecule{mol},
		}},
	}
}

func newRunner(t *testing.T, store blob.Store, idx domain.AnnotationIndex, opts Options) (*Runner, *fakeAnnotator) {
	t.Helper()
	ann := &fakeAnnotator{}
	r, err := NewRunner(Deps{Annotator: ann, Writer: artifact.NewWriter(store, artifact.Options{}, nil), Index: idx}, opts)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	var mu sync.Mutex
	n := 0
	r.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	return r, ann
}

func TestRunRecordsEveryEntry(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	idx := memory.NewStore()
	r, ann := newRunner(t, store, idx, Options{Workers: 2, Config: `{"workers":2}`})
	paths := []string{"in/1ABC.cif", "in/bad1.cif.gz", "in/2def.cif.gz"}
	sum, err := r.Run(ctx, paths)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ann.calls) != 3 {
		t.Fatalf("annotator calls = %v", ann.calls)
	}
	if sum.Run.ID != "id-001" || sum.Run.Entries != 3 || sum.Run.Succeeded != 2 || sum.Run.Failed != 1 || sum.Run.FinishedAt.IsZero() {
		t.Fatalf("run = %+v", sum.Run)
	}
	if got := []string{sum.Reports[0].EntryID, sum.Reports[1].EntryID, sum.Reports[2].EntryID}; strings.Join(got, ",") != "1abc,bad1,2def" {
		t.Fatalf("report order = %v", got)
	}
	bad := sum.Reports[1]
	if bad.Status != domain.StatusFailed || !strings.Contains(bad.Error, "unexpected EOF") || bad.RunID != "id-001" {
		t.Fatalf("failed report = %+v", bad)
	}

	w := artifact.NewWriter(store, artifact.Options{}, nil)
	stored, err := w.ReadReport(ctx, "bad1")
	if err != nil || stored.Status != domain.StatusFailed {
		t.Fatalf("failed entry status.json = %+v %v", stored, err)
	}
	if _, err := store.Head(ctx, "1abc__1__1.A__1.B/ligand_files/1.B.sdf"); err != nil {
		t.Fatalf("artifacts missing: %v", err)
	}

	run, err := idx.Run(ctx, "id-001")
	if err != nil || run.Entries != 3 || run.Config != `{"workers":2}` {
		t.Fatalf("indexed run = %+v %v", run, err)
	}
	systems, _ := idx.Systems(ctx, domain.SystemFilter{CCDCode: "SO4"})
	if len(systems) != 2 {
		t.Fatalf("indexed systems = %+v", systems)
	}
	failed, _ := idx.Entries(ctx, domain.EntryFilter{Status: domain.StatusFailed, RunID: "id-001"})
	if len(failed) != 1 || failed[0].EntryID != "bad1" {
		t.Fatalf("indexed failures = %+v", failed)
	}
	trail, _ := idx.Audit(ctx, "id-001")
	if len(trail) != 5 || trail[0].Action != domain.AuditRunStarted || trail[4].Action != domain.AuditRunFinished {
		t.Fatalf("audit trail = %+v", trail)
	}
	rejected := 0
	for _, e := range trail {
		if e.Action == domain.AuditEntryRejected {
			rejected++
			if e.EntryID != "bad1" {
				t.Fatalf("rejected entry = %+v", e)
			}
		}
	}
	if rejected != 1 {
		t.Fatalf("rejected = %d", rejected)
	}
}

func TestRunAppliesAffinities(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	aff, err := validation.LoadAffinities(strings.NewReader("pdb_id\tccd_code\taffinity\n1ABC\tso4\t6.5\n"), '\t')
	if err != nil {
		t.Fatalf("affinities: %v", err)
	}
	r, _ := newRunner(t, store, nil, Options{Workers: 1, Affinities: aff})
	if _, err := r.Run(ctx, []string{"1abc.cif"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	_, rc, err := store.Get(ctx, artifact.AnnotationKey("1abc"))
	if err != nil {
		t.Fatalf("annotation: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("annotation rows = %d", len(lines))
	}
	header, row := strings.Split(lines[0], "\t"), strings.Split(lines[1], "\t")
	for i, name := range header {
		if name == "ligand_binding_affinity" && row[i] != "6.5" {
			t.Fatalf("affinity cell = %q", row[i])
		}
		if name == "system_has_binding_affinity" && row[i] != "True" {
			t.Fatalf("system_has_binding_affinity = %q", row[i])
		}
	}
}

type brokenIndex struct{ *memory.Store }

func (brokenIndex) PutEntry(context.Context, domain.EntryReport, []domain.SystemRecord) error {
	return errors.New("database is locked")
}

func TestRunTagsSpansWithEntry(t *testing.T) {
	tracer := core.NewJSONTracer(nil)
	metrics := core.NewExpvarMetricsRecorder("")
	r, err := NewRunner(Deps{
		Annotator: &fakeAnnotator{},
		Writer:    artifact.NewWriter(blob.NewMemory(), artifact.Options{}, nil),
		Metrics:   metrics,
		Tracer:    tracer,
	}, Options{Workers: 2})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := r.Run(context.Background(), []string{"1abc.cif", "bad2.cif"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	byEntry := map[string]bool{}
	for _, s := range tracer.Spans() {
		if s.Stage != "entry" {
			t.Fatalf("unexpected stage %q", s.Stage)
		}
		byEntry[s.Entry] = s.OK
	}
	if len(byEntry) != 2 || !byEntry["1abc"] || byEntry["bad2"] {
		t.Fatalf("spans by entry = %v", byEntry)
	}
	snap := metrics.Snapshot()
	if snap.Entries["success"] != 1 || snap.Entries["failed"] != 1 || snap.Stages["entry"].Errors != 1 {
		t.Fatalf("metrics = %+v", snap)
	}
}

func TestRunStopsWhenIndexFails(t *testing.T) {
	r, _ := newRunner(t, blob.NewMemory(), brokenIndex{memory.NewStore()}, Options{Workers: 1})
	_, err := r.Run(context.Background(), []string{"1abc.cif", "2def.cif"})
	if err == nil || !strings.Contains(err.Error(), "index entry 1abc") {
		t.Fatalf("expected index error, got %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, ann := newRunner(t, blob.NewMemory(), nil, Options{Workers: 1})
	if _, err := r.Run(ctx, []string{"1abc.cif"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(ann.calls) != 0 {
		t.Fatalf("annotated after cancel: %v", ann.calls)
	}
}

func TestNewRunnerRequiresCollaborators(t *testing.T) {
	if _, err := NewRunner(Deps{}, Options{}); err == nil {
		t.Fatalf("expected missing annotator error")
	}
	if _, err := NewRunner(Deps{Annotator: &fakeAnnotator{}}, Options{}); err == nil {
		t.Fatalf("expected missing writer error")
	}
	r, err := NewRunner(Deps{Annotator: &fakeAnnotator{}, Writer: artifact.NewWriter(blob.NewMemory(), artifact.Options{}, nil)}, Options{})
	if err != nil || r.opts.Workers < 1 || r.opts.Criteria != validation.DefaultCriteria() {
		t.Fatalf("defaults = %+v %v", r.opts, err)
	}
}

func TestEntryID(t *testing.T) {
	cases := map[string]string{
		"/data/6LU7.cif":    "6lu7",
		"1qz5.cif.gz":       "1qz5",
		"mmcif/2p1q.CIF.GZ": "2p1q",
		"plain":             "plain",
	}
	for in, want := range cases {
		if got := EntryID(in); got != want {
			t.Fatalf("EntryID(%q) = %q, want %q", in, got, want)
		}
	}
}
