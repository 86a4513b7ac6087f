package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"plicore/internal/annotate"
	"plicore/internal/blob"
	"plicore/internal/chem"
	"plicore/internal/structure"
	"plicore/internal/validation"
	"plicore/pkg/domain"
)

func atom(name, element string, x, y, z float64) structure.Atom {
	return structure.Atom{Name: name, Element: element, Occupancy: 1, Pos: structure.Vec3{x, y, z}}
}

func ethanol(t *testing.T) *chem.Molecule {
	t.Helper()
	m, err := chem.ParseSMILES("CCO")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m.Atoms[0].Pos = structure.Vec3{10, 0, 0}
	m.Atoms[1].Pos = structure.Vec3{11.5, 0, 0}
	m.Atoms[2].Pos = structure.Vec3{12.2, 1.2, 0}
	return chem.AddHydrogens(m)
}

func fixture(t *testing.T) (*annotate.Result, []validation.AnnotatedRow) {
	t.Helper()
	protein := &structure.Chain{AsymID: "A", AuthID: "A", EntityID: "1", EntityType: structure.EntityPolymer, PolymerType: "polypeptide(L)"}
	for i := 1; i <= 3; i++ {
		x := 3.8 * float64(i)
		protein.Residues = append(protein.Residues, structure.Residue{Name: "ALA", SeqID: i, AuthSeq: i, Atoms: []structure.Atom{
			atom("N", "N", x, 0, 0), atom("CA", "C", x+1.46, 0, 0), atom("C", "C", x+2.5, 0.8, 0), atom("O", "O", x+2.5, 2, 0),
		}})
	}
	lig := &structure.Chain{AsymID: "B", AuthID: "A", EntityID: "2", EntityType: structure.EntityNonPolymer,
		Residues: []structure.Residue{{Name: "EOH", AuthSeq: 401, Atoms: []structure.Atom{atom("C1", "C", 10, 0, 0), atom("C2", "C", 11.5, 0, 0), atom("O", "O", 12.2, 1.2, 0)}}}}
	water := &structure.Chain{AsymID: "W", AuthID: "A", EntityID: "3", EntityType: structure.EntityWater, Residues: []structure.Residue{
		{Name: "HOH", AuthSeq: 301, Atoms: []structure.Atom{atom("O", "O", 12, 3, 0)}},
		{Name: "HOH", AuthSeq: 302, Atoms: []structure.Atom{atom("O", "O", 30, 3, 0)}},
	}}
	label := func(c *structure.Chain) domain.ChainLabel { return domain.ChainLabel{Instance: 1, Asym: c.AsymID} }
	system := domain.System{
		ID:        "1abc__1__1.A__1.B",
		EntryID:   "1abc",
		Assembly:  "1",
		Type:      domain.SystemHolo,
		Receptors: []domain.ChainLabel{label(protein)},
		Ligands: []domain.Ligand{{
			Label:          label(lig),
			AsymID:         "B",
			AuthChain:      "A",
			ResidueNumbers: []int{401},
			CCDCode:        "EOH",
			SMILES:         "CCO",
			ResolvedSMILES: "CCO",
			Interactions:   domain.InteractionMap{},
			Waters:         domain.WaterMap{"1.W": {301}},
		}},
	}
	res := &annotate.Result{
		Entry: domain.Entry{
			ID:     "1abc",
			Chains: []domain.Chain{{AsymID: "A", AuthID: "A", Role: domain.RoleProtein, Sequence: "AAA"}},
			Status: domain.StatusSuccess,
		},
		Systems: []annotate.SystemBundle{{
			System:    system,
			Receptors: []*structure.AssemblyChain{{Label: label(protein), Source: protein, Residues: protein.Residues}},
			Ligands:   []*structure.AssemblyChain{{Label: label(lig), Source: lig, Residues: lig.Residues}},
			Waters:    []*structure.AssemblyChain{{Label: label(water), Source: water, Residues: water.Residues}},
			Molecules: []*chem.Molecule{ethanol(t)},
		}},
	}
	res.Entry.Systems = []domain.System{system}
	return res, validation.Rows(res.Entry)
}

func read(t *testing.T, s blob.Store, key string) string {
	t.Helper()
	_, rc, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	return string(b)
}

func TestWriteEntryLayout(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	w := NewWriter(store, Options{}, nil)
	res, rows := fixture(t)
	report, err := w.WriteEntry(ctx, res, rows)
	if err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if report.Status != domain.StatusSuccess || report.Systems != 1 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
	files, err := w.SystemFiles(ctx, "1abc__1__1.A__1.B", 0)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, strings.TrimPrefix(f.Key, "1abc__1__1.A__1.B/"))
	}
	want := []string{"chain_mapping.json", "ligand_files/1.B.sdf", "receptor.cif", "receptor.pdb", "sequences.fasta", "system.cif", "water_mapping.json"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("files = %v, want %v", names, want)
	}

	if got := read(t, store, "1abc__1__1.A__1.B/sequences.fasta"); got != ">1.A\nAAA\n" {
		t.Fatalf("fasta = %q", got)
	}
	var mapping map[string]string
	if err := json.Unmarshal([]byte(read(t, store, "1abc__1__1.A__1.B/chain_mapping.json")), &mapping); err != nil || mapping["A"] != "1.A" {
		t.Fatalf("chain mapping = %v %v", mapping, err)
	}
	var sites []WaterSite
	if err := json.Unmarshal([]byte(read(t, store, "1abc__1__1.A__1.B/water_mapping.json")), &sites); err != nil {
		t.Fatalf("water mapping: %v", err)
	}
	if len(sites) != 1 || sites[0] != (WaterSite{Chain: "1.W", Residue: 301, AuthSeq: 301}) {
		t.Fatalf("water sites = %+v", sites)
	}
	pdb := read(t, store, "1abc__1__1.A__1.B/receptor.pdb")
	if n := strings.Count(pdb, "HETATM"); n != 1 {
		t.Fatalf("receptor.pdb waters = %d, want only the bridging one", n)
	}
	if !strings.Contains(pdb, "HOH _   1") {
		t.Fatalf("water not renumbered under chain _:\n%s", pdb)
	}
	system := read(t, store, "1abc__1__1.A__1.B/system.cif")
	if !strings.Contains(system, "EOH") || !strings.Contains(system, "1.W") || strings.Count(system, "HOH") != 1 {
		t.Fatalf("system.cif missing ligand or water:\n%s", system)
	}
	if strings.Contains(read(t, store, "1abc__1__1.A__1.B/receptor.cif"), "EOH") {
		t.Fatalf("receptor.cif contains the ligand")
	}
	mols, err := chem.ReadSDF(strings.NewReader(read(t, store, "1abc__1__1.A__1.B/ligand_files/1.B.sdf")))
	if err != nil || len(mols) != 1 {
		t.Fatalf("read sdf: %v", err)
	}
	if len(mols[0].Atoms) != 3 || mols[0].Name != "1.B" {
		t.Fatalf("sdf atoms = %d name %q, want hydrogens stripped", len(mols[0].Atoms), mols[0].Name)
	}
	tsv := read(t, store, AnnotationKey("1abc"))
	if !strings.HasPrefix(tsv, "system_id\t") || !strings.Contains(tsv, "1abc__1__1.A__1.B") {
		t.Fatalf("annotation = %q", tsv)
	}
	info, err := store.Head(ctx, "1abc__1__1.A__1.B/receptor.cif")
	if err != nil || info.Metadata["system_id"] != "1abc__1__1.A__1.B" || info.Metadata["entry_id"] != "1abc" {
		t.Fatalf("metadata = %+v %v", info.Metadata, err)
	}
}

func TestWriteSystemKeepsHydrogens(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	w := NewWriter(store, Options{AddHydrogens: true, FASTAColumns: 2}, nil)
	res, _ := fixture(t)
	if _, _, err := w.WriteSystem(ctx, &res.Entry, &res.Systems[0]); err != nil {
		t.Fatalf("write: %v", err)
	}
	mols, err := chem.ReadSDF(strings.NewReader(read(t, store, "1abc__1__1.A__1.B/ligand_files/1.B.sdf")))
	if err != nil || len(mols[0].Atoms) != 9 {
		t.Fatalf("sdf with hydrogens: %v", err)
	}
	if got := read(t, store, "1abc__1__1.A__1.B/sequences.fasta"); got != ">1.A\nAA\nA\n" {
		t.Fatalf("wrapped fasta = %q", got)
	}
}

func TestWriteSystemReplacesStaleFiles(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	if _, err := store.Put(ctx, "1abc__1__1.A__1.B/ligand_files/1.Z.sdf", strings.NewReader("old"), blob.PutOptions{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w := NewWriter(store, Options{}, nil)
	res, _ := fixture(t)
	for range 2 {
		if _, _, err := w.WriteSystem(ctx, &res.Entry, &res.Systems[0]); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := store.Head(ctx, "1abc__1__1.A__1.B/ligand_files/1.Z.sdf"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("stale file kept: %v", err)
	}
}

func TestWriteSystemWithoutWaters(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	w := NewWriter(store, Options{}, nil)
	res, _ := fixture(t)
	res.Systems[0].System.Ligands[0].Waters = nil
	if _, _, err := w.WriteSystem(ctx, &res.Entry, &res.Systems[0]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Head(ctx, "1abc__1__1.A__1.B/water_mapping.json"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("water_mapping.json written without bridging waters")
	}
	if strings.Contains(read(t, store, "1abc__1__1.A__1.B/receptor.pdb"), "HOH") {
		t.Fatalf("receptor.pdb has waters")
	}
}

// failingStore fails Put for keys with the given suffix.
type failingStore struct {
	blob.Store
	suffix string
}

func (f failingStore) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	if strings.HasSuffix(key, f.suffix) {
		return blob.Info{}, errors.New("disk full")
	}
	return f.Store.Put(ctx, key, r, opts)
}

func TestWriteEntryPartialOnSystemFailure(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	w := NewWriter(failingStore{Store: mem, suffix: ".sdf"}, Options{}, nil)
	res, rows := fixture(t)
	second := res.Systems[0]
	second.System.ID = "1abc__2__2.A__2.B"
	second.Molecules = nil
	res.Systems = append(res.Systems, second)
	report, err := w.WriteEntry(ctx, res, rows)
	var se *SystemError
	if !errors.As(err, &se) || se.SystemID != "1abc__1__1.A__1.B" {
		t.Fatalf("expected SystemError for the first system, got %v", err)
	}
	if report.Status != domain.StatusPartial || len(report.Failed) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if infos, _ := mem.List(ctx, "1abc__1__1.A__1.B/"); len(infos) != 0 {
		t.Fatalf("failed system left files behind: %+v", infos)
	}
	if infos, _ := mem.List(ctx, "1abc__2__2.A__2.B/"); len(infos) == 0 {
		t.Fatalf("next system not written")
	}
	if !strings.Contains(strings.Join(report.Warnings, "\n"), "ligand 1.B has no molecule") {
		t.Fatalf("warnings = %v", report.Warnings)
	}
}

func TestReportRoundTripAndURLs(t *testing.T) {
	ctx := context.Background()
	fsStore, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	w := NewWriter(fsStore, Options{}, nil)
	report := domain.EntryReport{EntryID: "1abc", Status: domain.StatusFailed, Error: "parse 1abc.cif: unexpected EOF", Duration: time.Second}
	if err := w.WriteReport(ctx, report); err != nil {
		t.Fatalf("write report: %v", err)
	}
	got, err := w.ReadReport(ctx, "1abc")
	if err != nil || got.Status != domain.StatusFailed || got.Error != report.Error {
		t.Fatalf("read report = %+v %v", got, err)
	}
	if _, err := w.ReadReport(ctx, "9xyz"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	res, _ := fixture(t)
	if _, _, err := w.WriteSystem(ctx, &res.Entry, &res.Systems[0]); err != nil {
		t.Fatalf("write: %v", err)
	}
	files, err := w.SystemFiles(ctx, "1abc__1__1.A__1.B", time.Minute)
	if err != nil || len(files) == 0 {
		t.Fatalf("files: %v", err)
	}
	for _, f := range files {
		if !strings.HasPrefix(f.URL, "file://") {
			t.Fatalf("url = %q", f.URL)
		}
	}
	rc, err := w.Open(ctx, "1abc__1__1.A__1.B/sequences.fasta")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(rc)
	if buf.String() != ">1.A\nAAA\n" {
		t.Fatalf("fasta = %q", buf.String())
	}
}

func TestRenderReceptorPDBTooManyChains(t *testing.T) {
	var receptors []*structure.AssemblyChain
	for i := 0; i < 63; i++ {
		receptors = append(receptors, &structure.AssemblyChain{Label: domain.ChainLabel{Instance: i + 1, Asym: "A"}})
	}
	if _, _, err := renderReceptorPDB(receptors, nil); err == nil {
		t.Fatalf("expected chain id exhaustion error")
	}
}
