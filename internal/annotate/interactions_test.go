package annotate

import (
	"reflect"
	"testing"

	"plicore/internal/chem"
	"plicore/internal/structure"
	"plicore/pkg/domain"
)

type fakeDetector struct {
	byChain map[string][]domain.Contact
	visited []string
}

func (f *fakeDetector) Detect(_ *chem.Molecule, receptor *structure.AssemblyChain, _ []*structure.AssemblyChain) []domain.Contact {
	f.visited = append(f.visited, receptor.Label.String())
	return f.byChain[receptor.Label.String()]
}

func TestInteractionAnnotatorCollapsesContacts(t *testing.T) {
	det := &fakeDetector{byChain: map[string][]domain.Contact{
		"1.A": {
			{Type: domain.HydrogenBond, ReceptorChain: "1.A", ReceptorResidue: 5, ProtIsDon: domain.Bool(true), SideChain: domain.Bool(false)},
			{Type: domain.Hydrophobic, ReceptorChain: "1.A", ReceptorResidue: 5},
			{Type: domain.WaterBridge, ReceptorChain: "1.A", ReceptorResidue: 7, WaterChain: "1.W", WaterResidue: 303, ProtIsDon: domain.Bool(false)},
		},
		"1.C": {
			{Type: domain.WaterBridge, ReceptorChain: "1.C", ReceptorResidue: 2, WaterChain: "1.W", WaterResidue: 301, ProtIsDon: domain.Bool(true)},
			{Type: domain.WaterBridge, ReceptorChain: "1.C", ReceptorResidue: 3, WaterChain: "1.W", WaterResidue: 303, ProtIsDon: domain.Bool(true)},
		},
	}}
	lig := chem.FromAtoms([]structure.Atom{atom("C1", "C", 0, 0, 0)}, "LIG", 1, "1.B")
	recA := placed(peptide("A", "A", 3, structure.Vec3{}, nil), 1)
	recC := placed(peptide("C", "C", 3, structure.Vec3{}, nil), 1)

	imap, wmap := NewInteractionAnnotator(det).Annotate(lig, []*structure.AssemblyChain{recC, recA}, nil)
	if !reflect.DeepEqual(det.visited, []string{"1.A", "1.C"}) {
		t.Fatalf("receptors visited out of order: %v", det.visited)
	}
	want := []string{"type:hydrogen_bonds__protisdon:True__sidechain:False", "type:hydrophobic_contacts"}
	if !reflect.DeepEqual(imap["1.A"][5], want) {
		t.Fatalf("residue 5 tags = %v", imap["1.A"][5])
	}
	if imap.Count() != 5 {
		t.Fatalf("count = %d", imap.Count())
	}
	if !reflect.DeepEqual(wmap["1.W"], []int{301, 303}) {
		t.Fatalf("water map = %v", wmap)
	}
}

func TestInteractionAnnotatorEmptyLigand(t *testing.T) {
	det := &fakeDetector{}
	imap, wmap := NewInteractionAnnotator(det).Annotate(&chem.Molecule{}, nil, nil)
	if len(imap) != 0 || len(wmap) != 0 || len(det.visited) != 0 {
		t.Fatalf("expected empty maps, got %v %v", imap, wmap)
	}
}

func TestNearbyWaters(t *testing.T) {
	water := placed(waterChain("W",
		atom("O", "O", 0, 0, 3),
		atom("O", "O", 0, 0, 9),
	), 1)
	got := nearbyWaters([]structure.Vec3{{0, 0, 0}}, []*structure.AssemblyChain{water}, 4)
	if len(got) != 1 || len(got[0].Residues) != 1 || got[0].Residues[0].AuthSeq != 301 {
		t.Fatalf("unexpected waters %+v", got)
	}
	if len(water.Residues) != 2 {
		t.Fatal("source chain was modified")
	}
	if nearbyWaters(nil, []*structure.AssemblyChain{water}, 4) != nil {
		t.Fatal("expected nil without ligand atoms")
	}
}
