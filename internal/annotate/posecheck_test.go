package annotate

import (
	"testing"

	"plicore/internal/chem"
	"plicore/internal/structure"
)

func bonded(atoms []structure.Atom, bonds ...[2]int) *chem.Molecule {
	m := chem.FromAtoms(atoms, "LIG", 1, "1.B")
	for _, b := range bonds {
		m.AddBond(b[0], b[1], chem.Single)
	}
	return m
}

func TestGeometryCheckerPassesPhenol(t *testing.T) {
	m := chem.FromAtoms(phenol(structure.Vec3{0, 5, 0}), "LIG", 1, "1.B")
	chem.PerceiveBonds(m, 0.45)
	got := DefaultGeometryChecker().Check(m, nil, nil)
	for name, ok := range got {
		if !ok {
			t.Fatalf("check %s failed", name)
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 checks, got %v", got)
	}
}

func TestGeometryCheckerBondLengths(t *testing.T) {
	m := bonded([]structure.Atom{atom("C1", "C", 0, 0, 0), atom("C2", "C", 2.5, 0, 0)}, [2]int{0, 1})
	if DefaultGeometryChecker().Check(m, nil, nil)[CheckBondLengths] {
		t.Fatal("stretched bond passed")
	}
}

func TestGeometryCheckerInternalClash(t *testing.T) {
	m := bonded([]structure.Atom{
		atom("C1", "C", 0, 0, 0),
		atom("C2", "C", 1.5, 0, 0),
		atom("C3", "C", 1.5, 1.5, 0),
		atom("C4", "C", 0, 1.5, 0),
	}, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3})
	got := DefaultGeometryChecker().Check(m, nil, nil)
	if got[CheckInternalClash] {
		t.Fatal("1-4 contact at 1.5 Å passed")
	}
	if !got[CheckBondLengths] {
		t.Fatal("bond lengths failed")
	}
}

func TestGeometryCheckerProteinClash(t *testing.T) {
	rec := placed(ligandChain("A", "A", "CYS", 1, atom("SG", "S", 0, 0, 0)), 1)
	m := bonded([]structure.Atom{atom("C1", "C", 1.8, 0, 0), atom("C2", "C", 3.3, 0, 0)}, [2]int{0, 1})
	receptors := []*structure.AssemblyChain{rec}
	if DefaultGeometryChecker().Check(m, receptors, nil)[CheckProteinClash] {
		t.Fatal("clash at 1.8 Å passed")
	}
	if !DefaultGeometryChecker().Check(m, receptors, map[string]bool{"C1": true})[CheckProteinClash] {
		t.Fatal("covalent atom was not exempt")
	}
}
