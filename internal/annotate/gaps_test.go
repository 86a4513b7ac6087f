package annotate

import (
	"testing"

	"plicore/internal/structure"
	"plicore/pkg/domain"
)

var gapLigand = []structure.Vec3{{20.46, -3.0, 0}}

func TestInterfaceGapsMissingResidue(t *testing.T) {
	c := peptide("A", "A", 12, structure.Vec3{}, map[int]string{5: "CYS"})
	c.Residues = append(append([]structure.Residue(nil), c.Residues[:6]...), c.Residues[7:]...)
	got := InterfaceGaps(gapLigand, placed(c, 1))
	want := domain.InterfaceGaps{MissingResidues4A: 1, MissingResidues8A: 1}
	if got != want {
		t.Fatalf("gaps = %+v, want %+v", got, want)
	}
}

func TestInterfaceGapsBackboneBreak(t *testing.T) {
	c := peptide("A", "A", 12, structure.Vec3{}, map[int]string{5: "CYS"})
	for i := 6; i < len(c.Residues); i++ {
		for j := range c.Residues[i].Atoms {
			c.Residues[i].Atoms[j].Pos[0] += 2
		}
	}
	got := InterfaceGaps(gapLigand, placed(c, 1))
	want := domain.InterfaceGaps{AtomGaps4A: 1, AtomGaps8A: 1}
	if got != want {
		t.Fatalf("gaps = %+v, want %+v", got, want)
	}
}

func TestInterfaceGapsWithoutSequence(t *testing.T) {
	c := peptide("A", "A", 12, structure.Vec3{}, nil)
	c.FullSequence = nil
	c.Residues = append(append([]structure.Residue(nil), c.Residues[:6]...), c.Residues[7:]...)
	if got := InterfaceGaps(gapLigand, placed(c, 1)); got != (domain.InterfaceGaps{}) {
		t.Fatalf("expected no gaps without a sequence, got %+v", got)
	}
	if got := InterfaceGaps(nil, placed(c, 1)); got != (domain.InterfaceGaps{}) {
		t.Fatalf("expected no gaps without ligand, got %+v", got)
	}
}
