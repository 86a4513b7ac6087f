package annotate

import (
	"strings"
	"testing"

	"plicore/internal/structure"
	"plicore/internal/tables"
	"plicore/pkg/domain"
)

func polymer(polymerType string, names ...string) *structure.Chain {
	c := &structure.Chain{AsymID: "P", EntityType: structure.EntityPolymer, PolymerType: polymerType, FullSequence: names}
	for i, n := range names {
		c.Residues = append(c.Residues, residue(n, i+1, atom("CA", "C", float64(i), 0, 0)))
	}
	return c
}

func repeat(name string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = name
	}
	return out
}

func TestClassifyRoles(t *testing.T) {
	c := NewClassifier(tables.Default(), 10)
	cases := []struct {
		name  string
		chain *structure.Chain
		want  domain.Role
	}{
		{"protein", polymer("polypeptide(L)", repeat("ALA", 12)...), domain.RoleProtein},
		{"short peptide", polymer("polypeptide(L)", repeat("GLY", 5)...), domain.RolePeptideLigand},
		{"short modified peptide", polymer("polypeptide(L)", "ALA", "MSE", "GLY"), domain.RoleLigand},
		{"dna", polymer("polydeoxyribonucleotide", repeat("DA", 12)...), domain.RoleNucleicAcid},
		{"water", waterChain("W", atom("O", "O", 0, 0, 0)), domain.RoleWater},
		{"artifact", ligandChain("L", "A", "SO4", 1, atom("S", "S", 0, 0, 0)), domain.RoleArtifact},
		{"artifact synonym", ligandChain("L", "A", "SUL", 1, atom("S", "S", 0, 0, 0)), domain.RoleArtifact},
		{"cofactor", ligandChain("L", "A", "HEM", 1, atom("FE", "Fe", 0, 0, 0)), domain.RoleCofactor},
		{"ion", ligandChain("L", "A", "ZN", 1, atom("ZN", "Zn", 0, 0, 0)), domain.RoleIon},
		{"small molecule", ligandChain("L", "A", "STI", 1, atom("C1", "C", 0, 0, 0)), domain.RoleLigand},
	}
	for _, tc := range cases {
		got, warnings := c.Classify(tc.chain)
		if got != tc.want || len(warnings) != 0 {
			t.Fatalf("%s: got %s %v, want %s", tc.name, got, warnings, tc.want)
		}
	}
}

func TestClassifyMinPolymerSize(t *testing.T) {
	chain := polymer("polypeptide(L)", repeat("ALA", 6)...)
	if got, _ := NewClassifier(nil, 5).Classify(chain); got != domain.RoleProtein {
		t.Fatalf("threshold 5: %s", got)
	}
	if got, _ := NewClassifier(nil, 0).Classify(chain); got != domain.RolePeptideLigand {
		t.Fatalf("default threshold: %s", got)
	}
}

func TestClassifyMalformedNames(t *testing.T) {
	c := NewClassifier(tables.Default(), 10)
	role, warnings := c.Classify(ligandChain("X", "A", "B@D", 1, atom("C1", "C", 0, 0, 0)))
	if role != domain.RoleUnknown || len(warnings) != 1 || !strings.Contains(warnings[0], "B@D") {
		t.Fatalf("got %s %v", role, warnings)
	}
	if role, warnings := c.Classify(&structure.Chain{AsymID: "E"}); role != domain.RoleUnknown || len(warnings) != 1 {
		t.Fatalf("empty chain: %s %v", role, warnings)
	}
}

func TestLigandCode(t *testing.T) {
	c := NewClassifier(nil, 0)
	res := []structure.Residue{{Name: "nag"}, {Name: "NAG"}, {Name: "SUL"}}
	if got := c.LigandCode(res); got != "NAG-NAG-SO4" {
		t.Fatalf("code = %q", got)
	}
	if got := c.LigandCode(res[:1]); got != "NAG" {
		t.Fatalf("single code = %q", got)
	}
}
