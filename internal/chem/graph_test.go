package chem

import (
	"errors"
	"math"
	"testing"

	"plicore/internal/structure"
)

func TestRingsAndAromaticity(t *testing.T) {
	cases := []struct {
		smiles   string
		rings    int
		aromatic int
	}{
		{"C1CCCCC1", 1, 0},
		{"c1ccccc1", 1, 1},
		{"c1ccc2ccccc2c1", 2, 2},
		{"c1ccccc1c1ccccc1", 2, 2},
		{"C1CC2CCC1C2", 2, 0},
		{"CCO", 0, 0},
	}
	for _, tc := range cases {
		m := mustParse(t, tc.smiles)
		if got := len(m.Rings()); got != tc.rings {
			t.Fatalf("%s: rings = %d, want %d", tc.smiles, got, tc.rings)
		}
		if got := AromaticRingCount(m); got != tc.aromatic {
			t.Fatalf("%s: aromatic rings = %d, want %d", tc.smiles, got, tc.aromatic)
		}
	}
	for _, ring := range mustParse(t, "c1ccc2ccccc2c1").Rings() {
		if len(ring) != 6 {
			t.Fatalf("naphthalene ring of size %d", len(ring))
		}
	}
}

func TestKekulizeAndSanitize(t *testing.T) {
	for _, s := range []string{"c1ccccc1", "c1ccncc1", "c1cc[nH]c1", "c1ccc2ccccc2c1", "c1ccoc1", "CC(=O)[O-]", "[NH4+]"} {
		m := mustParse(t, s)
		if err := Sanitize(m); err != nil {
			t.Fatalf("%s: sanitize: %v", s, err)
		}
	}
	orders, err := Kekulize(mustParse(t, "c1ccccc1"))
	if err != nil {
		t.Fatalf("kekulize: %v", err)
	}
	doubles := 0
	for _, o := range orders {
		if o == Double {
			doubles++
		}
	}
	if doubles != 3 {
		t.Fatalf("benzene doubles = %d", doubles)
	}
	if err := Sanitize(mustParse(t, "c1ccnc1")); !errors.Is(err, ErrKekulize) {
		t.Fatalf("expected kekulize failure for pyrrole without H, got %v", err)
	}
	if err := Sanitize(mustParse(t, "C(C)(C)(C)(C)C")); !errors.Is(err, ErrValence) {
		t.Fatalf("expected valence failure, got %v", err)
	}
	m := mustParse(t, "Cc1ccccc1")
	m.Atoms[0].Aromatic = true
	if err := Sanitize(m); !errors.Is(err, ErrAromaticity) {
		t.Fatalf("expected aromaticity failure, got %v", err)
	}
}

func TestPerceiveBonds(t *testing.T) {
	m := &Molecule{}
	m.AddAtom(Atom{Element: "C", Pos: structure.Vec3{0, 0, 0}})
	m.AddAtom(Atom{Element: "C", Pos: structure.Vec3{1.54, 0, 0}})
	m.AddAtom(Atom{Element: "O", Pos: structure.Vec3{6, 0, 0}})
	PerceiveBonds(m, 0.45)
	if len(m.Bonds) != 1 {
		t.Fatalf("bonds = %d", len(m.Bonds))
	}
	if _, ok := m.BondBetween(0, 1); !ok {
		t.Fatalf("expected C-C bond")
	}

	capped := &Molecule{}
	capped.AddAtom(Atom{Element: "O"})
	capped.AddAtom(Atom{Element: "C", Pos: structure.Vec3{1.40, 0, 0}})
	capped.AddAtom(Atom{Element: "C", Pos: structure.Vec3{0, 1.42, 0}})
	capped.AddAtom(Atom{Element: "C", Pos: structure.Vec3{0, 0, 1.45}})
	PerceiveBonds(capped, 0.45)
	if len(capped.Bonds) != 2 {
		t.Fatalf("oxygen should keep two bonds, got %d", len(capped.Bonds))
	}
	if _, ok := capped.BondBetween(0, 3); ok {
		t.Fatalf("longest bond should be dropped")
	}
}

func chain(elements ...string) *Molecule {
	m := &Molecule{}
	for i, el := range elements {
		m.AddAtom(Atom{Element: el})
		if i > 0 {
			m.AddBond(i-1, i, Single)
		}
	}
	return m
}

func TestMatchSubgraph(t *testing.T) {
	tmpl := mustParse(t, "CC(=O)O")
	mapping, ok := MatchSubgraph(tmpl, chain("C", "C", "O"), 0)
	if !ok {
		t.Fatalf("expected match")
	}
	if mapping[0] != 0 || mapping[1] != 1 || (mapping[2] != 2 && mapping[2] != 3) {
		t.Fatalf("mapping = %v", mapping)
	}
	if _, ok := MatchSubgraph(tmpl, chain("C", "N"), 0); ok {
		t.Fatalf("nitrogen is not in the template")
	}
	tri := chain("C", "C", "O")
	tri.AddBond(0, 2, Single)
	if _, ok := MatchSubgraph(tmpl, tri, 0); ok {
		t.Fatalf("extra observed bond must prevent a match")
	}
	if _, ok := MatchSubgraph(tmpl, chain("C", "C", "O"), 1); ok {
		t.Fatalf("budget of one step should be exhausted")
	}
	withH := chain("C", "H")
	mapping, ok = MatchSubgraph(tmpl, withH, 0)
	if !ok || mapping[1] != -1 {
		t.Fatalf("hydrogens should be skipped: %v %v", mapping, ok)
	}
}

func TestMatchPrefersAtomNames(t *testing.T) {
	tmpl := chain("O", "C", "O")
	tmpl.Atoms[0].Name = "O1"
	tmpl.Atoms[2].Name = "O2"
	obs := chain("C", "O")
	obs.Atoms[1].Name = "O2"
	mapping, ok := MatchSubgraph(tmpl, obs, 0)
	if !ok || mapping[1] != 2 {
		t.Fatalf("expected O2 to map to template O2, got %v", mapping)
	}
}

func TestHydrogens(t *testing.T) {
	m := mustParse(t, "C")
	full := AddHydrogens(m)
	if len(full.Atoms) != 5 || len(full.Bonds) != 4 || full.Atoms[0].HCount != 0 {
		t.Fatalf("methane with hydrogens: %d atoms %d bonds", len(full.Atoms), len(full.Bonds))
	}
	for _, a := range full.Atoms[1:] {
		if d := structure.Dist(a.Pos, full.Atoms[0].Pos); math.Abs(d-1.09) > 1e-6 {
			t.Fatalf("C-H length %.3f", d)
		}
	}
	back := RemoveHydrogens(full)
	if len(back.Atoms) != 1 || back.Atoms[0].HCount != 4 {
		t.Fatalf("strip: %+v", back.Atoms)
	}
	if CanonicalSMILES(full) != CanonicalSMILES(back) {
		t.Fatalf("hydrogens changed canonical form")
	}
}
