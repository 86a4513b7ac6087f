package annotate

import (
	"math"
	"testing"

	"plicore/internal/chem"
	"plicore/internal/structure"
	"plicore/pkg/domain"
)

func atom(name, element string, x, y, z float64) structure.Atom {
	return structure.Atom{Name: name, Element: element, Occupancy: 1, Pos: structure.Vec3{x, y, z}}
}

func residue(name string, seq int, atoms ...structure.Atom) structure.Residue {
	return structure.Residue{Name: name, SeqID: seq, AuthSeq: seq, Atoms: atoms}
}

// peptide builds an extended polypeptide along +x. Residue i sits at
// x = 3.8*i; names overrides the residue names by index.
func peptide(asym, auth string, n int, origin structure.Vec3, names map[int]string) *structure.Chain {
	c := &structure.Chain{
		AsymID:      asym,
		AuthID:      auth,
		EntityID:    "1",
		EntityType:  structure.EntityPolymer,
		PolymerType: "polypeptide(L)",
	}
	for i := 0; i < n; i++ {
		name := "ALA"
		if v, ok := names[i]; ok {
			name = v
		}
		x := origin[0] + 3.8*float64(i)
		y, z := origin[1], origin[2]
		atoms := []structure.Atom{
			atom("N", "N", x, y, z),
			atom("CA", "C", x+1.46, y, z),
			atom("C", "C", x+2.5, y+0.8, z),
			atom("O", "O", x+2.5, y+2.0, z),
		}
		if name != "GLY" {
			atoms = append(atoms, atom("CB", "C", x+1.46, y-1.5, z))
		}
		if name == "CYS" {
			atoms = append(atoms, atom("SG", "S", x+1.46, y-3.3, z))
		}
		c.FullSequence = append(c.FullSequence, name)
		c.Residues = append(c.Residues, residue(name, i+1, atoms...))
	}
	return c
}

func ligandChain(asym, auth, name string, seq int, atoms ...structure.Atom) *structure.Chain {
	return &structure.Chain{
		AsymID:     asym,
		AuthID:     auth,
		EntityID:   "2",
		EntityType: structure.EntityNonPolymer,
		Residues:   []structure.Residue{{Name: name, AuthSeq: seq, Atoms: atoms}},
	}
}

func waterChain(asym string, atoms ...structure.Atom) *structure.Chain {
	c := &structure.Chain{AsymID: asym, AuthID: "A", EntityID: "3", EntityType: structure.EntityWater}
	for i, a := range atoms {
		c.Residues = append(c.Residues, structure.Residue{Name: "HOH", AuthSeq: 301 + i, Atoms: []structure.Atom{a}})
	}
	return c
}

// phenol places a phenol ring in the xy plane. C1 sits at top, the hydroxyl
// oxygen para to it.
func phenol(top structure.Vec3) []structure.Atom {
	center := top.Sub(structure.Vec3{0, 1.39, 0})
	names := []string{"C1", "C2", "C3", "C4", "C5", "C6"}
	angles := []float64{90, 30, -30, -90, -150, 150}
	out := make([]structure.Atom, 0, 7)
	for i, deg := range angles {
		a := deg * math.Pi / 180
		p := center.Add(structure.Vec3{1.39 * math.Cos(a), 1.39 * math.Sin(a), 0})
		out = append(out, atom(names[i], "C", p[0], p[1], p[2]))
	}
	o := center.Sub(structure.Vec3{0, 1.39 + 1.36, 0})
	return append(out, atom("O1", "O", o[0], o[1], o[2]))
}

const phenolSMILES = "Oc1ccccc1"

// covalentEntry is shaped like 6lu7: a two-copy assembly whose ligand is
// covalently bound to a cysteine in each copy.
func covalentEntry() *structure.Structure {
	prot := peptide("A", "A", 12, structure.Vec3{}, map[int]string{5: "CYS"})
	sg, _ := prot.Residues[5].Atom("SG")
	lig := ligandChain("B", "A", "LIG", 401, phenol(sg.Pos.Sub(structure.Vec3{0, 1.8, 0}))...)
	c4 := lig.Residues[0].Atoms[3].Pos
	water := waterChain("C", atom("O", "O", c4[0], c4[1]-1.36, 3.0))
	return &structure.Structure{
		ID:     "6LU7",
		Chains: []*structure.Chain{prot, lig, water},
		Links: []structure.Link{{
			Type:     "covale",
			A:        structure.AtomRef{Asym: "B", AuthChain: "A", ResName: "LIG", AuthSeq: 401, Atom: "C1"},
			B:        structure.AtomRef{Asym: "A", AuthChain: "A", ResName: "CYS", SeqID: 6, AuthSeq: 6, Atom: "SG"},
			Distance: 1.8,
		}},
		Operators: map[string]structure.Transform{
			"1": structure.Identity(),
			"2": {Rot: structure.Identity().Rot, Shift: structure.Vec3{80, 0, 0}},
		},
		Assemblies: []structure.AssemblyDef{{ID: "1", Gens: []structure.AssemblyGen{{AsymIDs: []string{"A", "B", "C"}, OperExpr: "1,2"}}}},
		Templates:  map[string]string{"LIG": phenolSMILES},
	}
}

// ternaryEntry is shaped like 2p1q: two ligands wedged between two receptor
// chains with different author ids.
func ternaryEntry() *structure.Structure {
	b := peptide("B", "B", 12, structure.Vec3{}, nil)
	c := peptide("C", "C", 12, structure.Vec3{0, 8, 0}, nil)
	c.EntityID = "2"
	ihp := ligandChain("D", "B", "IHP", 501, atom("P1", "P", 10, 4, 0))
	iac := ligandChain("E", "C", "IAC", 601, atom("C1", "C", 10, 4, 3.5))
	return &structure.Structure{ID: "2P1Q", Chains: []*structure.Chain{b, c, ihp, iac}}
}

func mustParse(t *testing.T, smiles string) *chem.Molecule {
	t.Helper()
	m, err := chem.ParseSMILES(smiles)
	if err != nil {
		t.Fatalf("parse %s: %v", smiles, err)
	}
	return m
}

func assemblyOf(chains ...*structure.AssemblyChain) structure.Assembly {
	return structure.Assembly{ID: "1", Chains: chains}
}

func placed(c *structure.Chain, instance int) *structure.AssemblyChain {
	return &structure.AssemblyChain{
		Label:    domain.ChainLabel{Instance: instance, Asym: c.AsymID},
		Source:   c,
		Op:       structure.Identity(),
		Residues: c.Residues,
	}
}
