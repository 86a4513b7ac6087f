package contacts

import (
	"plicore/internal/chem"
	"plicore/internal/structure"
)

// hydrophobicAtoms lists side-chain carbons bonded only to carbon or hydrogen.
var hydrophobicAtoms = map[string][]string{
	"ALA": {"CB"},
	"ARG": {"CB", "CG"},
	"ASN": {"CB"},
	"ASP": {"CB"},
	"GLN": {"CB", "CG"},
	"GLU": {"CB", "CG"},
	"HIS": {"CB"},
	"ILE": {"CB", "CG1", "CG2", "CD1"},
	"LEU": {"CB", "CG", "CD1", "CD2"},
	"LYS": {"CB", "CG", "CD"},
	"MET": {"CB"},
	"PHE": {"CB", "CG", "CD1", "CD2", "CE1", "CE2", "CZ"},
	"PRO": {"CB", "CG"},
	"THR": {"CG2"},
	"TRP": {"CB", "CG", "CD2", "CE3", "CZ2", "CZ3", "CH2"},
	"TYR": {"CB", "CG", "CD1", "CD2", "CE1", "CE2"},
	"VAL": {"CB", "CG1", "CG2"},
}

var sideChainDonors = map[string][]string{
	"ARG": {"NE", "NH1", "NH2"},
	"ASN": {"ND2"},
	"GLN": {"NE2"},
	"HIS": {"ND1", "NE2"},
	"LYS": {"NZ"},
	"SER": {"OG"},
	"THR": {"OG1"},
	"TRP": {"NE1"},
	"TYR": {"OH"},
}

var sideChainAcceptors = map[string][]string{
	"ASN": {"OD1"},
	"ASP": {"OD1", "OD2"},
	"GLN": {"OE1"},
	"GLU": {"OE1", "OE2"},
	"HIS": {"ND1", "NE2"},
	"MET": {"SD"},
	"SER": {"OG"},
	"THR": {"OG1"},
	"TYR": {"OH"},
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type receptorAtom struct {
	residue     int
	atom        structure.Atom
	backbone    bool
	donor       bool
	acceptor    bool
	hydrophobic bool
	positive    bool
	negative    bool
}

// receptorAtoms flattens the heavy atoms of chain with their interaction roles.
func (d *Detector) receptorAtoms(chain *structure.AssemblyChain) []receptorAtom {
	var out []receptorAtom
	for ri := range chain.Residues {
		r := &chain.Residues[ri]
		for _, a := range r.Atoms {
			if a.IsHydrogen() {
				continue
			}
			ra := receptorAtom{residue: ri, atom: a}
			_, ra.backbone = d.backbone[a.Name]
			switch {
			case ra.backbone:
				ra.donor = a.Name == "N" && r.Name != "PRO"
				ra.acceptor = a.Name == "O" || a.Name == "OXT"
			default:
				ra.donor = contains(sideChainDonors[r.Name], a.Name)
				ra.acceptor = contains(sideChainAcceptors[r.Name], a.Name)
				ra.hydrophobic = contains(hydrophobicAtoms[r.Name], a.Name)
			}
			if d.tables != nil {
				ra.positive = contains(d.tables.PositiveAtoms[r.Name], a.Name)
				ra.negative = contains(d.tables.NegativeAtoms[r.Name], a.Name)
			}
			if !d.isStandard(r.Name) {
				// modified or non-standard residues fall back to element rules
				ra.donor = a.Element == "N" || a.Element == "O"
				ra.acceptor = a.Element == "O" || a.Element == "N"
				ra.hydrophobic = a.Element == "C" && !ra.backbone
			}
			out = append(out, ra)
		}
	}
	return out
}

type chargeGroup struct {
	atoms  []int
	center structure.Vec3
}

type ring struct {
	center structure.Vec3
	normal structure.Vec3
}

type ligandFeatures struct {
	hydrophobic []int
	donor       []bool
	acceptor    []bool
	positive    []chargeGroup
	negative    []chargeGroup
	rings       []ring
}

func analyzeLigand(m *chem.Molecule) ligandFeatures {
	n := len(m.Atoms)
	f := ligandFeatures{donor: make([]bool, n), acceptor: make([]bool, n)}
	negGroups := map[int][]int{}
	var negOrder []int
	for i, a := range m.Atoms {
		if a.IsHydrogen() {
			continue
		}
		hydrogens := a.HCount + m.ExplicitHydrogens(i)
		switch a.Element {
		case "C":
			carbonOnly := true
			for _, j := range m.Neighbors(i) {
				if el := m.Atoms[j].Element; el != "C" && !m.Atoms[j].IsHydrogen() {
					carbonOnly = false
					break
				}
			}
			if carbonOnly {
				f.hydrophobic = append(f.hydrophobic, i)
			}
		case "N":
			f.donor[i] = hydrogens > 0
			f.acceptor[i] = hydrogens == 0 && a.Charge <= 0 && m.HeavyDegree(i) < 3
			if a.Charge > 0 || isAliphaticAmine(m, i) {
				f.positive = append(f.positive, chargeGroup{atoms: []int{i}, center: a.Pos})
			}
		case "O":
			f.donor[i] = hydrogens > 0
			f.acceptor[i] = true
			if parent, ok := acidParent(m, i); ok {
				if _, seen := negGroups[parent]; !seen {
					negOrder = append(negOrder, parent)
				}
				negGroups[parent] = append(negGroups[parent], i)
			} else if a.Charge < 0 {
				f.negative = append(f.negative, chargeGroup{atoms: []int{i}, center: a.Pos})
			}
		case "F", "Cl", "Br", "I":
			f.hydrophobic = append(f.hydrophobic, i)
		case "S":
			f.acceptor[i] = hydrogens == 0 && m.HeavyDegree(i) <= 2
		}
	}
	for _, parent := range negOrder {
		atoms := negGroups[parent]
		pts := make([]structure.Vec3, len(atoms))
		for k, i := range atoms {
			pts[k] = m.Atoms[i].Pos
		}
		f.negative = append(f.negative, chargeGroup{atoms: atoms, center: structure.Centroid(pts)})
	}
	for _, r := range chem.AromaticRings(m) {
		pts := make([]structure.Vec3, len(r))
		for k, i := range r {
			pts[k] = m.Atoms[i].Pos
		}
		normal, _ := structure.PlaneNormal(pts)
		f.rings = append(f.rings, ring{center: structure.Centroid(pts), normal: normal})
	}
	return f
}

// acidParent returns the carbon, phosphorus or sulfur of a carboxylate,
// phosphate or sulfate group that oxygen i belongs to.
func acidParent(m *chem.Molecule, i int) (int, bool) {
	nbs := m.Neighbors(i)
	heavy := 0
	parent := -1
	for _, j := range nbs {
		if !m.Atoms[j].IsHydrogen() {
			heavy++
			parent = j
		}
	}
	if heavy != 1 {
		return -1, false
	}
	switch m.Atoms[parent].Element {
	case "P", "S":
		oxygens := 0
		for _, j := range m.Neighbors(parent) {
			if m.Atoms[j].Element == "O" && m.HeavyDegree(j) == 1 {
				oxygens++
			}
		}
		return parent, oxygens >= 3
	case "C":
		oxygens := 0
		for _, j := range m.Neighbors(parent) {
			if m.Atoms[j].Element == "O" && m.HeavyDegree(j) == 1 {
				oxygens++
			}
		}
		return parent, oxygens == 2
	}
	return -1, false
}

// isAliphaticAmine reports a non-aromatic sp3 nitrogen that is not an amide.
func isAliphaticAmine(m *chem.Molecule, i int) bool {
	if m.Atoms[i].Aromatic {
		return false
	}
	for _, k := range m.BondsOf(i) {
		b := m.Bonds[k]
		if b.Order != chem.Single {
			return false
		}
		j := b.Other(i)
		if m.Atoms[j].Aromatic {
			return false
		}
		for _, k2 := range m.BondsOf(j) {
			b2 := m.Bonds[k2]
			if b2.Order == chem.Double && b2.Other(j) != i {
				return false
			}
		}
	}
	return m.HeavyDegree(i) > 0
}
