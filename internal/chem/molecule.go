// Package chem is the built-in cheminformatics toolkit: a molecular graph,
// a SMILES reader and canonical writer, ring perception, kekulization and
// valence checks, distance-based bond perception, substructure matching,
// hydrogen handling and an MDL molfile writer.
package chem

import (
	"sort"

	"plicore/internal/structure"
)

// BondOrder is the order of a bond; Aromatic marks delocalised ring bonds.
type BondOrder int

const (
	Single   BondOrder = 1
	Double   BondOrder = 2
	Triple   BondOrder = 3
	Aromatic BondOrder = 4
)

// valence returns the bond's contribution to valence with aromatic bonds counted as 1.
func (o BondOrder) valence() int {
	if o == Aromatic {
		return 1
	}
	return int(o)
}

// Atom is a vertex of the molecular graph. HCount holds hydrogens that are
// not present as explicit atoms.
type Atom struct {
	Element  string
	Charge   int
	Aromatic bool
	HCount   int
	Pos      structure.Vec3
	Name     string
	ResName  string
	ResSeq   int
	Chain    string
	AltLoc   string
}

// IsHydrogen reports whether the atom is H or D.
func (a Atom) IsHydrogen() bool { return a.Element == "H" || a.Element == "D" }

// Bond joins atoms A and B.
type Bond struct {
	A, B  int
	Order BondOrder
}

// Other returns the endpoint of b that is not i.
func (b Bond) Other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// Molecule is an undirected molecular graph.
type Molecule struct {
	Name  string
	Atoms []Atom
	Bonds []Bond

	adj      [][]int // bond indices per atom
	adjBonds int
}

// AddAtom appends a and returns its index.
func (m *Molecule) AddAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = nil
	return len(m.Atoms) - 1
}

// AddBond joins i and j unless they are already bonded or identical. It
// reports whether a bond was added.
func (m *Molecule) AddBond(i, j int, order BondOrder) bool {
	if i == j {
		return false
	}
	if _, ok := m.BondBetween(i, j); ok {
		return false
	}
	m.Bonds = append(m.Bonds, Bond{A: i, B: j, Order: order})
	m.adj = nil
	return true
}

func (m *Molecule) ensureAdj() {
	if m.adj != nil && m.adjBonds == len(m.Bonds) && len(m.adj) == len(m.Atoms) {
		return
	}
	m.adj = make([][]int, len(m.Atoms))
	for k, b := range m.Bonds {
		m.adj[b.A] = append(m.adj[b.A], k)
		m.adj[b.B] = append(m.adj[b.B], k)
	}
	m.adjBonds = len(m.Bonds)
}

// BondsOf returns the indices of the bonds touching atom i.
func (m *Molecule) BondsOf(i int) []int {
	m.ensureAdj()
	return m.adj[i]
}

// Neighbors returns the atoms bonded to i.
func (m *Molecule) Neighbors(i int) []int {
	bonds := m.BondsOf(i)
	out := make([]int, len(bonds))
	for k, b := range bonds {
		out[k] = m.Bonds[b].Other(i)
	}
	return out
}

// HeavyDegree counts non-hydrogen neighbours of i.
func (m *Molecule) HeavyDegree(i int) int {
	n := 0
	for _, j := range m.Neighbors(i) {
		if !m.Atoms[j].IsHydrogen() {
			n++
		}
	}
	return n
}

// ExplicitHydrogens counts hydrogen atoms bonded to i.
func (m *Molecule) ExplicitHydrogens(i int) int {
	n := 0
	for _, j := range m.Neighbors(i) {
		if m.Atoms[j].IsHydrogen() {
			n++
		}
	}
	return n
}

// BondBetween returns the index of the bond joining i and j.
func (m *Molecule) BondBetween(i, j int) (int, bool) {
	if i < 0 || i >= len(m.Atoms) || j < 0 || j >= len(m.Atoms) {
		return -1, false
	}
	for _, b := range m.BondsOf(i) {
		if m.Bonds[b].Other(i) == j {
			return b, true
		}
	}
	return -1, false
}

// HeavyAtomCount counts atoms that are not hydrogens.
func (m *Molecule) HeavyAtomCount() int {
	n := 0
	for _, a := range m.Atoms {
		if !a.IsHydrogen() {
			n++
		}
	}
	return n
}

// Fragments returns the connected components as sorted atom index lists,
// ordered by their smallest atom index.
func (m *Molecule) Fragments() [][]int {
	seen := make([]bool, len(m.Atoms))
	var out [][]int
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		var frag []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			frag = append(frag, i)
			for _, j := range m.Neighbors(i) {
				if !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		sort.Ints(frag)
		out = append(out, frag)
	}
	return out
}

// NumFragments returns the number of connected components.
func (m *Molecule) NumFragments() int { return len(m.Fragments()) }

// Clone returns a deep copy.
func (m *Molecule) Clone() *Molecule {
	out := &Molecule{Name: m.Name}
	out.Atoms = append([]Atom(nil), m.Atoms...)
	out.Bonds = append([]Bond(nil), m.Bonds...)
	return out
}

// Subgraph returns the molecule induced by keep, plus the map from new to old indices.
func (m *Molecule) Subgraph(keep func(i int) bool) (*Molecule, []int) {
	out := &Molecule{Name: m.Name}
	oldToNew := make([]int, len(m.Atoms))
	var newToOld []int
	for i, a := range m.Atoms {
		oldToNew[i] = -1
		if keep(i) {
			oldToNew[i] = out.AddAtom(a)
			newToOld = append(newToOld, i)
		}
	}
	for _, b := range m.Bonds {
		if oldToNew[b.A] >= 0 && oldToNew[b.B] >= 0 {
			out.AddBond(oldToNew[b.A], oldToNew[b.B], b.Order)
		}
	}
	return out, newToOld
}

// Positions returns atom coordinates.
func (m *Molecule) Positions() []structure.Vec3 {
	out := make([]structure.Vec3, len(m.Atoms))
	for i, a := range m.Atoms {
		out[i] = a.Pos
	}
	return out
}

// FromAtoms builds a bond-less molecule from structure atoms.
func FromAtoms(atoms []structure.Atom, resName string, resSeq int, chain string) *Molecule {
	m := &Molecule{Name: resName}
	for _, a := range atoms {
		m.AddAtom(Atom{
			Element: normalizeSymbol(a.Element),
			Charge:  a.Charge,
			Pos:     a.Pos,
			Name:    a.Name,
			ResName: resName,
			ResSeq:  resSeq,
			Chain:   chain,
			AltLoc:  a.AltLoc,
		})
	}
	return m
}
