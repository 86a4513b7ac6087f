package chem

import (
	"sort"

	"plicore/internal/structure"
)

const minBondLength = 0.4

func maxNeighbors(element string) int {
	switch element {
	case "H", "D", "F", "Cl", "Br", "I":
		return 1
	case "O":
		return 2
	case "N", "C", "B":
		return 4
	case "P":
		return 5
	}
	return 6
}

// PerceiveBonds replaces the bonds of m with single bonds between atoms whose
// distance is at most the sum of their covalent radii plus tolerance. Atoms
// left with more neighbours than their element supports lose their longest
// bonds first.
func PerceiveBonds(m *Molecule, tolerance float64) {
	m.Bonds = nil
	m.adj = nil
	if len(m.Atoms) < 2 {
		return
	}
	maxR := 0.0
	for _, a := range m.Atoms {
		maxR = max(maxR, CovalentRadius(a.Element))
	}
	grid := structure.NewGrid(m.Positions(), 2*maxR+tolerance)

	type candidate struct {
		i, j int
		d    float64
	}
	var cands []candidate
	for i, a := range m.Atoms {
		ri := CovalentRadius(a.Element)
		grid.Within(a.Pos, ri+maxR+tolerance, func(j int, d float64) {
			if j <= i || d < minBondLength {
				return
			}
			b := m.Atoms[j]
			if a.IsHydrogen() && b.IsHydrogen() {
				return
			}
			if d <= ri+CovalentRadius(b.Element)+tolerance {
				cands = append(cands, candidate{i, j, d})
			}
		})
	}
	sort.Slice(cands, func(x, y int) bool {
		if cands[x].d != cands[y].d {
			return cands[x].d < cands[y].d
		}
		if cands[x].i != cands[y].i {
			return cands[x].i < cands[y].i
		}
		return cands[x].j < cands[y].j
	})
	degree := make([]int, len(m.Atoms))
	for _, c := range cands {
		if degree[c.i] >= maxNeighbors(m.Atoms[c.i].Element) || degree[c.j] >= maxNeighbors(m.Atoms[c.j].Element) {
			continue
		}
		m.AddBond(c.i, c.j, Single)
		degree[c.i]++
		degree[c.j]++
	}
}
