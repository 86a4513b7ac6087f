package annotate

import (
	"plicore/internal/structure"
	"plicore/pkg/domain"
)

// backboneBreak is the C(i)-N(i+1) distance above which consecutive
// residues count as disconnected.
const backboneBreak = 2.0

// InterfaceGaps counts unresolved sequence positions and backbone breaks
// next to the residues of chain within 4 and 8 Å of the ligand atoms.
func InterfaceGaps(lig []structure.Vec3, chain *structure.AssemblyChain) domain.InterfaceGaps {
	var g domain.InterfaceGaps
	if len(lig) == 0 || chain == nil || len(chain.Residues) == 0 {
		return g
	}
	grid := structure.NewGrid(lig, 8)
	dist := make([]float64, len(chain.Residues))
	resolved := map[int]int{}
	for i := range chain.Residues {
		r := &chain.Residues[i]
		resolved[r.Index()] = i
		var pts []structure.Vec3
		for _, a := range r.HeavyAtoms() {
			pts = append(pts, a.Pos)
		}
		dist[i] = grid.MinDistance(pts, 8)
	}
	length := 0
	if chain.Source != nil {
		length = len(chain.Source.FullSequence)
	}
	for _, cutoff := range []float64{4, 8} {
		missing := map[int]struct{}{}
		breaks := 0
		for i := range chain.Residues {
			if dist[i] > cutoff {
				continue
			}
			idx := chain.Residues[i].Index()
			for _, n := range []int{idx - 1, idx + 1} {
				if n < 1 || (length > 0 && n > length) {
					continue
				}
				if _, ok := resolved[n]; !ok && length > 0 {
					missing[n] = struct{}{}
				}
			}
			if next, ok := resolved[idx+1]; ok && backboneGap(&chain.Residues[i], &chain.Residues[next]) {
				breaks++
			}
		}
		if cutoff == 4 {
			g.MissingResidues4A, g.AtomGaps4A = len(missing), breaks
		} else {
			g.MissingResidues8A, g.AtomGaps8A = len(missing), breaks
		}
	}
	return g
}

func backboneGap(a, b *structure.Residue) bool {
	c, ok := a.Atom("C")
	if !ok {
		return false
	}
	n, ok := b.Atom("N")
	if !ok {
		return false
	}
	return structure.Dist(c.Pos, n.Pos) > backboneBreak
}
