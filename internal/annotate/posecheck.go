package annotate

import (
	"plicore/internal/chem"
	"plicore/internal/structure"
)

// Pose check names reported by GeometryChecker.
const (
	CheckBondLengths   = "bond_lengths"
	CheckInternalClash = "internal_clash"
	CheckProteinClash  = "protein_clash"
)

// PoseChecker scores the physical plausibility of a ligand pose. Results are
// keyed by check name; true means the check passed.
type PoseChecker interface {
	Check(lig *chem.Molecule, receptors []*structure.AssemblyChain, covalentAtoms map[string]bool) map[string]bool
}

// GeometryChecker is a distance-only PoseChecker.
type GeometryChecker struct {
	// BondRatio bounds bond length over the covalent radius sum to [1-BondRatio, 1+BondRatio].
	BondRatio     float64
	InternalClash float64
	ProteinClash  float64
}

// DefaultGeometryChecker returns the thresholds used by the pipeline.
func DefaultGeometryChecker() GeometryChecker {
	return GeometryChecker{BondRatio: 0.25, InternalClash: 2.2, ProteinClash: 2.0}
}

// Check implements PoseChecker. covalentAtoms names ligand atoms bonded to
// the receptor; those are exempt from the protein clash test.
func (g GeometryChecker) Check(lig *chem.Molecule, receptors []*structure.AssemblyChain, covalentAtoms map[string]bool) map[string]bool {
	return map[string]bool{
		CheckBondLengths:   g.bondLengths(lig),
		CheckInternalClash: g.internalClash(lig),
		CheckProteinClash:  g.proteinClash(lig, receptors, covalentAtoms),
	}
}

func (g GeometryChecker) bondLengths(m *chem.Molecule) bool {
	for _, b := range m.Bonds {
		a1, a2 := m.Atoms[b.A], m.Atoms[b.B]
		ideal := chem.CovalentRadius(a1.Element) + chem.CovalentRadius(a2.Element)
		d := structure.Dist(a1.Pos, a2.Pos)
		if d < ideal*(1-g.BondRatio) || d > ideal*(1+g.BondRatio) {
			return false
		}
	}
	return true
}

// internalClash passes when no heavy-atom pair more than two bonds apart is
// closer than InternalClash.
func (g GeometryChecker) internalClash(m *chem.Molecule) bool {
	heavy := make([]int, 0, len(m.Atoms))
	pts := make([]structure.Vec3, 0, len(m.Atoms))
	for i, a := range m.Atoms {
		if !a.IsHydrogen() {
			heavy = append(heavy, i)
			pts = append(pts, a.Pos)
		}
	}
	grid := structure.NewGrid(pts, 4)
	for k, i := range heavy {
		near := map[int]bool{i: true}
		for _, j := range m.Neighbors(i) {
			near[j] = true
			for _, l := range m.Neighbors(j) {
				near[l] = true
			}
		}
		clash := false
		grid.Within(pts[k], g.InternalClash, func(o int, d float64) {
			if d < g.InternalClash && !near[heavy[o]] {
				clash = true
			}
		})
		if clash {
			return false
		}
	}
	return true
}

func (g GeometryChecker) proteinClash(m *chem.Molecule, receptors []*structure.AssemblyChain, covalentAtoms map[string]bool) bool {
	for _, rec := range receptors {
		pts := rec.Positions()
		if len(pts) == 0 {
			continue
		}
		grid := structure.NewGrid(pts, 4)
		for _, a := range m.Atoms {
			if a.IsHydrogen() || covalentAtoms[a.Name] {
				continue
			}
			if grid.AnyWithin(a.Pos, g.ProteinClash) {
				return false
			}
		}
	}
	return true
}
