// Package contacts is the geometric interaction detector. It types contacts
// between a reconstructed ligand and one receptor chain (hydrophobic
// contacts, hydrogen bonds, salt bridges, pi stacking) and finds water
// bridges through resolved water residues.
package contacts

import (
	"math"
	"sort"

	"plicore/internal/chem"
	"plicore/internal/structure"
	"plicore/internal/tables"
	"plicore/pkg/domain"
)

// Options holds the distance and angle cutoffs in Ångström and degrees.
type Options struct {
	HydrophobicCutoff float64
	HBondCutoff       float64
	SaltBridgeCutoff  float64
	PiStackCutoff     float64
	PiStackOffset     float64
	ParallelAngle     float64
	TShapedAngle      float64
	WaterLigandCutoff float64
	WaterProtCutoff   float64
	MinContact        float64
}

// DefaultOptions returns the cutoffs used by the pipeline.
func DefaultOptions() Options {
	return Options{
		HydrophobicCutoff: 4.0,
		HBondCutoff:       3.5,
		SaltBridgeCutoff:  5.5,
		PiStackCutoff:     5.5,
		PiStackOffset:     2.0,
		ParallelAngle:     30,
		TShapedAngle:      60,
		WaterLigandCutoff: 3.5,
		WaterProtCutoff:   3.5,
		MinContact:        2.0,
	}
}

// Detector finds typed contacts. It is safe for concurrent use.
type Detector struct {
	tables   *tables.ChemistryTables
	opts     Options
	backbone map[string]struct{}
}

// New returns a detector using t for residue chemistry and opts for cutoffs.
func New(t *tables.ChemistryTables, opts Options) *Detector {
	return &Detector{tables: t, opts: opts, backbone: tables.BackboneAtoms}
}

func (d *Detector) isStandard(res string) bool {
	if d.tables == nil {
		_, ok := hydrophobicAtoms[res]
		return ok || res == "GLY" || res == "SER" || res == "CYS"
	}
	return d.tables.IsStandardAminoAcid(res)
}

// Detect returns the contacts between lig and receptor in a fixed order:
// hydrophobic contacts, hydrogen bonds, salt bridges, pi stacks, then water
// bridges through waters. Ligand atoms are visited in index order.
func (d *Detector) Detect(lig *chem.Molecule, receptor *structure.AssemblyChain, waters []*structure.AssemblyChain) []domain.Contact {
	if lig == nil || receptor == nil || len(lig.Atoms) == 0 {
		return nil
	}
	rec := d.receptorAtoms(receptor)
	if len(rec) == 0 {
		return nil
	}
	pts := make([]structure.Vec3, len(rec))
	for i, a := range rec {
		pts[i] = a.atom.Pos
	}
	grid := structure.NewGrid(pts, 6)
	feat := analyzeLigand(lig)
	label := receptor.Label.String()
	residueIndex := func(ra receptorAtom) int { return receptor.Residues[ra.residue].Index() }

	var out []domain.Contact
	out = append(out, d.hydrophobic(lig, feat, rec, grid, label, residueIndex)...)
	out = append(out, d.hydrogenBonds(lig, feat, rec, grid, label, residueIndex)...)
	out = append(out, d.saltBridges(feat, rec, grid, label, residueIndex)...)
	out = append(out, d.piStacks(feat, receptor, label)...)
	out = append(out, d.waterBridges(lig, feat, rec, grid, waters, label, residueIndex)...)
	return out
}

type nearest struct {
	idx  int
	dist float64
}

// closest returns the nearest receptor atom within r of p accepted by keep.
func closest(grid *structure.Grid, p structure.Vec3, r, floor float64, rec []receptorAtom, keep func(receptorAtom) bool) (nearest, bool) {
	best := nearest{idx: -1, dist: math.Inf(1)}
	grid.Within(p, r, func(i int, dist float64) {
		if dist < floor || !keep(rec[i]) {
			return
		}
		if dist < best.dist || (dist == best.dist && i < best.idx) {
			best = nearest{idx: i, dist: dist}
		}
	})
	return best, best.idx >= 0
}

func (d *Detector) hydrophobic(lig *chem.Molecule, f ligandFeatures, rec []receptorAtom, grid *structure.Grid, label string, idx func(receptorAtom) int) []domain.Contact {
	var out []domain.Contact
	for _, i := range f.hydrophobic {
		hit, ok := closest(grid, lig.Atoms[i].Pos, d.opts.HydrophobicCutoff, d.opts.MinContact, rec, func(ra receptorAtom) bool { return ra.hydrophobic })
		if !ok {
			continue
		}
		out = append(out, domain.Contact{
			Type:            domain.Hydrophobic,
			ReceptorChain:   label,
			ReceptorResidue: idx(rec[hit.idx]),
			Distance:        hit.dist,
			LigandAtom:      i,
		})
	}
	return out
}

// protDonates reports whether the receptor side donates and whether the pair
// can hydrogen bond at all. When either direction works the receptor donates.
func protDonates(recDon, recAcc, ligDon, ligAcc bool) (bool, bool) {
	switch {
	case recDon && ligAcc && !(recAcc && ligDon):
		return true, true
	case recAcc && ligDon && !(recDon && ligAcc):
		return false, true
	case recDon && ligAcc:
		return true, true
	}
	return false, false
}

func (d *Detector) hydrogenBonds(lig *chem.Molecule, f ligandFeatures, rec []receptorAtom, grid *structure.Grid, label string, idx func(receptorAtom) int) []domain.Contact {
	var out []domain.Contact
	for i, a := range lig.Atoms {
		if !f.donor[i] && !f.acceptor[i] {
			continue
		}
		var hits []nearest
		grid.Within(a.Pos, d.opts.HBondCutoff, func(j int, dist float64) {
			if dist >= d.opts.MinContact+0.5 {
				hits = append(hits, nearest{j, dist})
			}
		})
		sortHits(hits)
		for _, h := range hits {
			ra := rec[h.idx]
			don, ok := protDonates(ra.donor, ra.acceptor, f.donor[i], f.acceptor[i])
			if !ok {
				continue
			}
			out = append(out, domain.Contact{
				Type:            domain.HydrogenBond,
				ReceptorChain:   label,
				ReceptorResidue: idx(ra),
				ProtIsDon:       domain.Bool(don),
				SideChain:       domain.Bool(!ra.backbone),
				Distance:        h.dist,
				LigandAtom:      i,
			})
		}
	}
	return out
}

func sortHits(hits []nearest) {
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].dist != hits[b].dist {
			return hits[a].dist < hits[b].dist
		}
		return hits[a].idx < hits[b].idx
	})
}

func (d *Detector) saltBridges(f ligandFeatures, rec []receptorAtom, grid *structure.Grid, label string, idx func(receptorAtom) int) []domain.Contact {
	var out []domain.Contact
	emit := func(groups []chargeGroup, protIsPos bool) {
		for _, g := range groups {
			seen := map[int]bool{}
			var hits []nearest
			grid.Within(g.center, d.opts.SaltBridgeCutoff, func(j int, dist float64) {
				ra := rec[j]
				if (protIsPos && ra.positive) || (!protIsPos && ra.negative) {
					hits = append(hits, nearest{j, dist})
				}
			})
			sortHits(hits)
			for _, h := range hits {
				ra := rec[h.idx]
				if seen[ra.residue] {
					continue
				}
				seen[ra.residue] = true
				out = append(out, domain.Contact{
					Type:            domain.SaltBridge,
					ReceptorChain:   label,
					ReceptorResidue: idx(ra),
					ProtIsPos:       domain.Bool(protIsPos),
					Distance:        h.dist,
					LigandAtom:      g.atoms[0],
				})
			}
		}
	}
	emit(f.negative, true)
	emit(f.positive, false)
	return out
}

func (d *Detector) piStacks(f ligandFeatures, receptor *structure.AssemblyChain, label string) []domain.Contact {
	if len(f.rings) == 0 || d.tables == nil {
		return nil
	}
	var out []domain.Contact
	for li, lr := range f.rings {
		for ri := range receptor.Residues {
			r := &receptor.Residues[ri]
			for _, names := range d.tables.AromaticRings[r.Name] {
				var pts []structure.Vec3
				for _, n := range names {
					if a, ok := r.Atom(n); ok {
						pts = append(pts, a.Pos)
					}
				}
				if len(pts) != len(names) {
					continue
				}
				center := structure.Centroid(pts)
				normal, _ := structure.PlaneNormal(pts)
				dist := structure.Dist(center, lr.center)
				if dist > d.opts.PiStackCutoff {
					continue
				}
				angle := structure.AngleDeg(normal, lr.normal)
				if angle > 90 {
					angle = 180 - angle
				}
				offset := min(projectedOffset(lr.center, center, lr.normal), projectedOffset(center, lr.center, normal))
				if offset > d.opts.PiStackOffset {
					continue
				}
				var stack string
				switch {
				case angle < d.opts.ParallelAngle:
					stack = domain.StackParallel
				case angle >= d.opts.TShapedAngle:
					stack = domain.StackTShaped
				default:
					continue
				}
				out = append(out, domain.Contact{
					Type:            domain.PiStack,
					ReceptorChain:   label,
					ReceptorResidue: r.Index(),
					StackType:       stack,
					Distance:        dist,
					LigandAtom:      li,
				})
			}
		}
	}
	return out
}

// projectedOffset is the distance of q from the axis through p along normal.
func projectedOffset(p, q, normal structure.Vec3) float64 {
	v := q.Sub(p)
	along := normal.Unit().Scale(v.Dot(normal.Unit()))
	return v.Sub(along).Norm()
}

func (d *Detector) waterBridges(lig *chem.Molecule, f ligandFeatures, rec []receptorAtom, grid *structure.Grid, waters []*structure.AssemblyChain, label string, idx func(receptorAtom) int) []domain.Contact {
	var out []domain.Contact
	type key struct {
		water   string
		res     int
		recAtom int
	}
	seen := map[key]bool{}
	for _, w := range waters {
		wlabel := w.Label.String()
		for wi := range w.Residues {
			wr := &w.Residues[wi]
			o, ok := waterOxygen(wr)
			if !ok {
				continue
			}
			li := closestLigandPolar(lig, f, o.Pos, d.opts.WaterLigandCutoff, d.opts.MinContact+0.5)
			if li < 0 {
				continue
			}
			var hits []nearest
			grid.Within(o.Pos, d.opts.WaterProtCutoff, func(j int, dist float64) {
				if dist >= d.opts.MinContact+0.5 && (rec[j].donor || rec[j].acceptor) {
					hits = append(hits, nearest{j, dist})
				}
			})
			sortHits(hits)
			for _, h := range hits {
				ra := rec[h.idx]
				k := key{wlabel, wr.Index(), h.idx}
				if seen[k] {
					continue
				}
				seen[k] = true
				don := ra.donor && (!ra.acceptor || f.acceptor[li])
				out = append(out, domain.Contact{
					Type:            domain.WaterBridge,
					ReceptorChain:   label,
					ReceptorResidue: idx(ra),
					WaterChain:      wlabel,
					WaterResidue:    wr.Index(),
					ProtIsDon:       domain.Bool(don),
					Distance:        h.dist,
					LigandAtom:      li,
				})
			}
		}
	}
	return out
}

func waterOxygen(r *structure.Residue) (structure.Atom, bool) {
	for _, a := range r.Atoms {
		if a.Element == "O" {
			return a, true
		}
	}
	return structure.Atom{}, false
}

func closestLigandPolar(m *chem.Molecule, f ligandFeatures, p structure.Vec3, cutoff, floor float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, a := range m.Atoms {
		if !f.donor[i] && !f.acceptor[i] {
			continue
		}
		dist := structure.Dist(a.Pos, p)
		if dist >= floor && dist <= cutoff && dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}
