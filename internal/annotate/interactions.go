package annotate

import (
	"sort"

	"plicore/internal/chem"
	"plicore/internal/structure"
	"plicore/pkg/domain"
)

// ContactDetector finds typed contacts between a ligand and one receptor
// chain. contacts.Detector satisfies it.
type ContactDetector interface {
	Detect(lig *chem.Molecule, receptor *structure.AssemblyChain, waters []*structure.AssemblyChain) []domain.Contact
}

// InteractionAnnotator collapses detector contacts into per-residue tags.
type InteractionAnnotator struct {
	detector ContactDetector
}

// NewInteractionAnnotator wraps d.
func NewInteractionAnnotator(d ContactDetector) *InteractionAnnotator {
	return &InteractionAnnotator{detector: d}
}

// Annotate returns the interaction map of lig against receptors and the
// waters bridging it. Receptors are visited in label order; tags for a
// residue keep detection order.
func (a *InteractionAnnotator) Annotate(lig *chem.Molecule, receptors, waters []*structure.AssemblyChain) (domain.InteractionMap, domain.WaterMap) {
	imap := domain.InteractionMap{}
	wmap := domain.WaterMap{}
	if lig == nil || len(lig.Atoms) == 0 || a.detector == nil {
		return imap, wmap
	}
	for _, rec := range sortedChains(receptors) {
		for _, c := range a.detector.Detect(lig, rec, waters) {
			imap.Add(c.ReceptorChain, c.ReceptorResidue, c.Tag())
			if c.Type == domain.WaterBridge && c.WaterChain != "" {
				wmap[c.WaterChain] = append(wmap[c.WaterChain], c.WaterResidue)
			}
		}
	}
	for k, idx := range wmap {
		wmap[k] = sortUnique(idx)
	}
	return imap, wmap
}

func sortUnique(xs []int) []int {
	sort.Ints(xs)
	out := xs[:0]
	for i, x := range xs {
		if i > 0 && x == xs[i-1] {
			continue
		}
		out = append(out, x)
	}
	return out
}

// nearbyWaters returns the water chains with an oxygen within cutoff of any
// ligand atom, each restricted to those residues.
func nearbyWaters(lig []structure.Vec3, waters []*structure.AssemblyChain, cutoff float64) []*structure.AssemblyChain {
	if len(lig) == 0 {
		return nil
	}
	grid := structure.NewGrid(lig, cutoff)
	var out []*structure.AssemblyChain
	for _, w := range sortedChains(waters) {
		var keep []structure.Residue
		for _, r := range w.Residues {
			for _, at := range r.Atoms {
				if !at.IsHydrogen() && grid.MinDistance([]structure.Vec3{at.Pos}, cutoff) <= cutoff {
					keep = append(keep, r)
					break
				}
			}
		}
		if len(keep) > 0 {
			cp := *w
			cp.Residues = keep
			out = append(out, &cp)
		}
	}
	return out
}
