package annotate

import (
	"fmt"
	"sort"

	"plicore/internal/structure"
	"plicore/pkg/domain"
)

// PartitionOptions holds the neighbour thresholds in Ångström.
type PartitionOptions struct {
	ResidueThreshold        float64
	LigandThreshold         float64
	CrystalContactThreshold float64
}

// DefaultPartitionOptions returns the thresholds used by the pipeline.
func DefaultPartitionOptions() PartitionOptions {
	return PartitionOptions{ResidueThreshold: 6.0, LigandThreshold: 4.0, CrystalContactThreshold: 4.0}
}

// Group is one system before annotation: a connected set of ligand chains and
// the receptor chains they touch inside one assembly.
type Group struct {
	ID        string
	Assembly  *structure.Assembly
	Type      domain.SystemType
	Receptors []*structure.AssemblyChain
	Ligands   []*structure.AssemblyChain
	// ReceptorNeighbors and LigandNeighbors are keyed by ligand label.
	ReceptorNeighbors map[domain.ChainLabel][]domain.ChainLabel
	LigandNeighbors   map[domain.ChainLabel][]domain.ChainLabel

	NumAtomsWithCrystalContacts int
	NumCrystalContactedResidues int
	Warnings                    []string
}

// ReceptorLabels returns the sorted receptor labels.
func (g *Group) ReceptorLabels() []domain.ChainLabel {
	out := make([]domain.ChainLabel, len(g.Receptors))
	for i, c := range g.Receptors {
		out[i] = c.Label
	}
	return out
}

// LigandLabels returns the sorted ligand labels.
func (g *Group) LigandLabels() []domain.ChainLabel {
	out := make([]domain.ChainLabel, len(g.Ligands))
	for i, c := range g.Ligands {
		out[i] = c.Label
	}
	return out
}

// Partitioner groups ligand chains into systems.
type Partitioner struct {
	opts PartitionOptions
}

// NewPartitioner returns a partitioner; zero thresholds take the defaults.
func NewPartitioner(opts PartitionOptions) *Partitioner {
	def := DefaultPartitionOptions()
	if opts.ResidueThreshold <= 0 {
		opts.ResidueThreshold = def.ResidueThreshold
	}
	if opts.LigandThreshold <= 0 {
		opts.LigandThreshold = def.LigandThreshold
	}
	if opts.CrystalContactThreshold <= 0 {
		opts.CrystalContactThreshold = def.CrystalContactThreshold
	}
	return &Partitioner{opts: opts}
}

// Partition builds the groups of every assembly. roles is keyed by asym id.
// Each assembly is partitioned independently; a ligand chain bound in more
// than one assembly is kept in each and flagged on the later groups.
func (p *Partitioner) Partition(entryID string, assemblies []structure.Assembly, roles map[string]domain.Role) []Group {
	var out []Group
	boundIn := map[string]string{}
	for ai := range assemblies {
		asm := &assemblies[ai]
		groups := p.partitionAssembly(entryID, asm, roles)
		for gi := range groups {
			g := &groups[gi]
			for _, l := range g.Ligands {
				first, seen := boundIn[l.Label.Asym]
				switch {
				case !seen:
					boundIn[l.Label.Asym] = asm.ID
				case first != asm.ID:
					g.Warnings = append(g.Warnings, fmt.Sprintf("ligand chain %s is also bound in assembly %s", l.Label.Asym, first))
				}
			}
		}
		out = append(out, groups...)
	}
	return out
}

type chainAtoms struct {
	chain *structure.AssemblyChain
	pts   []structure.Vec3
	grid  *structure.Grid
}

func newChainAtoms(c *structure.AssemblyChain) chainAtoms {
	pts := c.Positions()
	return chainAtoms{chain: c, pts: pts, grid: structure.NewGrid(pts, 4)}
}

// near reports whether any atom of a lies within cutoff of b.
func near(a, b chainAtoms, cutoff float64) bool {
	if len(a.pts) == 0 || len(b.pts) == 0 {
		return false
	}
	small, large := a, b
	if len(small.pts) > len(large.pts) {
		small, large = large, small
	}
	return large.grid.MinDistance(small.pts, cutoff) <= cutoff
}

func (p *Partitioner) partitionAssembly(entryID string, asm *structure.Assembly, roles map[string]domain.Role) []Group {
	var receptors, ligands []chainAtoms
	for _, c := range sortedChains(asm.Chains) {
		role := roles[c.Label.Asym]
		switch {
		case role.IsReceptor():
			receptors = append(receptors, newChainAtoms(c))
		case role.IsLigand():
			ligands = append(ligands, newChainAtoms(c))
		}
	}
	if len(receptors) == 0 || len(ligands) == 0 {
		return nil
	}

	recNeighbors := map[domain.ChainLabel][]domain.ChainLabel{}
	var bound []chainAtoms
	for _, l := range ligands {
		var hits []domain.ChainLabel
		for _, r := range receptors {
			if near(l, r, p.opts.ResidueThreshold) {
				hits = append(hits, r.chain.Label)
			}
		}
		if len(hits) == 0 {
			continue
		}
		recNeighbors[l.chain.Label] = hits
		bound = append(bound, l)
	}
	if len(bound) == 0 {
		return nil
	}

	parent := make([]int, len(bound))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	ligNeighbors := map[domain.ChainLabel][]domain.ChainLabel{}
	for i := range bound {
		for j := i + 1; j < len(bound); j++ {
			if !near(bound[i], bound[j], p.opts.LigandThreshold) {
				continue
			}
			li, lj := bound[i].chain.Label, bound[j].chain.Label
			ligNeighbors[li] = append(ligNeighbors[li], lj)
			ligNeighbors[lj] = append(ligNeighbors[lj], li)
			if ri, rj := find(i), find(j); ri != rj {
				parent[max(ri, rj)] = min(ri, rj)
			}
		}
	}

	components := map[int][]int{}
	var roots []int
	for i := range bound {
		r := find(i)
		if _, ok := components[r]; !ok {
			roots = append(roots, r)
		}
		components[r] = append(components[r], i)
	}

	byLabel := map[domain.ChainLabel]*structure.AssemblyChain{}
	for _, r := range receptors {
		byLabel[r.chain.Label] = r.chain
	}
	mates := p.mateReceptors(asm, roles)

	out := make([]Group, 0, len(roots))
	for _, root := range roots {
		g := Group{
			Assembly:          asm,
			ReceptorNeighbors: map[domain.ChainLabel][]domain.ChainLabel{},
			LigandNeighbors:   map[domain.ChainLabel][]domain.ChainLabel{},
		}
		var recLabels []domain.ChainLabel
		var members []chainAtoms
		allCofactors := true
		for _, i := range components[root] {
			l := bound[i]
			members = append(members, l)
			g.Ligands = append(g.Ligands, l.chain)
			g.ReceptorNeighbors[l.chain.Label] = recNeighbors[l.chain.Label]
			g.LigandNeighbors[l.chain.Label] = domain.SortLabels(append([]domain.ChainLabel(nil), ligNeighbors[l.chain.Label]...))
			recLabels = append(recLabels, recNeighbors[l.chain.Label]...)
			if roles[l.chain.Label.Asym] != domain.RoleCofactor {
				allCofactors = false
			}
		}
		for _, label := range domain.SortLabels(recLabels) {
			g.Receptors = append(g.Receptors, byLabel[label])
		}
		g.Type = domain.SystemHolo
		if allCofactors {
			g.Type = domain.SystemCofactorOnly
		}
		g.NumAtomsWithCrystalContacts, g.NumCrystalContactedResidues = p.crystalContacts(members, mates)
		g.ID = domain.SystemID(entryID, asm.ID, g.ReceptorLabels(), g.LigandLabels())
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedChains(chains []*structure.AssemblyChain) []*structure.AssemblyChain {
	out := append([]*structure.AssemblyChain(nil), chains...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label.Less(out[j].Label) })
	return out
}

type mateAtom struct {
	chain   int
	residue int
}

type mateIndex struct {
	grid  *structure.Grid
	atoms []mateAtom
}

// mateReceptors indexes the heavy atoms of receptor-role symmetry mates.
func (p *Partitioner) mateReceptors(asm *structure.Assembly, roles map[string]domain.Role) *mateIndex {
	var pts []structure.Vec3
	var atoms []mateAtom
	for ci, c := range asm.Mates {
		if !roles[c.Label.Asym].IsReceptor() {
			continue
		}
		for ri := range c.Residues {
			for _, a := range c.Residues[ri].Atoms {
				if a.IsHydrogen() {
					continue
				}
				pts = append(pts, a.Pos)
				atoms = append(atoms, mateAtom{chain: ci, residue: ri})
			}
		}
	}
	if len(pts) == 0 {
		return nil
	}
	return &mateIndex{grid: structure.NewGrid(pts, 4), atoms: atoms}
}

// crystalContacts counts ligand heavy atoms within the crystal contact
// threshold of a symmetry mate and the distinct mate residues they touch.
func (p *Partitioner) crystalContacts(ligands []chainAtoms, mates *mateIndex) (int, int) {
	if mates == nil {
		return 0, 0
	}
	atoms := 0
	residues := map[mateAtom]struct{}{}
	for _, l := range ligands {
		for _, pt := range l.pts {
			hit := false
			mates.grid.Within(pt, p.opts.CrystalContactThreshold, func(i int, _ float64) {
				hit = true
				residues[mates.atoms[i]] = struct{}{}
			})
			if hit {
				atoms++
			}
		}
	}
	return atoms, len(residues)
}
