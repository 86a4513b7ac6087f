package annotate

import (
	"fmt"
	"strings"

	"plicore/internal/chem"
	"plicore/internal/structure"
	"plicore/pkg/domain"
)

// Toolkit is the cheminformatics surface the reconstructor relies on.
// chem.Builtin satisfies it.
type Toolkit interface {
	ParseSMILES(s string) (*chem.Molecule, error)
	PerceiveBonds(m *chem.Molecule, tolerance float64)
	Match(tmpl, obs *chem.Molecule) ([]int, bool)
	Sanitize(m *chem.Molecule) error
	Kekulize(m *chem.Molecule) ([]chem.BondOrder, error)
	AromaticRings(m *chem.Molecule) [][]int
	AddHydrogens(m *chem.Molecule) *chem.Molecule
	RemoveHydrogens(m *chem.Molecule) *chem.Molecule
	CanonicalSMILES(m *chem.Molecule) string
}

// DefaultTolerances is the bond perception ladder, loosest first.
var DefaultTolerances = []float64{0.45, 0.30}

// linkTolerance is the slack over covalent radii for inter-residue bonds.
const linkTolerance = 0.45

// ReconstructInput describes one ligand chain to rebuild.
type ReconstructInput struct {
	Label    domain.ChainLabel
	CCDCode  string
	Residues []structure.Residue
	// SMILES is the whole-ligand template; empty for oligomers matched per residue.
	SMILES string
	// ResidueTemplates resolves per-residue templates for oligomers.
	ResidueTemplates TemplateSource
	AddHydrogens     bool
}

// Reconstruction is the outcome of rebuilding a ligand. Molecule is always
// set, possibly to a best-effort graph when IsInvalid.
type Reconstruction struct {
	Molecule                *chem.Molecule
	ResolvedSMILES          string
	NumAtoms3D              int
	NumHeavyAtoms           int
	NumUnresolvedHeavyAtoms int
	NumAromaticRings        int
	NumFragments            int
	MatchedAtoms            int
	IsInvalid               bool
	Warnings                []string
}

func (r *Reconstruction) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Reconstructor rebuilds ligand molecules from observed coordinates and a
// reference template.
type Reconstructor struct {
	toolkit    Toolkit
	tolerances []float64
}

// NewReconstructor returns a reconstructor using tk, or chem.Builtin when tk is nil.
func NewReconstructor(tk Toolkit) *Reconstructor {
	if tk == nil {
		tk = chem.Builtin{}
	}
	return &Reconstructor{toolkit: tk, tolerances: DefaultTolerances}
}

// Reconstruct rebuilds the ligand described by in. It never fails: problems
// mark the result invalid and are listed in Warnings.
func (r *Reconstructor) Reconstruct(in ReconstructInput) (res Reconstruction) {
	defer func() {
		if p := recover(); p != nil {
			res.IsInvalid = true
			res.warn("reconstruction aborted: %v", p)
			if res.Molecule == nil {
				res.Molecule = &chem.Molecule{Name: in.CCDCode}
			}
		}
	}()

	pieces := observedResidues(in)
	for _, p := range pieces {
		res.NumAtoms3D += len(p.Atoms)
	}

	var mol *chem.Molecule
	switch {
	case in.SMILES != "":
		mol = r.whole(merge(in.CCDCode, pieces), in.SMILES, &res)
	case len(pieces) > 1 && in.ResidueTemplates != nil:
		mol = r.oligomer(in, pieces, &res)
	default:
		res.warn("no template for %s", in.CCDCode)
		mol = r.fallback(merge(in.CCDCode, pieces))
		res.IsInvalid = true
	}
	if res.MatchedAtoms == 0 {
		res.IsInvalid = true
	}

	res.NumFragments = mol.NumFragments()
	res.NumAromaticRings = len(r.toolkit.AromaticRings(mol))
	res.ResolvedSMILES = r.toolkit.CanonicalSMILES(mol)
	if in.AddHydrogens {
		mol = r.toolkit.AddHydrogens(mol)
	}
	res.Molecule = mol
	return res
}

// observedResidues converts the heavy atoms of each residue into a bond-less molecule.
func observedResidues(in ReconstructInput) []*chem.Molecule {
	chain := in.Label.String()
	out := make([]*chem.Molecule, 0, len(in.Residues))
	for i := range in.Residues {
		res := &in.Residues[i]
		out = append(out, chem.FromAtoms(res.HeavyAtoms(), strings.ToUpper(res.Name), res.Index(), chain))
	}
	return out
}

func merge(name string, pieces []*chem.Molecule) *chem.Molecule {
	m := &chem.Molecule{Name: name}
	for _, p := range pieces {
		offset := len(m.Atoms)
		for _, a := range p.Atoms {
			m.AddAtom(a)
		}
		for _, b := range p.Bonds {
			m.AddBond(b.A+offset, b.B+offset, b.Order)
		}
	}
	return m
}

// fallback perceives single bonds on the observed atoms.
func (r *Reconstructor) fallback(obs *chem.Molecule) *chem.Molecule {
	m := obs.Clone()
	r.toolkit.PerceiveBonds(m, r.tolerances[0])
	return m
}

func (r *Reconstructor) template(smiles string) (*chem.Molecule, error) {
	tmpl, err := r.toolkit.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	return r.toolkit.RemoveHydrogens(tmpl), nil
}

// fit is one template match transferred onto the observed atoms.
type fit struct {
	mol     *chem.Molecule
	matched []bool
	// image maps template atoms to molecule atoms, -1 when unresolved.
	image []int
}

func (f fit) count() int {
	n := 0
	for _, ok := range f.matched {
		if ok {
			n++
		}
	}
	return n
}

// match walks the tolerance ladder and returns the first fit that passes
// validation, or the first fit found when none does.
func (r *Reconstructor) match(tmpl, obs *chem.Molecule) (fit, []string, bool) {
	var best fit
	var bestProblems []string
	found := false
	for _, tol := range r.tolerances {
		cand := obs.Clone()
		r.toolkit.PerceiveBonds(cand, tol)
		mapping, ok := r.toolkit.Match(tmpl, cand)
		if !ok {
			continue
		}
		f := r.transfer(tmpl, cand, mapping)
		problems := r.validate(f.mol, tmpl, f.matched)
		if len(problems) == 0 {
			return f, nil, true
		}
		if !found {
			best, bestProblems, found = f, problems, true
		}
	}
	return best, bestProblems, found
}

// transfer copies template bonds, orders, charges and hydrogen counts onto
// the matched observed atoms. Aromatic bonds outside a fully resolved
// aromatic ring take their Kekulé order from the template.
func (r *Reconstructor) transfer(tmpl, obs *chem.Molecule, mapping []int) fit {
	f := fit{
		mol:     &chem.Molecule{Name: obs.Name},
		matched: make([]bool, len(tmpl.Atoms)),
		image:   make([]int, len(tmpl.Atoms)),
	}
	for i := range f.image {
		f.image[i] = -1
	}
	for i, a := range obs.Atoms {
		t := mapping[i]
		if t < 0 {
			continue
		}
		ta := tmpl.Atoms[t]
		a.Charge, a.Aromatic, a.HCount = ta.Charge, ta.Aromatic, ta.HCount
		f.image[t] = f.mol.AddAtom(a)
		f.matched[t] = true
	}
	var source []int
	for k, b := range tmpl.Bonds {
		i, j := f.image[b.A], f.image[b.B]
		if i < 0 || j < 0 {
			continue
		}
		if f.mol.AddBond(i, j, b.Order) {
			source = append(source, k)
		}
	}
	kekule, err := r.toolkit.Kekulize(tmpl)
	if err != nil {
		kekule = nil
	}
	r.dearomatize(f.mol, source, kekule)
	return f
}

func (r *Reconstructor) dearomatize(m *chem.Molecule, source []int, kekule []chem.BondOrder) {
	inRing := make([]bool, len(m.Atoms))
	ringBond := make([]bool, len(m.Bonds))
	for _, ring := range r.toolkit.AromaticRings(m) {
		member := make(map[int]bool, len(ring))
		for _, i := range ring {
			member[i] = true
			inRing[i] = true
		}
		for k, b := range m.Bonds {
			if member[b.A] && member[b.B] {
				ringBond[k] = true
			}
		}
	}
	for k := range m.Bonds {
		if m.Bonds[k].Order != chem.Aromatic || ringBond[k] {
			continue
		}
		order := chem.Single
		if kekule != nil {
			order = kekule[source[k]]
		}
		m.Bonds[k].Order = order
	}
	for i := range m.Atoms {
		if m.Atoms[i].Aromatic && !inRing[i] {
			m.Atoms[i].Aromatic = false
		}
	}
}

// validate lists why m is not an acceptable rebuild of the matched part of tmpl.
func (r *Reconstructor) validate(m, tmpl *chem.Molecule, matched []bool) []string {
	var problems []string
	if err := r.toolkit.Sanitize(m); err != nil {
		problems = append(problems, fmt.Sprintf("sanitize: %v", err))
	}
	want := coveredAromaticRings(r.toolkit.AromaticRings(tmpl), matched)
	if got := len(r.toolkit.AromaticRings(m)); got != want {
		problems = append(problems, fmt.Sprintf("aromatic rings: rebuilt %d, template %d", got, want))
	}
	if n, limit := m.NumFragments(), max(tmpl.NumFragments(), 1); n > limit {
		problems = append(problems, fmt.Sprintf("%d disconnected fragments", n))
	}
	return problems
}

// coveredAromaticRings counts template rings whose atoms were all matched.
func coveredAromaticRings(rings [][]int, matched []bool) int {
	n := 0
	for _, ring := range rings {
		all := true
		for _, i := range ring {
			if !matched[i] {
				all = false
				break
			}
		}
		if all {
			n++
		}
	}
	return n
}

func (r *Reconstructor) whole(obs *chem.Molecule, smiles string, res *Reconstruction) *chem.Molecule {
	tmpl, err := r.template(smiles)
	if err != nil {
		res.warn("template %s: %v", obs.Name, err)
		res.IsInvalid = true
		return r.fallback(obs)
	}
	res.NumHeavyAtoms = len(tmpl.Atoms)
	f, problems, ok := r.match(tmpl, obs)
	if !ok {
		res.warn("%s: observed atoms do not match the template", obs.Name)
		res.IsInvalid = true
		res.NumUnresolvedHeavyAtoms = len(tmpl.Atoms)
		return r.fallback(obs)
	}
	res.MatchedAtoms = f.count()
	res.NumUnresolvedHeavyAtoms = len(tmpl.Atoms) - res.MatchedAtoms
	for _, p := range problems {
		res.warn("%s: %s", obs.Name, p)
	}
	res.IsInvalid = len(problems) > 0
	return f.mol
}

type residueFit struct {
	fit
	tmpl   *chem.Molecule
	offset int
	ok     bool
}

// oligomer matches each residue against its own template and joins the
// pieces through observed inter-residue bonds.
func (r *Reconstructor) oligomer(in ReconstructInput, pieces []*chem.Molecule, res *Reconstruction) *chem.Molecule {
	mol := &chem.Molecule{Name: in.CCDCode}
	fits := make([]residueFit, len(pieces))
	residueOf := []int{}
	expectedRings := 0
	for k, obs := range pieces {
		rf := residueFit{offset: len(mol.Atoms)}
		piece := r.fallback(obs)
		if smiles, ok := in.ResidueTemplates.SMILES(obs.Name); !ok {
			res.warn("no template for residue %s", obs.Name)
			res.IsInvalid = true
		} else if tmpl, err := r.template(smiles); err != nil {
			res.warn("template %s: %v", obs.Name, err)
			res.IsInvalid = true
		} else {
			rf.tmpl = tmpl
			res.NumHeavyAtoms += len(tmpl.Atoms)
			f, problems, found := r.match(tmpl, obs)
			if found {
				rf.fit, rf.ok, piece = f, true, f.mol
				res.MatchedAtoms += f.count()
				expectedRings += coveredAromaticRings(r.toolkit.AromaticRings(tmpl), f.matched)
				for _, p := range problems {
					// a residue on its own may be open-valent or charged differently
					if !strings.HasPrefix(p, "sanitize") {
						res.warn("%s: %s", obs.Name, p)
						res.IsInvalid = true
					}
				}
			} else {
				res.warn("%s: observed atoms do not match the template", obs.Name)
				res.IsInvalid = true
			}
		}
		for _, a := range piece.Atoms {
			mol.AddAtom(a)
			residueOf = append(residueOf, k)
		}
		for _, b := range piece.Bonds {
			mol.AddBond(b.A+rf.offset, b.B+rf.offset, b.Order)
		}
		fits[k] = rf
	}

	links := r.residueLinks(mol, residueOf)
	linked := make([]bool, len(mol.Atoms))
	for _, l := range links {
		if mol.AddBond(l[0], l[1], chem.Single) {
			for _, i := range l {
				linked[i] = true
				if mol.Atoms[i].HCount > 0 {
					mol.Atoms[i].HCount--
				}
			}
		}
	}

	leaving := 0
	for _, rf := range fits {
		if !rf.ok {
			if rf.tmpl != nil {
				res.NumUnresolvedHeavyAtoms += len(rf.tmpl.Atoms)
			}
			continue
		}
		missing := len(rf.tmpl.Atoms) - rf.count()
		left := leavingAtoms(rf, linked)
		leaving += left
		res.NumUnresolvedHeavyAtoms += missing - left
	}
	if leaving > 0 {
		res.NumHeavyAtoms -= leaving
	}

	if err := r.toolkit.Sanitize(mol); err != nil {
		res.warn("%s: sanitize: %v", in.CCDCode, err)
		res.IsInvalid = true
	}
	if got := len(r.toolkit.AromaticRings(mol)); got != expectedRings {
		res.warn("%s: aromatic rings: rebuilt %d, template %d", in.CCDCode, got, expectedRings)
		res.IsInvalid = true
	}
	if n := mol.NumFragments(); n > 1 {
		res.warn("%s: %d disconnected fragments", in.CCDCode, n)
		res.IsInvalid = true
	}
	return mol
}

// residueLinks returns, per pair of residues, the closest atom pair within
// bonding distance.
func (r *Reconstructor) residueLinks(m *chem.Molecule, residueOf []int) [][2]int {
	type pair struct{ a, b int }
	type link struct {
		i, j int
		dist float64
	}
	grid := structure.NewGrid(m.Positions(), 4)
	best := map[pair]link{}
	var order []pair
	for i, a := range m.Atoms {
		ri := chem.CovalentRadius(a.Element)
		grid.Within(a.Pos, 2*ri+linkTolerance+1, func(j int, d float64) {
			if j <= i || residueOf[i] == residueOf[j] || d < 0.4 {
				return
			}
			if d > ri+chem.CovalentRadius(m.Atoms[j].Element)+linkTolerance {
				return
			}
			key := pair{min(residueOf[i], residueOf[j]), max(residueOf[i], residueOf[j])}
			cur, seen := best[key]
			if !seen {
				order = append(order, key)
			}
			if !seen || d < cur.dist {
				best[key] = link{i, j, d}
			}
		})
	}
	out := make([][2]int, 0, len(order))
	for _, k := range order {
		out = append(out, [2]int{best[k].i, best[k].j})
	}
	return out
}

// leavingAtoms counts unresolved terminal template atoms hanging off a
// linking atom: at most one per linking atom.
func leavingAtoms(rf residueFit, linked []bool) int {
	n := 0
	for t := range rf.tmpl.Atoms {
		img := rf.image[t]
		if img < 0 || !linked[img+rf.offset] {
			continue
		}
		for _, u := range rf.tmpl.Neighbors(t) {
			if !rf.matched[u] && rf.tmpl.HeavyDegree(u) == 1 {
				n++
				break
			}
		}
	}
	return n
}

// CovalentLinkages returns the struct_conn bonds between residues of the
// ligand chain and residues of receptor chains. Polymer backbone links are
// skipped.
func CovalentLinkages(ligand *structure.Chain, links []structure.Link, receptors map[string]bool) []domain.CovalentLinkage {
	if ligand == nil {
		return nil
	}
	var out []domain.CovalentLinkage
	for _, l := range links {
		if !l.IsCovalent() {
			continue
		}
		lig, rec := l.A, l.B
		if lig.Asym != ligand.AsymID {
			lig, rec = rec, lig
		}
		if lig.Asym != ligand.AsymID || !receptors[rec.Asym] || backboneLink(lig.Atom, rec.Atom) {
			continue
		}
		out = append(out, domain.CovalentLinkage{
			LigandAtom:   atomLabel(lig),
			ReceptorAtom: atomLabel(rec),
			Distance:     l.Distance,
		})
	}
	return out
}

func atomLabel(ref structure.AtomRef) string {
	chain := ref.AuthChain
	if chain == "" {
		chain = ref.Asym
	}
	return ref.ResName + ":" + chain + ":" + ref.Atom
}

func backboneLink(a, b string) bool {
	switch {
	case a == "C" && b == "N", a == "N" && b == "C":
		return true
	case a == "O3'" && b == "P", a == "P" && b == "O3'":
		return true
	}
	return false
}
