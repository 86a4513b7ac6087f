package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"plicore/internal/chem"
	"plicore/internal/contacts"
	"plicore/internal/core"
	"plicore/internal/structure"
	"plicore/internal/tables"
	"plicore/pkg/domain"
)

// Options configures a Pipeline.
type Options struct {
	MinPolymerSize int
	Partition      PartitionOptions
	SkipPoseChecks bool
	AddHydrogens   bool
	// WaterCutoff selects the waters kept with a system, in Ångström.
	WaterCutoff float64
}

// DefaultOptions returns the pipeline defaults.
func DefaultOptions() Options {
	return Options{
		MinPolymerSize: DefaultMinPolymerSize,
		Partition:      DefaultPartitionOptions(),
		WaterCutoff:    4.0,
	}
}

// Deps are the collaborators of a Pipeline. Nil fields take the built-in
// implementation, except Reader which AnnotateEntry requires.
type Deps struct {
	Reader    structure.Reader
	Builder   structure.AssemblyBuilder
	Tables    *tables.ChemistryTables
	Toolkit   Toolkit
	Detector  ContactDetector
	Templates TemplateSource
	Poses     PoseChecker
	Metrics   core.Metrics
	Tracer    core.Tracer
	Logger    *slog.Logger
}

// ErrNoReader is returned by AnnotateEntry when the pipeline has no reader.
var ErrNoReader = errors.New("annotate: no structure reader configured")

// Pipeline annotates one entry at a time. It holds no per-entry state and is
// safe for concurrent use.
type Pipeline struct {
	reader        structure.Reader
	builder       structure.AssemblyBuilder
	tables        *tables.ChemistryTables
	classifier    *Classifier
	partitioner   *Partitioner
	reconstructor *Reconstructor
	interactions  *InteractionAnnotator
	templates     TemplateSource
	poses         PoseChecker
	metrics       core.Metrics
	tracer        core.Tracer
	logger        *slog.Logger
	opts          Options
	now           func() time.Time
}

// NewPipeline wires a pipeline from deps and opts.
func NewPipeline(deps Deps, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.WaterCutoff <= 0 {
		opts.WaterCutoff = def.WaterCutoff
	}
	if deps.Tables == nil {
		deps.Tables = tables.Default()
	}
	if deps.Builder == nil {
		deps.Builder = structure.Builder{}
	}
	if deps.Toolkit == nil {
		deps.Toolkit = chem.Builtin{}
	}
	if deps.Detector == nil {
		deps.Detector = contacts.New(deps.Tables, contacts.DefaultOptions())
	}
	if deps.Poses == nil {
		deps.Poses = DefaultGeometryChecker()
	}
	if deps.Metrics == nil {
		deps.Metrics = core.NopMetrics{}
	}
	if deps.Tracer == nil {
		deps.Tracer = core.NopTracer{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		reader:        deps.Reader,
		builder:       deps.Builder,
		tables:        deps.Tables,
		classifier:    NewClassifier(deps.Tables, opts.MinPolymerSize),
		partitioner:   NewPartitioner(opts.Partition),
		reconstructor: NewReconstructor(deps.Toolkit),
		interactions:  NewInteractionAnnotator(deps.Detector),
		templates:     deps.Templates,
		poses:         deps.Poses,
		metrics:       deps.Metrics,
		tracer:        deps.Tracer,
		logger:        deps.Logger,
		opts:          opts,
		now:           time.Now,
	}
}

// SystemBundle carries one annotated system with the chains and molecules
// needed to write its artifacts.
type SystemBundle struct {
	System    domain.System
	Receptors []*structure.AssemblyChain
	Ligands   []*structure.AssemblyChain
	Waters    []*structure.AssemblyChain
	// Molecules is parallel to System.Ligands.
	Molecules []*chem.Molecule
}

// Result is an annotated entry.
type Result struct {
	Entry     domain.Entry
	Structure *structure.Structure
	Systems   []SystemBundle
}

// entryCache is the per-entry arena: it lives for one AnnotateStructure call.
type entryCache struct {
	templates TemplateSource
	smiles    map[string]string
	roles     map[string]domain.Role
}

func (c *entryCache) template(code string) (string, bool) {
	if s, ok := c.smiles[code]; ok {
		return s, s != ""
	}
	s, ok := "", false
	if c.templates != nil {
		s, ok = c.templates.SMILES(code)
	}
	c.smiles[code] = s
	return s, ok
}

// SMILES implements TemplateSource over the memoized lookups.
func (c *entryCache) SMILES(code string) (string, bool) { return c.template(code) }

// AnnotateEntry reads the structure at path and annotates it.
func (p *Pipeline) AnnotateEntry(ctx context.Context, path string) (*Result, error) {
	if p.reader == nil {
		return nil, ErrNoReader
	}
	var s *structure.Structure
	err := core.Stage(ctx, p.metrics, p.tracer, "read", func(ctx context.Context) error {
		var err error
		s, err = p.reader.Read(ctx, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p.AnnotateStructure(ctx, s)
}

// AnnotateStructure annotates an already parsed structure.
func (p *Pipeline) AnnotateStructure(ctx context.Context, s *structure.Structure) (*Result, error) {
	if s == nil {
		return nil, errors.New("annotate: nil structure")
	}
	entryID := strings.ToLower(s.ID)
	log := p.logger.With("entry", entryID)
	cache := &entryCache{
		templates: Templates{TemplateMap(s.Templates), p.templates},
		smiles:    map[string]string{},
		roles:     map[string]domain.Role{},
	}
	entry := domain.Entry{ID: entryID, Info: s.Info, Status: domain.StatusSuccess}

	_ = core.Stage(ctx, p.metrics, p.tracer, "classify", func(context.Context) error {
		entry.Chains = p.classify(s, cache, &entry, log)
		return nil
	})

	var assemblies []structure.Assembly
	err := core.Stage(ctx, p.metrics, p.tracer, "assemblies", func(context.Context) error {
		var err error
		assemblies, err = p.builder.Expand(s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("expand assemblies of %s: %w", entryID, err)
	}
	if len(assemblies) > 0 && entry.Info.OligomericState == "" {
		entry.Info.OligomericState = assemblies[0].Oligomeric
	}

	var groups []Group
	_ = core.Stage(ctx, p.metrics, p.tracer, "partition", func(context.Context) error {
		groups = p.partitioner.Partition(entryID, assemblies, cache.roles)
		return nil
	})

	res := &Result{Structure: s}
	_ = core.Stage(ctx, p.metrics, p.tracer, "systems", func(ctx context.Context) error {
		for gi := range groups {
			res.Systems = append(res.Systems, p.system(ctx, s, &groups[gi], cache, log))
		}
		return nil
	})
	for _, b := range res.Systems {
		entry.Systems = append(entry.Systems, b.System)
	}
	entry.AnnotatedAt = p.now().UTC()
	res.Entry = entry
	p.metrics.ObserveSystems(len(entry.Systems))
	log.Info("entry annotated", "systems", len(entry.Systems), "chains", len(entry.Chains))
	return res, nil
}

func (p *Pipeline) classify(s *structure.Structure, cache *entryCache, entry *domain.Entry, log *slog.Logger) []domain.Chain {
	out := make([]domain.Chain, 0, len(s.Chains))
	for _, ch := range s.Chains {
		role, warnings := p.classifier.Classify(ch)
		cache.roles[ch.AsymID] = role
		for _, w := range warnings {
			log.Warn("classification", "chain", ch.AsymID, "warning", w)
			entry.Warnings = append(entry.Warnings, w)
		}
		c := domain.Chain{
			AsymID:      ch.AsymID,
			AuthID:      ch.AuthID,
			EntityID:    ch.EntityID,
			PolymerType: ch.PolymerType,
			Role:        role,
			Mappings:    s.Mappings[ch.EntityID],
		}
		if ch.IsPolymer() {
			c.Sequence = p.oneLetter(ch)
		}
		for _, r := range ch.Residues {
			c.ResidueIDs = append(c.ResidueIDs, strconv.Itoa(r.AuthSeq)+r.ICode)
		}
		out = append(out, c)
	}
	return out
}

func (p *Pipeline) oneLetter(ch *structure.Chain) string {
	names := ch.FullSequence
	if len(names) == 0 {
		names = ch.ResidueNames()
	}
	var b strings.Builder
	for _, n := range names {
		c, _ := p.tables.OneLetter(p.tables.Canonicalize(n))
		b.WriteByte(c)
	}
	return b.String()
}

func (p *Pipeline) system(ctx context.Context, s *structure.Structure, g *Group, cache *entryCache, log *slog.Logger) SystemBundle {
	log = log.With("system", g.ID)
	bundle := SystemBundle{Receptors: g.Receptors, Ligands: g.Ligands}
	sys := domain.System{
		ID:                          g.ID,
		EntryID:                     strings.ToLower(s.ID),
		Assembly:                    g.Assembly.ID,
		Type:                        g.Type,
		Receptors:                   g.ReceptorLabels(),
		NumAtomsWithCrystalContacts: g.NumAtomsWithCrystalContacts,
		NumCrystalContactedResidues: g.NumCrystalContactedResidues,
		Warnings:                    append([]string(nil), g.Warnings...),
	}
	sys.ReceptorAuthIDs = authIDs(g.Receptors)

	var waters []*structure.AssemblyChain
	for _, c := range g.Assembly.Chains {
		if cache.roles[c.Label.Asym] == domain.RoleWater {
			waters = append(waters, c)
		}
	}
	var systemPts []structure.Vec3
	for _, lc := range g.Ligands {
		systemPts = append(systemPts, lc.Positions()...)
	}
	bundle.Waters = nearbyWaters(systemPts, waters, p.opts.WaterCutoff)

	for _, lc := range g.Ligands {
		lig, mol := p.ligand(ctx, s, g, lc, bundle.Waters, cache, log)
		sys.Ligands = append(sys.Ligands, lig)
		bundle.Molecules = append(bundle.Molecules, mol)
	}
	sys.PocketResidues = pocketResidues(systemPts, g.Receptors, p.opts.Partition.ResidueThreshold)
	bundle.System = sys
	return bundle
}

func (p *Pipeline) ligand(ctx context.Context, s *structure.Structure, g *Group, lc *structure.AssemblyChain, waters []*structure.AssemblyChain, cache *entryCache, log *slog.Logger) (domain.Ligand, *chem.Molecule) {
	role := cache.roles[lc.Label.Asym]
	code := p.classifier.LigandCode(lc.Residues)
	in := ReconstructInput{
		Label:        lc.Label,
		CCDCode:      code,
		Residues:     lc.Residues,
		AddHydrogens: p.opts.AddHydrogens,
	}
	smiles, ok := cache.template(code)
	if ok {
		in.SMILES = smiles
	}
	if len(lc.Residues) > 1 {
		in.ResidueTemplates = cache
	}

	var rec Reconstruction
	_ = core.Stage(ctx, p.metrics, p.tracer, "reconstruct", func(context.Context) error {
		rec = p.reconstructor.Reconstruct(in)
		return nil
	})
	p.metrics.ObserveLigand(rec.IsInvalid)
	for _, w := range rec.Warnings {
		log.Warn("reconstruction", "ligand", lc.Label.String(), "ccd", code, "warning", w)
	}

	lig := domain.Ligand{
		Label:                   lc.Label,
		AsymID:                  lc.Label.Asym,
		CCDCode:                 code,
		SMILES:                  smiles,
		ResolvedSMILES:          rec.ResolvedSMILES,
		NumAtoms3D:              rec.NumAtoms3D,
		NumHeavyAtoms:           rec.NumHeavyAtoms,
		NumUnresolvedHeavyAtoms: rec.NumUnresolvedHeavyAtoms,
		NumAromaticRings:        rec.NumAromaticRings,
		NumFragments:            rec.NumFragments,
		IsInvalid:               rec.IsInvalid,
		IsCofactor:              role == domain.RoleCofactor,
		IsArtifact:              p.tables.IsArtifact(code),
		IsIon:                   role == domain.RoleIon,
		IsOligo:                 len(lc.Residues) > 1,
		IsPeptide:               role == domain.RolePeptideLigand,
		IsKinaseInhibitor:       p.tables.IsKinaseInhibitor(code),
		NeighboringReceptors:    g.ReceptorNeighbors[lc.Label],
		NeighboringLigands:      g.LigandNeighbors[lc.Label],
		Warnings:                rec.Warnings,
	}
	if lc.Source != nil {
		lig.AuthChain = lc.Source.AuthID
		lig.CovalentLinkages = CovalentLinkages(lc.Source, s.Links, systemReceptors(g))
		lig.IsCovalent = len(lig.CovalentLinkages) > 0
	}
	hasICode := false
	for _, r := range lc.Residues {
		lig.ResidueNumbers = append(lig.ResidueNumbers, r.AuthSeq)
		hasICode = hasICode || r.ICode != ""
	}
	if hasICode {
		for _, r := range lc.Residues {
			lig.ResidueICodes = append(lig.ResidueICodes, r.ICode)
		}
	}

	var neighbors []*structure.AssemblyChain
	for _, label := range lig.NeighboringReceptors {
		if c, ok := g.Assembly.Chain(label); ok {
			neighbors = append(neighbors, c)
		}
	}
	lig.NeighboringAuthIDs = authIDs(neighbors)

	lig.Interactions, lig.Waters = domain.InteractionMap{}, domain.WaterMap{}
	if rec.MatchedAtoms > 0 {
		_ = core.Stage(ctx, p.metrics, p.tracer, "interactions", func(context.Context) error {
			lig.Interactions, lig.Waters = p.interactions.Annotate(rec.Molecule, neighbors, waters)
			return nil
		})
	}

	heavy := heavyPositions(rec.Molecule)
	lig.Gaps = map[string]domain.InterfaceGaps{}
	for _, c := range neighbors {
		lig.Gaps[c.Label.String()] = InterfaceGaps(heavy, c)
	}
	if !p.opts.SkipPoseChecks && len(heavy) > 0 {
		covalent := map[string]bool{}
		for _, l := range lig.CovalentLinkages {
			if i := strings.LastIndex(l.LigandAtom, ":"); i >= 0 {
				covalent[l.LigandAtom[i+1:]] = true
			}
		}
		lig.PoseChecks = p.poses.Check(rec.Molecule, neighbors, covalent)
	}
	return lig, rec.Molecule
}

// systemReceptors returns the asym ids of the receptor chains of one system.
func systemReceptors(g *Group) map[string]bool {
	out := make(map[string]bool, len(g.Receptors))
	for _, rc := range g.Receptors {
		out[rc.Label.Asym] = true
	}
	return out
}

func heavyPositions(m *chem.Molecule) []structure.Vec3 {
	out := make([]structure.Vec3, 0, len(m.Atoms))
	for _, a := range m.Atoms {
		if !a.IsHydrogen() {
			out = append(out, a.Pos)
		}
	}
	return out
}

// authIDs returns the sorted, distinct author chain ids of chains.
func authIDs(chains []*structure.AssemblyChain) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range chains {
		if c == nil || c.Source == nil || seen[c.Source.AuthID] {
			continue
		}
		seen[c.Source.AuthID] = true
		out = append(out, c.Source.AuthID)
	}
	sort.Strings(out)
	return out
}

// pocketResidues lists receptor residues with a heavy atom within cutoff of
// the ligand atoms, ordered by chain label then residue index.
func pocketResidues(lig []structure.Vec3, receptors []*structure.AssemblyChain, cutoff float64) []domain.ResidueRef {
	if len(lig) == 0 {
		return nil
	}
	grid := structure.NewGrid(lig, cutoff)
	var out []domain.ResidueRef
	for _, c := range receptors {
		for ri := range c.Residues {
			r := &c.Residues[ri]
			for _, a := range r.HeavyAtoms() {
				if grid.MinDistance([]structure.Vec3{a.Pos}, cutoff) <= cutoff {
					out = append(out, domain.ResidueRef{
						Chain:   c.Label,
						AuthSeq: r.AuthSeq,
						SeqID:   r.SeqID,
						ICode:   r.ICode,
						Name:    r.Name,
						AltLocs: r.AltLocs,
					})
					break
				}
			}
		}
	}
	return out
}
