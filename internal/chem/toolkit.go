package chem

// Builtin bundles the package functions behind a value so callers can depend
// on a narrow interface and swap in another toolkit.
type Builtin struct {
	// MatchBudget caps substructure search steps; zero means DefaultMatchBudget.
	MatchBudget int
}

func (Builtin) ParseSMILES(s string) (*Molecule, error)      { return ParseSMILES(s) }
func (Builtin) PerceiveBonds(m *Molecule, tolerance float64) { PerceiveBonds(m, tolerance) }
func (Builtin) Sanitize(m *Molecule) error                   { return Sanitize(m) }
func (Builtin) AromaticRingCount(m *Molecule) int            { return AromaticRingCount(m) }
func (Builtin) AromaticRings(m *Molecule) [][]int            { return AromaticRings(m) }
func (Builtin) Kekulize(m *Molecule) ([]BondOrder, error)    { return Kekulize(m) }
func (Builtin) AddHydrogens(m *Molecule) *Molecule           { return AddHydrogens(m) }
func (Builtin) RemoveHydrogens(m *Molecule) *Molecule        { return RemoveHydrogens(m) }
func (Builtin) CanonicalSMILES(m *Molecule) string           { return CanonicalSMILES(m) }

// Match maps observed heavy atoms onto template atoms within the configured budget.
func (b Builtin) Match(tmpl, obs *Molecule) ([]int, bool) {
	return MatchSubgraph(tmpl, obs, b.MatchBudget)
}
