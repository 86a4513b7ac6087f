// Package annotate turns a parsed structure into annotated systems: it
// classifies chains, partitions assemblies into ligand systems, rebuilds
// ligand molecules against reference templates and records their
// interactions with the receptor.
package annotate

import (
	"fmt"
	"strings"

	"plicore/internal/structure"
	"plicore/internal/tables"
	"plicore/pkg/domain"
)

// DefaultMinPolymerSize is the residue count at which a polymer becomes a receptor.
const DefaultMinPolymerSize = 10

// Classifier assigns roles to asymmetric-unit chains.
type Classifier struct {
	tables         *tables.ChemistryTables
	minPolymerSize int
}

// NewClassifier returns a classifier backed by t. A non-positive
// minPolymerSize selects DefaultMinPolymerSize.
func NewClassifier(t *tables.ChemistryTables, minPolymerSize int) *Classifier {
	if t == nil {
		t = tables.Default()
	}
	if minPolymerSize <= 0 {
		minPolymerSize = DefaultMinPolymerSize
	}
	return &Classifier{tables: t, minPolymerSize: minPolymerSize}
}

// Tables returns the chemistry tables the classifier consults.
func (c *Classifier) Tables() *tables.ChemistryTables { return c.tables }

// Classify returns the role of ch and the warnings raised while deciding.
// Malformed residue names yield RoleUnknown with a warning.
func (c *Classifier) Classify(ch *structure.Chain) (domain.Role, []string) {
	if ch == nil || (len(ch.Residues) == 0 && len(ch.FullSequence) == 0) {
		return domain.RoleUnknown, []string{"empty chain"}
	}
	names := c.sequence(ch)
	for _, n := range names {
		if !tables.ValidCode(n) {
			return domain.RoleUnknown, []string{fmt.Sprintf("chain %s: malformed residue name %q", ch.AsymID, n)}
		}
	}
	if ch.EntityType == structure.EntityWater || c.allWater(names) {
		return domain.RoleWater, nil
	}
	if ch.IsPolymer() && ch.EntityType != structure.EntityBranched {
		return c.classifyPolymer(ch, names), nil
	}
	if len(names) == 1 || ch.EntityType == structure.EntityNonPolymer {
		return c.classifyComponent(names[0]), nil
	}
	// branched entities (glycans) are oligomeric ligands
	return domain.RoleLigand, nil
}

// sequence returns the canonicalized component ids of the chain: the full
// entity sequence for polymers, the resolved residues otherwise.
func (c *Classifier) sequence(ch *structure.Chain) []string {
	src := ch.FullSequence
	if len(src) == 0 {
		src = ch.ResidueNames()
	}
	out := make([]string, len(src))
	for i, n := range src {
		out[i] = c.tables.Canonicalize(strings.ToUpper(strings.TrimSpace(n)))
	}
	return out
}

func (c *Classifier) allWater(names []string) bool {
	for _, n := range names {
		if !c.tables.IsWater(n) {
			return false
		}
	}
	return len(names) > 0
}

func (c *Classifier) classifyPolymer(ch *structure.Chain, names []string) domain.Role {
	if len(names) < c.minPolymerSize {
		for _, n := range names {
			if !c.tables.IsStandardAminoAcid(n) {
				return domain.RoleLigand
			}
		}
		return domain.RolePeptideLigand
	}
	switch {
	case ch.IsPolypeptide():
		return domain.RoleProtein
	case ch.IsNucleotide():
		return domain.RoleNucleicAcid
	}
	return domain.RoleLigand
}

func (c *Classifier) classifyComponent(code string) domain.Role {
	switch {
	case c.tables.IsArtifact(code):
		return domain.RoleArtifact
	case c.tables.IsCofactor(code):
		return domain.RoleCofactor
	case c.tables.IsIon(code):
		return domain.RoleIon
	}
	return domain.RoleLigand
}

// LigandCode renders the CCD code of a ligand chain: the component id of a
// single residue or the residue ids joined by "-" for oligomers.
func (c *Classifier) LigandCode(residues []structure.Residue) string {
	parts := make([]string, len(residues))
	for i, r := range residues {
		parts[i] = c.tables.Canonicalize(strings.ToUpper(strings.TrimSpace(r.Name)))
	}
	return strings.Join(parts, "-")
}
