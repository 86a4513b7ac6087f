// Package structure models a parsed macromolecular entry: chains, residues,
// atoms, covalent links, assembly definitions and crystal symmetry. It also
// expands assemblies and symmetry mates and offers a neighbour grid.
package structure

import (
	"context"
	"strings"

	"plicore/pkg/domain"
)

// Atom is one resolved atom position. Only the first alternate location of
// each atom is kept; Residue.AltLocs records how many were present.
type Atom struct {
	Serial    int
	Name      string
	Element   string
	AltLoc    string
	Occupancy float64
	BFactor   float64
	Charge    int
	Pos       Vec3
	Het       bool
}

// IsHydrogen reports whether the atom is H or D.
func (a Atom) IsHydrogen() bool {
	return a.Element == "H" || a.Element == "D"
}

// Residue groups atoms sharing a component id and sequence position.
type Residue struct {
	Name    string
	SeqID   int
	AuthSeq int
	ICode   string
	AltLocs int
	Atoms   []Atom
}

// Index returns the sequence index used to key per-residue annotations: the
// label sequence id when present, the author number otherwise.
func (r *Residue) Index() int {
	if r.SeqID > 0 {
		return r.SeqID
	}
	return r.AuthSeq
}

// HeavyAtoms returns the residue atoms that are not hydrogens.
func (r *Residue) HeavyAtoms() []Atom {
	out := make([]Atom, 0, len(r.Atoms))
	for _, a := range r.Atoms {
		if !a.IsHydrogen() {
			out = append(out, a)
		}
	}
	return out
}

// Atom returns the named atom.
func (r *Residue) Atom(name string) (Atom, bool) {
	for _, a := range r.Atoms {
		if a.Name == name {
			return a, true
		}
	}
	return Atom{}, false
}

// Entity types as they appear in _entity.type.
const (
	EntityPolymer    = "polymer"
	EntityNonPolymer = "non-polymer"
	EntityBranched   = "branched"
	EntityWater      = "water"
)

// Chain is one asymmetric-unit chain (label asym id).
type Chain struct {
	AsymID      string
	AuthID      string
	EntityID    string
	EntityType  string
	PolymerType string
	// FullSequence lists the component ids of the entity sequence, including
	// unresolved positions; empty for non-polymers.
	FullSequence []string
	Residues     []Residue
}

// IsPolymer reports whether the chain belongs to a polymer entity.
func (c *Chain) IsPolymer() bool {
	return c.EntityType == EntityPolymer || c.EntityType == EntityBranched
}

// IsPolypeptide reports whether the polymer type is a polypeptide.
func (c *Chain) IsPolypeptide() bool {
	return strings.HasPrefix(c.PolymerType, "polypeptide")
}

// IsNucleotide reports whether the polymer type is a nucleic acid.
func (c *Chain) IsNucleotide() bool {
	return strings.Contains(c.PolymerType, "nucleotide")
}

// Positions returns the coordinates of every heavy atom.
func (c *Chain) Positions() []Vec3 {
	var out []Vec3
	for i := range c.Residues {
		for _, a := range c.Residues[i].Atoms {
			if !a.IsHydrogen() {
				out = append(out, a.Pos)
			}
		}
	}
	return out
}

// ResidueNames returns the component ids of the resolved residues in order.
func (c *Chain) ResidueNames() []string {
	out := make([]string, len(c.Residues))
	for i, r := range c.Residues {
		out[i] = r.Name
	}
	return out
}

// AtomRef addresses an atom in the asymmetric unit.
type AtomRef struct {
	Asym      string
	AuthChain string
	ResName   string
	SeqID     int
	AuthSeq   int
	ICode     string
	Atom      string
	AltLoc    string
}

// Link is a _struct_conn record.
type Link struct {
	Type     string
	A, B     AtomRef
	Distance float64
}

// IsCovalent reports whether the link is a covalent bond between residues
// (disulfides included).
func (l Link) IsCovalent() bool {
	return l.Type == "covale" || l.Type == "disulf"
}

// AssemblyGen applies an operator expression to a set of asym ids.
type AssemblyGen struct {
	AsymIDs  []string
	OperExpr string
}

// AssemblyDef is a biological assembly definition.
type AssemblyDef struct {
	ID         string
	Oligomeric string
	Gens       []AssemblyGen
}

// Cell is the crystallographic unit cell in Ångström and degrees.
type Cell struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64
}

// Structure is a parsed entry.
type Structure struct {
	ID         string
	Info       domain.EntryInfo
	Chains     []*Chain
	Links      []Link
	Assemblies []AssemblyDef
	Operators  map[string]Transform
	Cell       *Cell
	SymOps     []string
	// Templates maps component ids to a reference SMILES found in the file.
	Templates map[string]string
	// Mappings holds external database accessions per entity id.
	Mappings map[string]map[string][]string
}

// Chain returns the chain with the given asym id.
func (s *Structure) Chain(asym string) (*Chain, bool) {
	for _, c := range s.Chains {
		if c.AsymID == asym {
			return c, true
		}
	}
	return nil, false
}

// Reader loads a structure from a path.
type Reader interface {
	Read(ctx context.Context, path string) (*Structure, error)
}

// AssemblyBuilder expands assembly definitions into coordinates.
type AssemblyBuilder interface {
	Expand(s *Structure) ([]Assembly, error)
}
