// Package tables holds the residue and chemistry lookup tables consulted by
// the classifier, the reconstructor and the contact detector. Tables are
// plain values built once and passed explicitly; nothing here is global.
package tables

import (
	"regexp"
	"strings"
)

// CodeSet is a set of canonical chemical component codes.
type CodeSet map[string]struct{}

// Has reports membership.
func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

func newCodeSet(codes ...string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// ChemistryTables is the configuration object behind every membership test in
// the pipeline. Sets are stored in canonical form: lookups must pass codes
// through Canonicalize first (the Is* helpers do this).
type ChemistryTables struct {
	AminoAcids       map[string]byte
	NonCanonical     map[string]byte
	Nucleotides      map[string]byte
	Waters           CodeSet
	Artifacts        CodeSet
	Cofactors        CodeSet
	Ions             CodeSet
	KinaseInhibitors CodeSet
	// SideChainAtoms lists, per standard amino acid, the atoms beyond the backbone.
	SideChainAtoms map[string][]string
	// AromaticRings lists ring atom names per residue in cyclic order, one slice per ring.
	AromaticRings map[string][][]string
	// PositiveAtoms and NegativeAtoms list charged side-chain atoms per residue.
	PositiveAtoms map[string][]string
	NegativeAtoms map[string][]string

	synonyms map[string]string
}

// BackboneAtoms are the polypeptide main-chain atom names.
var BackboneAtoms = map[string]struct{}{"N": {}, "CA": {}, "C": {}, "O": {}, "OXT": {}}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)

// ValidCode reports whether s is a well-formed chemical component code.
func ValidCode(s string) bool {
	return codePattern.MatchString(s)
}

// canonicalizeSets rewrites every set member to its canonical form.
func (t *ChemistryTables) canonicalizeSets() {
	for _, set := range []*CodeSet{&t.Waters, &t.Artifacts, &t.Cofactors, &t.Ions, &t.KinaseInhibitors} {
		next := make(CodeSet, len(*set))
		for code := range *set {
			next[t.Canonicalize(code)] = struct{}{}
		}
		*set = next
	}
}

func (t *ChemistryTables) has(set CodeSet, code string) bool {
	return set.Has(t.Canonicalize(strings.ToUpper(strings.TrimSpace(code))))
}

// IsWater reports whether code names a solvent residue.
func (t *ChemistryTables) IsWater(code string) bool { return t.has(t.Waters, code) }

// IsArtifact reports whether code names a crystallization artifact.
func (t *ChemistryTables) IsArtifact(code string) bool { return t.has(t.Artifacts, code) }

// IsCofactor reports whether code names a cofactor.
func (t *ChemistryTables) IsCofactor(code string) bool { return t.has(t.Cofactors, code) }

// IsIon reports whether code names a single-atom ion.
func (t *ChemistryTables) IsIon(code string) bool { return t.has(t.Ions, code) }

// IsKinaseInhibitor reports whether code names a known kinase inhibitor.
func (t *ChemistryTables) IsKinaseInhibitor(code string) bool {
	return t.has(t.KinaseInhibitors, code)
}

// IsStandardAminoAcid reports whether code is one of the twenty standard residues.
func (t *ChemistryTables) IsStandardAminoAcid(code string) bool {
	_, ok := t.AminoAcids[code]
	return ok
}

// IsNucleotide reports whether code is a standard ribo- or deoxyribonucleotide.
func (t *ChemistryTables) IsNucleotide(code string) bool {
	_, ok := t.Nucleotides[code]
	return ok
}

// OneLetter returns the one-letter code of a residue. Modified residues map
// through the non-canonical table; unknown residues return 'X' and false.
func (t *ChemistryTables) OneLetter(code string) (byte, bool) {
	if c, ok := t.AminoAcids[code]; ok {
		return c, true
	}
	if c, ok := t.NonCanonical[code]; ok {
		return c, true
	}
	if c, ok := t.Nucleotides[code]; ok {
		return c, true
	}
	return 'X', false
}

// IsBackbone reports whether atom is a polypeptide main-chain atom.
func IsBackbone(atom string) bool {
	_, ok := BackboneAtoms[atom]
	return ok
}
