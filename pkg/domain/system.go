package domain

import "strings"

// SystemType distinguishes systems anchored on a primary ligand from systems
// whose only ligands are cofactors.
type SystemType string

const (
	SystemHolo         SystemType = "holo"
	SystemCofactorOnly SystemType = "cofactor_only"
)

// ResidueRef points at a residue of an assembly chain.
type ResidueRef struct {
	Chain   ChainLabel `json:"chain"`
	AuthSeq int        `json:"auth_seq"`
	SeqID   int        `json:"seq_id"`
	ICode   string     `json:"icode,omitempty"`
	Name    string     `json:"name"`
	AltLocs int        `json:"alt_locs"`
}

// System is the unit of curation: one or more ligand chains together with
// the receptor chains they contact inside one biological assembly.
type System struct {
	ID                          string       `json:"system_id"`
	EntryID                     string       `json:"entry_id"`
	Assembly                    string       `json:"assembly"`
	Type                        SystemType   `json:"type"`
	Receptors                   []ChainLabel `json:"receptor_chains"`
	ReceptorAuthIDs             []string     `json:"receptor_auth_ids"`
	Ligands                     []Ligand     `json:"ligands"`
	PocketResidues              []ResidueRef `json:"pocket_residues,omitempty"`
	NumAtomsWithCrystalContacts int          `json:"num_atoms_with_crystal_contacts"`
	NumCrystalContactedResidues int          `json:"num_crystal_contacted_residues"`
	Warnings                    []string     `json:"warnings,omitempty"`
}

// LigandLabels returns the labels of the system's ligand chains in order.
func (s *System) LigandLabels() []ChainLabel {
	out := make([]ChainLabel, len(s.Ligands))
	for i, l := range s.Ligands {
		out[i] = l.Label
	}
	return out
}

// PocketMaxAltCount returns the largest number of alternate locations seen on
// a pocket residue, or 0 for an empty pocket.
func (s *System) PocketMaxAltCount() int {
	best := 0
	for _, r := range s.PocketResidues {
		best = max(best, r.AltLocs)
	}
	return best
}

// SystemID renders the canonical identifier
// "{entry}__{assembly}__{receptors}__{ligands}". Labels must already be
// sorted and unique.
func SystemID(entryID, assembly string, receptors, ligands []ChainLabel) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(entryID))
	b.WriteString("__")
	b.WriteString(assembly)
	b.WriteString("__")
	b.WriteString(JoinLabels(receptors, "_"))
	b.WriteString("__")
	b.WriteString(JoinLabels(ligands, "_"))
	return b.String()
}
