package domain

// CovalentLinkage records one covalent bond between a ligand atom and a
// receptor atom, each rendered as "RES:CHAIN:ATOM".
type CovalentLinkage struct {
	LigandAtom   string  `json:"ligand_atom"`
	ReceptorAtom string  `json:"receptor_atom"`
	Distance     float64 `json:"distance"`
}

// InterfaceGaps counts structural gaps near the ligand on one receptor chain.
type InterfaceGaps struct {
	MissingResidues4A int `json:"missing_interface_residues_4A"`
	MissingResidues8A int `json:"missing_interface_residues_8A"`
	AtomGaps4A        int `json:"interface_atom_gaps_4A"`
	AtomGaps8A        int `json:"interface_atom_gaps_8A"`
}

// Ligand is one ligand chain of a system after reconstruction and annotation.
type Ligand struct {
	Label                   ChainLabel               `json:"label"`
	AsymID                  string                   `json:"asym_id"`
	AuthChain               string                   `json:"auth_chain"`
	ResidueNumbers          []int                    `json:"residue_numbers"`
	ResidueICodes           []string                 `json:"residue_icodes,omitempty"`
	CCDCode                 string                   `json:"ccd_code"`
	SMILES                  string                   `json:"smiles,omitempty"`
	ResolvedSMILES          string                   `json:"resolved_smiles,omitempty"`
	NumAtoms3D              int                      `json:"num_resolved_heavy_atoms"`
	NumHeavyAtoms           int                      `json:"num_heavy_atoms"`
	NumUnresolvedHeavyAtoms int                      `json:"num_unresolved_heavy_atoms"`
	NumAromaticRings        int                      `json:"num_aromatic_rings"`
	NumFragments            int                      `json:"num_fragments"`
	IsCovalent              bool                     `json:"is_covalent"`
	CovalentLinkages        []CovalentLinkage        `json:"covalent_linkages,omitempty"`
	IsInvalid               bool                     `json:"is_invalid"`
	IsCofactor              bool                     `json:"is_cofactor"`
	IsArtifact              bool                     `json:"is_artifact"`
	IsIon                   bool                     `json:"is_ion"`
	IsOligo                 bool                     `json:"is_oligo"`
	IsPeptide               bool                     `json:"is_peptide"`
	IsKinaseInhibitor       bool                     `json:"is_kinase_inhibitor"`
	Interactions            InteractionMap           `json:"interactions"`
	Waters                  WaterMap                 `json:"waters,omitempty"`
	NeighboringReceptors    []ChainLabel             `json:"neighboring_receptor_chains"`
	NeighboringAuthIDs      []string                 `json:"neighboring_receptor_auth_ids"`
	NeighboringLigands      []ChainLabel             `json:"neighboring_ligand_chains,omitempty"`
	Gaps                    map[string]InterfaceGaps `json:"interface_gaps,omitempty"`
	BindingAffinity         *float64                 `json:"binding_affinity,omitempty"`
	PoseChecks              map[string]bool          `json:"pose_checks,omitempty"`
	Warnings                []string                 `json:"warnings,omitempty"`
}

// InteractionMap keys collapsed interaction tags by receptor chain label and
// residue index. Tag order within a residue follows detection order.
type InteractionMap map[string]map[int][]string

// Add appends tag for the given chain and residue.
func (m InteractionMap) Add(chain string, residue int, tag string) {
	byRes, ok := m[chain]
	if !ok {
		byRes = make(map[int][]string)
		m[chain] = byRes
	}
	byRes[residue] = append(byRes[residue], tag)
}

// Count returns the total number of recorded tags.
func (m InteractionMap) Count() int {
	n := 0
	for _, byRes := range m {
		for _, tags := range byRes {
			n += len(tags)
		}
	}
	return n
}

// WaterMap lists, per water chain label, the residue indices of waters
// bridging the ligand to the receptor. Indices are sorted and unique.
type WaterMap map[string][]int
