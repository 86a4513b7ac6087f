// Package domain defines the value types shared by the annotation pipeline:
// entries, chains, systems, ligands, interaction records and validation
// records. Values here carry no behaviour beyond formatting and ordering.
package domain

// Role classifies a chain for system construction.
type Role string

// Chain roles assigned by the classifier.
const (
	// RoleProtein marks a polypeptide at or above the polymer size threshold.
	RoleProtein Role = "protein"
	// RoleNucleicAcid marks a nucleotide polymer at or above the polymer size threshold.
	RoleNucleicAcid Role = "nucleic_acid"
	// RolePeptideLigand marks a short polymer composed only of standard amino acids.
	RolePeptideLigand Role = "peptide_ligand"
	// RoleLigand marks small molecules and sub-threshold non-standard polymers.
	RoleLigand Role = "ligand"
	// RoleCofactor marks ligands listed as cofactors.
	RoleCofactor Role = "cofactor"
	// RoleArtifact marks crystallization additives and buffer components.
	RoleArtifact Role = "artifact"
	// RoleIon marks single-atom ions.
	RoleIon Role = "ion"
	// RoleWater marks solvent chains.
	RoleWater Role = "water"
	// RoleUnknown marks chains whose residue names could not be interpreted.
	RoleUnknown Role = "unknown"
)

// IsReceptor reports whether chains of this role can anchor a system.
func (r Role) IsReceptor() bool {
	return r == RoleProtein || r == RoleNucleicAcid
}

// IsLigand reports whether chains of this role are considered as system ligands.
// Artifacts, waters and unknown chains never are.
func (r Role) IsLigand() bool {
	switch r {
	case RoleLigand, RolePeptideLigand, RoleCofactor, RoleIon:
		return true
	}
	return false
}
