package domain

import "strings"

// InteractionType names a class of non-covalent contact.
type InteractionType string

const (
	HydrogenBond InteractionType = "hydrogen_bonds"
	Hydrophobic  InteractionType = "hydrophobic_contacts"
	SaltBridge   InteractionType = "salt_bridges"
	WaterBridge  InteractionType = "water_bridges"
	PiStack      InteractionType = "pi_stacks"
	PiCation     InteractionType = "pi_cation_interactions"
	Halogen      InteractionType = "halogen_bonds"
	MetalComplex InteractionType = "metal_complexes"
)

// Stacking geometries for pi stacks.
const (
	StackParallel = "P"
	StackTShaped  = "T"
)

// Contact is a single detected interaction between a ligand and a receptor
// residue, optionally mediated by a water residue.
type Contact struct {
	Type            InteractionType `json:"type"`
	ReceptorChain   string          `json:"receptor_chain"`
	ReceptorResidue int             `json:"receptor_residue"`
	WaterChain      string          `json:"water_chain,omitempty"`
	WaterResidue    int             `json:"water_residue,omitempty"`
	ProtIsDon       *bool           `json:"protisdon,omitempty"`
	SideChain       *bool           `json:"sidechain,omitempty"`
	ProtIsPos       *bool           `json:"protispos,omitempty"`
	StackType       string          `json:"stack_type,omitempty"`
	Distance        float64         `json:"distance"`
	LigandAtom      int             `json:"ligand_atom"`
}

// Tag collapses the contact into its canonical string form, for example
// "type:hydrogen_bonds__protisdon:True__sidechain:True". Qualifiers that do
// not apply to the type are omitted.
func (c Contact) Tag() string {
	var b strings.Builder
	b.WriteString("type:")
	b.WriteString(string(c.Type))
	if c.ProtIsDon != nil {
		b.WriteString("__protisdon:")
		b.WriteString(pyBool(*c.ProtIsDon))
	}
	if c.SideChain != nil {
		b.WriteString("__sidechain:")
		b.WriteString(pyBool(*c.SideChain))
	}
	if c.ProtIsPos != nil {
		b.WriteString("__protispos:")
		b.WriteString(pyBool(*c.ProtIsPos))
	}
	if c.StackType != "" {
		b.WriteString("__stack_type:")
		b.WriteString(c.StackType)
	}
	return b.String()
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
