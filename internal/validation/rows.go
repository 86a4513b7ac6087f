package validation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"plicore/pkg/domain"
)

// AnnotatedRow is one (system, ligand) row of the annotation table. Nil
// pointers render as empty cells.
type AnnotatedRow struct {
	SystemID                    string
	EntryID                     string
	EntryMethod                 string
	EntryOligomericState        string
	EntryResolution             *float64
	EntryR                      *float64
	EntryRFree                  *float64
	EntryClashscore             *float64
	EntryPercentRamaOutliers    *float64
	EntryMolprobity             *float64
	EntryRMinusRFree            *float64
	EntryPassValidation         *bool
	SystemType                  domain.SystemType
	SystemNumLigandChains       int
	SystemNumReceptorChains     int
	SystemNumCrystalAtoms       int
	SystemNumCrystalResidues    int
	SystemPocketMaxAltCount     int
	SystemLigandAtomCount       *float64
	SystemLigandAvgOccupancy    *float64
	SystemLigandAvgRSCC         *float64
	SystemLigandAvgRSR          *float64
	SystemPassValidation        *bool
	SystemHasBindingAffinity    bool
	LigandInstanceChain         string
	LigandAsymID                string
	LigandAuthChain             string
	LigandResidueNumbers        []int
	LigandResidueICodes         []string
	LigandCCDCode               string
	LigandSMILES                string
	LigandResolvedSMILES        string
	LigandNumResolvedHeavyAtoms int
	LigandNumUnresolvedHeavy    int
	LigandNumAromaticRings      int
	LigandNumFragments          int
	LigandIsCovalent            bool
	LigandCovalentLinkages      []domain.CovalentLinkage
	LigandIsInvalid             bool
	LigandIsCofactor            bool
	LigandIsArtifact            bool
	LigandIsIon                 bool
	LigandIsOligo               bool
	LigandIsKinaseInhibitor     bool
	LigandNeighborAuthIDs       []string
	LigandInteractions          domain.InteractionMap
	LigandBindingAffinity       *float64
	LigandAtomCount             *float64
	LigandRSCC                  *float64
	LigandRSR                   *float64
	LigandAvgOccupancy          *float64
	LigandPassValidation        *bool
}

// Rows flattens an annotated entry into one row per system ligand, in
// system then ligand order.
func Rows(e domain.Entry) []AnnotatedRow {
	var out []AnnotatedRow
	for _, s := range e.Systems {
		for _, l := range s.Ligands {
			out = append(out, AnnotatedRow{
				SystemID:                    s.ID,
				EntryID:                     e.ID,
				EntryMethod:                 e.Info.Method,
				EntryOligomericState:        e.Info.OligomericState,
				EntryResolution:             e.Info.Resolution,
				SystemType:                  s.Type,
				SystemNumLigandChains:       len(s.Ligands),
				SystemNumReceptorChains:     len(s.Receptors),
				SystemNumCrystalAtoms:       s.NumAtomsWithCrystalContacts,
				SystemNumCrystalResidues:    s.NumCrystalContactedResidues,
				SystemPocketMaxAltCount:     s.PocketMaxAltCount(),
				LigandInstanceChain:         l.Label.String(),
				LigandAsymID:                l.AsymID,
				LigandAuthChain:             l.AuthChain,
				LigandResidueNumbers:        l.ResidueNumbers,
				LigandResidueICodes:         l.ResidueICodes,
				LigandCCDCode:               l.CCDCode,
				LigandSMILES:                l.SMILES,
				LigandResolvedSMILES:        l.ResolvedSMILES,
				LigandNumResolvedHeavyAtoms: l.NumAtoms3D,
				LigandNumUnresolvedHeavy:    l.NumUnresolvedHeavyAtoms,
				LigandNumAromaticRings:      l.NumAromaticRings,
				LigandNumFragments:          l.NumFragments,
				LigandIsCovalent:            l.IsCovalent,
				LigandCovalentLinkages:      l.CovalentLinkages,
				LigandIsInvalid:             l.IsInvalid,
				LigandIsCofactor:            l.IsCofactor,
				LigandIsArtifact:            l.IsArtifact,
				LigandIsIon:                 l.IsIon,
				LigandIsOligo:               l.IsOligo,
				LigandIsKinaseInhibitor:     l.IsKinaseInhibitor,
				LigandNeighborAuthIDs:       l.NeighboringAuthIDs,
				LigandInteractions:          l.Interactions,
				LigandBindingAffinity:       l.BindingAffinity,
			})
		}
	}
	return out
}

type column struct {
	name   string
	render func(*AnnotatedRow) string
}

var columns = []column{
	{"system_id", func(r *AnnotatedRow) string { return r.SystemID }},
	{"entry_pdb_id", func(r *AnnotatedRow) string { return r.EntryID }},
	{"entry_determination_method", func(r *AnnotatedRow) string { return r.EntryMethod }},
	{"entry_oligomeric_state", func(r *AnnotatedRow) string { return r.EntryOligomericState }},
	{"entry_resolution", func(r *AnnotatedRow) string { return formatFloat(r.EntryResolution) }},
	{"entry_r", func(r *AnnotatedRow) string { return formatFloat(r.EntryR) }},
	{"entry_rfree", func(r *AnnotatedRow) string { return formatFloat(r.EntryRFree) }},
	{"entry_clashscore", func(r *AnnotatedRow) string { return formatFloat(r.EntryClashscore) }},
	{"entry_percent_rama_outliers", func(r *AnnotatedRow) string { return formatFloat(r.EntryPercentRamaOutliers) }},
	{"entry_molprobity", func(r *AnnotatedRow) string { return formatFloat(r.EntryMolprobity) }},
	{"entry_r_minus_rfree", func(r *AnnotatedRow) string { return formatFloat(r.EntryRMinusRFree) }},
	{"entry_pass_validation_criteria", func(r *AnnotatedRow) string { return formatOptBool(r.EntryPassValidation) }},
	{"system_type", func(r *AnnotatedRow) string { return string(r.SystemType) }},
	{"system_num_ligand_chains", func(r *AnnotatedRow) string { return strconv.Itoa(r.SystemNumLigandChains) }},
	{"system_num_protein_chains", func(r *AnnotatedRow) string { return strconv.Itoa(r.SystemNumReceptorChains) }},
	{"system_num_atoms_with_crystal_contacts", func(r *AnnotatedRow) string { return strconv.Itoa(r.SystemNumCrystalAtoms) }},
	{"system_num_crystal_contacted_residues", func(r *AnnotatedRow) string { return strconv.Itoa(r.SystemNumCrystalResidues) }},
	{"system_pocket_max_alt_count", func(r *AnnotatedRow) string { return strconv.Itoa(r.SystemPocketMaxAltCount) }},
	{"system_ligand_atom_count", func(r *AnnotatedRow) string { return formatFloat(r.SystemLigandAtomCount) }},
	{"system_ligand_average_occupancy", func(r *AnnotatedRow) string { return formatFloat(r.SystemLigandAvgOccupancy) }},
	{"system_ligand_average_rscc", func(r *AnnotatedRow) string { return formatFloat(r.SystemLigandAvgRSCC) }},
	{"system_ligand_average_rsr", func(r *AnnotatedRow) string { return formatFloat(r.SystemLigandAvgRSR) }},
	{"system_pass_validation_criteria", func(r *AnnotatedRow) string { return formatOptBool(r.SystemPassValidation) }},
	{"system_has_binding_affinity", func(r *AnnotatedRow) string { return formatBool(r.SystemHasBindingAffinity) }},
	{"ligand_instance_chain", func(r *AnnotatedRow) string { return r.LigandInstanceChain }},
	{"ligand_asym_id", func(r *AnnotatedRow) string { return r.LigandAsymID }},
	{"ligand_auth_chain", func(r *AnnotatedRow) string { return r.LigandAuthChain }},
	{"ligand_residue_numbers", func(r *AnnotatedRow) string { return joinInts(r.LigandResidueNumbers) }},
	{"ligand_ccd_code", func(r *AnnotatedRow) string { return r.LigandCCDCode }},
	{"ligand_smiles", func(r *AnnotatedRow) string { return r.LigandSMILES }},
	{"ligand_resolved_smiles", func(r *AnnotatedRow) string { return r.LigandResolvedSMILES }},
	{"ligand_num_resolved_heavy_atoms", func(r *AnnotatedRow) string { return strconv.Itoa(r.LigandNumResolvedHeavyAtoms) }},
	{"ligand_num_unresolved_heavy_atoms", func(r *AnnotatedRow) string { return strconv.Itoa(r.LigandNumUnresolvedHeavy) }},
	{"ligand_num_aromatic_rings", func(r *AnnotatedRow) string { return strconv.Itoa(r.LigandNumAromaticRings) }},
	{"ligand_num_fragments", func(r *AnnotatedRow) string { return strconv.Itoa(r.LigandNumFragments) }},
	{"ligand_is_covalent", func(r *AnnotatedRow) string { return formatBool(r.LigandIsCovalent) }},
	{"ligand_covalent_linkages", func(r *AnnotatedRow) string { return formatLinkages(r.LigandCovalentLinkages) }},
	{"ligand_is_invalid", func(r *AnnotatedRow) string { return formatBool(r.LigandIsInvalid) }},
	{"ligand_is_cofactor", func(r *AnnotatedRow) string { return formatBool(r.LigandIsCofactor) }},
	{"ligand_is_artifact", func(r *AnnotatedRow) string { return formatBool(r.LigandIsArtifact) }},
	{"ligand_is_ion", func(r *AnnotatedRow) string { return formatBool(r.LigandIsIon) }},
	{"ligand_is_oligo", func(r *AnnotatedRow) string { return formatBool(r.LigandIsOligo) }},
	{"ligand_is_kinase_inhibitor", func(r *AnnotatedRow) string { return formatBool(r.LigandIsKinaseInhibitor) }},
	{"ligand_neighboring_protein_chains_auth_id", func(r *AnnotatedRow) string { return strings.Join(r.LigandNeighborAuthIDs, ";") }},
	{"ligand_interactions", func(r *AnnotatedRow) string { return formatJSON(r.LigandInteractions) }},
	{"ligand_binding_affinity", func(r *AnnotatedRow) string { return formatFloat(r.LigandBindingAffinity) }},
	{"ligand_num_atoms_eds", func(r *AnnotatedRow) string { return formatFloat(r.LigandAtomCount) }},
	{"ligand_rscc", func(r *AnnotatedRow) string { return formatFloat(r.LigandRSCC) }},
	{"ligand_rsr", func(r *AnnotatedRow) string { return formatFloat(r.LigandRSR) }},
	{"ligand_avgoccu", func(r *AnnotatedRow) string { return formatFloat(r.LigandAvgOccupancy) }},
	{"ligand_pass_validation_criteria", func(r *AnnotatedRow) string { return formatOptBool(r.LigandPassValidation) }},
}

// Columns returns the column names in output order.
func Columns() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

// Record renders the row in Columns order.
func (r *AnnotatedRow) Record() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.render(r)
	}
	return out
}

// Value returns the rendered cell of the named column.
func (r *AnnotatedRow) Value(name string) (string, bool) {
	for _, c := range columns {
		if c.name == name {
			return c.render(r), true
		}
	}
	return "", false
}

// WriteTSV writes a header and one line per row.
func WriteTSV(w io.Writer, rows []AnnotatedRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(Columns()); err != nil {
		return fmt.Errorf("write annotation header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(rows[i].Record()); err != nil {
			return fmt.Errorf("write annotation row %s: %w", rows[i].SystemID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func formatOptBool(v *bool) string {
	if v == nil {
		return ""
	}
	return formatBool(*v)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ";")
}

func formatLinkages(ls []domain.CovalentLinkage) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = l.LigandAtom + "__" + l.ReceptorAtom
	}
	return strings.Join(parts, ";")
}

func formatJSON(v domain.InteractionMap) string {
	if len(v) == 0 {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
