package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"plicore/internal/annotate"
	"plicore/internal/chem"
	"plicore/internal/structure"
	"plicore/internal/structure/mmcif"
	"plicore/internal/structure/pdbfmt"
	"plicore/pkg/domain"
)

// File names inside a system folder.
const (
	SequencesFile    = "sequences.fasta"
	ReceptorPDBFile  = "receptor.pdb"
	ReceptorCIFFile  = "receptor.cif"
	SystemCIFFile    = "system.cif"
	ChainMappingFile = "chain_mapping.json"
	WaterMappingFile = "water_mapping.json"
	LigandDir        = "ligand_files"
)

// WaterChainID is the PDB chain id that collects the bridging waters of a
// receptor file.
const WaterChainID = "_"

// WaterSite is one bridging water written to receptor.pdb under chain "_".
type WaterSite struct {
	Chain   string `json:"chain"`
	Residue int    `json:"residue_index"`
	AuthSeq int    `json:"auth_seq"`
}

// file is one rendered artifact, relative to the system folder.
type file struct {
	name string
	data []byte
}

// renderSystem produces every artifact of b in write order.
func renderSystem(entry *domain.Entry, b *annotate.SystemBundle, opts Options) ([]file, []string, error) {
	var files []file
	var warnings []string

	fasta, err := renderFASTA(entry, b.Receptors, opts.FASTAColumns)
	if err != nil {
		return nil, nil, err
	}
	files = append(files, file{SequencesFile, fasta})

	waters, sites := bridgingWaters(b)
	mapping, pdb, err := renderReceptorPDB(b.Receptors, waters)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("%s skipped: %v", ReceptorPDBFile, err))
	} else {
		files = append(files, file{ReceptorPDBFile, pdb})
		mj, err := marshalJSON(mapping)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, file{ChainMappingFile, mj})
	}
	if len(sites) > 0 {
		wj, err := marshalJSON(sites)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, file{WaterMappingFile, wj})
	}

	var buf bytes.Buffer
	if err := mmcif.Write(&buf, b.System.ID+"__receptor", cifChains(b.Receptors, true)); err != nil {
		return nil, nil, fmt.Errorf("render %s: %w", ReceptorCIFFile, err)
	}
	files = append(files, file{ReceptorCIFFile, bytes.Clone(buf.Bytes())})

	buf.Reset()
	all := cifChains(b.Receptors, true)
	all = append(all, cifChains(b.Ligands, false)...)
	all = append(all, cifChains(waters, false)...)
	if err := mmcif.Write(&buf, b.System.ID, all); err != nil {
		return nil, nil, fmt.Errorf("render %s: %w", SystemCIFFile, err)
	}
	files = append(files, file{SystemCIFFile, bytes.Clone(buf.Bytes())})

	for i, lig := range b.System.Ligands {
		if i >= len(b.Molecules) || b.Molecules[i] == nil {
			warnings = append(warnings, fmt.Sprintf("ligand %s has no molecule to write", lig.Label))
			continue
		}
		sdf, err := renderSDF(lig, b.Molecules[i], opts.AddHydrogens)
		if err != nil {
			return nil, nil, fmt.Errorf("render ligand %s: %w", lig.Label, err)
		}
		files = append(files, file{LigandDir + "/" + lig.Label.String() + ".sdf", sdf})
	}
	return files, warnings, nil
}

// renderFASTA writes one record per receptor chain, headed by its label.
// columns > 0 wraps sequence lines.
func renderFASTA(entry *domain.Entry, receptors []*structure.AssemblyChain, columns int) ([]byte, error) {
	var buf bytes.Buffer
	for _, rc := range receptors {
		seq := ""
		if rc.Source != nil {
			if ch, ok := entry.ChainByAsym(rc.Source.AsymID); ok {
				seq = ch.Sequence
			}
		}
		if seq == "" {
			return nil, fmt.Errorf("receptor %s has no sequence", rc.Label)
		}
		fmt.Fprintf(&buf, ">%s\n", rc.Label)
		for columns > 0 && len(seq) > columns {
			buf.WriteString(seq[:columns])
			buf.WriteByte('\n')
			seq = seq[columns:]
		}
		buf.WriteString(seq)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// bridgingWaters returns the water copies referenced by any ligand's water
// map, trimmed to the bridging residues, and their ordered sites.
func bridgingWaters(b *annotate.SystemBundle) ([]*structure.AssemblyChain, []WaterSite) {
	want := map[string]map[int]bool{}
	for _, l := range b.System.Ligands {
		for chain, idx := range l.Waters {
			if want[chain] == nil {
				want[chain] = map[int]bool{}
			}
			for _, i := range idx {
				want[chain][i] = true
			}
		}
	}
	var out []*structure.AssemblyChain
	var sites []WaterSite
	for _, wc := range b.Waters {
		keep := want[wc.Label.String()]
		if len(keep) == 0 {
			continue
		}
		trimmed := &structure.AssemblyChain{Label: wc.Label, Source: wc.Source, Op: wc.Op, Mate: wc.Mate}
		for _, r := range wc.Residues {
			if keep[r.Index()] {
				trimmed.Residues = append(trimmed.Residues, r)
				sites = append(sites, WaterSite{Chain: wc.Label.String(), Residue: r.Index(), AuthSeq: r.AuthSeq})
			}
		}
		if len(trimmed.Residues) > 0 {
			out = append(out, trimmed)
		}
	}
	return out, sites
}

// renderReceptorPDB writes receptors under single-character chain ids, with
// bridging waters renumbered from 1 under chain "_". The mapping goes from
// PDB chain id to assembly label.
func renderReceptorPDB(receptors, waters []*structure.AssemblyChain) (map[string]string, []byte, error) {
	if len(receptors) > len(pdbfmt.ChainIDs) {
		return nil, nil, fmt.Errorf("%d receptor chains exceed the PDB chain id alphabet", len(receptors))
	}
	mapping := make(map[string]string, len(receptors))
	chains := make([]pdbfmt.Chain, 0, len(receptors)+1)
	for i, rc := range receptors {
		id := pdbfmt.ChainIDs[i : i+1]
		mapping[id] = rc.Label.String()
		chains = append(chains, pdbfmt.Chain{ID: id, Residues: rc.Residues})
	}
	var hoh []structure.Residue
	for _, wc := range waters {
		for _, r := range wc.Residues {
			r.AuthSeq = len(hoh) + 1
			r.ICode = ""
			hoh = append(hoh, r)
		}
	}
	if len(hoh) > 0 {
		chains = append(chains, pdbfmt.Chain{ID: WaterChainID, Het: true, Residues: hoh})
	}
	var buf bytes.Buffer
	if err := pdbfmt.Write(&buf, chains); err != nil {
		return nil, nil, err
	}
	return mapping, buf.Bytes(), nil
}

func cifChains(chains []*structure.AssemblyChain, polymer bool) []mmcif.WriteChain {
	out := make([]mmcif.WriteChain, 0, len(chains))
	for _, c := range chains {
		wc := mmcif.WriteChain{LabelAsym: c.Label.String(), Polymer: polymer, Residues: c.Residues}
		if c.Source != nil {
			wc.AuthID = c.Source.AuthID
			wc.EntityID = c.Source.EntityID
			wc.Polymer = polymer && c.Source.IsPolymer()
		}
		out = append(out, wc)
	}
	return out
}

// renderSDF writes the ligand molecule. Hydrogens are stripped unless
// addHydrogens is set.
func renderSDF(lig domain.Ligand, m *chem.Molecule, addHydrogens bool) ([]byte, error) {
	mol := m
	if !addHydrogens {
		mol = chem.RemoveHydrogens(m)
	}
	mol = mol.Clone()
	mol.Name = lig.Label.String()
	props := map[string]string{
		"ccd_code":   lig.CCDCode,
		"is_invalid": strconv.FormatBool(lig.IsInvalid),
	}
	if lig.SMILES != "" {
		props["smiles"] = lig.SMILES
	}
	if lig.ResolvedSMILES != "" {
		props["resolved_smiles"] = lig.ResolvedSMILES
	}
	var buf bytes.Buffer
	if err := chem.WriteSDF(&buf, mol, props); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
