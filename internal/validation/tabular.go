package validation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"plicore/pkg/domain"
)

// column aliases accepted for each field, first match wins.
var (
	colEntryID      = []string{"entry_pdb_id_x", "entry_pdb_id", "entry_id", "pdb_id"}
	colMethod       = []string{"entry_determination_method", "entry_method"}
	colResolution   = []string{"entry_resolution_x", "entry_resolution", "entry_pdbx_resolution"}
	colR            = []string{"entry_r"}
	colRFree        = []string{"entry_rfree"}
	colClashscore   = []string{"entry_clashscore"}
	colRama         = []string{"entry_percent_rama_outliers"}
	colRota         = []string{"entry_percent_rota_outliers"}
	colCompleteness = []string{"entry_data_completeness"}
	colMeanB        = []string{"entry_mean_b_factor"}
	colMolprobity   = []string{"entry_molprobity"}
	colAuthChain    = []string{"ligand_auth_chain"}
	colAuthSeq      = []string{"ligand_auth_resnum"}
	colICode        = []string{"ligand_icode"}
	colAltCode      = []string{"ligand_altcode"}
	colCCD          = []string{"ligand_ccd_code", "ligand_resname"}
	colRSCC         = []string{"ligand_rscc"}
	colRSR          = []string{"ligand_rsr"}
	colOccupancy    = []string{"ligand_avgoccu"}
	colOWAB         = []string{"ligand_owab"}
	colAtomsEDS     = []string{"ligand_NatomsEDS"}
)

type header map[string]int

func (h header) index(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

func (h header) get(rec []string, aliases []string) string {
	i := h.index(aliases)
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ReadTabular reads validation attributes from a delimited file whose first
// row names the columns, using the attribute names of the validation
// export (entry_rfree, ligand_rscc, ligand_auth_chain, ...). Rows without a
// ligand chain only contribute entry-level values.
func ReadTabular(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(), nil
		}
		return nil, fmt.Errorf("read validation header: %w", err)
	}
	h := header{}
	for i, name := range first {
		h[strings.TrimSpace(name)] = i
	}
	if h.index(colEntryID) < 0 {
		return nil, fmt.Errorf("validation table: no entry id column")
	}
	t := NewTable()
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("validation table line %d: %w", line, err)
		}
		id := h.get(rec, colEntryID)
		if id == "" {
			continue
		}
		t.mergeEntry(domain.EntryValidation{
			EntryID:                id,
			ExperimentalMethod:     h.get(rec, colMethod),
			Resolution:             parseOptional(h.get(rec, colResolution)),
			R:                      parseOptional(h.get(rec, colR)),
			RFree:                  parseOptional(h.get(rec, colRFree)),
			Clashscore:             parseOptional(h.get(rec, colClashscore)),
			PercentRamaOutliers:    parseOptional(h.get(rec, colRama)),
			PercentRotamerOutliers: parseOptional(h.get(rec, colRota)),
			DataCompleteness:       parseOptional(h.get(rec, colCompleteness)),
			MeanBFactor:            parseOptional(h.get(rec, colMeanB)),
			Molprobity:             parseOptional(h.get(rec, colMolprobity)),
		})
		chain := h.get(rec, colAuthChain)
		if chain == "" {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSuffix(h.get(rec, colAuthSeq), ".0"))
		if err != nil {
			return nil, fmt.Errorf("validation table line %d: ligand_auth_resnum: %w", line, err)
		}
		t.AddResidue(id, domain.ResidueValidation{
			Key: domain.ResidueKey{
				AuthChain: chain,
				AuthSeq:   seq,
				ICode:     h.get(rec, colICode),
				AltCode:   h.get(rec, colAltCode),
			},
			CCDCode:      h.get(rec, colCCD),
			RSCC:         parseOptional(h.get(rec, colRSCC)),
			RSR:          parseOptional(h.get(rec, colRSR)),
			AvgOccupancy: parseOptional(h.get(rec, colOccupancy)),
			AvgBFactor:   parseOptional(h.get(rec, colOWAB)),
			NumAtomsEDS:  parseOptional(h.get(rec, colAtomsEDS)),
		})
	}
	return t, nil
}

// mergeEntry fills the unset fields of the stored entry record from ev.
// Tabular exports repeat entry values on every ligand row.
func (t *Table) mergeEntry(ev domain.EntryValidation) {
	cur, ok := t.Entry(ev.EntryID)
	if !ok {
		t.AddEntry(ev)
		return
	}
	fill := func(dst **float64, src *float64) {
		if *dst == nil {
			*dst = src
		}
	}
	fill(&cur.Resolution, ev.Resolution)
	fill(&cur.R, ev.R)
	fill(&cur.RFree, ev.RFree)
	fill(&cur.Clashscore, ev.Clashscore)
	fill(&cur.PercentRamaOutliers, ev.PercentRamaOutliers)
	fill(&cur.PercentRotamerOutliers, ev.PercentRotamerOutliers)
	fill(&cur.DataCompleteness, ev.DataCompleteness)
	fill(&cur.MeanBFactor, ev.MeanBFactor)
	fill(&cur.Molprobity, ev.Molprobity)
	if cur.ExperimentalMethod == "" {
		cur.ExperimentalMethod = ev.ExperimentalMethod
	}
	t.AddEntry(cur)
}

// ReadFile loads a validation source, picking the format from the file name:
// ".xml" and ".xml.gz" are wwPDB reports, ".csv" is comma separated and
// anything else tab separated.
func ReadFile(path, fallbackID string) (*Table, error) {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".xml.gz") {
		return ReadXMLFile(path, fallbackID)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open validation table: %w", err)
	}
	defer f.Close()
	comma := '\t'
	if strings.HasSuffix(name, ".csv") {
		comma = ','
	}
	return ReadTabular(f, comma)
}
