package validation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type affinityKey struct {
	entry string
	ccd   string
}

// Affinities maps (entry, CCD code) to a binding affinity on a pKd-like scale.
type Affinities map[affinityKey]float64

// Lookup returns the affinity of a ligand code in an entry.
func (a Affinities) Lookup(entryID, ccd string) (float64, bool) {
	v, ok := a[affinityKey{entryKey(entryID), strings.ToUpper(ccd)}]
	return v, ok
}

// LoadAffinities reads a delimited table with pdb_id, ccd_code and affinity
// columns. Rows with a blank or non-numeric affinity are skipped.
func LoadAffinities(r io.Reader, comma rune) (Affinities, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Affinities{}, nil
		}
		return nil, fmt.Errorf("read affinity header: %w", err)
	}
	h := header{}
	for i, name := range first {
		h[strings.TrimSpace(name)] = i
	}
	idCols := []string{"pdb_id", "entry_pdb_id", "entry_id"}
	ccdCols := []string{"ccd_code", "ligand_ccd_code"}
	valCols := []string{"affinity", "binding_affinity", "pchembl"}
	if h.index(idCols) < 0 || h.index(ccdCols) < 0 || h.index(valCols) < 0 {
		return nil, fmt.Errorf("affinity table: need pdb_id, ccd_code and affinity columns")
	}
	out := Affinities{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("affinity table line %d: %w", line, err)
		}
		v := parseOptional(h.get(rec, valCols))
		id, ccd := h.get(rec, idCols), h.get(rec, ccdCols)
		if v == nil || id == "" || ccd == "" {
			continue
		}
		out[affinityKey{entryKey(id), strings.ToUpper(ccd)}] = *v
	}
	return out, nil
}

// LoadAffinitiesFile reads an affinity table; ".csv" files are comma
// separated, anything else tab separated.
func LoadAffinitiesFile(path string) (Affinities, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open affinity table: %w", err)
	}
	defer f.Close()
	comma := '\t'
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		comma = ','
	}
	return LoadAffinities(f, comma)
}

// Apply returns a copy of rows with ligand affinities filled in and
// system_has_binding_affinity set on every row of a system where any ligand
// has one.
func (a Affinities) Apply(rows []AnnotatedRow) []AnnotatedRow {
	out := make([]AnnotatedRow, len(rows))
	copy(out, rows)
	has := map[string]bool{}
	for i := range out {
		r := &out[i]
		if r.LigandBindingAffinity == nil {
			if v, ok := a.Lookup(r.EntryID, r.LigandCCDCode); ok {
				r.LigandBindingAffinity = &v
			}
		}
		if r.LigandBindingAffinity != nil {
			has[r.SystemID] = true
		}
	}
	for i := range out {
		out[i].SystemHasBindingAffinity = has[out[i].SystemID]
	}
	return out
}
