package tables

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// File is the on-disk shape of a tables override. Lists extend the built-in
// sets; they never remove entries.
type File struct {
	Artifacts        []string          `json:"artifacts"`
	Cofactors        []string          `json:"cofactors"`
	Ions             []string          `json:"ions"`
	Waters           []string          `json:"waters"`
	KinaseInhibitors []string          `json:"kinase_inhibitors"`
	NonCanonical     map[string]string `json:"non_canonical"`
	Synonyms         [][]string        `json:"synonyms"`
}

// Load reads a JSON override from r and merges it into a copy of Default().
func Load(r io.Reader) (*ChemistryTables, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	t := Default()
	if err := t.merge(f); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadFile is Load over a file path. An empty path returns Default().
func LoadFile(path string) (*ChemistryTables, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	fh, err := os.Open(path) // #nosec G304: operator-supplied configuration path
	if err != nil {
		return nil, fmt.Errorf("open tables: %w", err)
	}
	defer func() { _ = fh.Close() }()
	return Load(fh)
}

func (t *ChemistryTables) merge(f File) error {
	for _, group := range f.Synonyms {
		for _, code := range group {
			if !ValidCode(code) {
				return fmt.Errorf("synonym group %v: invalid code %q", group, code)
			}
		}
		t.AddSynonyms(group...)
	}
	for code, one := range f.NonCanonical {
		if len(one) != 1 {
			return fmt.Errorf("non_canonical %s: want a single letter, got %q", code, one)
		}
		t.NonCanonical[code] = one[0]
	}
	add := func(set CodeSet, codes []string) {
		for _, c := range codes {
			set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
		}
	}
	add(t.Artifacts, f.Artifacts)
	add(t.Cofactors, f.Cofactors)
	add(t.Ions, f.Ions)
	add(t.Waters, f.Waters)
	add(t.KinaseInhibitors, f.KinaseInhibitors)
	t.canonicalizeSets()
	return nil
}
