package annotate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// TemplateSource resolves the reference SMILES of a chemical component.
type TemplateSource interface {
	SMILES(code string) (string, bool)
}

// TemplateMap is an in-memory TemplateSource keyed by upper-case CCD code.
type TemplateMap map[string]string

// SMILES implements TemplateSource.
func (m TemplateMap) SMILES(code string) (string, bool) {
	s, ok := m[strings.ToUpper(code)]
	return s, ok && s != ""
}

// Templates chains sources; the first source holding a code wins.
type Templates []TemplateSource

// SMILES implements TemplateSource.
func (t Templates) SMILES(code string) (string, bool) {
	for _, src := range t {
		if src == nil {
			continue
		}
		if s, ok := src.SMILES(code); ok {
			return s, true
		}
	}
	return "", false
}

// LoadTemplates reads a "ccd_code<TAB>smiles" table. A header row whose first
// cell is "ccd_code" or "id" is skipped; blank lines and lines starting with
// '#' are ignored.
func LoadTemplates(r io.Reader) (TemplateMap, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	out := TemplateMap{}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read templates: %w", err)
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("read templates: line %d: expected code and smiles", line)
		}
		code := strings.ToUpper(strings.TrimSpace(rec[0]))
		if line == 1 && (code == "CCD_CODE" || code == "ID") {
			continue
		}
		if code == "" {
			continue
		}
		out[code] = strings.TrimSpace(rec[1])
	}
	return out, nil
}

// LoadTemplatesFile reads a template table from path.
func LoadTemplatesFile(path string) (TemplateMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	defer f.Close()
	return LoadTemplates(f)
}
