package validation

import (
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"plicore/pkg/domain"
)

type xmlReport struct {
	XMLName   xml.Name      `xml:"wwPDB-validation-information"`
	Entry     xmlEntry      `xml:"Entry"`
	Subgroups []xmlSubgroup `xml:"ModelledSubgroup"`
}

type xmlEntry struct {
	PDBID        string `xml:"pdbid,attr"`
	Method       string `xml:"PDB-method,attr"`
	Resolution   string `xml:"PDB-resolution,attr"`
	R            string `xml:"PDB-R,attr"`
	RFree        string `xml:"PDB-Rfree,attr"`
	Clashscore   string `xml:"clashscore,attr"`
	RamaOutliers string `xml:"percent-rama-outliers,attr"`
	RotaOutliers string `xml:"percent-rota-outliers,attr"`
	Completeness string `xml:"DataCompleteness,attr"`
}

type xmlSubgroup struct {
	Chain     string     `xml:"chain,attr"`
	ResNum    string     `xml:"resnum,attr"`
	ICode     string     `xml:"icode,attr"`
	AltCode   string     `xml:"altcode,attr"`
	ResName   string     `xml:"resname,attr"`
	Model     string     `xml:"model,attr"`
	RSCC      string     `xml:"rscc,attr"`
	RSR       string     `xml:"rsr,attr"`
	AvgOccu   string     `xml:"avgoccu,attr"`
	OWAB      string     `xml:"owab,attr"`
	NAtomsEDS string     `xml:"NatomsEDS,attr"`
	Clashes   []struct{} `xml:"clash"`
}

// ReadXML parses a wwPDB validation report. fallbackID names the entry when
// the report carries no pdbid attribute. Only the first model is kept.
func ReadXML(r io.Reader, fallbackID string) (*Table, error) {
	var rep xmlReport
	if err := xml.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode validation report: %w", err)
	}
	id := rep.Entry.PDBID
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		return nil, fmt.Errorf("validation report has no entry id")
	}
	t := NewTable()
	e := rep.Entry
	t.AddEntry(domain.EntryValidation{
		EntryID:                id,
		ExperimentalMethod:     e.Method,
		Resolution:             parseOptional(e.Resolution),
		R:                      parseOptional(e.R),
		RFree:                  parseOptional(e.RFree),
		Clashscore:             parseOptional(e.Clashscore),
		PercentRamaOutliers:    parseOptional(e.RamaOutliers),
		PercentRotamerOutliers: parseOptional(e.RotaOutliers),
		DataCompleteness:       parseOptional(e.Completeness),
	})
	for _, sg := range rep.Subgroups {
		if m := strings.TrimSpace(sg.Model); m != "" && m != "1" {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSpace(sg.ResNum))
		if err != nil {
			return nil, fmt.Errorf("validation report %s: residue number %q: %w", id, sg.ResNum, err)
		}
		clashes := float64(len(sg.Clashes))
		t.AddResidue(id, domain.ResidueValidation{
			Key: domain.ResidueKey{
				AuthChain: strings.TrimSpace(sg.Chain),
				AuthSeq:   seq,
				ICode:     strings.TrimSpace(sg.ICode),
				AltCode:   strings.TrimSpace(sg.AltCode),
			},
			CCDCode:      strings.TrimSpace(sg.ResName),
			RSCC:         parseOptional(sg.RSCC),
			RSR:          parseOptional(sg.RSR),
			AvgOccupancy: parseOptional(sg.AvgOccu),
			AvgBFactor:   parseOptional(sg.OWAB),
			NumAtomsEDS:  parseOptional(sg.NAtomsEDS),
			NumClashes:   &clashes,
		})
	}
	return t, nil
}

// ReadXMLFile reads a validation report from path, gunzipping ".gz" files.
func ReadXMLFile(path, fallbackID string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open validation report: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open validation report %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadXML(r, fallbackID)
}

// parseOptional parses a numeric attribute; blanks and placeholders such as
// "NotAvailable" yield nil.
func parseOptional(s string) *float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "none", "null", "notavailable", ".", "?":
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
