package tables

import (
	"sort"
	"unicode"
)

// SortCCDCodes orders chemical component codes by length (longest first),
// then lexicographically, and finally moves codes starting with a letter
// ahead of codes starting with a digit. The input is not modified.
//
//	SortCCDCodes([]string{"G", "G25", "CPG", "5GP"}) // [CPG G25 G 5GP]
func SortCCDCodes(codes []string) []string {
	out := append([]string(nil), codes...)
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	sort.SliceStable(out, func(i, j int) bool {
		return letterLeading(out[i]) && !letterLeading(out[j])
	})
	return out
}

func letterLeading(code string) bool {
	if code == "" {
		return false
	}
	return !unicode.IsDigit(rune(code[0]))
}

// Canonicalize maps code to the representative of its synonym group. Codes
// outside every group map to themselves. Canonicalize is idempotent.
func (t *ChemistryTables) Canonicalize(code string) string {
	if t == nil {
		return code
	}
	if c, ok := t.synonyms[code]; ok {
		return c
	}
	return code
}

// AddSynonyms registers a group of equivalent codes. The group's
// representative is the first element of SortCCDCodes over the union of the
// group and any group it overlaps, so merging is order independent.
func (t *ChemistryTables) AddSynonyms(group ...string) {
	if len(group) == 0 {
		return
	}
	members := make(map[string]struct{})
	for _, code := range group {
		members[code] = struct{}{}
		if rep, ok := t.synonyms[code]; ok {
			for other, r := range t.synonyms {
				if r == rep {
					members[other] = struct{}{}
				}
			}
		}
	}
	all := make([]string, 0, len(members))
	for code := range members {
		all = append(all, code)
	}
	rep := SortCCDCodes(all)[0]
	for _, code := range all {
		t.synonyms[code] = rep
	}
}

// SynonymGroups returns every registered group keyed by representative.
func (t *ChemistryTables) SynonymGroups() map[string][]string {
	out := make(map[string][]string)
	for code, rep := range t.synonyms {
		out[rep] = append(out[rep], code)
	}
	for rep := range out {
		out[rep] = SortCCDCodes(out[rep])
	}
	return out
}
