// Package validation joins experimental validation metrics onto annotated
// systems and derives the entry and system quality flags. Missing metrics
// propagate as nulls; nothing in this package fails on absent data.
package validation

import (
	"sort"
	"strings"

	"plicore/pkg/domain"
)

// Table holds validation records for any number of entries. Entry ids are
// compared case-insensitively.
type Table struct {
	entries  map[string]domain.EntryValidation
	residues map[string][]domain.ResidueValidation
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		entries:  map[string]domain.EntryValidation{},
		residues: map[string][]domain.ResidueValidation{},
	}
}

func entryKey(id string) string { return strings.ToLower(strings.TrimSpace(id)) }

// AddEntry stores the entry-level record, replacing any previous one.
func (t *Table) AddEntry(ev domain.EntryValidation) {
	ev.EntryID = entryKey(ev.EntryID)
	t.entries[ev.EntryID] = ev
}

// AddResidue appends a residue-level record for entryID.
func (t *Table) AddResidue(entryID string, rv domain.ResidueValidation) {
	k := entryKey(entryID)
	t.residues[k] = append(t.residues[k], rv)
}

// Merge copies every record of o into t.
func (t *Table) Merge(o *Table) {
	if o == nil {
		return
	}
	for _, ev := range o.entries {
		t.AddEntry(ev)
	}
	for id, rs := range o.residues {
		for _, rv := range rs {
			t.AddResidue(id, rv)
		}
	}
}

// Entries returns the ids with an entry-level record, sorted.
func (t *Table) Entries() []string {
	out := make([]string, 0, len(t.entries))
	for id := range t.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Entry returns the entry-level record of id.
func (t *Table) Entry(id string) (domain.EntryValidation, bool) {
	if t == nil {
		return domain.EntryValidation{}, false
	}
	ev, ok := t.entries[entryKey(id)]
	return ev, ok
}

// Residue returns the record of one residue. When the residue has
// alternate locations the record without an alt code wins, then the
// lowest alt code.
func (t *Table) Residue(entryID, authChain string, authSeq int, icode string) (domain.ResidueValidation, bool) {
	if t == nil {
		return domain.ResidueValidation{}, false
	}
	var best domain.ResidueValidation
	found := false
	for _, rv := range t.residues[entryKey(entryID)] {
		k := rv.Key
		if k.AuthChain != authChain || k.AuthSeq != authSeq || k.ICode != icode {
			continue
		}
		if !found || k.AltCode < best.Key.AltCode {
			best, found = rv, true
		}
	}
	return best, found
}
