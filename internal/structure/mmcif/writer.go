package mmcif

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"plicore/internal/structure"
)

// WriteChain is one chain to emit. LabelAsym is written as label_asym_id,
// which lets system files carry assembly labels such as "1.A".
type WriteChain struct {
	LabelAsym string
	AuthID    string
	EntityID  string
	Polymer   bool
	Residues  []structure.Residue
}

var atomSiteItems = []string{
	"group_PDB", "id", "type_symbol", "label_atom_id", "label_alt_id",
	"label_comp_id", "label_asym_id", "label_entity_id", "label_seq_id",
	"pdbx_PDB_ins_code", "Cartn_x", "Cartn_y", "Cartn_z", "occupancy",
	"B_iso_or_equiv", "pdbx_formal_charge", "auth_seq_id", "auth_asym_id",
	"pdbx_PDB_model_num",
}

// Write emits a minimal mmCIF document holding the atom_site loop of chains.
func Write(w io.Writer, name string, chains []WriteChain) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "data_%s\n#\n_entry.id %s\n#\nloop_\n", name, quote(name))
	for _, item := range atomSiteItems {
		fmt.Fprintf(bw, "_atom_site.%s\n", item)
	}
	serial := 0
	for _, c := range chains {
		for _, r := range c.Residues {
			seq := "."
			if c.Polymer && r.SeqID > 0 {
				seq = strconv.Itoa(r.SeqID)
			}
			for _, a := range r.Atoms {
				serial++
				group := "ATOM"
				if a.Het || !c.Polymer {
					group = "HETATM"
				}
				fields := []string{
					group,
					strconv.Itoa(serial),
					orNull(strings.ToUpper(a.Element)),
					quote(a.Name),
					orNull(a.AltLoc),
					quote(r.Name),
					quote(c.LabelAsym),
					orNull(c.EntityID),
					seq,
					orQuestion(r.ICode),
					strconv.FormatFloat(a.Pos[0], 'f', 3, 64),
					strconv.FormatFloat(a.Pos[1], 'f', 3, 64),
					strconv.FormatFloat(a.Pos[2], 'f', 3, 64),
					strconv.FormatFloat(a.Occupancy, 'f', 2, 64),
					strconv.FormatFloat(a.BFactor, 'f', 2, 64),
					strconv.Itoa(a.Charge),
					strconv.Itoa(r.AuthSeq),
					quote(c.AuthID),
					"1",
				}
				bw.WriteString(strings.Join(fields, " "))
				bw.WriteByte('\n')
			}
		}
	}
	bw.WriteString("#\n")
	return bw.Flush()
}

func orNull(s string) string {
	if s == "" {
		return "."
	}
	return quote(s)
}

func orQuestion(s string) string {
	if s == "" {
		return "?"
	}
	return quote(s)
}

// quote wraps values that would otherwise be misread by a CIF parser.
func quote(s string) string {
	if s == "" {
		return "?"
	}
	needs := strings.ContainsAny(s, " \t'\"#") || s[0] == '_' || s[0] == ';' ||
		s == "." || s == "?" || strings.HasPrefix(strings.ToLower(s), "data_") ||
		strings.EqualFold(s, "loop_")
	if !needs {
		return s
	}
	if !strings.Contains(s, "\"") {
		return "\"" + s + "\""
	}
	return "'" + s + "'"
}
