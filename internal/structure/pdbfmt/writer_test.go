package pdbfmt

import (
	"bytes"
	"strings"
	"testing"

	"plicore/internal/structure"
)

func TestWriteColumns(t *testing.T) {
	res := []structure.Residue{{Name: "GLY", AuthSeq: 12, Atoms: []structure.Atom{
		{Name: "CA", Element: "C", Occupancy: 1, BFactor: 15.5, Pos: structure.Vec3{1.5, -2.25, 10}},
	}}}
	water := []structure.Residue{{Name: "HOH", AuthSeq: 1, Atoms: []structure.Atom{{Name: "O", Element: "O", Occupancy: 1}}}}
	var buf bytes.Buffer
	if err := Write(&buf, []Chain{{ID: "A", Residues: res}, {ID: "_", Het: true, Residues: water}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected ATOM, TER, HETATM, END; got %q", lines)
	}
	atom := lines[0]
	if atom[:6] != "ATOM  " || atom[12:16] != " CA " || atom[17:20] != "GLY" || atom[21:22] != "A" {
		t.Fatalf("bad columns: %q", atom)
	}
	if strings.TrimSpace(atom[22:26]) != "12" || strings.TrimSpace(atom[30:38]) != "1.500" || strings.TrimSpace(atom[76:78]) != "C" {
		t.Fatalf("bad numeric columns: %q", atom)
	}
	if !strings.HasPrefix(lines[1], "TER") || !strings.HasPrefix(lines[2], "HETATM") || lines[3] != "END" {
		t.Fatalf("unexpected records %q", lines)
	}
}

func TestWriteRejectsLongChainID(t *testing.T) {
	if err := Write(&bytes.Buffer{}, []Chain{{ID: "1.A"}}); err == nil {
		t.Fatalf("expected chain id error")
	}
}
