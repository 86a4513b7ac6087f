package chem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"plicore/internal/structure"
)

// ErrMolfile reports malformed molfile input or a molecule too large for V2000.
var ErrMolfile = errors.New("invalid molfile")

// WriteSDF writes m as one V2000 record followed by props in key order and
// the $$$$ terminator. Aromatic bonds are kekulized where possible and
// written as type 4 otherwise.
func WriteSDF(w io.Writer, m *Molecule, props map[string]string) error {
	if len(m.Atoms) > 999 || len(m.Bonds) > 999 {
		return fmt.Errorf("%w: %d atoms and %d bonds exceed V2000 limits", ErrMolfile, len(m.Atoms), len(m.Bonds))
	}
	orders, err := Kekulize(m)
	if err != nil {
		orders = make([]BondOrder, len(m.Bonds))
		for k, b := range m.Bonds {
			orders[k] = b.Order
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n  plicore          3D\n\n", m.Name)
	fmt.Fprintf(bw, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(m.Atoms), len(m.Bonds))
	var charged []int
	for i, a := range m.Atoms {
		fmt.Fprintf(bw, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n",
			a.Pos[0], a.Pos[1], a.Pos[2], a.Element)
		if a.Charge != 0 {
			charged = append(charged, i)
		}
	}
	for k, b := range m.Bonds {
		fmt.Fprintf(bw, "%3d%3d%3d  0\n", b.A+1, b.B+1, int(orders[k]))
	}
	for start := 0; start < len(charged); start += 8 {
		chunk := charged[start:min(start+8, len(charged))]
		fmt.Fprintf(bw, "M  CHG%3d", len(chunk))
		for _, i := range chunk {
			fmt.Fprintf(bw, " %3d %3d", i+1, m.Atoms[i].Charge)
		}
		bw.WriteString("\n")
	}
	bw.WriteString("M  END\n")
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(bw, "> <%s>\n%s\n\n", k, props[k])
	}
	bw.WriteString("$$$$\n")
	return bw.Flush()
}

// ReadSDF parses every record of an SD file. Bond type 4 becomes Aromatic
// and marks both atoms aromatic.
func ReadSDF(r io.Reader) ([]*Molecule, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	var out []*Molecule
	for start := 0; start < len(lines); {
		end := start
		for end < len(lines) && strings.TrimSpace(lines[end]) != "$$$$" {
			end++
		}
		if strings.TrimSpace(strings.Join(lines[start:end], "")) != "" {
			m, err := parseMolBlock(lines[start:end])
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		start = end + 1
	}
	return out, nil
}

func parseMolBlock(lines []string) (*Molecule, error) {
	if len(lines) < 4 {
		return nil, fmt.Errorf("%w: header too short", ErrMolfile)
	}
	counts := lines[3]
	if len(counts) < 6 {
		return nil, fmt.Errorf("%w: counts line %q", ErrMolfile, counts)
	}
	nAtoms, err1 := strconv.Atoi(strings.TrimSpace(counts[0:3]))
	nBonds, err2 := strconv.Atoi(strings.TrimSpace(counts[3:6]))
	if err := errors.Join(err1, err2); err != nil {
		return nil, fmt.Errorf("%w: counts line: %v", ErrMolfile, err)
	}
	if len(lines) < 4+nAtoms+nBonds {
		return nil, fmt.Errorf("%w: truncated block", ErrMolfile)
	}
	m := &Molecule{Name: strings.TrimSpace(lines[0])}
	for i := 0; i < nAtoms; i++ {
		l := lines[4+i]
		if len(l) < 34 {
			return nil, fmt.Errorf("%w: atom line %q", ErrMolfile, l)
		}
		var pos structure.Vec3
		for c := 0; c < 3; c++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(l[c*10:c*10+10]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: coordinate %q", ErrMolfile, l)
			}
			pos[c] = v
		}
		m.AddAtom(Atom{Element: strings.TrimSpace(l[31:34]), Pos: pos})
	}
	for k := 0; k < nBonds; k++ {
		f := strings.Fields(lines[4+nAtoms+k])
		if len(f) < 3 {
			return nil, fmt.Errorf("%w: bond line %q", ErrMolfile, lines[4+nAtoms+k])
		}
		a, e1 := strconv.Atoi(f[0])
		b, e2 := strconv.Atoi(f[1])
		o, e3 := strconv.Atoi(f[2])
		if errors.Join(e1, e2, e3) != nil || a < 1 || b < 1 || a > nAtoms || b > nAtoms {
			return nil, fmt.Errorf("%w: bond line %q", ErrMolfile, lines[4+nAtoms+k])
		}
		order := BondOrder(o)
		if order == Aromatic {
			m.Atoms[a-1].Aromatic = true
			m.Atoms[b-1].Aromatic = true
		}
		m.AddBond(a-1, b-1, order)
	}
	for _, l := range lines[4+nAtoms+nBonds:] {
		if !strings.HasPrefix(l, "M  CHG") {
			continue
		}
		f := strings.Fields(l[6:])
		for j := 1; j+1 < len(f); j += 2 {
			idx, e1 := strconv.Atoi(f[j])
			chg, e2 := strconv.Atoi(f[j+1])
			if errors.Join(e1, e2) != nil || idx < 1 || idx > nAtoms {
				return nil, fmt.Errorf("%w: charge line %q", ErrMolfile, l)
			}
			m.Atoms[idx-1].Charge = chg
		}
	}
	return m, nil
}
